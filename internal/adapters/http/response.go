package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, contracts.SuccessResponse{Status: "success", Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, contracts.ErrorResponse{Status: "error", Error: contracts.ErrorPayload{Code: code, Message: message, RequestID: requestID}})
}

// mapDomainError checks wrapping sentinels first: a partial write can carry a
// storage conflict underneath it.
func mapDomainError(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, domain.ErrPartialWriteFailure):
		return http.StatusInternalServerError, "partial_write_failure"
	case errors.Is(err, domain.ErrEscrowOverrelease):
		return http.StatusInternalServerError, "escrow_overrelease"
	case errors.Is(err, domain.ErrConfigurationMissing):
		return http.StatusServiceUnavailable, "configuration_missing"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusUnauthorized, "invalid_signature"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrIdempotencyRequired):
		return http.StatusBadRequest, "idempotency_key_required"
	case errors.Is(err, domain.ErrAmountMismatch):
		return http.StatusBadRequest, "amount_mismatch"
	case errors.Is(err, domain.ErrInvalidEnvelope):
		return http.StatusBadRequest, "invalid_event_envelope"
	case errors.Is(err, domain.ErrUnsupportedEvent):
		return http.StatusBadRequest, "unsupported_event"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return http.StatusConflict, "invalid_state_transition"
	case errors.Is(err, domain.ErrNotYourTurn):
		return http.StatusConflict, "not_your_turn"
	case errors.Is(err, domain.ErrStaleState):
		return http.StatusConflict, "stale_state"
	case errors.Is(err, domain.ErrAlreadyConfirmed):
		return http.StatusConflict, "already_confirmed"
	case errors.Is(err, domain.ErrDuplicatePayment):
		return http.StatusConflict, "duplicate_payment"
	case errors.Is(err, domain.ErrDuplicateEntryKey):
		return http.StatusConflict, "duplicate_entry_key"
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return http.StatusConflict, "idempotency_conflict"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// publicMessage is what payers and payees read. Admins get the wrapped error text.
func publicMessage(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "your request is processing, please check back later"
	case status == http.StatusUnauthorized:
		return "invalid or missing credentials"
	case status == http.StatusNotFound:
		return "resource not found"
	default:
		return "request rejected"
	}
}
