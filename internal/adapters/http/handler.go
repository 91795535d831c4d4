package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	service *application.Service
	tokens  ports.TokenVerifier
	logger  *slog.Logger
}

func NewHandler(service *application.Service, tokens ports.TokenVerifier, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, tokens: tokens, logger: logger}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := mapDomainError(err)
	msg := publicMessage(status)
	if actorFromContext(r.Context()).IsAdmin() {
		msg = err.Error()
	}
	writeError(w, status, code, msg, requestIDFromContext(r.Context()))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body", requestIDFromContext(r.Context()))
		return false
	}
	return true
}

func (h *Handler) initCollaboration(w http.ResponseWriter, r *http.Request) {
	var req contracts.InitCollaborationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.service.InitCollaboration(r.Context(), actorFromContext(r.Context()), application.InitCollaborationInput{
		PayerID:  strings.TrimSpace(req.PayerID),
		PayeeID:  strings.TrimSpace(req.PayeeID),
		Amount:   req.Amount,
		Currency: strings.TrimSpace(req.Currency),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "", toCollaborationResponse(c))
}

func (h *Handler) getCollaboration(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetCollaboration(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "collaboration_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", toCollaborationResponse(c))
}

func (h *Handler) performAction(w http.ResponseWriter, r *http.Request) {
	var req contracts.ActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	action, err := toDomainAction(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.service.Perform(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "collaboration_id"), action)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", toCollaborationResponse(c))
}

func (h *Handler) listTransitions(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListTransitions(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "collaboration_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", out)
}

func (h *Handler) getBreakdown(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetBreakdown(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "collaboration_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", toBreakdownResponse(b))
}

func (h *Handler) getSettlement(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetSettlement(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "settlement_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", rec)
}

func (h *Handler) getEscrowHold(w http.ResponseWriter, r *http.Request) {
	hold, err := h.service.GetEscrowHold(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "settlement_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", hold)
}

// recordPaymentVerification is the gateway webhook. It is authenticated by the
// callback signature rather than a bearer token.
func (h *Handler) recordPaymentVerification(w http.ResponseWriter, r *http.Request) {
	var req contracts.PaymentVerificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.service.HandlePaymentCallback(r.Context(), requestIDFromContext(r.Context()), ports.PaymentCallback{
		ExternalOrderID:   strings.TrimSpace(req.ExternalOrderID),
		ExternalPaymentID: strings.TrimSpace(req.ExternalPaymentID),
		VerifiedAmount:    req.VerifiedAmount,
		Signature:         strings.TrimSpace(req.Signature),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "payment recorded", rec)
}

func (h *Handler) confirmAdvance(w http.ResponseWriter, r *http.Request) {
	var req contracts.ConfirmReleaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.service.ConfirmAdvance(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "settlement_id"), req.EvidenceRef)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "advance released", rec)
}

func (h *Handler) confirmFinal(w http.ResponseWriter, r *http.Request) {
	var req contracts.ConfirmReleaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.service.ConfirmFinal(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "settlement_id"), req.EvidenceRef)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "final released", rec)
}

func (h *Handler) refundSettlement(w http.ResponseWriter, r *http.Request) {
	var req contracts.RefundRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.service.RefundSettlement(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "settlement_id"), req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "refunded", rec)
}

func (h *Handler) getWallet(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.GetWallet(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "account_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", out)
}

func (h *Handler) listLedgerEntries(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListLedgerEntries(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "account_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", out)
}

func (h *Handler) creditWallet(w http.ResponseWriter, r *http.Request) {
	var req contracts.CreditWalletRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.service.CreditWallet(r.Context(), actorFromContext(r.Context()), application.CreditWalletInput{
		AccountID: strings.TrimSpace(req.AccountID),
		Amount:    req.Amount,
		Currency:  strings.TrimSpace(req.Currency),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "", out)
}

func (h *Handler) reconcileWallet(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ReconcileWallet(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "account_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", out)
}

func (h *Handler) getCommissionRate(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.GetCommissionRate(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", out)
}

func (h *Handler) setCommissionRate(w http.ResponseWriter, r *http.Request) {
	var req contracts.CommissionRateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.service.SetCommissionRate(r.Context(), actorFromContext(r.Context()), req.RatePercent)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", out)
}
