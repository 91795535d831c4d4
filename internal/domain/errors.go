package domain

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("conflict")
	ErrIdempotencyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	ErrInvalidEnvelope     = errors.New("invalid envelope")
	ErrUnsupportedEvent    = errors.New("unsupported event type")

	// ErrConfigurationMissing is returned when no active commission rate exists.
	// Nothing is written when it surfaces.
	ErrConfigurationMissing = errors.New("commission configuration missing")
	// ErrInvalidStateTransition rejects an action outside its legal flow state.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrNotYourTurn            = errors.New("not your turn")
	// ErrStaleState means the persisted state moved between read and write.
	ErrStaleState        = errors.New("stale state")
	ErrAlreadyConfirmed  = errors.New("already confirmed")
	ErrDuplicatePayment  = errors.New("payment already processed")
	ErrDuplicateEntryKey = errors.New("ledger idempotency key already used")
	ErrAmountMismatch    = errors.New("verified amount does not match agreed amount")
	ErrInvalidSignature  = errors.New("invalid payment signature")
	// ErrEscrowOverrelease is an invariant violation and needs manual reconciliation.
	ErrEscrowOverrelease = errors.New("escrow overrelease")
	// ErrPartialWriteFailure wraps a storage failure inside a multi-write settlement open.
	ErrPartialWriteFailure = errors.New("settlement open failed")
)

// IsBenignConflict reports duplicate-detection outcomes that callers may treat as no-ops.
func IsBenignConflict(err error) bool {
	return errors.Is(err, ErrAlreadyConfirmed) || errors.Is(err, ErrDuplicatePayment)
}

// IsRejection reports rule violations that fail the same way on every retry.
// Storage failures, lost CAS races and a missing commission rate are not
// rejections and may succeed later.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrInvalidEnvelope,
		ErrUnsupportedEvent,
		ErrInvalidInput,
		ErrNotFound,
		ErrInvalidStateTransition,
		ErrNotYourTurn,
		ErrAmountMismatch,
		ErrInvalidSignature,
		ErrUnauthorized,
		ErrForbidden,
		ErrEscrowOverrelease,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
