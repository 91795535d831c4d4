package domain

import (
	"fmt"
	"time"
)

type HoldStatus string

const (
	HoldStatusHeld     HoldStatus = "held"
	HoldStatusReleased HoldStatus = "released"
	HoldStatusRefunded HoldStatus = "refunded"
)

// EscrowHold tracks payer funds for one collaboration. Partial release is a
// cumulative ReleasedAmount on the same hold.
type EscrowHold struct {
	EscrowID        string     `json:"escrow_id"`
	CollaborationID string     `json:"collaboration_id"`
	PayerID         string     `json:"payer_id"`
	PayeeID         string     `json:"payee_id"`
	Currency        string     `json:"currency"`
	OriginalAmount  int64      `json:"original_amount"`
	ReleasedAmount  int64      `json:"released_amount"`
	RefundedAmount  int64      `json:"refunded_amount"`
	Status          HoldStatus `json:"status"`
	HeldAt          time.Time  `json:"held_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func NewEscrowHold(id string, c Collaboration, amount int64, now time.Time) (EscrowHold, error) {
	if amount <= 0 {
		return EscrowHold{}, fmt.Errorf("%w: hold amount must be positive", ErrInvalidInput)
	}
	return EscrowHold{
		EscrowID:        id,
		CollaborationID: c.CollaborationID,
		PayerID:         c.PayerID,
		PayeeID:         c.PayeeID,
		Currency:        c.Currency,
		OriginalAmount:  amount,
		Status:          HoldStatusHeld,
		HeldAt:          now,
		UpdatedAt:       now,
	}, nil
}

func (h EscrowHold) Remaining() int64 {
	return h.OriginalAmount - h.ReleasedAmount - h.RefundedAmount
}

// Release moves amount out of the hold. A zero amount is allowed for shares that
// rounded to nothing. The hold becomes released once nothing remains.
func (h *EscrowHold) Release(amount int64, at time.Time) error {
	if amount < 0 {
		return fmt.Errorf("%w: release amount must not be negative", ErrInvalidInput)
	}
	if amount == 0 {
		return nil
	}
	if h.Status != HoldStatusHeld {
		return fmt.Errorf("%w: hold %s is %s", ErrEscrowOverrelease, h.EscrowID, h.Status)
	}
	if amount > h.Remaining() {
		return fmt.Errorf("%w: hold %s release %d exceeds remaining %d", ErrEscrowOverrelease, h.EscrowID, amount, h.Remaining())
	}
	h.ReleasedAmount += amount
	if h.Remaining() == 0 {
		h.Status = HoldStatusReleased
	}
	h.UpdatedAt = at
	return nil
}

// Refund returns everything still held to the payer side and closes the hold.
func (h *EscrowHold) Refund(at time.Time) (int64, error) {
	if h.Status != HoldStatusHeld {
		return 0, fmt.Errorf("%w: hold %s is %s", ErrEscrowOverrelease, h.EscrowID, h.Status)
	}
	amount := h.Remaining()
	h.RefundedAmount += amount
	h.Status = HoldStatusRefunded
	h.UpdatedAt = at
	return amount, nil
}

func (h EscrowHold) CheckInvariant() error {
	if h.ReleasedAmount < 0 || h.RefundedAmount < 0 || h.Remaining() < 0 {
		return fmt.Errorf("%w: hold %s released=%d refunded=%d original=%d", ErrEscrowOverrelease, h.EscrowID, h.ReleasedAmount, h.RefundedAmount, h.OriginalAmount)
	}
	return nil
}
