package domain

import (
	"fmt"
	"strings"
	"time"
)

type AdvanceStatus string

const (
	AdvanceAwaitingAdmin AdvanceStatus = "awaiting_admin"
	AdvanceConfirmed     AdvanceStatus = "confirmed"
)

type FinalStatus string

const (
	FinalPending   FinalStatus = "pending"
	FinalConfirmed FinalStatus = "confirmed"
)

// SettlementRecord is the authoritative breakdown for one paid collaboration.
// Amounts and the rate snapshot never change after open.
type SettlementRecord struct {
	SettlementID       string         `json:"settlement_id"`
	CollaborationID    string         `json:"collaboration_id"`
	ExternalPaymentID  string         `json:"external_payment_id"`
	Currency           string         `json:"currency"`
	TotalAmount        int64          `json:"total_amount"`
	CommissionRate     CommissionRate `json:"commission_rate"`
	CommissionAmount   int64          `json:"commission_amount"`
	NetAmount          int64          `json:"net_amount"`
	AdvanceAmount      int64          `json:"advance_amount"`
	FinalAmount        int64          `json:"final_amount"`
	AdvanceStatus      AdvanceStatus  `json:"advance_status"`
	FinalStatus        FinalStatus    `json:"final_status"`
	AdvanceEntryID     string         `json:"advance_entry_id"`
	FinalEntryID       string         `json:"final_entry_id"`
	EscrowID           string         `json:"escrow_id"`
	AdvanceEvidenceRef string         `json:"advance_evidence_ref,omitempty"`
	AdvanceConfirmedBy string         `json:"advance_confirmed_by,omitempty"`
	AdvanceConfirmedAt *time.Time     `json:"advance_confirmed_at,omitempty"`
	FinalEvidenceRef   string         `json:"final_evidence_ref,omitempty"`
	FinalConfirmedBy   string         `json:"final_confirmed_by,omitempty"`
	FinalConfirmedAt   *time.Time     `json:"final_confirmed_at,omitempty"`
	RefundedAmount     int64          `json:"refunded_amount,omitempty"`
	RefundReason       string         `json:"refund_reason,omitempty"`
	RefundedBy         string         `json:"refunded_by,omitempty"`
	RefundedAt         *time.Time     `json:"refunded_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func NewSettlementRecord(id string, c Collaboration, externalPaymentID string, b Breakdown, now time.Time) SettlementRecord {
	return SettlementRecord{
		SettlementID:      id,
		CollaborationID:   c.CollaborationID,
		ExternalPaymentID: externalPaymentID,
		Currency:          c.Currency,
		TotalAmount:       b.TotalAmount,
		CommissionRate:    b.CommissionRate,
		CommissionAmount:  b.CommissionAmount,
		NetAmount:         b.NetAmount,
		AdvanceAmount:     b.AdvanceAmount,
		FinalAmount:       b.FinalAmount,
		AdvanceStatus:     AdvanceAwaitingAdmin,
		FinalStatus:       FinalPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (r SettlementRecord) Breakdown() Breakdown {
	return Breakdown{
		CollaborationID:  r.CollaborationID,
		Currency:         r.Currency,
		TotalAmount:      r.TotalAmount,
		CommissionRate:   r.CommissionRate,
		CommissionAmount: r.CommissionAmount,
		NetAmount:        r.NetAmount,
		AdvanceAmount:    r.AdvanceAmount,
		FinalAmount:      r.FinalAmount,
	}
}

func (r SettlementRecord) Refunded() bool { return r.RefundedAt != nil }

// PartyView strips the admin evidence and operator identities from the record.
// Milestone statuses and timestamps stay visible.
func (r SettlementRecord) PartyView() SettlementRecord {
	r.AdvanceEvidenceRef = ""
	r.AdvanceConfirmedBy = ""
	r.FinalEvidenceRef = ""
	r.FinalConfirmedBy = ""
	r.RefundedBy = ""
	return r
}

func (r *SettlementRecord) ConfirmAdvance(adminID, evidenceRef string, at time.Time) error {
	if r.Refunded() {
		return fmt.Errorf("%w: settlement refunded", ErrInvalidStateTransition)
	}
	if r.AdvanceStatus == AdvanceConfirmed {
		return ErrAlreadyConfirmed
	}
	r.AdvanceStatus = AdvanceConfirmed
	r.AdvanceEvidenceRef = strings.TrimSpace(evidenceRef)
	r.AdvanceConfirmedBy = adminID
	r.AdvanceConfirmedAt = &at
	r.UpdatedAt = at
	return nil
}

func (r *SettlementRecord) ConfirmFinal(adminID, evidenceRef string, at time.Time) error {
	if r.Refunded() {
		return fmt.Errorf("%w: settlement refunded", ErrInvalidStateTransition)
	}
	if r.FinalStatus == FinalConfirmed {
		return ErrAlreadyConfirmed
	}
	if r.AdvanceStatus != AdvanceConfirmed {
		return fmt.Errorf("%w: advance not confirmed", ErrInvalidStateTransition)
	}
	r.FinalStatus = FinalConfirmed
	r.FinalEvidenceRef = strings.TrimSpace(evidenceRef)
	r.FinalConfirmedBy = adminID
	r.FinalConfirmedAt = &at
	r.UpdatedAt = at
	return nil
}

// MarkRefunded records a refund of amount back to the payer side.
func (r *SettlementRecord) MarkRefunded(adminID, reason string, amount int64, at time.Time) error {
	if r.Refunded() {
		return ErrAlreadyConfirmed
	}
	if r.FinalStatus == FinalConfirmed {
		return fmt.Errorf("%w: settlement already paid out", ErrInvalidStateTransition)
	}
	r.RefundedAmount = amount
	r.RefundReason = strings.TrimSpace(reason)
	r.RefundedBy = adminID
	r.RefundedAt = &at
	r.UpdatedAt = at
	return nil
}
