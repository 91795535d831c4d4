package domain

import (
	"strings"
	"time"
)

type FlowState string

const (
	FlowNegotiating         FlowState = "negotiating"
	FlowPriceAgreed         FlowState = "price_agreed"
	FlowAwaitingPayment     FlowState = "awaiting_payment"
	FlowAdminAdvancePending FlowState = "admin_advance_pending"
	FlowWorkInProgress      FlowState = "work_in_progress"
	FlowWorkSubmitted       FlowState = "work_submitted"
	FlowWorkApproved        FlowState = "work_approved"
	FlowClosed              FlowState = "closed"
	FlowCancelled           FlowState = "cancelled"
	FlowRefunded            FlowState = "refunded"
)

func (s FlowState) IsTerminal() bool {
	switch s {
	case FlowClosed, FlowCancelled, FlowRefunded:
		return true
	default:
		return false
	}
}

// HoldsEscrow reports states in which payer funds sit in escrow.
func (s FlowState) HoldsEscrow() bool {
	switch s {
	case FlowAdminAdvancePending, FlowWorkInProgress, FlowWorkSubmitted, FlowWorkApproved:
		return true
	default:
		return false
	}
}

type Role string

const (
	RoleNone   Role = "none"
	RolePayer  Role = "payer"
	RolePayee  Role = "payee"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

func (r Role) Counterparty() Role {
	switch r {
	case RolePayer:
		return RolePayee
	case RolePayee:
		return RolePayer
	default:
		return RoleNone
	}
}

type Collaboration struct {
	CollaborationID string     `json:"collaboration_id"`
	PayerID         string     `json:"payer_id"`
	PayeeID         string     `json:"payee_id"`
	Amount          int64      `json:"amount"`
	Currency        string     `json:"currency"`
	OfferedBy       Role       `json:"offered_by"`
	FlowState       FlowState  `json:"flow_state"`
	AwaitingRole    Role       `json:"awaiting_role"`
	RevisionCount   int        `json:"revision_count"`
	Version         int64      `json:"version"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
}

// PartyRole resolves which side of the collaboration a subject is on.
func (c Collaboration) PartyRole(subjectID string) Role {
	subjectID = strings.TrimSpace(subjectID)
	switch {
	case subjectID == "":
		return RoleNone
	case subjectID == c.PayerID:
		return RolePayer
	case subjectID == c.PayeeID:
		return RolePayee
	default:
		return RoleNone
	}
}

// NewCollaboration opens a negotiation with the initiator's first offer standing.
func NewCollaboration(id, payerID, payeeID string, amount int64, currency string, initiator Role, now time.Time) (Collaboration, error) {
	payerID = strings.TrimSpace(payerID)
	payeeID = strings.TrimSpace(payeeID)
	if id == "" || payerID == "" || payeeID == "" || payerID == payeeID {
		return Collaboration{}, ErrInvalidInput
	}
	if amount <= 0 || amount > MaxTotalAmount {
		return Collaboration{}, ErrInvalidInput
	}
	if initiator != RolePayer && initiator != RolePayee {
		return Collaboration{}, ErrInvalidInput
	}
	return Collaboration{
		CollaborationID: id,
		PayerID:         payerID,
		PayeeID:         payeeID,
		Amount:          amount,
		Currency:        currency,
		OfferedBy:       initiator,
		FlowState:       FlowNegotiating,
		AwaitingRole:    initiator.Counterparty(),
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// FlowTransition is one row of the collaboration audit trail.
type FlowTransition struct {
	TransitionID    string     `json:"transition_id"`
	CollaborationID string     `json:"collaboration_id"`
	Action          ActionKind `json:"action"`
	FromState       FlowState  `json:"from_state"`
	ToState         FlowState  `json:"to_state"`
	AwaitingRole    Role       `json:"awaiting_role"`
	ActorID         string     `json:"actor_id"`
	ActorRole       Role       `json:"actor_role"`
	Reason          string     `json:"reason,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
}
