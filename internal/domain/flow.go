package domain

import (
	"fmt"
	"strings"
	"time"
)

type ActionKind string

const (
	ActionProposePrice    ActionKind = "propose_price"
	ActionAcceptPrice     ActionKind = "accept_price"
	ActionStartPayment    ActionKind = "start_payment"
	ActionPaymentVerified ActionKind = "payment_verified"
	ActionConfirmAdvance  ActionKind = "confirm_advance"
	ActionSubmitWork      ActionKind = "submit_work"
	ActionApproveWork     ActionKind = "approve_work"
	ActionRequestRevision ActionKind = "request_revision"
	ActionConfirmFinal    ActionKind = "confirm_final"
	ActionCancel          ActionKind = "cancel"
	ActionRefund          ActionKind = "refund"
)

// Action is the closed set of moves a collaboration accepts. Every variant lives
// in this file; the unexported marker keeps other packages from adding more.
type Action interface {
	Kind() ActionKind
	Validate() error
	reason() string
	isAction()
}

type ProposePrice struct{ Amount int64 }

type AcceptPrice struct{}

type StartPayment struct{ ExternalOrderID string }

type SubmitWork struct {
	DeliverableRef string
	Note           string
}

type ApproveWork struct{}

type RequestRevision struct{ Reason string }

type Cancel struct{ Reason string }

type PaymentVerified struct {
	ExternalPaymentID string
	Amount            int64
}

type ConfirmAdvance struct{ EvidenceRef string }

type ConfirmFinal struct{ EvidenceRef string }

type Refund struct{ Reason string }

func (ProposePrice) Kind() ActionKind    { return ActionProposePrice }
func (AcceptPrice) Kind() ActionKind     { return ActionAcceptPrice }
func (StartPayment) Kind() ActionKind    { return ActionStartPayment }
func (SubmitWork) Kind() ActionKind      { return ActionSubmitWork }
func (ApproveWork) Kind() ActionKind     { return ActionApproveWork }
func (RequestRevision) Kind() ActionKind { return ActionRequestRevision }
func (Cancel) Kind() ActionKind          { return ActionCancel }
func (PaymentVerified) Kind() ActionKind { return ActionPaymentVerified }
func (ConfirmAdvance) Kind() ActionKind  { return ActionConfirmAdvance }
func (ConfirmFinal) Kind() ActionKind    { return ActionConfirmFinal }
func (Refund) Kind() ActionKind          { return ActionRefund }

func (a ProposePrice) Validate() error {
	if a.Amount <= 0 || a.Amount > MaxTotalAmount {
		return fmt.Errorf("%w: amount out of range", ErrInvalidInput)
	}
	return nil
}
func (AcceptPrice) Validate() error { return nil }
func (a StartPayment) Validate() error {
	return requireText(a.ExternalOrderID, "external_order_id")
}
func (a SubmitWork) Validate() error {
	return requireText(a.DeliverableRef, "deliverable_ref")
}
func (ApproveWork) Validate() error     { return nil }
func (RequestRevision) Validate() error { return nil }
func (Cancel) Validate() error          { return nil }
func (a PaymentVerified) Validate() error {
	if a.Amount <= 0 {
		return fmt.Errorf("%w: amount out of range", ErrInvalidInput)
	}
	return requireText(a.ExternalPaymentID, "external_payment_id")
}
func (a ConfirmAdvance) Validate() error { return requireText(a.EvidenceRef, "evidence_ref") }
func (a ConfirmFinal) Validate() error   { return requireText(a.EvidenceRef, "evidence_ref") }
func (a Refund) Validate() error         { return requireText(a.Reason, "reason") }

func (ProposePrice) reason() string      { return "" }
func (AcceptPrice) reason() string       { return "" }
func (StartPayment) reason() string      { return "" }
func (a SubmitWork) reason() string      { return strings.TrimSpace(a.Note) }
func (ApproveWork) reason() string       { return "" }
func (a RequestRevision) reason() string { return strings.TrimSpace(a.Reason) }
func (a Cancel) reason() string          { return strings.TrimSpace(a.Reason) }
func (PaymentVerified) reason() string   { return "" }
func (a ConfirmAdvance) reason() string  { return strings.TrimSpace(a.EvidenceRef) }
func (a ConfirmFinal) reason() string    { return strings.TrimSpace(a.EvidenceRef) }
func (a Refund) reason() string          { return strings.TrimSpace(a.Reason) }

func (ProposePrice) isAction()    {}
func (AcceptPrice) isAction()     {}
func (StartPayment) isAction()    {}
func (SubmitWork) isAction()      {}
func (ApproveWork) isAction()     {}
func (RequestRevision) isAction() {}
func (Cancel) isAction()          {}
func (PaymentVerified) isAction() {}
func (ConfirmAdvance) isAction()  {}
func (ConfirmFinal) isAction()    {}
func (Refund) isAction()          {}

func requireText(v, field string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	return nil
}

// PartyAction reports whether payer/payee may submit the action directly.
// Money-moving actions go through the settlement workflow instead.
func PartyAction(a Action) bool {
	switch a.(type) {
	case ProposePrice, AcceptPrice, StartPayment, SubmitWork, ApproveWork, RequestRevision, Cancel:
		return true
	default:
		return false
	}
}

type transitionRule struct {
	to       FlowState
	actors   []Role
	turn     bool
	awaiting func(c Collaboration, actor Role) Role
}

func await(r Role) func(Collaboration, Role) Role {
	return func(Collaboration, Role) Role { return r }
}

func awaitCounterparty(_ Collaboration, actor Role) Role { return actor.Counterparty() }

var (
	parties    = []Role{RolePayer, RolePayee}
	cancelRule = transitionRule{to: FlowCancelled, actors: []Role{RolePayer, RolePayee, RoleAdmin}, awaiting: await(RoleNone)}
	refundRule = transitionRule{to: FlowRefunded, actors: []Role{RoleAdmin}, awaiting: await(RoleNone)}
)

var transitionTable = map[FlowState]map[ActionKind]transitionRule{
	FlowNegotiating: {
		ActionProposePrice: {to: FlowNegotiating, actors: parties, turn: true, awaiting: awaitCounterparty},
		ActionAcceptPrice:  {to: FlowPriceAgreed, actors: parties, turn: true, awaiting: await(RolePayer)},
		ActionCancel:       cancelRule,
	},
	FlowPriceAgreed: {
		ActionStartPayment: {to: FlowAwaitingPayment, actors: []Role{RolePayer}, turn: true, awaiting: await(RolePayer)},
		ActionCancel:       cancelRule,
	},
	FlowAwaitingPayment: {
		ActionPaymentVerified: {to: FlowAdminAdvancePending, actors: []Role{RoleSystem}, awaiting: await(RoleAdmin)},
		ActionCancel:          cancelRule,
	},
	FlowAdminAdvancePending: {
		ActionConfirmAdvance: {to: FlowWorkInProgress, actors: []Role{RoleAdmin}, turn: true, awaiting: await(RolePayee)},
		ActionRefund:         refundRule,
	},
	FlowWorkInProgress: {
		ActionSubmitWork: {to: FlowWorkSubmitted, actors: []Role{RolePayee}, turn: true, awaiting: await(RolePayer)},
		ActionRefund:     refundRule,
	},
	FlowWorkSubmitted: {
		ActionApproveWork:     {to: FlowWorkApproved, actors: []Role{RolePayer}, turn: true, awaiting: await(RoleAdmin)},
		ActionRequestRevision: {to: FlowWorkInProgress, actors: []Role{RolePayer}, turn: true, awaiting: await(RolePayee)},
		ActionRefund:          refundRule,
	},
	FlowWorkApproved: {
		ActionConfirmFinal: {to: FlowClosed, actors: []Role{RoleAdmin}, turn: true, awaiting: await(RoleNone)},
		ActionRefund:       refundRule,
	},
}

// AllowedActions lists the action kinds legal in a state, for UI button rendering.
func AllowedActions(state FlowState) []ActionKind {
	rules := transitionTable[state]
	out := make([]ActionKind, 0, len(rules))
	for _, kind := range []ActionKind{
		ActionProposePrice, ActionAcceptPrice, ActionStartPayment, ActionPaymentVerified,
		ActionConfirmAdvance, ActionSubmitWork, ActionApproveWork, ActionRequestRevision,
		ActionConfirmFinal, ActionCancel, ActionRefund,
	} {
		if _, ok := rules[kind]; ok {
			out = append(out, kind)
		}
	}
	return out
}

// Plan validates an action against the collaboration's current state and turn and
// returns the resulting state and awaiting role. It never mutates c.
func Plan(c Collaboration, actor Role, action Action) (FlowState, Role, error) {
	if action == nil {
		return "", "", ErrInvalidInput
	}
	if err := action.Validate(); err != nil {
		return "", "", err
	}
	if c.FlowState.IsTerminal() {
		return "", "", fmt.Errorf("%w: %s is terminal", ErrInvalidStateTransition, c.FlowState)
	}
	rule, ok := transitionTable[c.FlowState][action.Kind()]
	if !ok {
		return "", "", fmt.Errorf("%w: %s not allowed in %s", ErrInvalidStateTransition, action.Kind(), c.FlowState)
	}
	if !containsRole(rule.actors, actor) {
		return "", "", fmt.Errorf("%w: %s cannot %s", ErrForbidden, actor, action.Kind())
	}
	if rule.turn && c.AwaitingRole != actor {
		return "", "", fmt.Errorf("%w: awaiting %s", ErrNotYourTurn, c.AwaitingRole)
	}
	return rule.to, rule.awaiting(c, actor), nil
}

// Advance applies a planned action and returns the new collaboration value plus its
// audit row. The caller persists both against the version it read.
func (c Collaboration) Advance(actorID string, actor Role, action Action, now time.Time) (Collaboration, FlowTransition, error) {
	to, awaiting, err := Plan(c, actor, action)
	if err != nil {
		return Collaboration{}, FlowTransition{}, err
	}
	next := c
	switch a := action.(type) {
	case ProposePrice:
		next.Amount = a.Amount
		next.OfferedBy = actor
	case RequestRevision:
		next.RevisionCount++
	}
	next.FlowState = to
	next.AwaitingRole = awaiting
	next.Version = c.Version + 1
	next.UpdatedAt = now
	if to.IsTerminal() {
		closedAt := now
		next.ClosedAt = &closedAt
	}
	return next, FlowTransition{
		CollaborationID: c.CollaborationID,
		Action:          action.Kind(),
		FromState:       c.FlowState,
		ToState:         to,
		AwaitingRole:    awaiting,
		ActorID:         actorID,
		ActorRole:       actor,
		Reason:          action.reason(),
		OccurredAt:      now,
	}, nil
}

func containsRole(roles []Role, r Role) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}
