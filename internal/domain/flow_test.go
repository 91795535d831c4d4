package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collaborationIn(state FlowState, awaiting Role) Collaboration {
	return Collaboration{
		CollaborationID: "c-1",
		PayerID:         "payer",
		PayeeID:         "payee",
		Amount:          10000,
		Currency:        "INR",
		FlowState:       state,
		AwaitingRole:    awaiting,
		Version:         3,
	}
}

func TestPlanTransitions(t *testing.T) {
	cases := []struct {
		name     string
		state    FlowState
		awaiting Role
		actor    Role
		action   Action
		to       FlowState
		next     Role
		err      error
	}{
		{name: "counter offer", state: FlowNegotiating, awaiting: RolePayee, actor: RolePayee, action: ProposePrice{Amount: 12000}, to: FlowNegotiating, next: RolePayer},
		{name: "accept", state: FlowNegotiating, awaiting: RolePayee, actor: RolePayee, action: AcceptPrice{}, to: FlowPriceAgreed, next: RolePayer},
		{name: "accept own offer", state: FlowNegotiating, awaiting: RolePayee, actor: RolePayer, action: AcceptPrice{}, err: ErrNotYourTurn},
		{name: "payee cannot start payment", state: FlowPriceAgreed, awaiting: RolePayer, actor: RolePayee, action: StartPayment{ExternalOrderID: "o"}, err: ErrForbidden},
		{name: "start payment", state: FlowPriceAgreed, awaiting: RolePayer, actor: RolePayer, action: StartPayment{ExternalOrderID: "o"}, to: FlowAwaitingPayment, next: RolePayer},
		{name: "payment verified", state: FlowAwaitingPayment, awaiting: RolePayer, actor: RoleSystem, action: PaymentVerified{ExternalPaymentID: "p", Amount: 10000}, to: FlowAdminAdvancePending, next: RoleAdmin},
		{name: "payer cannot verify", state: FlowAwaitingPayment, awaiting: RolePayer, actor: RolePayer, action: PaymentVerified{ExternalPaymentID: "p", Amount: 10000}, err: ErrForbidden},
		{name: "confirm advance", state: FlowAdminAdvancePending, awaiting: RoleAdmin, actor: RoleAdmin, action: ConfirmAdvance{EvidenceRef: "utr"}, to: FlowWorkInProgress, next: RolePayee},
		{name: "approve before advance", state: FlowAdminAdvancePending, awaiting: RoleAdmin, actor: RolePayer, action: ApproveWork{}, err: ErrInvalidStateTransition},
		{name: "cancel after payment", state: FlowAdminAdvancePending, awaiting: RoleAdmin, actor: RolePayer, action: Cancel{}, err: ErrInvalidStateTransition},
		{name: "submit work", state: FlowWorkInProgress, awaiting: RolePayee, actor: RolePayee, action: SubmitWork{DeliverableRef: "d"}, to: FlowWorkSubmitted, next: RolePayer},
		{name: "request revision", state: FlowWorkSubmitted, awaiting: RolePayer, actor: RolePayer, action: RequestRevision{Reason: "audio"}, to: FlowWorkInProgress, next: RolePayee},
		{name: "approve", state: FlowWorkSubmitted, awaiting: RolePayer, actor: RolePayer, action: ApproveWork{}, to: FlowWorkApproved, next: RoleAdmin},
		{name: "confirm final", state: FlowWorkApproved, awaiting: RoleAdmin, actor: RoleAdmin, action: ConfirmFinal{EvidenceRef: "utr"}, to: FlowClosed, next: RoleNone},
		{name: "refund approved work", state: FlowWorkApproved, awaiting: RoleAdmin, actor: RoleAdmin, action: Refund{Reason: "dispute"}, to: FlowRefunded, next: RoleNone},
		{name: "payee cannot refund", state: FlowWorkInProgress, awaiting: RolePayee, actor: RolePayee, action: Refund{Reason: "x"}, err: ErrForbidden},
		{name: "cancel negotiation out of turn", state: FlowNegotiating, awaiting: RolePayee, actor: RolePayer, action: Cancel{}, to: FlowCancelled, next: RoleNone},
		{name: "terminal", state: FlowClosed, awaiting: RoleNone, actor: RoleAdmin, action: Refund{Reason: "x"}, err: ErrInvalidStateTransition},
		{name: "invalid payload", state: FlowWorkInProgress, awaiting: RolePayee, actor: RolePayee, action: SubmitWork{}, err: ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			to, next, err := Plan(collaborationIn(tc.state, tc.awaiting), tc.actor, tc.action)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.to, to)
			assert.Equal(t, tc.next, next)
		})
	}
}

func TestAdvanceUpdatesCollaboration(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := collaborationIn(FlowNegotiating, RolePayee)

	next, transition, err := c.Advance("payee", RolePayee, ProposePrice{Amount: 12500}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(12500), next.Amount)
	assert.Equal(t, RolePayee, next.OfferedBy)
	assert.Equal(t, RolePayer, next.AwaitingRole)
	assert.Equal(t, c.Version+1, next.Version)
	assert.Equal(t, FlowNegotiating, transition.FromState)
	assert.Equal(t, ActionProposePrice, transition.Action)
	assert.Equal(t, int64(10000), c.Amount, "receiver must not be mutated")

	closed, _, err := collaborationIn(FlowWorkApproved, RoleAdmin).Advance("admin", RoleAdmin, ConfirmFinal{EvidenceRef: "utr"}, now)
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedAt)
	assert.True(t, closed.FlowState.IsTerminal())
}

func TestRevisionCountIncrements(t *testing.T) {
	c := collaborationIn(FlowWorkSubmitted, RolePayer)
	next, transition, err := c.Advance("payer", RolePayer, RequestRevision{Reason: "fix intro"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, next.RevisionCount)
	assert.Equal(t, "fix intro", transition.Reason)
}

func TestAllowedActions(t *testing.T) {
	assert.Equal(t, []ActionKind{ActionConfirmAdvance, ActionRefund}, AllowedActions(FlowAdminAdvancePending))
	assert.Empty(t, AllowedActions(FlowClosed))
	assert.Contains(t, AllowedActions(FlowNegotiating), ActionCancel)
}

func TestEscrowStatesMatchTable(t *testing.T) {
	for _, state := range []FlowState{FlowAdminAdvancePending, FlowWorkInProgress, FlowWorkSubmitted, FlowWorkApproved} {
		assert.True(t, state.HoldsEscrow(), state)
		assert.Contains(t, AllowedActions(state), ActionRefund, state)
	}
	assert.False(t, FlowAwaitingPayment.HoldsEscrow())
}

func TestNewCollaborationValidation(t *testing.T) {
	now := time.Now()
	_, err := NewCollaboration("c", "same", "same", 100, "INR", RolePayer, now)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = NewCollaboration("c", "a", "b", 0, "INR", RolePayer, now)
	assert.ErrorIs(t, err, ErrInvalidInput)

	c, err := NewCollaboration("c", "a", "b", 100, "INR", RolePayee, now)
	require.NoError(t, err)
	assert.Equal(t, RolePayer, c.AwaitingRole)
	assert.Equal(t, RolePayee, c.PartyRole("b"))
	assert.Equal(t, RoleNone, c.PartyRole("z"))
}
