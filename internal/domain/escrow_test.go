package domain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHold(t *testing.T, amount int64) EscrowHold {
	t.Helper()
	h, err := NewEscrowHold("e-1", Collaboration{CollaborationID: "c-1", PayerID: "payer", PayeeID: "payee", Currency: "INR"}, amount, time.Now())
	require.NoError(t, err)
	return h
}

func TestEscrowPartialRelease(t *testing.T) {
	h := newHold(t, 10000)
	require.NoError(t, h.Release(3700, time.Now()))
	assert.Equal(t, int64(6300), h.Remaining())
	assert.Equal(t, HoldStatusHeld, h.Status)

	require.NoError(t, h.Release(6300, time.Now()))
	assert.Equal(t, int64(0), h.Remaining())
	assert.Equal(t, HoldStatusReleased, h.Status)
	assert.NoError(t, h.CheckInvariant())
}

func TestEscrowOverreleaseRejected(t *testing.T) {
	h := newHold(t, 100)
	assert.ErrorIs(t, h.Release(101, time.Now()), ErrEscrowOverrelease)
	assert.Equal(t, int64(0), h.ReleasedAmount)

	require.NoError(t, h.Release(100, time.Now()))
	assert.ErrorIs(t, h.Release(1, time.Now()), ErrEscrowOverrelease)
	assert.NoError(t, h.Release(0, time.Now()))
}

func TestEscrowRefund(t *testing.T) {
	h := newHold(t, 10000)
	require.NoError(t, h.Release(3700, time.Now()))
	amount, err := h.Refund(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(6300), amount)
	assert.Equal(t, HoldStatusRefunded, h.Status)
	assert.Equal(t, h.OriginalAmount, h.ReleasedAmount+h.RefundedAmount)

	_, err = h.Refund(time.Now())
	assert.ErrorIs(t, err, ErrEscrowOverrelease)
}

func TestEscrowNeverExceedsOriginalUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(46))
	for i := 0; i < 2000; i++ {
		original := rng.Int63n(1_000_000_000) + 1
		h := newHold(t, original)
		for step := 0; step < 12; step++ {
			before := h
			var err error
			if rng.Intn(5) == 0 {
				_, err = h.Refund(time.Now())
			} else {
				err = h.Release(rng.Int63n(2*h.Remaining()+2), time.Now())
			}
			if err != nil {
				require.ErrorIs(t, err, ErrEscrowOverrelease)
				require.Equal(t, before.ReleasedAmount, h.ReleasedAmount)
				require.Equal(t, before.RefundedAmount, h.RefundedAmount)
				require.Equal(t, before.Status, h.Status)
			}
			require.NoError(t, h.CheckInvariant())
			require.LessOrEqualf(t, h.ReleasedAmount+h.RefundedAmount, h.OriginalAmount, "hold %+v", h)
			require.Equal(t, h.OriginalAmount, h.ReleasedAmount+h.RefundedAmount+h.Remaining())
			if h.Status != HoldStatusHeld {
				require.Zero(t, h.Remaining())
			}
		}
	}
}

func TestEscrowRejectsNonPositiveHold(t *testing.T) {
	_, err := NewEscrowHold("e", Collaboration{}, 0, time.Now())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSettlementPartyViewDropsEvidence(t *testing.T) {
	b, err := ComputeBreakdown(10000, NewCommissionRatePercent(10))
	require.NoError(t, err)
	rec := NewSettlementRecord("s-2", Collaboration{CollaborationID: "c-2", Currency: "INR"}, "pay-2", b, time.Now())
	require.NoError(t, rec.ConfirmAdvance("admin-7", "UTR-77", time.Now()))

	view := rec.PartyView()
	assert.Empty(t, view.AdvanceEvidenceRef)
	assert.Empty(t, view.AdvanceConfirmedBy)
	assert.Equal(t, AdvanceConfirmed, view.AdvanceStatus)
	assert.NotNil(t, view.AdvanceConfirmedAt)
	assert.Equal(t, rec.Breakdown(), view.Breakdown())
	assert.Equal(t, "UTR-77", rec.AdvanceEvidenceRef)
}

func TestSettlementRecordConfirmations(t *testing.T) {
	b, err := ComputeBreakdown(10000, NewCommissionRatePercent(10))
	require.NoError(t, err)
	rec := NewSettlementRecord("s-1", Collaboration{CollaborationID: "c-1", Currency: "INR"}, "pay-1", b, time.Now())

	assert.ErrorIs(t, rec.ConfirmFinal("admin", "utr", time.Now()), ErrInvalidStateTransition)
	require.NoError(t, rec.ConfirmAdvance("admin", " utr-1 ", time.Now()))
	assert.Equal(t, "utr-1", rec.AdvanceEvidenceRef)
	assert.ErrorIs(t, rec.ConfirmAdvance("admin", "utr-1", time.Now()), ErrAlreadyConfirmed)

	require.NoError(t, rec.ConfirmFinal("admin", "utr-2", time.Now()))
	assert.ErrorIs(t, rec.MarkRefunded("admin", "late", 0, time.Now()), ErrInvalidStateTransition)
	got := rec.Breakdown()
	assert.Equal(t, "c-1", got.CollaborationID)
	assert.Equal(t, b.CommissionRate, got.CommissionRate)
	assert.Equal(t, b.FinalAmount, got.FinalAmount)
}
