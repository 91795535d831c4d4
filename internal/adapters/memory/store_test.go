package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
)

func TestWithinTxDiscardsWritesOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if _, err := tx.Wallets().Increment(ctx, "acct-1", 500, time.Now()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		_, err := tx.Wallets().Get(ctx, "acct-1")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func outboxEvent(key string) ports.OutboxEvent {
	return ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    domain.EventFlowStateChanged,
		PartitionKey: key,
		Payload:      []byte(`{}`),
		OccurredAt:   time.Now().UTC(),
	}
}

func TestOutboxEventsCommitWithTheUnitOfWork(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		require.NoError(t, tx.Outbox().Enqueue(ctx, outboxEvent("c-rolled-back")))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, s.Outbox().Events())

	ev := outboxEvent("c-1")
	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		return tx.Outbox().Enqueue(ctx, ev)
	}))
	require.ErrorIs(t, s.Outbox().Enqueue(ctx, ev), domain.ErrConflict)
	require.Len(t, s.Outbox().Events(), 1)
}

func TestPublishedOutboxRowsAreDropped(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	outbox := s.Outbox()
	for i := 0; i < 50; i++ {
		require.NoError(t, outbox.Enqueue(ctx, outboxEvent("c-1")))
	}
	keep := outboxEvent("c-2")
	require.NoError(t, outbox.Enqueue(ctx, keep))

	pending, err := outbox.FetchUnpublished(ctx, 100)
	require.NoError(t, err)
	require.Len(t, pending, 51)
	for _, rec := range pending {
		if rec.OutboxID == keep.EventID {
			continue
		}
		require.NoError(t, outbox.MarkPublished(ctx, rec.OutboxID, time.Now()))
	}

	pending, err = outbox.FetchUnpublished(ctx, 100)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, keep.EventID, pending[0].OutboxID)
	assert.Len(t, s.outbox, 1)
	assert.ErrorIs(t, outbox.MarkPublished(ctx, uuid.New(), time.Now()), domain.ErrNotFound)
}

func TestCollaborationUpdateChecksVersion(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	c, err := domain.NewCollaboration("c-1", "payer", "payee", 100, "INR", domain.RolePayer, time.Now())
	require.NoError(t, err)

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		return tx.Collaborations().Create(ctx, c)
	}))
	next := c
	next.Version = 2
	err = s.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		return tx.Collaborations().Update(ctx, next, 5)
	})
	assert.ErrorIs(t, err, domain.ErrStaleState)
}

func TestLedgerRejectsDuplicateKeyAndDoubleConfirm(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	entry, err := domain.NewLedgerEntry("l-1", "payee", 100, "INR", domain.DirectionCredit, domain.StageAdvance, "settlement:s:advance", time.Now())
	require.NoError(t, err)

	err = s.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := tx.Ledger().Insert(ctx, entry); err != nil {
			return err
		}
		dup := entry
		dup.EntryID = "l-2"
		return tx.Ledger().Insert(ctx, dup)
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateEntryKey)

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		return tx.Ledger().Insert(ctx, entry)
	}))
	completed := entry
	require.NoError(t, completed.Complete(time.Now()))
	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		return tx.Ledger().Update(ctx, completed)
	}))
	err = s.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		return tx.Ledger().Update(ctx, completed)
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyConfirmed)
}

func TestIdempotencyReserveCompleteRelease(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.Idempotency()
	expires := time.Now().Add(time.Hour)

	require.NoError(t, repo.Reserve(ctx, "k-1", "hash", expires))
	assert.ErrorIs(t, repo.Reserve(ctx, "k-1", "hash", expires), domain.ErrConflict)

	require.NoError(t, repo.Release(ctx, "k-1"))
	require.NoError(t, repo.Reserve(ctx, "k-1", "hash", expires))
	require.NoError(t, repo.Complete(ctx, "k-1", 200, []byte(`{"ok":true}`), time.Now()))
	require.NoError(t, repo.Release(ctx, "k-1"))

	rec, err := repo.Get(ctx, "k-1", time.Now())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.JSONEq(t, `{"ok":true}`, string(rec.ResponseBody))

	rec, err = repo.Get(ctx, "k-1", expires.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCommissionActivationKeepsSingleActiveRow(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	err := s.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		_, err := tx.Commission().Active(ctx)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrConfigurationMissing)

	for i, bps := range []int64{1000, 1500} {
		setting := domain.CommissionSetting{SettingID: string(rune('a' + i)), Rate: domain.CommissionRate{BasisPoints: bps}}
		require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
			return tx.Commission().Activate(ctx, setting)
		}))
	}
	var active domain.CommissionSetting
	require.NoError(t, s.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		active, err = tx.Commission().Active(ctx)
		return err
	}))
	assert.Equal(t, int64(1500), active.Rate.BasisPoints)
}
