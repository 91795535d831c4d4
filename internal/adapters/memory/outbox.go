package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
)

type outboxRow struct {
	event  ports.OutboxEvent
	record ports.OutboxRecord
}

type outboxWriter struct{ tx *tx }

func (w outboxWriter) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	if _, ok := w.tx.committed[event.EventID]; ok {
		return domain.ErrConflict
	}
	for _, row := range w.tx.staged {
		if row.record.OutboxID == event.EventID {
			return domain.ErrConflict
		}
	}
	w.tx.staged = append(w.tx.staged, outboxRow{
		event: event,
		record: ports.OutboxRecord{
			OutboxID:     event.EventID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      append([]byte(nil), event.Payload...),
			FirstSeenAt:  event.OccurredAt,
		},
	})
	return nil
}

// OutboxRepository drains committed events for the outbox worker.
type OutboxRepository struct {
	store *Store
}

func (r *OutboxRepository) Enqueue(ctx context.Context, event ports.OutboxEvent) error {
	return r.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		return tx.Outbox().Enqueue(ctx, event)
	})
}

func (r *OutboxRepository) FetchUnpublished(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	out := make([]ports.OutboxRecord, 0, limit)
	for _, row := range r.store.outbox {
		out = append(out, row.record)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// MarkPublished drops the relayed row.
func (r *OutboxRepository) MarkPublished(_ context.Context, outboxID uuid.UUID, _ time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i, row := range r.store.outbox {
		if row.record.OutboxID == outboxID {
			r.store.outbox = append(r.store.outbox[:i:i], r.store.outbox[i+1:]...)
			delete(r.store.outboxIDs, outboxID)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *OutboxRepository) MarkFailed(_ context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error {
	return r.mutate(outboxID, func(rec *ports.OutboxRecord) {
		rec.RetryCount++
		rec.LastError = &errMsg
		rec.LastErrorAt = &at
	})
}

func (r *OutboxRepository) mutate(outboxID uuid.UUID, fn func(rec *ports.OutboxRecord)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.outbox {
		if r.store.outbox[i].record.OutboxID == outboxID {
			fn(&r.store.outbox[i].record)
			return nil
		}
	}
	return domain.ErrNotFound
}

// Events returns the committed events not yet relayed, in commit order.
func (r *OutboxRepository) Events() []ports.OutboxEvent {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]ports.OutboxEvent, 0, len(r.store.outbox))
	for _, row := range r.store.outbox {
		out = append(out, row.event)
	}
	return out
}
