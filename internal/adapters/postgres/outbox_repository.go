package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
	"gorm.io/gorm"
)

type outboxRepository struct {
	db *gorm.DB
}

// Enqueue runs on the transaction handle of the unit of work, so the row
// commits or rolls back with the state change it describes.
func (r *outboxRepository) Enqueue(ctx context.Context, event ports.OutboxEvent) error {
	if event.EventID == uuid.Nil || event.PartitionKey == "" {
		return fmt.Errorf("%w: outbox event needs id and collaboration key", domain.ErrInvalidInput)
	}
	rec := settlementOutboxModel{
		OutboxID:         event.EventID,
		EventType:        event.EventType,
		EventClass:       event.EventClass,
		PartitionKey:     event.PartitionKey,
		PartitionKeyPath: event.PartitionKeyPath,
		Payload:          string(event.Payload),
		SchemaVersion:    event.SchemaVersion,
		TraceID:          event.TraceID,
		CreatedAt:        event.OccurredAt,
		FirstSeenAt:      event.OccurredAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

// FetchUnpublished returns pending rows oldest first. Rows enqueued in one
// transaction share created_at, so outbox_seq breaks the tie in insert order.
func (r *outboxRepository) FetchUnpublished(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []settlementOutboxModel
	if err := r.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("created_at ASC, outbox_seq ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ports.OutboxRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, toOutboxRecord(row))
	}
	return out, nil
}

// MarkPublished keeps the first publish time when two relays race on a row.
func (r *outboxRepository) MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&settlementOutboxModel{}).
		Where("outbox_id = ? AND published_at IS NULL", outboxID).
		Updates(map[string]any{"published_at": at, "last_error": nil}).Error
}

func (r *outboxRepository) MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&settlementOutboxModel{}).Where("outbox_id = ?", outboxID).Updates(map[string]any{
		"retry_count":   gorm.Expr("retry_count + 1"),
		"last_error":    errMsg,
		"last_error_at": at,
	}).Error
}

var _ ports.OutboxRepository = (*outboxRepository)(nil)
