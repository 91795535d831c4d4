package postgres

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// eventDedupRepository remembers consumed payment envelope ids until their
// TTL passes. An expired row counts as unseen and is overwritten on reuse.
type eventDedupRepository struct {
	db *gorm.DB
}

func (r *eventDedupRepository) IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error) {
	var hits []string
	err := r.db.WithContext(ctx).Model(&settlementEventDedupModel{}).
		Where("event_id = ? AND expires_at > ?", eventID, now).
		Limit(1).
		Pluck("event_id", &hits).Error
	return len(hits) > 0, err
}

func (r *eventDedupRepository) MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error {
	row := settlementEventDedupModel{
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now().UTC(),
		ExpiresAt:   expiresAt,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"event_type", "processed_at", "expires_at"}),
		}).
		Create(&row).Error
}

var _ ports.EventDedupRepository = (*eventDedupRepository)(nil)
