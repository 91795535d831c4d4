package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is an envelope staged in the same transaction as the state
// change it describes.
type OutboxEvent struct {
	EventID          uuid.UUID
	EventType        string
	EventClass       string
	PartitionKey     string
	PartitionKeyPath string
	Payload          []byte
	OccurredAt       time.Time
	SchemaVersion    string
	TraceID          string
}

// OutboxRecord is a committed outbox row awaiting relay. PartitionKey is the
// collaboration id, so rows sharing it must reach the broker in FirstSeenAt order.
type OutboxRecord struct {
	OutboxID     uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	RetryCount   int
	PublishedAt  *time.Time
	LastError    *string
	LastErrorAt  *time.Time
	FirstSeenAt  time.Time
}

type OutboxWriter interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
}

type OutboxRepository interface {
	OutboxWriter
	// FetchUnpublished returns the oldest pending rows first.
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error
}

// EventPublisher relays one outbox row to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, rec OutboxRecord) error
}
