package events

import (
	"context"
	"log/slog"

	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
)

// LoggingPublisher writes each relayed event to the structured log with the
// topic it would have been sent to. It is used when no brokers are configured.
type LoggingPublisher struct {
	logger *slog.Logger
	topics TopicRouter
}

func NewLoggingPublisher(logger *slog.Logger, topics TopicRouter) *LoggingPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingPublisher{logger: logger, topics: topics}
}

func (p *LoggingPublisher) Publish(ctx context.Context, rec ports.OutboxRecord) error {
	p.logger.InfoContext(ctx, "settlement event relayed",
		"module", "events.publisher",
		"layer", "adapter",
		"operation", "publish",
		"outcome", "logged",
		"topic", p.topics.Topic(rec.EventType),
		"event_type", rec.EventType,
		"outbox_id", rec.OutboxID.String(),
		"collaboration_id", rec.PartitionKey,
		"payload", string(rec.Payload),
	)
	return nil
}
