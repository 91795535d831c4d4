package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
)

type Message struct {
	Topic     string
	Key       string
	Payload   []byte
	Partition int
	Offset    int64

	raw kafka.Message
}

// Consumer delivers messages at least once. Fetch does not acknowledge;
// Commit does. Rewind discards fetched but uncommitted messages so they are
// delivered again.
type Consumer interface {
	Fetch(ctx context.Context, max int) ([]Message, error)
	Commit(ctx context.Context, msgs ...Message) error
	Rewind(ctx context.Context) error
}

// PaymentEventHandler is the application entry point for gateway events.
type PaymentEventHandler interface {
	HandlePaymentEvent(ctx context.Context, raw []byte) error
}

type ConsumerWorker struct {
	logger   *slog.Logger
	consumer Consumer
	handler  PaymentEventHandler
	interval time.Duration
}

func NewConsumerWorker(logger *slog.Logger, consumer Consumer, handler PaymentEventHandler, interval time.Duration) *ConsumerWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &ConsumerWorker{
		logger: logger, consumer: consumer, handler: handler, interval: interval,
	}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.ProcessOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "consumer iteration failed",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessOnce handles one batch in order. Handled, duplicate and rejected
// messages are committed. The first retryable failure stops the batch: the
// messages before it are committed and the rest are rewound for redelivery.
func (w *ConsumerWorker) ProcessOnce(ctx context.Context) error {
	msgs, err := w.consumer.Fetch(ctx, 50)
	if err != nil {
		return err
	}
	done := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		err := w.handler.HandlePaymentEvent(ctx, msg.Payload)
		switch {
		case err == nil, domain.IsBenignConflict(err):
		case errors.Is(err, domain.ErrUnsupportedEvent):
			w.logger.DebugContext(ctx, "ignored message",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "skipped",
				"topic", msg.Topic,
			)
		case domain.IsRejection(err):
			w.logger.WarnContext(ctx, "rejected payment event",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "handle_payment_verified",
				"outcome", "rejected",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		default:
			if commitErr := w.consumer.Commit(ctx, done...); commitErr != nil {
				return errors.Join(err, commitErr)
			}
			if rewindErr := w.consumer.Rewind(ctx); rewindErr != nil {
				return errors.Join(err, rewindErr)
			}
			return fmt.Errorf("handle payment event at %s/%d/%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
		}
		done = append(done, msg)
	}
	return w.consumer.Commit(ctx, done...)
}
