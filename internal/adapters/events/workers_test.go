package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
)

type recordingPublisher struct {
	mu       sync.Mutex
	failNext bool
	keys     []string
}

func (p *recordingPublisher) Publish(_ context.Context, rec ports.OutboxRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext {
		p.failNext = false
		return errors.New("broker unavailable")
	}
	p.keys = append(p.keys, rec.PartitionKey)
	return nil
}

func enqueue(t *testing.T, outbox *memory.OutboxRepository, key string) {
	t.Helper()
	require.NoError(t, outbox.Enqueue(context.Background(), ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    domain.EventFlowStateChanged,
		PartitionKey: key,
		Payload:      []byte(`{}`),
		OccurredAt:   time.Now().UTC(),
	}))
}

func TestOutboxWorkerPublishesAndMarks(t *testing.T) {
	store := memory.NewStore()
	outbox := store.Outbox()
	enqueue(t, outbox, "c-1")
	enqueue(t, outbox, "c-2")

	pub := &recordingPublisher{}
	worker := NewOutboxWorker(nil, outbox, pub, time.Second, 10)
	n, err := worker.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"c-1", "c-2"}, pub.keys)

	n, err = worker.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOutboxWorkerRetriesFailedPublish(t *testing.T) {
	store := memory.NewStore()
	outbox := store.Outbox()
	enqueue(t, outbox, "c-1")

	pub := &recordingPublisher{failNext: true}
	worker := NewOutboxWorker(nil, outbox, pub, time.Second, 10)
	n, err := worker.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	pending, err := outbox.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)
	require.NotNil(t, pending[0].LastError)

	n, err = worker.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// logConsumer is a single-partition log with a committed offset.
type logConsumer struct {
	log       []Message
	position  int
	committed int
	rewinds   int
}

func newLogConsumer(payloads ...string) *logConsumer {
	c := &logConsumer{}
	for i, p := range payloads {
		c.log = append(c.log, Message{Topic: "payment.verified", Payload: []byte(p), Offset: int64(i)})
	}
	return c
}

func (c *logConsumer) Fetch(_ context.Context, max int) ([]Message, error) {
	end := c.position + max
	if end > len(c.log) {
		end = len(c.log)
	}
	out := append([]Message(nil), c.log[c.position:end]...)
	c.position = end
	return out, nil
}

func (c *logConsumer) Commit(_ context.Context, msgs ...Message) error {
	for _, m := range msgs {
		if next := int(m.Offset) + 1; next > c.committed {
			c.committed = next
		}
	}
	return nil
}

func (c *logConsumer) Rewind(context.Context) error {
	c.rewinds++
	c.position = c.committed
	return nil
}

type handlerFunc func(ctx context.Context, raw []byte) error

func (f handlerFunc) HandlePaymentEvent(ctx context.Context, raw []byte) error { return f(ctx, raw) }

func TestConsumerWorkerCommitsHandledAndRejectedMessages(t *testing.T) {
	var seen []string
	handler := handlerFunc(func(_ context.Context, raw []byte) error {
		seen = append(seen, string(raw))
		switch string(raw) {
		case "dup":
			return domain.ErrDuplicatePayment
		case "other":
			return domain.ErrUnsupportedEvent
		case "bad":
			return domain.ErrInvalidEnvelope
		}
		return nil
	})
	consumer := newLogConsumer("ok", "dup", "other", "bad")
	worker := NewConsumerWorker(nil, consumer, handler, time.Second)
	require.NoError(t, worker.ProcessOnce(context.Background()))
	assert.Equal(t, []string{"ok", "dup", "other", "bad"}, seen)
	assert.Equal(t, 4, consumer.committed)
	assert.Zero(t, consumer.rewinds)
}

func TestConsumerWorkerRedeliversAfterTransientFailure(t *testing.T) {
	storageDown := true
	var handled []string
	handler := handlerFunc(func(_ context.Context, raw []byte) error {
		if string(raw) == "pay-2" && storageDown {
			return errors.New("connection reset by peer")
		}
		handled = append(handled, string(raw))
		return nil
	})
	consumer := newLogConsumer("pay-1", "pay-2", "pay-3")
	worker := NewConsumerWorker(nil, consumer, handler, time.Second)

	err := worker.ProcessOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, consumer.committed, "failed message must stay uncommitted")
	assert.Equal(t, 1, consumer.rewinds)
	assert.Equal(t, []string{"pay-1"}, handled)

	storageDown = false
	require.NoError(t, worker.ProcessOnce(context.Background()))
	assert.Equal(t, 3, consumer.committed)
	assert.Equal(t, []string{"pay-1", "pay-2", "pay-3"}, handled)
}

func TestConsumerWorkerRetriesMissingConfiguration(t *testing.T) {
	handler := handlerFunc(func(context.Context, []byte) error {
		return domain.ErrConfigurationMissing
	})
	consumer := newLogConsumer("pay-1")
	worker := NewConsumerWorker(nil, consumer, handler, time.Second)
	require.ErrorIs(t, worker.ProcessOnce(context.Background()), domain.ErrConfigurationMissing)
	assert.Zero(t, consumer.committed)
}

func TestNoopConsumerReturnsNothing(t *testing.T) {
	c := NewNoopConsumer()
	msgs, err := c.Fetch(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	require.NoError(t, c.Commit(context.Background()))
	require.NoError(t, c.Rewind(context.Background()))
}

func TestOutboxWorkerHoldsBackLaterEventsOfFailedCollaboration(t *testing.T) {
	store := memory.NewStore()
	outbox := store.Outbox()
	enqueue(t, outbox, "c-1")
	enqueue(t, outbox, "c-2")
	enqueue(t, outbox, "c-1")

	pub := &recordingPublisher{failNext: true}
	worker := NewOutboxWorker(nil, outbox, pub, time.Second, 10)
	n, err := worker.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"c-2"}, pub.keys)

	pending, err := outbox.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, 1, pending[0].RetryCount)
	assert.Zero(t, pending[1].RetryCount)

	n, err = worker.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"c-2", "c-1", "c-1"}, pub.keys)
}

func TestTopicRouterFallsBackToEventType(t *testing.T) {
	topics := TopicRouter{domain.EventSettlementOpened: "settlements"}
	assert.Equal(t, "settlements", topics.Topic(domain.EventSettlementOpened))
	assert.Equal(t, domain.EventFlowStateChanged, topics.Topic(domain.EventFlowStateChanged))
}

func TestOutboxMessageCarriesRoutingHeaders(t *testing.T) {
	rec := ports.OutboxRecord{
		OutboxID:     uuid.New(),
		EventType:    domain.EventSettlementMilestone,
		PartitionKey: "c-9",
		Payload:      []byte(`{"milestone":"advance_released"}`),
		FirstSeenAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	msg := outboxMessage(TopicRouter{domain.EventSettlementMilestone: "settlement.milestones.v1"}, rec)
	assert.Equal(t, "settlement.milestones.v1", msg.Topic)
	assert.Equal(t, "c-9", string(msg.Key))
	assert.Equal(t, rec.FirstSeenAt, msg.Time)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, rec.OutboxID.String(), string(msg.Headers[1].Value))
}
