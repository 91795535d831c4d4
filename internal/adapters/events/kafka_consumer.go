package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const fetchWait = 250 * time.Millisecond

// KafkaConsumer reads payment events through a consumer group. Offsets are
// committed only when the worker acknowledges a message, so anything fetched
// but not committed is redelivered after Rewind or a restart.
type KafkaConsumer struct {
	mu     sync.Mutex
	cfg    kafka.ReaderConfig
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, groupID string, topics []string) (*KafkaConsumer, error) {
	switch {
	case len(brokers) == 0:
		return nil, fmt.Errorf("kafka consumer requires at least one broker")
	case groupID == "":
		return nil, fmt.Errorf("kafka consumer requires group id")
	case len(topics) == 0:
		return nil, fmt.Errorf("kafka consumer requires at least one topic")
	}
	cfg := kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	}
	return &KafkaConsumer{cfg: cfg, reader: kafka.NewReader(cfg)}, nil
}

func (c *KafkaConsumer) current() *kafka.Reader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reader
}

// Fetch returns up to max messages without committing their offsets.
func (c *KafkaConsumer) Fetch(ctx context.Context, max int) ([]Message, error) {
	if max <= 0 {
		max = 1
	}
	reader := c.current()
	out := make([]Message, 0, max)
	for len(out) < max {
		fetchCtx, cancel := context.WithTimeout(ctx, fetchWait)
		msg, err := reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return out, nil
			}
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			return out, err
		}
		out = append(out, Message{
			Topic:     msg.Topic,
			Key:       string(msg.Key),
			Payload:   msg.Value,
			Partition: msg.Partition,
			Offset:    msg.Offset,
			raw:       msg,
		})
	}
	return out, nil
}

func (c *KafkaConsumer) Commit(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	raw := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		raw = append(raw, m.raw)
	}
	return c.current().CommitMessages(ctx, raw...)
}

// Rewind drops the fetched but uncommitted position by reopening the group
// reader, which resumes from the last committed offsets.
func (c *KafkaConsumer) Rewind(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	closeErr := c.reader.Close()
	c.reader = kafka.NewReader(c.cfg)
	return closeErr
}

func (c *KafkaConsumer) Close() error {
	return c.current().Close()
}
