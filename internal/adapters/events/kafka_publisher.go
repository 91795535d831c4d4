package events

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
)

// TopicRouter maps emitted event types to broker topics. Unmapped types are
// published on a topic named after the event type.
type TopicRouter map[string]string

func (r TopicRouter) Topic(eventType string) string {
	if mapped := r[eventType]; mapped != "" {
		return mapped
	}
	return eventType
}

// KafkaPublisher keys every message by collaboration id, so one
// collaboration's events stay ordered on a single partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	topics TopicRouter
}

func NewKafkaPublisher(brokers []string, topics TopicRouter) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		topics: topics,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, rec ports.OutboxRecord) error {
	return p.writer.WriteMessages(ctx, outboxMessage(p.topics, rec))
}

func outboxMessage(topics TopicRouter, rec ports.OutboxRecord) kafka.Message {
	return kafka.Message{
		Topic: topics.Topic(rec.EventType),
		Key:   []byte(rec.PartitionKey),
		Value: rec.Payload,
		Time:  rec.FirstSeenAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(rec.EventType)},
			{Key: "outbox_id", Value: []byte(rec.OutboxID.String())},
		},
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
