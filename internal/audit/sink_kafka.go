package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"cookiegate/internal/platform/kafka/producer"
)

// Producer is the part of the Kafka producer the sink needs.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaSink publishes events as JSON, keyed by device id so one device's
// history stays ordered within a partition.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(p Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

func (s *KafkaSink) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode consent audit event: %w", err)
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(event.DeviceID),
		Value: payload,
		Headers: map[string]string{
			"event_type": string(event.Action),
			"event_id":   event.ID.String(),
		},
	})
}
