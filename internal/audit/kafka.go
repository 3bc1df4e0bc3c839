package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"jojo/internal/platform/kafka/producer"
)

// Sink receives every emitted event after it is stored.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

type asyncProducer interface {
	ProduceAsync(msg *producer.Message) error
}

// KafkaSink forwards events to a topic keyed by instructor so one
// instructor's timeline stays ordered within a partition.
type KafkaSink struct {
	producer asyncProducer
	topic    string
}

func NewKafkaSink(p asyncProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

func (k *KafkaSink) Publish(_ context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	return k.producer.ProduceAsync(&producer.Message{
		Topic: k.topic,
		Key:   []byte(event.InstructorID),
		Value: value,
		Headers: map[string]string{
			"action":     string(event.Action),
			"actor_role": event.ActorRole,
		},
	})
}
