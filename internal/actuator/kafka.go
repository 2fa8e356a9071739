package actuator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes each command as JSON keyed by room, so every room's
// commands stay ordered on one partition.
type KafkaSink struct {
	w messageWriter
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Publish(ctx context.Context, cmd Command) error {
	b, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	err = s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(cmd.Room),
		Value: b,
		Time:  cmd.IssuedAt,
	})
	if err != nil {
		return fmt.Errorf("kafka write %s: %w", cmd.Room, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.w.Close()
}
