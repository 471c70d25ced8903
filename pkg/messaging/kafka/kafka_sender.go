package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erain9/crossbook/pkg/messaging"
	"github.com/segmentio/kafka-go"
)

// KafkaMatchSender implements MatchSender using Kafka
type KafkaMatchSender struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaMatchSender creates a new Kafka match sender
func NewKafkaMatchSender(brokerAddr, topic string) (*KafkaMatchSender, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerAddr),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &KafkaMatchSender{
		writer: writer,
		topic:  topic,
	}, nil
}

// SendMatchMessage sends a match message to Kafka
func (k *KafkaMatchSender) SendMatchMessage(ctx context.Context, match *messaging.MatchMessage) error {
	data, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("failed to marshal match message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(match.BuyPrice),
		Value: data,
		Time:  time.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka writer
func (k *KafkaMatchSender) Close() error {
	return k.writer.Close()
}

var _ messaging.MatchSender = (*KafkaMatchSender)(nil)
