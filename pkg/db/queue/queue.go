package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/erain9/crossbook/pkg/messaging"
)

var (
	brokerList = "localhost:9092"
	topic      = "crossbook-matches"

	// Injection points for tests
	newSyncProducer = sarama.NewSyncProducer
	newConsumer     = sarama.NewConsumer
)

// SetBrokerList overrides the Kafka broker address
func SetBrokerList(addr string) {
	brokerList = addr
}

// SetTopic overrides the Kafka topic
func SetTopic(t string) {
	topic = t
}

// QueueMatchSender implements the MatchSender interface for sending
// match messages to Kafka via a synchronous producer.
type QueueMatchSender struct {
	producer sarama.SyncProducer
}

// NewQueueMatchSender creates a sender with its own producer connection
func NewQueueMatchSender() (*QueueMatchSender, error) {
	producer, err := newSyncProducer([]string{brokerList}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &QueueMatchSender{producer: producer}, nil
}

// SendMatchMessage sends the MatchMessage to the Kafka queue
func (q *QueueMatchSender) SendMatchMessage(_ context.Context, match *messaging.MatchMessage) error {
	messageBytes, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("failed to marshal match message: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(messageBytes),
	}

	if _, _, err := q.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	return nil
}

// Close closes the underlying producer
func (q *QueueMatchSender) Close() error {
	return q.producer.Close()
}

var _ messaging.MatchSender = (*QueueMatchSender)(nil)

// QueueMatchConsumer consumes match messages from Kafka
type QueueMatchConsumer struct {
	consumer sarama.Consumer
	done     chan struct{}
}

// NewQueueMatchConsumer creates a consumer connected to the broker
func NewQueueMatchConsumer() (*QueueMatchConsumer, error) {
	consumer, err := newConsumer([]string{brokerList}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	return &QueueMatchConsumer{
		consumer: consumer,
		done:     make(chan struct{}),
	}, nil
}

// ConsumeMatchMessages delivers decoded match messages to the handler
// until the consumer is closed.
func (q *QueueMatchConsumer) ConsumeMatchMessages(handler func(*messaging.MatchMessage) error) error {
	partitionConsumer, err := q.consumer.ConsumePartition(topic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("failed to consume partition: %w", err)
	}
	defer partitionConsumer.Close()

	for {
		select {
		case msg, ok := <-partitionConsumer.Messages():
			if !ok {
				return nil
			}

			var match messaging.MatchMessage
			if err := json.Unmarshal(msg.Value, &match); err != nil {
				continue
			}

			if err := handler(&match); err != nil {
				return err
			}
		case <-q.done:
			return nil
		}
	}
}

// Close stops consumption and closes the connection
func (q *QueueMatchConsumer) Close() error {
	close(q.done)
	return q.consumer.Close()
}
