package kafka

import (
	"context"

	"github.com/erain9/crossbook/pkg/db/queue"
	"github.com/erain9/crossbook/pkg/messaging"
	"github.com/rs/zerolog"
)

// SetupConsumer initializes and starts the Kafka consumer for logging
// published match messages. It is a developer convenience; the server
// runs fine without a broker.
func SetupConsumer(ctx context.Context, logger zerolog.Logger) (*queue.QueueMatchConsumer, error) {
	kafkaConsumer, err := queue.NewQueueMatchConsumer()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to create Kafka consumer - continuing without Kafka support")
		return nil, err
	}

	go func() {
		logger.Info().Msg("Starting Kafka consumer")
		err := kafkaConsumer.ConsumeMatchMessages(func(msg *messaging.MatchMessage) error {
			logger.Info().
				Str("buy_price", msg.BuyPrice).
				Str("sell_price", msg.SellPrice).
				Int64("amount", msg.Amount).
				Msg("Received match message")
			return nil
		})
		if err != nil {
			logger.Error().Err(err).Msg("Kafka consumer error")
		}
	}()

	return kafkaConsumer, nil
}
