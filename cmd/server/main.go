package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erain9/crossbook/config"
	"github.com/erain9/crossbook/pkg/backend/memory"
	"github.com/erain9/crossbook/pkg/core"
	"github.com/erain9/crossbook/pkg/db/queue"
	"github.com/erain9/crossbook/pkg/engine"
	"github.com/erain9/crossbook/pkg/ledger"
	redisledger "github.com/erain9/crossbook/pkg/ledger/redis"
	"github.com/erain9/crossbook/pkg/logging"
	"github.com/erain9/crossbook/pkg/messaging"
	"github.com/erain9/crossbook/pkg/messaging/kafka"
	"github.com/erain9/crossbook/pkg/otel"
	"github.com/erain9/crossbook/pkg/server"
	zlog "github.com/rs/zerolog/log"
	"go.uber.org/zap"
)

var (
	useRedis     = flag.Bool("use_redis", false, "Store the match ledger in Redis instead of memory")
	publishKafka = flag.Bool("publish_kafka", false, "Publish executed pairings to Kafka")
	otelEnabled  = flag.Bool("otel", false, "Export traces and metrics to an OTLP collector")
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup logging
	logging.Setup(logging.Config{
		Level:  cfg.Server.LogLevel,
		Pretty: cfg.Server.LogFormat == "pretty",
		Output: os.Stdout,
	})
	logger := zlog.Logger

	// Create default context with logger
	ctx := logger.WithContext(context.Background())

	// Initialize OpenTelemetry
	cleanup, err := otel.Init(otel.Config{
		ServiceName:      "crossbook",
		ServiceVersion:   "1.0.0",
		Endpoint:         "localhost:4317",
		CollectorEnabled: *otelEnabled,
	})
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer cleanup()

	// Pick the ledger implementation
	var matchLedger core.MatchLedger
	if *useRedis {
		redisledger.SetDefaultRedisOptions(&redisledger.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		zapLogger, err := zap.NewProduction()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create zap logger")
		}
		defer zapLogger.Sync()

		matchLedger = redisledger.NewRedisLedger(redisledger.GetRedisClient(), "crossbook", zapLogger)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Using Redis match ledger")
	} else {
		matchLedger = ledger.NewMemoryLedger()
	}

	// Assemble the notification fan-out
	fanout := engine.NewFanout(logger, 0)

	hub := server.NewHub(logger)
	fanout.Subscribe(hub.Broadcast)

	if *publishKafka {
		fanout.Subscribe(func(record core.MatchRecord) {
			msg := messaging.NewMatchMessage(record)
			sendCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := queue.SendMessage(sendCtx, msg); err != nil {
				logger.Error().Err(err).Msg("Failed to publish match message")
			}
		})

		// The consumer is for developer purposes, it pretty prints the
		// messages in the queue.
		if kafkaConsumer, err := kafka.SetupConsumer(ctx, logger); err == nil && kafkaConsumer != nil {
			defer kafkaConsumer.Close()
		}
	}

	fanout.Start()

	// Assemble the matching engine
	book := core.NewOrderBook(memory.NewMemoryBackend(), matchLedger, fanout)
	eng := engine.New(book, engine.Config{
		QueueCapacity: cfg.Engine.QueueCapacity,
		Workers:       cfg.Engine.Workers,
		RetrySlice:    time.Duration(cfg.Engine.RetrySliceMS) * time.Millisecond,
	}, logger)
	eng.Start()

	// Setup HTTP server
	svc := server.NewService(eng, hub)
	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: svc.Routes(),
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.HTTPAddr).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to serve HTTP")
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	// Graceful shutdown: stop intake first, then let in-flight matching
	// finish, then drain notifications, then close the HTTP surface.
	eng.Stop()
	fanout.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("Server shutdown complete")
}
