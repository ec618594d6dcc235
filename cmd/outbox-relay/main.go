// README: Outbox relay; publishes committed order events to Kafka.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"helperhub/internal/broker/kafka"
	"helperhub/internal/config"
	"helperhub/internal/infra"
	"helperhub/internal/outbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := infra.NewLogger(os.Stdout, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Error("db init", "err", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	relay := outbox.NewRelay(dbPool, outbox.NewStore(), producer, outbox.RelayConfig{
		Topic:        cfg.Kafka.Topic,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		PollInterval: cfg.Outbox.PollInterval(),
	}, logger)

	logger.Info("outbox relay started", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	relay.Run(ctx)
	logger.Info("outbox relay stopped")
}
