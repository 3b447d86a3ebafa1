package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/textile-shop/internal/app"
	"github.com/joao-fontenele/textile-shop/internal/chat"
	"github.com/joao-fontenele/textile-shop/internal/config"
	"github.com/joao-fontenele/textile-shop/internal/domain"
	"github.com/joao-fontenele/textile-shop/internal/messaging"
	"github.com/joao-fontenele/textile-shop/internal/notify"
	"github.com/joao-fontenele/textile-shop/internal/telemetry"
)

func main() {
	cfg, err := config.Load(config.New())
	if err != nil {
		telemetry.NewLogger(slog.LevelInfo).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := telemetry.NewLogger(cfg.LogLevel)

	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}
	if cfg.StoreDriver == config.StoreMemory {
		logger.Error("the worker needs a shared store; set STORE_DRIVER to postgres or sqlite")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, shutdownTelemetry, err := app.InitTelemetry(ctx, cfg, cfg.ServiceName+"-worker")
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err, "driver", cfg.StoreDriver)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	handler := notify.NewNotificationHandler(chat.NewService(store), logger)

	consumers := map[*messaging.Consumer]messaging.HandlerFunc{
		messaging.NewConsumer(cfg.KafkaBrokers, domain.TopicOrderCreated, cfg.ConsumerGroup):       handler.HandleOrderCreated,
		messaging.NewConsumer(cfg.KafkaBrokers, domain.TopicOrderStatusChanged, cfg.ConsumerGroup): handler.HandleStatusChanged,
	}

	logger.Info("starting notification worker", "brokers", cfg.KafkaBrokers, "group", cfg.ConsumerGroup)

	g, gctx := errgroup.WithContext(ctx)
	for consumer, handle := range consumers {
		defer func() { _ = consumer.Close() }()
		g.Go(func() error {
			err := consumer.Consume(gctx, handle)
			if errors.Is(err, context.Canceled) {
				logger.Info("consumer stopped", "topic", consumer.Topic())
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
