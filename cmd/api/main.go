package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joao-fontenele/textile-shop/internal/app"
	"github.com/joao-fontenele/textile-shop/internal/auth"
	"github.com/joao-fontenele/textile-shop/internal/config"
	"github.com/joao-fontenele/textile-shop/internal/messaging"
	"github.com/joao-fontenele/textile-shop/internal/orders"
	"github.com/joao-fontenele/textile-shop/internal/telemetry"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.New())
	if err != nil {
		telemetry.NewLogger(slog.LevelInfo).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := telemetry.NewLogger(cfg.LogLevel)

	metricsHandler, shutdownTelemetry, err := app.InitTelemetry(ctx, cfg, cfg.ServiceName+"-api")
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTelemetry(ctx) }()

	tokens, err := auth.ParseTokens(cfg.AuthTokens)
	if err != nil {
		logger.Error("failed to parse auth tokens", "error", err)
		os.Exit(1)
	}
	if len(tokens) == 0 {
		logger.Warn("no AUTH_TOKENS configured, every authenticated route will answer 401")
	}

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err, "driver", cfg.StoreDriver)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	var publisher orders.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers)
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	handler, err := app.API{
		Store:     store,
		Publisher: publisher,
		Tokens:    tokens,
		Metrics:   metricsHandler,
		Logger:    logger,
	}.Handler()
	if err != nil {
		logger.Error("failed to build routes", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting api service", "port", cfg.Port, "store", cfg.StoreDriver, "events", publisher != nil)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
