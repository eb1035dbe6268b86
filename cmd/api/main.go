package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/payment-reconciler/internal/app"
	"github.com/example/payment-reconciler/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootstrapFail("failed to load config", err)
	}
	logger := cfg.Log.NewLogger(os.Stdout)

	if err := cfg.ValidateServer(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting payment reconciler",
		"gateway_env", cfg.Gateway.Env,
		"blob_backend", cfg.Blob.Backend,
		"kafka_brokers", cfg.Kafka.Brokers,
	)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to release resources", "err", err)
		}
	}()

	if err := a.Serve(ctx); err != nil {
		logger.Error("server stopped", "err", err)
		return
	}
	logger.Info("server stopped")
}

func bootstrapFail(msg string, err error) {
	logger := config.LogConfig{Level: "info", Format: "text"}.NewLogger(os.Stderr)
	logger.Error(msg, "err", err)
	os.Exit(1)
}
