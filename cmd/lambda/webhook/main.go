package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/example/payment-reconciler/internal/app"
	"github.com/example/payment-reconciler/internal/config"
	"github.com/example/payment-reconciler/internal/infrastructure/apigw"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		config.LogConfig{Level: "info", Format: "json"}.NewLogger(os.Stderr).Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg.Log.Format = "json"
	logger := cfg.Log.NewLogger(os.Stdout).With("runtime", "lambda")

	if err := cfg.ValidateServer(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if cfg.Blob.Backend == config.BackendMemory {
		logger.Warn("memory blob store does not survive cold starts")
	}

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "err", err)
		os.Exit(1)
	}
	logger.Info("lambda initialized", "blob_backend", cfg.Blob.Backend)

	lambda.Start(apigw.Handler(a.Handler))
}
