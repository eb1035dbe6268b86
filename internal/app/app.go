// Package app assembles the reconciler from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/example/payment-reconciler/internal/api"
	"github.com/example/payment-reconciler/internal/checkout"
	"github.com/example/payment-reconciler/internal/config"
	"github.com/example/payment-reconciler/internal/dedup"
	"github.com/example/payment-reconciler/internal/email"
	"github.com/example/payment-reconciler/internal/gateway"
	"github.com/example/payment-reconciler/internal/infrastructure/kafka"
	"github.com/example/payment-reconciler/internal/infrastructure/store"
	"github.com/example/payment-reconciler/internal/notification"
	"github.com/example/payment-reconciler/internal/reconcile"
	"github.com/example/payment-reconciler/internal/verification"
	"github.com/example/payment-reconciler/internal/webhook"
)

type App struct {
	cfg    *config.Config
	logger *slog.Logger

	Engine       *reconcile.Engine
	Verification *verification.Fallback
	Checkout     *checkout.Service
	Handler      http.Handler

	closers []func() error
}

// New builds every component. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	blobs, closeBlobs, err := NewBlobStore(ctx, cfg.Blob, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeBlobs)

	publisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	a.closers = append(a.closers, publisher.Close)
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Info("outcome events disabled, no kafka brokers configured")
	}

	records := store.NewPaymentRecordStore(blobs)
	intents := store.NewOrderIntentStore(blobs)
	client := gateway.NewClient(cfg.GatewayClientConfig(), logger)

	mailer := email.NewService(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, logger)
	notifier := notification.NewHandler(mailer, intents, cfg.SMTP.NotifyEmail, logger)

	a.Engine = reconcile.NewEngine(records, dedup.NewMemoryGuard(cfg.DedupTTL), notifier, publisher, logger)
	a.Verification = verification.NewFallback(records, client, logger)
	a.Checkout = checkout.NewService(intents, client, logger)

	verifier := webhook.NewVerifier(cfg.Webhook.Secret, cfg.Webhook.MaxSkew)
	if !verifier.Enabled() {
		logger.Warn("WEBHOOK_SECRET not set, webhook signatures will not be verified")
	}

	handlers := api.NewHandlers(a.Engine, a.Verification, a.Checkout, logger)
	a.Handler = api.NewRouter(handlers, verifier, cfg.RequestTimeout, logger)
	return a, nil
}

// NewBlobStore opens the configured backend. The returned func closes any
// connection it holds.
func NewBlobStore(ctx context.Context, cfg config.BlobConfig, logger *slog.Logger) (store.BlobStore, func() error, error) {
	noop := func() error { return nil }
	logger = logger.With("component", "store", "backend", cfg.Backend)

	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory blob store, records are lost on restart")
		return store.NewMemoryBlobStore(), noop, nil

	case config.BackendS3:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		logger.Info("blob store ready", "bucket", cfg.Bucket, "prefix", cfg.Prefix)
		return store.NewS3BlobStore(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), noop, nil

	case config.BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		logger.Info("blob store ready", "table", cfg.Table, "prefix", cfg.Prefix)
		return store.NewDynamoBlobStore(dynamodb.NewFromConfig(awsCfg), cfg.Table, cfg.Prefix), noop, nil

	case config.BackendPostgres:
		db, err := store.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		pg := store.NewPostgresBlobStore(db, cfg.Prefix)
		if err := pg.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("blob store ready")
		return pg, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// within the configured grace period.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
