package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/payment-reconciler/internal/config"
	"github.com/example/payment-reconciler/internal/infrastructure/store"
)

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:        "127.0.0.1:0",
		ShutdownTimeout: time.Second,
		RequestTimeout:  5 * time.Second,
		Gateway:         config.GatewayConfig{ClientID: "id", ClientSecret: "secret", Env: "sandbox"},
		SiteURL:         "https://shop.example.com",
		Blob:            config.BlobConfig{Backend: config.BackendMemory},
		DedupTTL:        time.Hour,
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_MemoryBackend(t *testing.T) {
	a, err := New(context.Background(), testConfig(), discard())
	require.NoError(t, err)
	defer a.Close()

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/payment-webhook", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code, "empty body is not JSON")
}

func TestNewBlobStore(t *testing.T) {
	s, closeFn, err := NewBlobStore(context.Background(), config.BlobConfig{Backend: config.BackendMemory}, discard())
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryBlobStore{}, s)
	assert.NoError(t, closeFn())

	_, _, err = NewBlobStore(context.Background(), config.BlobConfig{Backend: "redis"}, discard())
	assert.ErrorContains(t, err, "unknown blob backend")
}

func TestServe_StopsOnCancel(t *testing.T) {
	a, err := New(context.Background(), testConfig(), discard())
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
