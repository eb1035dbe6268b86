package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/example/payment-reconciler/internal/webhook"
)

// MaxWebhookBody caps how much of a webhook body is read.
const MaxWebhookBody = 1 << 20

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": message})
}

// VerifySignature rejects webhook deliveries whose signature does not
// match. With no secret configured every delivery passes through.
// The body is buffered and replaced so handlers can read it again.
func VerifySignature(verifier *webhook.Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "webhook")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !verifier.Enabled() {
				logger.Debug("signature verification skipped, no secret configured")
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, MaxWebhookBody))
			if err != nil {
				respondError(w, "failed to read body", http.StatusInternalServerError)
				return
			}

			if err := verifier.Verify(r.Header, body); err != nil {
				logger.Warn("webhook signature rejected", "err", err,
					"missing", errors.Is(err, webhook.ErrMissingSignature))
				respondError(w, "invalid signature", http.StatusUnauthorized)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
