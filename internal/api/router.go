package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/example/payment-reconciler/internal/api/middleware"
	"github.com/example/payment-reconciler/internal/webhook"
)

const (
	PathWebhook     = "/api/payment-webhook"
	PathVerify      = "/api/verify-payment"
	PathCreateOrder = "/api/create-order"
	PathHealth      = "/healthz"
)

// NewRouter wires the HTTP surface. timeout bounds every request; zero
// disables it.
func NewRouter(handlers *Handlers, verifier *webhook.Verifier, timeout time.Duration, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	if timeout > 0 {
		r.Use(chimw.Timeout(timeout))
	}
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get(PathHealth, handlers.Healthz)

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.VerifySignature(verifier, logger)).Post("/payment-webhook", handlers.PaymentWebhook)
		r.Get("/verify-payment", handlers.VerifyPayment)
		r.Post("/create-order", handlers.CreateOrder)
	})

	return r
}
