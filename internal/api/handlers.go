package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"

	"github.com/example/payment-reconciler/internal/api/middleware"
	"github.com/example/payment-reconciler/internal/checkout"
	"github.com/example/payment-reconciler/internal/domain/payment"
	"github.com/example/payment-reconciler/internal/gateway"
	"github.com/example/payment-reconciler/internal/reconcile"
	"github.com/example/payment-reconciler/internal/verification"
	"github.com/example/payment-reconciler/internal/webhook"
)

// WebhookProcessor applies a normalized webhook event.
type WebhookProcessor interface {
	Process(ctx context.Context, e payment.PaymentEvent) reconcile.Outcome
}

// PaymentVerifier resolves an order's payment status.
type PaymentVerifier interface {
	Verify(ctx context.Context, orderID string) verification.Result
}

// OrderCreator opens a gateway payment session.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req checkout.Request) (*gateway.CreateOrderResult, error)
}

type Handlers struct {
	engine   WebhookProcessor
	verifier PaymentVerifier
	checkout OrderCreator
	logger   *slog.Logger
}

func NewHandlers(engine WebhookProcessor, verifier PaymentVerifier, checkout OrderCreator, logger *slog.Logger) *Handlers {
	return &Handlers{
		engine:   engine,
		verifier: verifier,
		checkout: checkout,
		logger:   logger.With("component", "api"),
	}
}

type webhookResponse struct {
	Success       bool                  `json:"success"`
	OrderID       string                `json:"order_id"`
	PaymentStatus payment.PaymentStatus `json:"payment_status"`
	Reason        string                `json:"reason,omitempty"`
}

type errorResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// PaymentWebhook acknowledges every parseable delivery with 200. Only an
// unparseable body gets a 500; signature failures are handled upstream.
func (h *Handlers) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, middleware.MaxWebhookBody))
	if err != nil {
		h.logger.Error("failed to read webhook body", "err", err)
		respondJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "failed to read body"})
		return
	}

	event, err := webhook.NormalizeBytes(raw)
	switch {
	case errors.Is(err, webhook.ErrMalformedWebhook):
		h.logger.Warn("malformed webhook, no order id", "payload", string(raw))
		respondJSON(w, r, http.StatusOK, webhookResponse{Success: true, PaymentStatus: event.PaymentStatus})
		return
	case err != nil:
		h.logger.Error("webhook body is not valid JSON", "err", err)
		respondJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "invalid JSON payload"})
		return
	}

	// Reconciliation runs to completion even if the client goes away.
	out := h.engine.Process(context.WithoutCancel(r.Context()), event)

	respondJSON(w, r, http.StatusOK, webhookResponse{
		Success:       true,
		OrderID:       event.OrderID,
		PaymentStatus: event.PaymentStatus,
		Reason:        out.Reason,
	})
}

type verifyResponse struct {
	payment.PaymentRecord
	RateLimitError bool `json:"rateLimitError,omitempty"`
	RetryAfter     int  `json:"retryAfter,omitempty"`
}

// VerifyPayment always returns a PaymentRecord; a throttled gateway
// lookup turns the status code into 429 with Retry-After.
func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(r.URL.Query().Get("order_id"))
	if orderID == "" {
		respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "order_id is required"})
		return
	}

	res := h.verifier.Verify(r.Context(), orderID)
	resp := verifyResponse{PaymentRecord: res.Record}
	status := http.StatusOK
	if res.RateLimited {
		secs := gateway.RetryAfterSeconds(res.RetryAfter)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		resp.RateLimitError = true
		resp.RetryAfter = secs
		status = http.StatusTooManyRequests
	}
	respondJSON(w, r, status, resp)
}

type createOrderResponse struct {
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id"`
	GatewayOrderID   string `json:"cf_order_id,omitempty"`
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.checkout.CreateOrder(r.Context(), req)
	if err != nil {
		h.respondCheckoutError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, createOrderResponse{
		OrderID:          result.OrderID,
		PaymentSessionID: result.PaymentSessionID,
		GatewayOrderID:   result.GatewayOrderID,
	})
}

func (h *Handlers) respondCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, checkout.ErrMissingFields) ||
		errors.Is(err, payment.ErrInvalidOrder) ||
		errors.Is(err, payment.ErrMissingOrderID) {
		respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		if gwErr.Kind == gateway.KindRateLimited {
			secs := gateway.RetryAfterSeconds(gwErr.RetryAfter)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			respondJSON(w, r, http.StatusTooManyRequests, errorResponse{Error: gwErr.UserMessage, RetryAfter: secs})
			return
		}
		respondJSON(w, r, http.StatusBadGateway, errorResponse{Error: gwErr.UserMessage})
		return
	}

	h.logger.Error("order creation failed", "err", err)
	respondJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, data)
}
