// Package reconcile turns normalized webhook events into durable payment
// records and one confirmation per paid order.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/payment-reconciler/internal/dedup"
	"github.com/example/payment-reconciler/internal/domain/payment"
	"github.com/example/payment-reconciler/internal/infrastructure/kafka"
	"github.com/example/payment-reconciler/internal/infrastructure/store"
)

// ReasonDuplicatePrevented marks a paid event whose confirmation was
// already sent inside the dedup window.
const ReasonDuplicatePrevented = "duplicate_prevented"

// RecordStore reads and writes durable payment records.
type RecordStore interface {
	Get(ctx context.Context, orderID string) (*payment.PaymentRecord, error)
	Save(ctx context.Context, rec payment.PaymentRecord) error
}

// Notifier sends the confirmation for a paid event.
type Notifier interface {
	SendConfirmation(ctx context.Context, e payment.PaymentEvent) error
}

// Outcome describes what processing one event did.
type Outcome struct {
	Decision  payment.Decision
	Reason    string
	Persisted bool
	EmailSent bool
}

type Engine struct {
	records   RecordStore
	guard     dedup.Guard
	notifier  Notifier
	publisher kafka.Publisher
	now       func() time.Time
	logger    *slog.Logger
}

func NewEngine(records RecordStore, guard dedup.Guard, notifier Notifier, publisher kafka.Publisher, logger *slog.Logger) *Engine {
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	return &Engine{
		records:   records,
		guard:     guard,
		notifier:  notifier,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.With("component", "reconcile"),
	}
}

// Process applies one event. It never fails: persistence, email and
// publish errors are logged and reflected in the Outcome only.
func (e *Engine) Process(ctx context.Context, ev payment.PaymentEvent) Outcome {
	out := Outcome{Decision: payment.Decide(ev)}
	logger := e.logger.With("order_id", ev.OrderID, "decision", out.Decision)

	if out.Decision == payment.DecisionUnknown {
		logger.Info("ambiguous payment state",
			"event_type", ev.EventType,
			"payment_status", ev.PaymentStatus,
		)
		return out
	}

	if payment.ShouldPersist(ev) {
		out.Persisted = e.persist(ctx, ev, logger)
	}

	if out.Decision != payment.DecisionConfirmedPaid {
		logger.Info("payment not confirmed, no notification", "payment_status", ev.PaymentStatus)
		return out
	}

	if !e.guard.ShouldSend(ev.OrderID) {
		out.Reason = ReasonDuplicatePrevented
		logger.Info("confirmation suppressed", "reason", ReasonDuplicatePrevented)
		return out
	}

	if err := e.notifier.SendConfirmation(ctx, ev); err != nil {
		logger.Error("failed to send confirmation", "err", err)
		return out
	}
	e.guard.MarkSent(ev.OrderID)
	out.EmailSent = true
	return out
}

// persist writes the record for ev unless a PAID record already exists.
// It reports whether a write happened.
func (e *Engine) persist(ctx context.Context, ev payment.PaymentEvent, logger *slog.Logger) bool {
	rec := payment.RecordFor(ev)

	existing, err := e.records.Get(ctx, ev.OrderID)
	switch {
	case errors.Is(err, store.ErrBlobNotFound):
		existing = nil
	case err != nil:
		if rec.OrderStatus != payment.OrderPaid {
			logger.Error("failed to read payment record, skipping failure write", "err", err)
			return false
		}
		logger.Warn("failed to read payment record", "err", err)
		existing = nil
	}

	if existing != nil && !payment.CanOverwrite(*existing, rec) {
		logger.Info("payment record already final", "existing_status", existing.OrderStatus)
		return false
	}

	if err := e.records.Save(ctx, rec); err != nil {
		logger.Error("failed to persist payment record", "err", err)
		return false
	}

	if existing == nil || existing.OrderStatus != rec.OrderStatus {
		e.publish(ctx, ev, rec, logger)
	}
	return true
}

func (e *Engine) publish(ctx context.Context, ev payment.PaymentEvent, rec payment.PaymentRecord, logger *slog.Logger) {
	event := payment.NewOutcomeEvent(ev, rec, e.now())
	if err := e.publisher.Publish(ctx, rec.OrderID, event); err != nil {
		logger.Error("failed to publish outcome event", "event_type", event.EventType, "err", err)
	}
}
