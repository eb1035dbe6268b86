package payment

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventPaymentConfirmed = "PaymentConfirmed"
	EventPaymentFailed    = "PaymentFailed"
)

// OutcomeEvent is published once a payment record has been persisted.
type OutcomeEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OrderID    string    `json:"order_id"`
	PaymentID  string    `json:"payment_id,omitempty"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewOutcomeEvent builds the event matching rec's final status.
func NewOutcomeEvent(e PaymentEvent, rec PaymentRecord, at time.Time) OutcomeEvent {
	eventType := EventPaymentFailed
	if rec.OrderStatus == OrderPaid {
		eventType = EventPaymentConfirmed
	}
	return OutcomeEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OrderID:    rec.OrderID,
		PaymentID:  e.PaymentID,
		Amount:     rec.OrderAmount,
		Currency:   Currency,
		OccurredAt: at.UTC(),
	}
}
