package payment

// Decision is the reconciliation state an order enters after one event.
type Decision string

const (
	DecisionNoEvent         Decision = "no_event"
	DecisionUnknown         Decision = "unknown"
	DecisionConfirmedPaid   Decision = "confirmed_paid"
	DecisionConfirmedFailed Decision = "confirmed_failed"
)

// IsTerminal reports whether no later event may move the order out of d.
func (d Decision) IsTerminal() bool {
	return d == DecisionConfirmedPaid || d == DecisionConfirmedFailed
}

// doNotNotify covers every status that must never trigger a confirmation.
var doNotNotify = map[PaymentStatus]struct{}{
	StatusFailed:    {},
	StatusFailure:   {},
	StatusPending:   {},
	StatusCancelled: {},
}

// definiteFailures are the statuses that get a FAILED record persisted.
var definiteFailures = map[PaymentStatus]struct{}{
	StatusFailed:  {},
	StatusFailure: {},
}

// Decide applies the transition rules to a single event.
func Decide(e PaymentEvent) Decision {
	if e.IsConfirmedPaid() {
		return DecisionConfirmedPaid
	}
	if e.EventType == EventFailed {
		return DecisionConfirmedFailed
	}
	if _, ok := doNotNotify[e.PaymentStatus]; ok {
		return DecisionConfirmedFailed
	}
	return DecisionUnknown
}

// ShouldPersist reports whether the event produces a durable record.
// Pending and cancelled deliveries do not.
func ShouldPersist(e PaymentEvent) bool {
	if e.OrderID == "" {
		return false
	}
	switch Decide(e) {
	case DecisionConfirmedPaid:
		return true
	case DecisionConfirmedFailed:
		if e.EventType == EventFailed {
			return true
		}
		_, ok := definiteFailures[e.PaymentStatus]
		return ok
	default:
		return false
	}
}

// RecordFor builds the durable record for a persistable event.
func RecordFor(e PaymentEvent) PaymentRecord {
	rec := PaymentRecord{
		OrderID:         e.OrderID,
		PaymentStatus:   e.PaymentStatus,
		OrderAmount:     e.OrderAmount,
		CustomerDetails: e.CustomerDetails,
	}
	if Decide(e) == DecisionConfirmedPaid {
		rec.OrderStatus = OrderPaid
		rec.PaymentMessage = "Payment successful"
		return rec
	}
	rec.OrderStatus = OrderFailed
	rec.PaymentMessage = "Payment failed"
	return rec
}

// CanOverwrite reports whether next may replace an existing record.
// A PAID record is terminal; anything else may be superseded.
func CanOverwrite(existing, next PaymentRecord) bool {
	if existing.OrderStatus == OrderPaid {
		return next.OrderStatus == OrderPaid
	}
	return true
}
