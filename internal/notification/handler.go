package notification

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/example/payment-reconciler/internal/domain/payment"
	"github.com/example/payment-reconciler/internal/email"
	"github.com/example/payment-reconciler/internal/infrastructure/store"
	"github.com/example/payment-reconciler/internal/webhook"
)

// IntentReader loads the checkout snapshot for an order.
type IntentReader interface {
	Get(ctx context.Context, orderID string) (*payment.OrderIntent, error)
}

// Handler composes and sends payment confirmations
type Handler struct {
	emailService email.Dispatcher
	intents      IntentReader
	notifyEmail  string
	logger       *slog.Logger
}

// NewHandler creates a new notification handler. notifyEmail receives a
// copy of every confirmation and may be empty.
func NewHandler(emailSvc email.Dispatcher, intents IntentReader, notifyEmail string, logger *slog.Logger) *Handler {
	return &Handler{
		emailService: emailSvc,
		intents:      intents,
		notifyEmail:  notifyEmail,
		logger:       logger.With("component", "notification"),
	}
}

// SendConfirmation sends the confirmation for a paid event. A missing or
// unreadable order intent only narrows what the email can show.
func (h *Handler) SendConfirmation(ctx context.Context, e payment.PaymentEvent) error {
	intent, err := h.intents.Get(ctx, e.OrderID)
	if err != nil {
		if !errors.Is(err, store.ErrBlobNotFound) {
			h.logger.Error("failed to load order intent", "order_id", e.OrderID, "err", err)
		}
		intent = nil
	}

	c := h.Compose(e, intent)
	if err := h.emailService.SendOrderConfirmation(ctx, c); err != nil {
		return err
	}

	h.logger.Info("confirmation dispatched", "order_id", e.OrderID, "items", len(c.Items))
	return nil
}

// Compose builds the confirmation from the event, falling back to the
// stored intent where the webhook is silent. intent may be nil.
func (h *Handler) Compose(e payment.PaymentEvent, intent *payment.OrderIntent) email.Confirmation {
	items := lineItems(e, intent)
	return email.Confirmation{
		OrderID:       e.OrderID,
		PaymentID:     e.PaymentID,
		PaymentMethod: e.PaymentMethod,
		Items:         items,
		Total:         total(e, intent, items),
		Shipping:      shipping(e, intent),
		Customer:      e.CustomerDetails,
		Recipients:    h.recipients(e),
	}
}

func lineItems(e payment.PaymentEvent, intent *payment.OrderIntent) []email.OrderItem {
	cart := e.CartItems
	if len(cart) == 0 && intent != nil {
		cart = intent.CartItems
	}
	if len(cart) == 0 {
		return []email.OrderItem{{
			ProductID: e.OrderID,
			Name:      "Order " + e.OrderID,
			Quantity:  1,
			UnitPrice: e.OrderAmount,
		}}
	}

	items := make([]email.OrderItem, len(cart))
	for i, item := range cart {
		items[i] = email.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Variant:   item.SelectedVariant,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	return items
}

func total(e payment.PaymentEvent, intent *payment.OrderIntent, items []email.OrderItem) float64 {
	if e.OrderAmount > 0 {
		return e.OrderAmount
	}
	if intent != nil && intent.Amount > 0 {
		return intent.Amount
	}
	var sum float64
	for _, item := range items {
		sum += item.UnitPrice * float64(item.Quantity)
	}
	return sum
}

// shipping tries order tags, the stored intent, customer details and
// finally the order note. Customer details carry no address, so the
// order note still fills location and pincode behind them.
func shipping(e payment.PaymentEvent, intent *payment.OrderIntent) payment.ShippingInfo {
	if s, ok := webhook.ShippingFromTags(e.OrderTags); ok {
		return s
	}
	if intent != nil && !intent.ShippingInfo.IsZero() {
		return intent.ShippingInfo
	}

	note, _ := webhook.ParseOrderNote(e.RawOrderNote)
	c := e.CustomerDetails
	if c.Name == "" && c.Phone == "" {
		return note
	}

	first, last, _ := strings.Cut(strings.TrimSpace(c.Name), " ")
	s := payment.ShippingInfo{
		FirstName:    first,
		LastName:     strings.TrimSpace(last),
		MobileNumber: c.Phone,
		Location:     note.Location,
		PinCode:      note.PinCode,
	}
	if s.FirstName == "" {
		s.FirstName, s.LastName = note.FirstName, note.LastName
	}
	return s
}

func (h *Handler) recipients(e payment.PaymentEvent) []string {
	var to []string
	if h.notifyEmail != "" {
		to = append(to, h.notifyEmail)
	}
	if addr := strings.TrimSpace(e.CustomerDetails.Email); addr != "" && !strings.EqualFold(addr, h.notifyEmail) {
		to = append(to, addr)
	}
	return to
}
