package payment

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Currency is fixed: the storefront only sells in Indian rupees.
const Currency = "INR"

// EventType is the canonical webhook event classification.
type EventType string

const (
	EventSuccess EventType = "SUCCESS"
	EventFailed  EventType = "FAILED"
	EventUnknown EventType = "UNKNOWN"
)

// PaymentStatus is the canonical payment status carried by a webhook.
type PaymentStatus string

const (
	StatusSuccess   PaymentStatus = "SUCCESS"
	StatusPaid      PaymentStatus = "PAID"
	StatusFailed    PaymentStatus = "FAILED"
	StatusFailure   PaymentStatus = "FAILURE"
	StatusPending   PaymentStatus = "PENDING"
	StatusCancelled PaymentStatus = "CANCELLED"
	StatusUnknown   PaymentStatus = "UNKNOWN"
)

var knownStatuses = map[PaymentStatus]struct{}{
	StatusSuccess:   {},
	StatusPaid:      {},
	StatusFailed:    {},
	StatusFailure:   {},
	StatusPending:   {},
	StatusCancelled: {},
}

// ParsePaymentStatus maps a raw gateway status onto the canonical set.
// Anything unrecognised becomes StatusUnknown.
func ParsePaymentStatus(raw string) PaymentStatus {
	s := PaymentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if s == "CANCELED" {
		return StatusCancelled
	}
	if _, ok := knownStatuses[s]; ok {
		return s
	}
	return StatusUnknown
}

// OrderStatus is the status stored on a PaymentRecord.
type OrderStatus string

const (
	OrderPaid    OrderStatus = "PAID"
	OrderPending OrderStatus = "PENDING"
	OrderFailed  OrderStatus = "FAILED"
)

var (
	ErrInvalidOrder   = errors.New("invalid order")
	ErrMissingOrderID = errors.New("order id is required")
)

type CartItem struct {
	ProductID       string  `json:"productId"`
	Name            string  `json:"name"`
	UnitPrice       float64 `json:"unitPrice"`
	Quantity        int     `json:"quantity"`
	SelectedVariant string  `json:"selectedVariant,omitempty"`
}

// Subtotal returns unit price times quantity.
func (c CartItem) Subtotal() float64 {
	return c.UnitPrice * float64(c.Quantity)
}

type ShippingInfo struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Address      string `json:"address"`
	Location     string `json:"location"`
	MobileNumber string `json:"mobileNumber"`
	Landmark     string `json:"landmark,omitempty"`
	PinCode      string `json:"pinCode"`
}

// IsZero reports whether no shipping field carries a value.
func (s ShippingInfo) IsZero() bool {
	return s == ShippingInfo{}
}

// FullName joins first and last name.
func (s ShippingInfo) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// OrderIntent is the cart and shipping snapshot written before the
// shopper is redirected to the gateway.
type OrderIntent struct {
	OrderID      string       `json:"orderId"`
	Amount       float64      `json:"amount"`
	CartItems    []CartItem   `json:"cartItems"`
	ShippingInfo ShippingInfo `json:"shippingInfo"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Validate checks the fields required to create a gateway order.
func (o OrderIntent) Validate() error {
	if strings.TrimSpace(o.OrderID) == "" {
		return ErrMissingOrderID
	}
	if o.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidOrder)
	}
	for i, item := range o.CartItems {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: cart item %d has non-positive quantity", ErrInvalidOrder, i)
		}
	}
	return nil
}

type CustomerDetails struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// IsZero reports whether no customer field carries a value.
func (c CustomerDetails) IsZero() bool {
	return c == CustomerDetails{}
}

// PaymentEvent is the schema-independent meaning of one webhook delivery.
type PaymentEvent struct {
	OrderID         string            `json:"orderId"`
	GatewayOrderID  string            `json:"gatewayOrderId,omitempty"`
	EventType       EventType         `json:"eventType"`
	PaymentStatus   PaymentStatus     `json:"paymentStatus"`
	PaymentID       string            `json:"paymentId,omitempty"`
	PaymentMethod   string            `json:"paymentMethod,omitempty"`
	OrderAmount     float64           `json:"orderAmount,omitempty"`
	CustomerDetails CustomerDetails   `json:"customerDetails"`
	OrderTags       map[string]string `json:"orderTags,omitempty"`
	CartItems       []CartItem        `json:"cartItems,omitempty"`
	RawOrderNote    string            `json:"rawOrderNote,omitempty"`
}

// IsConfirmedPaid requires both signals plus an order id; neither the
// event type nor the status is trusted on its own.
func (e PaymentEvent) IsConfirmedPaid() bool {
	return e.OrderID != "" &&
		e.EventType == EventSuccess &&
		(e.PaymentStatus == StatusSuccess || e.PaymentStatus == StatusPaid)
}

// PaymentRecord is the durable outcome for one order.
type PaymentRecord struct {
	OrderID         string          `json:"orderId"`
	OrderStatus     OrderStatus     `json:"orderStatus"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus,omitempty"`
	OrderAmount     float64         `json:"orderAmount,omitempty"`
	CustomerDetails CustomerDetails `json:"customerDetails"`
	PaymentMessage  string          `json:"paymentMessage"`
}

// PendingRecord is returned when nothing is known about an order.
func PendingRecord(orderID string) PaymentRecord {
	return PaymentRecord{
		OrderID:        orderID,
		OrderStatus:    OrderPending,
		PaymentStatus:  StatusPending,
		PaymentMessage: "Payment pending",
	}
}
