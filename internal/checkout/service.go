// Package checkout opens gateway payment sessions for storefront orders.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/payment-reconciler/internal/domain/payment"
	"github.com/example/payment-reconciler/internal/gateway"
)

// ErrMissingFields is returned when a required request field is empty.
var ErrMissingFields = errors.New("missing required fields")

// Request is the storefront's order-creation payload.
type Request struct {
	OrderID       string               `json:"orderId"`
	OrderAmount   float64              `json:"orderAmount"`
	CustomerName  string               `json:"customerName"`
	CustomerPhone string               `json:"customerPhone"`
	CustomerEmail string               `json:"customerEmail,omitempty"`
	CartItems     []payment.CartItem   `json:"cartItems,omitempty"`
	ShippingInfo  payment.ShippingInfo `json:"shippingInfo"`
}

// Validate reports every missing required field at once.
func (r Request) Validate() error {
	var missing []string
	if strings.TrimSpace(r.OrderID) == "" {
		missing = append(missing, "orderId")
	}
	if r.OrderAmount == 0 {
		missing = append(missing, "orderAmount")
	}
	if strings.TrimSpace(r.CustomerName) == "" {
		missing = append(missing, "customerName")
	}
	if strings.TrimSpace(r.CustomerPhone) == "" {
		missing = append(missing, "customerPhone")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	return nil
}

// IntentWriter persists order intents.
type IntentWriter interface {
	Save(ctx context.Context, intent payment.OrderIntent) error
}

// OrderCreator opens a gateway session.
type OrderCreator interface {
	CreateOrder(ctx context.Context, intent payment.OrderIntent, customer gateway.Customer) (*gateway.CreateOrderResult, error)
}

type Service struct {
	intents IntentWriter
	gateway OrderCreator
	now     func() time.Time
	logger  *slog.Logger
}

func NewService(intents IntentWriter, gw OrderCreator, logger *slog.Logger) *Service {
	return &Service{
		intents: intents,
		gateway: gw,
		now:     time.Now,
		logger:  logger.With("component", "checkout"),
	}
}

// CreateOrder saves the intent best-effort and opens the gateway session.
// Gateway failures are returned as *gateway.Error.
func (s *Service) CreateOrder(ctx context.Context, req Request) (*gateway.CreateOrderResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	intent := payment.OrderIntent{
		OrderID:      strings.TrimSpace(req.OrderID),
		Amount:       req.OrderAmount,
		CartItems:    req.CartItems,
		ShippingInfo: req.ShippingInfo,
		CreatedAt:    s.now().UTC(),
	}
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	logger := s.logger.With("order_id", intent.OrderID)
	if err := s.intents.Save(ctx, intent); err != nil {
		logger.Error("failed to persist order intent", "err", err)
	}

	result, err := s.gateway.CreateOrder(ctx, intent, gateway.Customer{
		Name:  strings.TrimSpace(req.CustomerName),
		Phone: strings.TrimSpace(req.CustomerPhone),
		Email: strings.TrimSpace(req.CustomerEmail),
	})
	if err != nil {
		return nil, err
	}

	logger.Info("gateway order created", "gateway_order_id", result.GatewayOrderID)
	return result, nil
}
