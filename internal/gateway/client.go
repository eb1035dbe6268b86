package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/payment-reconciler/internal/domain/payment"
	"github.com/example/payment-reconciler/internal/webhook"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	SandboxBaseURL    = "https://sandbox.cashfree.com/pg"
	ProductionBaseURL = "https://api.cashfree.com/pg"

	DefaultAPIVersion = "2023-08-01"
)

// BaseURLFor returns the API root for an environment name.
func BaseURLFor(env string) string {
	if strings.EqualFold(env, "production") {
		return ProductionBaseURL
	}
	return SandboxBaseURL
}

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	APIVersion   string
	// ReturnURL and NotifyURL are fixed per deployment and sent with every
	// new order.
	ReturnURL string
	NotifyURL string
	// RateLimit caps outbound calls per second; zero disables the limiter.
	RateLimit float64
	Burst     int
	Timeout   time.Duration
}

// Client is a synchronous wrapper around the gateway order API.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		logger:  logger.With("component", "gateway"),
	}
}

// Customer identifies the shopper to the gateway.
type Customer struct {
	Name  string
	Phone string
	Email string
}

// CreateOrderResult is what the storefront needs to open the hosted page.
type CreateOrderResult struct {
	GatewayOrderID   string `json:"cf_order_id"`
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id"`
	OrderStatus      string `json:"order_status"`
}

// OrderStatus is the live gateway view of an order.
type OrderStatus struct {
	OrderID         string
	OrderStatus     string
	OrderAmount     float64
	CustomerDetails payment.CustomerDetails
}

type customerDetails struct {
	CustomerID    string `json:"customer_id,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

type orderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
	NotifyURL string `json:"notify_url,omitempty"`
}

type cartItem struct {
	ItemID                  string  `json:"item_id"`
	ItemName                string  `json:"item_name"`
	ItemOriginalUnitPrice   float64 `json:"item_original_unit_price"`
	ItemDiscountedUnitPrice float64 `json:"item_discounted_unit_price"`
	ItemQuantity            int     `json:"item_quantity"`
	ItemDescription         string  `json:"item_description,omitempty"`
}

type cartDetails struct {
	CartItems []cartItem `json:"cart_items"`
}

type createOrderRequest struct {
	OrderID         string            `json:"order_id"`
	OrderAmount     float64           `json:"order_amount"`
	OrderCurrency   string            `json:"order_currency"`
	CustomerDetails customerDetails   `json:"customer_details"`
	OrderMeta       orderMeta         `json:"order_meta"`
	OrderNote       string            `json:"order_note,omitempty"`
	OrderTags       map[string]string `json:"order_tags,omitempty"`
	CartDetails     *cartDetails      `json:"cart_details,omitempty"`
}

type orderResponse struct {
	CFOrderID        flexID          `json:"cf_order_id"`
	OrderID          string          `json:"order_id"`
	OrderStatus      string          `json:"order_status"`
	OrderAmount      float64         `json:"order_amount"`
	PaymentSessionID string          `json:"payment_session_id"`
	CustomerDetails  customerDetails `json:"customer_details"`
}

// flexID accepts an identifier sent either as a JSON string or number.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

// CreateOrder opens a gateway session for the intent.
func (c *Client) CreateOrder(ctx context.Context, intent payment.OrderIntent, customer Customer) (*CreateOrderResult, error) {
	req := createOrderRequest{
		OrderID:       intent.OrderID,
		OrderAmount:   intent.Amount,
		OrderCurrency: payment.Currency,
		CustomerDetails: customerDetails{
			CustomerID:    customerID(customer.Phone, intent.OrderID),
			CustomerName:  customer.Name,
			CustomerPhone: customer.Phone,
			CustomerEmail: customer.Email,
		},
		OrderMeta: orderMeta{
			ReturnURL: c.cfg.ReturnURL,
			NotifyURL: c.cfg.NotifyURL,
		},
		OrderNote: webhook.FormatOrderNote(intent.ShippingInfo),
		OrderTags: webhook.TagsFromShipping(intent.ShippingInfo),
	}
	if len(intent.CartItems) > 0 {
		cd := &cartDetails{}
		for _, item := range intent.CartItems {
			cd.CartItems = append(cd.CartItems, cartItem{
				ItemID:                  item.ProductID,
				ItemName:                item.Name,
				ItemOriginalUnitPrice:   item.UnitPrice,
				ItemDiscountedUnitPrice: item.UnitPrice,
				ItemQuantity:            item.Quantity,
				ItemDescription:         item.SelectedVariant,
			})
		}
		req.CartDetails = cd
	}

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/orders", req, &resp); err != nil {
		return nil, err
	}

	return &CreateOrderResult{
		GatewayOrderID:   string(resp.CFOrderID),
		OrderID:          resp.OrderID,
		PaymentSessionID: resp.PaymentSessionID,
		OrderStatus:      resp.OrderStatus,
	}, nil
}

// FetchOrderStatus returns the gateway's current view of an order.
func (c *Client) FetchOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	var resp orderResponse
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &resp); err != nil {
		return nil, err
	}

	id := resp.OrderID
	if id == "" {
		id = orderID
	}
	return &OrderStatus{
		OrderID:     id,
		OrderStatus: strings.ToUpper(resp.OrderStatus),
		OrderAmount: resp.OrderAmount,
		CustomerDetails: payment.CustomerDetails{
			Name:  resp.CustomerDetails.CustomerName,
			Phone: resp.CustomerDetails.CustomerPhone,
			Email: resp.CustomerDetails.CustomerEmail,
		},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.transportError("limiter", err)
		}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return c.transportError("encode", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return c.transportError("build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-client-id", c.cfg.ClientID)
	req.Header.Set("x-client-secret", c.cfg.ClientSecret)
	req.Header.Set("x-api-version", c.cfg.APIVersion)
	req.Header.Set("x-request-id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(method+" "+path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return c.transportError("read body", err)
	}

	if resp.StatusCode >= 300 {
		return c.responseError(resp, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return c.transportError("decode response", err)
		}
	}
	return nil
}

func (c *Client) responseError(resp *http.Response, raw []byte) error {
	var body errorResponse
	_ = json.Unmarshal(raw, &body)

	gwErr := &Error{
		Kind:       KindOther,
		StatusCode: resp.StatusCode,
		Code:       body.Code,
		Type:       body.Type,
		Message:    body.Message,
	}
	if gwErr.Message == "" {
		gwErr.Message = strings.TrimSpace(string(raw))
	}
	if resp.StatusCode == http.StatusTooManyRequests || isRateLimitCode(body.Code, body.Type) {
		gwErr.Kind = KindRateLimited
		gwErr.RetryAfter = retryAfter(resp.Header)
		if gwErr.Code == "" {
			gwErr.Code = "rate_limit_error"
		}
	}
	if resp.StatusCode == http.StatusNotFound && gwErr.Code == "" {
		gwErr.Code = "order_not_found"
	}
	gwErr.UserMessage = UserMessage(gwErr.Code, gwErr.Type)

	c.logger.Error("gateway call failed",
		"status", resp.StatusCode,
		"code", gwErr.Code,
		"type", gwErr.Type,
		"message", gwErr.Message,
	)
	return gwErr
}

func (c *Client) transportError(op string, err error) error {
	c.logger.Error("gateway transport error", "op", op, "err", err)
	return &Error{
		Kind:        KindOther,
		Code:        "network_error",
		Message:     err.Error(),
		UserMessage: UserMessage("network_error", ""),
		Err:         fmt.Errorf("%s: %w", op, err),
	}
}

// customerID derives the gateway's required alphanumeric customer id.
func customerID(phone, orderID string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		for _, r := range orderID {
			if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '-' {
				b.WriteRune(r)
			}
		}
	}
	return "cust_" + b.String()
}
