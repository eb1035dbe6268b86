package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/example/payment-reconciler/internal/domain/payment"
)

var (
	ErrInvalidJSON      = errors.New("webhook body is not valid JSON")
	ErrMalformedWebhook = errors.New("webhook carries no order id")
)

// The gateway changed its webhook layout between API versions and never
// says which one it is sending. Each field lists where to look, newest
// layout first; the first non-empty value wins. Supporting a new layout
// means adding a path here.
var (
	eventTypeSources = []extractor{at("type"), at("event"), at("eventType")}

	orderIDSources = []extractor{
		at("data", "order", "order_id"),
		at("data", "orderId"),
		at("order_id"),
	}

	gatewayOrderIDSources = []extractor{
		at("data", "order", "cf_order_id"),
		at("data", "gatewayOrderId"),
		at("cf_order_id"),
	}

	paymentStatusSources = []extractor{
		at("data", "payment", "payment_status"),
		at("data", "paymentStatus"),
		at("payment_status"),
		at("data", "order", "order_status"),
		at("data", "orderStatus"),
	}

	paymentIDSources = []extractor{
		at("data", "payment", "cf_payment_id"),
		at("data", "paymentId"),
		at("cf_payment_id"),
		at("payment_id"),
		at("referenceId"),
	}

	paymentMethodSources = []extractor{
		at("data", "payment", "payment_group"),
		at("data", "paymentMethod"),
		firstKey(at("data", "payment", "payment_method")),
		at("payment_method"),
		at("paymentMode"),
	}

	orderAmountSources = []extractor{
		at("data", "order", "order_amount"),
		at("data", "orderAmount"),
		at("data", "payment", "payment_amount"),
		at("order_amount"),
		at("orderAmount"),
	}

	customerNameSources = []extractor{
		at("data", "customer_details", "customer_name"),
		at("data", "customerDetails", "name"),
		at("customer_details", "customer_name"),
		at("customer_name"),
	}

	customerPhoneSources = []extractor{
		at("data", "customer_details", "customer_phone"),
		at("data", "customerDetails", "phone"),
		at("customer_details", "customer_phone"),
		at("customer_phone"),
	}

	customerEmailSources = []extractor{
		at("data", "customer_details", "customer_email"),
		at("data", "customerDetails", "email"),
		at("customer_details", "customer_email"),
		at("customer_email"),
	}

	orderTagSources = []extractor{
		at("data", "order", "order_tags"),
		at("data", "orderTags"),
		at("order_tags"),
	}

	orderNoteSources = []extractor{
		at("data", "order", "order_note"),
		at("data", "orderNote"),
		at("order_note"),
	}

	cartSources = []extractor{
		at("data", "order", "cart_details", "cart_items"),
		at("data", "cartDetails", "cartItems"),
		at("data", "cart_details", "cart_items"),
		at("cart_details", "cart_items"),
		at("cart_details"),
	}
)

// stringField binds one canonical string field to its source list.
type stringField struct {
	sources []extractor
	set     func(e *payment.PaymentEvent, v string)
}

var stringFields = []stringField{
	{orderIDSources, func(e *payment.PaymentEvent, v string) { e.OrderID = v }},
	{gatewayOrderIDSources, func(e *payment.PaymentEvent, v string) { e.GatewayOrderID = v }},
	{eventTypeSources, func(e *payment.PaymentEvent, v string) { e.EventType = ParseEventType(v) }},
	{paymentStatusSources, func(e *payment.PaymentEvent, v string) { e.PaymentStatus = payment.ParsePaymentStatus(v) }},
	{paymentIDSources, func(e *payment.PaymentEvent, v string) { e.PaymentID = v }},
	{paymentMethodSources, func(e *payment.PaymentEvent, v string) { e.PaymentMethod = v }},
	{customerNameSources, func(e *payment.PaymentEvent, v string) { e.CustomerDetails.Name = v }},
	{customerPhoneSources, func(e *payment.PaymentEvent, v string) { e.CustomerDetails.Phone = v }},
	{customerEmailSources, func(e *payment.PaymentEvent, v string) { e.CustomerDetails.Email = v }},
	{orderNoteSources, func(e *payment.PaymentEvent, v string) { e.RawOrderNote = v }},
}

var eventTypeSynonyms = map[string]payment.EventType{
	"payment_success":         payment.EventSuccess,
	"payment_success_webhook": payment.EventSuccess,
	"success payment":         payment.EventSuccess,
	"success":                 payment.EventSuccess,
	"payment_failed":          payment.EventFailed,
	"payment_failed_webhook":  payment.EventFailed,
	"failed payment":          payment.EventFailed,
	"failed":                  payment.EventFailed,
}

// ParseEventType maps a raw event name onto the canonical set.
func ParseEventType(raw string) payment.EventType {
	if t, ok := eventTypeSynonyms[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return t
	}
	return payment.EventUnknown
}

// Decode parses a raw webhook body into a generic JSON object. A body
// that is not a single JSON value is ErrInvalidJSON; valid JSON that is
// not an object is ErrMalformedWebhook.
func Decode(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrInvalidJSON)
	}

	body, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: body is %T, not an object", ErrMalformedWebhook, v)
	}
	return body, nil
}

// Normalize maps a decoded payload of any known layout to a PaymentEvent.
// Only a missing order id is fatal; every other field is best effort.
func Normalize(body map[string]any) (payment.PaymentEvent, error) {
	event := payment.PaymentEvent{
		EventType:     payment.EventUnknown,
		PaymentStatus: payment.StatusUnknown,
	}

	for _, f := range stringFields {
		if v := firstString(body, f.sources); v != "" {
			f.set(&event, v)
		}
	}

	if event.OrderID == "" {
		return event, ErrMalformedWebhook
	}
	if event.GatewayOrderID == "" {
		event.GatewayOrderID = event.OrderID
	}

	event.OrderAmount = firstNumber(body, orderAmountSources)
	event.OrderTags = stringMap(firstObject(body, orderTagSources))
	event.CartItems = cartItems(firstArray(body, cartSources))

	return event, nil
}

// NormalizeBytes decodes and normalizes in one step.
func NormalizeBytes(raw []byte) (payment.PaymentEvent, error) {
	body, err := Decode(raw)
	if err != nil {
		return payment.PaymentEvent{}, err
	}
	return Normalize(body)
}

func stringMap(obj map[string]any) map[string]string {
	if len(obj) == 0 {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		if s := stringify(v); s != "" {
			out[k] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var (
	cartIDSources       = []extractor{at("item_id"), at("productId"), at("id")}
	cartNameSources     = []extractor{at("item_name"), at("name")}
	cartPriceSources    = []extractor{at("item_discounted_unit_price"), at("item_original_unit_price"), at("unitPrice"), at("price")}
	cartQuantitySources = []extractor{at("item_quantity"), at("quantity")}
	cartVariantSources  = []extractor{at("selectedVariant"), at("variant"), at("item_tags", "variant")}
)

func cartItems(raw []any) []payment.CartItem {
	var items []payment.CartItem
	for _, entry := range raw {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item := payment.CartItem{
			ProductID:       firstString(obj, cartIDSources),
			Name:            firstString(obj, cartNameSources),
			UnitPrice:       firstNumber(obj, cartPriceSources),
			Quantity:        int(firstNumber(obj, cartQuantitySources)),
			SelectedVariant: firstString(obj, cartVariantSources),
		}
		if item.ProductID == "" && item.Name == "" {
			continue
		}
		if item.Quantity <= 0 {
			item.Quantity = 1
		}
		items = append(items, item)
	}
	return items
}
