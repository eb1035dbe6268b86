package webhook

import (
	"testing"

	"github.com/example/payment-reconciler/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_NewLayout(t *testing.T) {
	raw := []byte(`{
		"type": "PAYMENT_SUCCESS",
		"data": {
			"order": {
				"order_id": "ORD1",
				"order_amount": 1499.00,
				"order_status": "PAID",
				"order_note": "Ship: Asha Rao, Pune, 411001",
				"order_tags": {"first_name": "Asha", "pincode": "411001"}
			},
			"payment": {
				"cf_payment_id": 5114910999999,
				"payment_status": "SUCCESS",
				"payment_group": "upi"
			},
			"customer_details": {
				"customer_name": "Asha Rao",
				"customer_phone": "9876543210",
				"customer_email": "asha@example.com"
			}
		}
	}`)

	event, err := NormalizeBytes(raw)
	require.NoError(t, err)

	assert.Equal(t, "ORD1", event.OrderID)
	assert.Equal(t, "ORD1", event.GatewayOrderID)
	assert.Equal(t, payment.EventSuccess, event.EventType)
	assert.Equal(t, payment.StatusSuccess, event.PaymentStatus)
	assert.Equal(t, "5114910999999", event.PaymentID)
	assert.Equal(t, "upi", event.PaymentMethod)
	assert.Equal(t, 1499.0, event.OrderAmount)
	assert.Equal(t, payment.CustomerDetails{Name: "Asha Rao", Phone: "9876543210", Email: "asha@example.com"}, event.CustomerDetails)
	assert.Equal(t, "Ship: Asha Rao, Pune, 411001", event.RawOrderNote)
	assert.Equal(t, map[string]string{"first_name": "Asha", "pincode": "411001"}, event.OrderTags)
}

func TestNormalize_LegacyAndNewLayoutsAgree(t *testing.T) {
	legacy := []byte(`{
		"type": "SUCCESS",
		"order_id": "ORD9",
		"payment_status": "PAID",
		"payment_id": "pay_1",
		"payment_method": "card",
		"order_amount": "250.5",
		"customer_details": {"customer_name": "Ravi", "customer_phone": "9000000000"}
	}`)
	modern := []byte(`{
		"type": "PAYMENT_SUCCESS",
		"data": {
			"order": {"order_id": "ORD9", "order_amount": 250.5},
			"payment": {"payment_status": "PAID", "cf_payment_id": "pay_1", "payment_group": "card"},
			"customer_details": {"customer_name": "Ravi", "customer_phone": "9000000000"}
		}
	}`)

	a, err := NormalizeBytes(legacy)
	require.NoError(t, err)
	b, err := NormalizeBytes(modern)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestNormalize_IntermediateLayout(t *testing.T) {
	raw := []byte(`{
		"event": "failed payment",
		"data": {"orderId": "ORD3", "paymentStatus": "failure", "orderAmount": 10}
	}`)

	event, err := NormalizeBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, "ORD3", event.OrderID)
	assert.Equal(t, payment.EventFailed, event.EventType)
	assert.Equal(t, payment.StatusFailure, event.PaymentStatus)
	assert.Equal(t, 10.0, event.OrderAmount)
}

func TestNormalize_StatusFallsBackToOrderStatus(t *testing.T) {
	raw := []byte(`{"eventType": "SUCCESS", "data": {"order": {"order_id": "ORD4", "order_status": "PAID"}}}`)

	event, err := NormalizeBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, event.PaymentStatus)
	assert.True(t, event.IsConfirmedPaid())
}

func TestNormalize_EmptyValuesFallThrough(t *testing.T) {
	raw := []byte(`{"data": {"order": {"order_id": ""}, "orderId": "  "}, "order_id": "ORD5"}`)

	event, err := NormalizeBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, "ORD5", event.OrderID)
	assert.Equal(t, payment.EventUnknown, event.EventType)
	assert.Equal(t, payment.StatusUnknown, event.PaymentStatus)
}

func TestNormalize_MissingOrderID(t *testing.T) {
	_, err := NormalizeBytes([]byte(`{"type": "PAYMENT_SUCCESS", "data": {"payment": {"payment_status": "SUCCESS"}}}`))
	assert.ErrorIs(t, err, ErrMalformedWebhook)
}

func TestNormalize_InvalidJSON(t *testing.T) {
	_, err := NormalizeBytes([]byte(`{not json`))
	assert.ErrorIs(t, err, ErrInvalidJSON)

	_, err = NormalizeBytes([]byte(`{"order_id": "A"} trailing-garbage`))
	assert.ErrorIs(t, err, ErrInvalidJSON)

	_, err = NormalizeBytes([]byte(`{"order_id": "A"} {"order_id": "B"}`))
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestNormalize_NonObjectJSON(t *testing.T) {
	for _, raw := range []string{`null`, `[1,2]`, `[]`, `"x"`, `42`} {
		_, err := NormalizeBytes([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformedWebhook, raw)
		assert.NotErrorIs(t, err, ErrInvalidJSON, raw)
	}

	event, err := NormalizeBytes([]byte("  {\"order_id\": \"A\"}\n"))
	require.NoError(t, err)
	assert.Equal(t, "A", event.OrderID)
}

func TestNormalize_PaymentMethodObject(t *testing.T) {
	raw := []byte(`{"data": {"order": {"order_id": "ORD6"}, "payment": {"payment_method": {"netbanking": {"bank": "x"}}}}}`)

	event, err := NormalizeBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, "netbanking", event.PaymentMethod)
}

func TestNormalize_PaymentMethodObjectIsDeterministic(t *testing.T) {
	tests := []struct {
		name   string
		method string
		want   string
	}{
		{"object wins over null", `{"upi": {"upi_id": "a@okbank"}, "card": null}`, "upi"},
		{"several objects", `{"upi": {}, "netbanking": {}, "card": {}}`, "card"},
		{"no objects", `{"wallet": true, "app": "x"}`, "app"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []byte(`{"data": {"order": {"order_id": "ORD7"}, "payment": {"payment_method": ` + tt.method + `}}}`)
			for range 20 {
				event, err := NormalizeBytes(raw)
				require.NoError(t, err)
				require.Equal(t, tt.want, event.PaymentMethod)
			}
		})
	}
}

func TestNormalize_CartDetails(t *testing.T) {
	raw := []byte(`{
		"data": {
			"order": {
				"order_id": "ORD7",
				"cart_details": {
					"cart_items": [
						{"item_id": "p1", "item_name": "Kurta", "item_original_unit_price": 800, "item_discounted_unit_price": 700, "item_quantity": 2},
						{"item_id": "p2", "item_name": "Scarf", "item_original_unit_price": 300},
						"garbage"
					]
				}
			}
		}
	}`)

	event, err := NormalizeBytes(raw)
	require.NoError(t, err)
	require.Len(t, event.CartItems, 2)
	assert.Equal(t, payment.CartItem{ProductID: "p1", Name: "Kurta", UnitPrice: 700, Quantity: 2}, event.CartItems[0])
	assert.Equal(t, 1, event.CartItems[1].Quantity)
	assert.Equal(t, 300.0, event.CartItems[1].UnitPrice)
}

func TestParseEventType(t *testing.T) {
	assert.Equal(t, payment.EventSuccess, ParseEventType("PAYMENT_SUCCESS"))
	assert.Equal(t, payment.EventSuccess, ParseEventType("success payment"))
	assert.Equal(t, payment.EventSuccess, ParseEventType("SUCCESS"))
	assert.Equal(t, payment.EventSuccess, ParseEventType("PAYMENT_SUCCESS_WEBHOOK"))
	assert.Equal(t, payment.EventFailed, ParseEventType("PAYMENT_FAILED"))
	assert.Equal(t, payment.EventFailed, ParseEventType("failed payment"))
	assert.Equal(t, payment.EventFailed, ParseEventType("FAILED"))
	assert.Equal(t, payment.EventUnknown, ParseEventType("PAYMENT_USER_DROPPED_WEBHOOK"))
	assert.Equal(t, payment.EventUnknown, ParseEventType(""))
}
