package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/example/payment-reconciler/internal/domain/payment"
	"github.com/example/payment-reconciler/internal/email"
	"github.com/example/payment-reconciler/internal/infrastructure/store"
	"github.com/example/payment-reconciler/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	sendFn func(ctx context.Context, c email.Confirmation) error
	sent   []email.Confirmation
}

func (f *fakeDispatcher) SendOrderConfirmation(ctx context.Context, c email.Confirmation) error {
	f.sent = append(f.sent, c)
	if f.sendFn != nil {
		return f.sendFn(ctx, c)
	}
	return nil
}

func newHandler(t *testing.T, d email.Dispatcher, intents IntentReader) *Handler {
	t.Helper()
	return NewHandler(d, intents, "orders@example.com", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCompose_PrefersWebhookCart(t *testing.T) {
	h := newHandler(t, &fakeDispatcher{}, nil)
	e := payment.PaymentEvent{
		OrderID:     "ORD1",
		OrderAmount: 3000,
		CartItems:   []payment.CartItem{{ProductID: "p1", Name: "Shawl", UnitPrice: 1500, Quantity: 2}},
	}
	intent := &payment.OrderIntent{
		OrderID:   "ORD1",
		CartItems: []payment.CartItem{{ProductID: "other", Quantity: 1}},
	}

	c := h.Compose(e, intent)

	require.Len(t, c.Items, 1)
	assert.Equal(t, "Shawl", c.Items[0].Name)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, 3000.0, c.Total)
}

func TestCompose_FallsBackToIntentCart(t *testing.T) {
	h := newHandler(t, &fakeDispatcher{}, nil)
	intent := &payment.OrderIntent{
		OrderID:   "ORD1",
		Amount:    800,
		CartItems: []payment.CartItem{{ProductID: "p9", Name: "Bangles", UnitPrice: 400, Quantity: 2, SelectedVariant: "Gold"}},
	}

	c := h.Compose(payment.PaymentEvent{OrderID: "ORD1"}, intent)

	require.Len(t, c.Items, 1)
	assert.Equal(t, "Bangles", c.Items[0].Name)
	assert.Equal(t, "Gold", c.Items[0].Variant)
	assert.Equal(t, 800.0, c.Total)
}

func TestCompose_SynthesizesSingleItem(t *testing.T) {
	h := newHandler(t, &fakeDispatcher{}, nil)

	c := h.Compose(payment.PaymentEvent{OrderID: "ORD1", OrderAmount: 1299}, nil)

	require.Len(t, c.Items, 1)
	assert.Equal(t, "Order ORD1", c.Items[0].Name)
	assert.Equal(t, 1, c.Items[0].Quantity)
	assert.Equal(t, 1299.0, c.Items[0].UnitPrice)
	assert.Equal(t, 1299.0, c.Total)
}

func TestCompose_ShippingPrecedence(t *testing.T) {
	note := "Ship: Asha Rao, Pune, 411001"
	intentShipping := payment.ShippingInfo{FirstName: "Intent", Address: "12 MG Road", PinCode: "560001"}

	tests := []struct {
		name   string
		event  payment.PaymentEvent
		intent *payment.OrderIntent
		want   payment.ShippingInfo
	}{
		{
			name: "order tags win",
			event: payment.PaymentEvent{
				OrderTags:       map[string]string{"first_name": "Tag", "pincode": "110001"},
				CustomerDetails: payment.CustomerDetails{Name: "Cust Name"},
				RawOrderNote:    note,
			},
			intent: &payment.OrderIntent{ShippingInfo: intentShipping},
			want:   payment.ShippingInfo{FirstName: "Tag", PinCode: "110001"},
		},
		{
			name: "intent before customer details",
			event: payment.PaymentEvent{
				CustomerDetails: payment.CustomerDetails{Name: "Cust Name"},
			},
			intent: &payment.OrderIntent{ShippingInfo: intentShipping},
			want:   intentShipping,
		},
		{
			name: "customer details merged with order note",
			event: payment.PaymentEvent{
				CustomerDetails: payment.CustomerDetails{Name: "Meera Iyer", Phone: "9876543210"},
				RawOrderNote:    note,
			},
			want: payment.ShippingInfo{FirstName: "Meera", LastName: "Iyer", MobileNumber: "9876543210", Location: "Pune", PinCode: "411001"},
		},
		{
			name:  "order note alone",
			event: payment.PaymentEvent{RawOrderNote: note},
			want:  payment.ShippingInfo{FirstName: "Asha", LastName: "Rao", Location: "Pune", PinCode: "411001"},
		},
		{
			name:  "nothing known",
			event: payment.PaymentEvent{},
			want:  payment.ShippingInfo{},
		},
	}

	h := newHandler(t, &fakeDispatcher{}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.event.OrderID = "ORD1"
			assert.Equal(t, tt.want, h.Compose(tt.event, tt.intent).Shipping)
		})
	}
}

func TestCompose_Recipients(t *testing.T) {
	h := newHandler(t, &fakeDispatcher{}, nil)

	c := h.Compose(payment.PaymentEvent{OrderID: "ORD1", CustomerDetails: payment.CustomerDetails{Email: "asha@example.com"}}, nil)
	assert.Equal(t, []string{"orders@example.com", "asha@example.com"}, c.Recipients)

	c = h.Compose(payment.PaymentEvent{OrderID: "ORD1", CustomerDetails: payment.CustomerDetails{Email: "ORDERS@example.com"}}, nil)
	assert.Equal(t, []string{"orders@example.com"}, c.Recipients)
}

func TestSendConfirmation_UsesStoredIntent(t *testing.T) {
	blobs := mocks.NewMockBlobStore()
	intents := store.NewOrderIntentStore(blobs)
	require.NoError(t, intents.Save(context.Background(), payment.OrderIntent{
		OrderID:   "ORD1",
		Amount:    500,
		CartItems: []payment.CartItem{{ProductID: "p1", Name: "Dupatta", UnitPrice: 500, Quantity: 1}},
	}))
	d := &fakeDispatcher{}
	h := newHandler(t, d, intents)

	err := h.SendConfirmation(context.Background(), payment.PaymentEvent{OrderID: "ORD1", OrderAmount: 500})
	require.NoError(t, err)

	require.Len(t, d.sent, 1)
	assert.Equal(t, "Dupatta", d.sent[0].Items[0].Name)
}

func TestSendConfirmation_IntentStoreFailureStillSends(t *testing.T) {
	blobs := mocks.NewMockBlobStore()
	blobs.GetErr = errors.New("timeout")
	d := &fakeDispatcher{}
	h := newHandler(t, d, store.NewOrderIntentStore(blobs))

	err := h.SendConfirmation(context.Background(), payment.PaymentEvent{OrderID: "ORD1", OrderAmount: 250})
	require.NoError(t, err)

	require.Len(t, d.sent, 1)
	assert.Equal(t, "Order ORD1", d.sent[0].Items[0].Name)
}

func TestSendConfirmation_PropagatesDispatchError(t *testing.T) {
	d := &fakeDispatcher{sendFn: func(context.Context, email.Confirmation) error {
		return errors.New("smtp down")
	}}
	h := newHandler(t, d, store.NewOrderIntentStore(mocks.NewMockBlobStore()))

	err := h.SendConfirmation(context.Background(), payment.PaymentEvent{OrderID: "ORD1"})
	assert.EqualError(t, err, "smtp down")
}
