package verification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/example/payment-reconciler/internal/domain/payment"
	"github.com/example/payment-reconciler/internal/gateway"
	"github.com/example/payment-reconciler/internal/infrastructure/store"
	"github.com/example/payment-reconciler/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	fetchFn func(ctx context.Context, orderID string) (*gateway.OrderStatus, error)
	calls   int
}

func (f *fakeGateway) FetchOrderStatus(ctx context.Context, orderID string) (*gateway.OrderStatus, error) {
	f.calls++
	return f.fetchFn(ctx, orderID)
}

func newFallback(blobs *mocks.MockBlobStore, gw *fakeGateway) *Fallback {
	return NewFallback(store.NewPaymentRecordStore(blobs), gw, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestVerify_DurableRecordWins(t *testing.T) {
	blobs := mocks.NewMockBlobStore()
	records := store.NewPaymentRecordStore(blobs)
	require.NoError(t, records.Save(context.Background(), payment.PaymentRecord{
		OrderID: "ORD1", OrderStatus: payment.OrderPaid, PaymentMessage: "Payment successful",
	}))
	gw := &fakeGateway{fetchFn: func(context.Context, string) (*gateway.OrderStatus, error) {
		t.Fatal("gateway must not be called")
		return nil, nil
	}}

	res := newFallback(blobs, gw).Verify(context.Background(), "ORD1")

	assert.Equal(t, SourceRecord, res.Source)
	assert.Equal(t, payment.OrderPaid, res.Record.OrderStatus)
	assert.Zero(t, gw.calls)
}

func TestVerify_GatewayPaid(t *testing.T) {
	gw := &fakeGateway{fetchFn: func(_ context.Context, id string) (*gateway.OrderStatus, error) {
		return &gateway.OrderStatus{OrderID: id, OrderStatus: "PAID", OrderAmount: 999,
			CustomerDetails: payment.CustomerDetails{Name: "Asha"}}, nil
	}}

	res := newFallback(mocks.NewMockBlobStore(), gw).Verify(context.Background(), "ORD2")

	assert.Equal(t, SourceGateway, res.Source)
	assert.Equal(t, payment.PaymentRecord{
		OrderID:         "ORD2",
		OrderStatus:     payment.OrderPaid,
		PaymentStatus:   payment.StatusSuccess,
		OrderAmount:     999,
		CustomerDetails: payment.CustomerDetails{Name: "Asha"},
		PaymentMessage:  "Payment successful",
	}, res.Record)
}

func TestVerify_GatewayNotPaid(t *testing.T) {
	for _, status := range []string{"ACTIVE", "EXPIRED", "TERMINATED", ""} {
		gw := &fakeGateway{fetchFn: func(_ context.Context, id string) (*gateway.OrderStatus, error) {
			return &gateway.OrderStatus{OrderID: id, OrderStatus: status}, nil
		}}

		res := newFallback(mocks.NewMockBlobStore(), gw).Verify(context.Background(), "ORD2")

		assert.Equal(t, payment.OrderPending, res.Record.OrderStatus, status)
		assert.Equal(t, "Payment pending", res.Record.PaymentMessage, status)
	}
}

func TestVerify_StoreUnreachableStillAsksGateway(t *testing.T) {
	blobs := mocks.NewMockBlobStore()
	blobs.GetErr = errors.New("connection refused")
	gw := &fakeGateway{fetchFn: func(_ context.Context, id string) (*gateway.OrderStatus, error) {
		return &gateway.OrderStatus{OrderID: id, OrderStatus: "PAID"}, nil
	}}

	res := newFallback(blobs, gw).Verify(context.Background(), "ORD3")

	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, payment.OrderPaid, res.Record.OrderStatus)
}

func TestVerify_NothingKnownDefaultsToPending(t *testing.T) {
	blobs := mocks.NewMockBlobStore()
	blobs.GetErr = errors.New("connection refused")
	gw := &fakeGateway{fetchFn: func(context.Context, string) (*gateway.OrderStatus, error) {
		return nil, &gateway.Error{Kind: gateway.KindOther, Code: "network_error"}
	}}

	res := newFallback(blobs, gw).Verify(context.Background(), "ORD4")

	assert.Equal(t, SourceDefault, res.Source)
	assert.Equal(t, payment.PendingRecord("ORD4"), res.Record)
	assert.False(t, res.RateLimited)
}

func TestVerify_RateLimited(t *testing.T) {
	gw := &fakeGateway{fetchFn: func(context.Context, string) (*gateway.OrderStatus, error) {
		return nil, &gateway.Error{Kind: gateway.KindRateLimited, RetryAfter: 30 * time.Second}
	}}

	res := newFallback(mocks.NewMockBlobStore(), gw).Verify(context.Background(), "ORD5")

	assert.True(t, res.RateLimited)
	assert.Equal(t, 30*time.Second, res.RetryAfter)
	assert.Equal(t, payment.OrderPending, res.Record.OrderStatus)
}
