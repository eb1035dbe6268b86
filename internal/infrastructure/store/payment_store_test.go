package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/payment-reconciler/internal/domain/payment"
	"github.com/example/payment-reconciler/internal/infrastructure/store"
	"github.com/example/payment-reconciler/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderIntentStore_SaveAndGet(t *testing.T) {
	blobs := mocks.NewMockBlobStore()
	intents := store.NewOrderIntentStore(blobs)
	ctx := context.Background()

	intent := payment.OrderIntent{
		OrderID:      "ORD1",
		Amount:       1499,
		CartItems:    []payment.CartItem{{ProductID: "p1", Name: "Kurta", UnitPrice: 1499, Quantity: 1}},
		ShippingInfo: payment.ShippingInfo{FirstName: "Asha", PinCode: "411001"},
		CreatedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, intents.Save(ctx, intent))

	require.Len(t, blobs.PutCalls, 1)
	assert.Equal(t, "orders/ORD1.json", blobs.PutCalls[0].Key)

	got, err := intents.Get(ctx, "ORD1")
	require.NoError(t, err)
	assert.Equal(t, intent, *got)
}

func TestOrderIntentStore_NotFound(t *testing.T) {
	intents := store.NewOrderIntentStore(mocks.NewMockBlobStore())

	_, err := intents.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrBlobNotFound)
}

func TestPaymentRecordStore_OverwritesIdempotently(t *testing.T) {
	blobs := mocks.NewMockBlobStore()
	records := store.NewPaymentRecordStore(blobs)
	ctx := context.Background()

	rec := payment.PaymentRecord{OrderID: "ORD1", OrderStatus: payment.OrderPaid, PaymentStatus: payment.StatusSuccess}
	require.NoError(t, records.Save(ctx, rec))
	first, _ := blobs.GetData("payments/ORD1.json")

	require.NoError(t, records.Save(ctx, rec))
	second, _ := blobs.GetData("payments/ORD1.json")

	assert.Equal(t, first, second)
	assert.Equal(t, 2, blobs.PutCount("payments/ORD1.json"))

	got, err := records.Get(ctx, "ORD1")
	require.NoError(t, err)
	assert.Equal(t, rec, *got)
}

func TestPaymentRecordStore_PropagatesStoreErrors(t *testing.T) {
	blobs := mocks.NewMockBlobStore()
	blobs.GetErr = errors.New("connection reset")
	blobs.PutErr = errors.New("access denied")
	records := store.NewPaymentRecordStore(blobs)

	_, err := records.Get(context.Background(), "ORD1")
	assert.EqualError(t, err, "connection reset")

	err = records.Save(context.Background(), payment.PaymentRecord{OrderID: "ORD1"})
	assert.EqualError(t, err, "access denied")
}

func TestPaymentRecordStore_CorruptDocument(t *testing.T) {
	blobs := mocks.NewMockBlobStore()
	blobs.SetData("payments/ORD1.json", []byte("{not json"))
	records := store.NewPaymentRecordStore(blobs)

	_, err := records.Get(context.Background(), "ORD1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrBlobNotFound)
}

func TestDocumentKeyEscapesOrderID(t *testing.T) {
	blobs := mocks.NewMockBlobStore()
	intents := store.NewOrderIntentStore(blobs)

	require.NoError(t, intents.Save(context.Background(), payment.OrderIntent{OrderID: "a/b"}))
	assert.Equal(t, "orders/a%2Fb.json", blobs.PutCalls[0].Key)
}

func TestMemoryBlobStore(t *testing.T) {
	s := store.NewMemoryBlobStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrBlobNotFound)

	data := []byte(`{"a":1}`)
	require.NoError(t, s.Put(ctx, "k", data))
	data[0] = 'X'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}
