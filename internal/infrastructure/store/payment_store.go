package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/example/payment-reconciler/internal/domain/payment"
)

const (
	intentCollection = "orders"
	recordCollection = "payments"
)

func documentKey(collection, orderID string) string {
	return collection + "/" + url.PathEscape(orderID) + ".json"
}

// OrderIntentStore persists checkout snapshots.
type OrderIntentStore struct {
	blobs BlobStore
}

func NewOrderIntentStore(blobs BlobStore) *OrderIntentStore {
	return &OrderIntentStore{blobs: blobs}
}

// Save writes the intent, replacing any earlier one for the same order.
func (s *OrderIntentStore) Save(ctx context.Context, intent payment.OrderIntent) error {
	return putJSON(ctx, s.blobs, documentKey(intentCollection, intent.OrderID), intent)
}

// Get returns ErrBlobNotFound when no intent was stored.
func (s *OrderIntentStore) Get(ctx context.Context, orderID string) (*payment.OrderIntent, error) {
	var intent payment.OrderIntent
	if err := getJSON(ctx, s.blobs, documentKey(intentCollection, orderID), &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// PaymentRecordStore persists webhook-derived payment outcomes.
type PaymentRecordStore struct {
	blobs BlobStore
}

func NewPaymentRecordStore(blobs BlobStore) *PaymentRecordStore {
	return &PaymentRecordStore{blobs: blobs}
}

// Save overwrites the record for rec.OrderID.
func (s *PaymentRecordStore) Save(ctx context.Context, rec payment.PaymentRecord) error {
	return putJSON(ctx, s.blobs, documentKey(recordCollection, rec.OrderID), rec)
}

// Get returns ErrBlobNotFound when no record was stored.
func (s *PaymentRecordStore) Get(ctx context.Context, orderID string) (*payment.PaymentRecord, error) {
	var rec payment.PaymentRecord
	if err := getJSON(ctx, s.blobs, documentKey(recordCollection, orderID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func putJSON(ctx context.Context, blobs BlobStore, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return blobs.Put(ctx, key, data)
}

func getJSON(ctx context.Context, blobs BlobStore, key string, v any) error {
	data, err := blobs.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}
