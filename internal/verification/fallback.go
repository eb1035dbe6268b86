// Package verification answers "has this order been paid" for the
// storefront, preferring webhook-derived records over live gateway reads.
package verification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/payment-reconciler/internal/domain/payment"
	"github.com/example/payment-reconciler/internal/gateway"
	"github.com/example/payment-reconciler/internal/infrastructure/store"
)

// Source names where a verification result came from.
type Source string

const (
	SourceRecord  Source = "record"
	SourceGateway Source = "gateway"
	SourceDefault Source = "default"
)

// RecordReader reads durable payment records.
type RecordReader interface {
	Get(ctx context.Context, orderID string) (*payment.PaymentRecord, error)
}

// StatusFetcher reads the live order status from the gateway.
type StatusFetcher interface {
	FetchOrderStatus(ctx context.Context, orderID string) (*gateway.OrderStatus, error)
}

// Result always carries a usable record. RateLimited is set when the
// gateway throttled the live lookup.
type Result struct {
	Record      payment.PaymentRecord
	Source      Source
	RateLimited bool
	RetryAfter  time.Duration
}

type Fallback struct {
	records RecordReader
	gateway StatusFetcher
	logger  *slog.Logger
}

func NewFallback(records RecordReader, gw StatusFetcher, logger *slog.Logger) *Fallback {
	return &Fallback{
		records: records,
		gateway: gw,
		logger:  logger.With("component", "verify"),
	}
}

// Verify resolves the order status from the durable record, then the
// gateway, then a PENDING default. It never returns an error.
func (f *Fallback) Verify(ctx context.Context, orderID string) Result {
	logger := f.logger.With("order_id", orderID)

	rec, err := f.records.Get(ctx, orderID)
	switch {
	case err == nil && rec != nil:
		return Result{Record: *rec, Source: SourceRecord}
	case err != nil && !errors.Is(err, store.ErrBlobNotFound):
		logger.Warn("payment record unavailable, asking gateway", "err", err)
	}

	status, err := f.gateway.FetchOrderStatus(ctx, orderID)
	if err != nil {
		res := Result{Record: payment.PendingRecord(orderID), Source: SourceDefault}
		if wait, ok := gateway.IsRateLimited(err); ok {
			res.RateLimited = true
			res.RetryAfter = wait
			logger.Warn("gateway rate limited verification", "retry_after", wait)
			return res
		}
		logger.Error("gateway status lookup failed", "err", err)
		return res
	}

	return Result{Record: RecordFromStatus(orderID, status), Source: SourceGateway}
}

// RecordFromStatus maps a live gateway status onto a PaymentRecord. Only
// an order_status of PAID counts as paid.
func RecordFromStatus(orderID string, s *gateway.OrderStatus) payment.PaymentRecord {
	rec := payment.PendingRecord(orderID)
	rec.OrderAmount = s.OrderAmount
	rec.CustomerDetails = s.CustomerDetails
	if s.OrderStatus == string(payment.OrderPaid) {
		rec.OrderStatus = payment.OrderPaid
		rec.PaymentStatus = payment.StatusSuccess
		rec.PaymentMessage = "Payment successful"
	}
	return rec
}
