package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultRetryAfter is used when a throttled response names no delay.
const DefaultRetryAfter = 60 * time.Second

type ErrorKind string

const (
	KindRateLimited ErrorKind = "rate_limited"
	KindOther       ErrorKind = "other"
)

// Error is the only error type returned by Client. Message holds the raw
// gateway text for operators; callers show UserMessage.
type Error struct {
	Kind        ErrorKind
	StatusCode  int
	Code        string
	Type        string
	Message     string
	UserMessage string
	RetryAfter  time.Duration
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s (%s): %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("gateway %s (status %d, code %s): %s", e.Kind, e.StatusCode, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is a throttled gateway call and returns
// its retry delay.
func IsRateLimited(err error) (time.Duration, bool) {
	var gwErr *Error
	if errors.As(err, &gwErr) && gwErr.Kind == KindRateLimited {
		return gwErr.RetryAfter, true
	}
	return 0, false
}

const genericUserMessage = "Something went wrong while contacting the payment service. Please try again."

// userMessages maps gateway error codes (or types) to text safe to show a
// shopper.
var userMessages = map[string]string{
	"rate_limit_error":       "Too many requests. Please wait a moment and try again.",
	"authentication_error":   "Payments are temporarily unavailable. Please try again later.",
	"authentication_failed":  "Payments are temporarily unavailable. Please try again later.",
	"order_already_exists":   "This order has already been submitted. Please refresh and try again.",
	"order_amount_invalid":   "The order amount is invalid. Please review your cart.",
	"customer_phone_invalid": "Please enter a valid 10-digit mobile number.",
	"customer_email_invalid": "Please enter a valid email address.",
	"customer_name_invalid":  "Please enter your full name.",
	"order_not_found":        "We could not find this order.",
	"network_error":          "The payment service could not be reached. Please try again.",
}

// UserMessage returns the shopper-facing text for a gateway code.
func UserMessage(code, errType string) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	if msg, ok := userMessages[errType]; ok {
		return msg
	}
	return genericUserMessage
}

// rateLimitCodes are the body-level signals the gateway uses for
// throttling alongside HTTP 429.
var rateLimitCodes = map[string]struct{}{
	"rate_limit_error":    {},
	"rate_limit_exceeded": {},
	"too_many_requests":   {},
}

func isRateLimitCode(code, errType string) bool {
	_, a := rateLimitCodes[code]
	_, b := rateLimitCodes[errType]
	return a || b
}

// resetEpochThreshold separates X-RateLimit-Reset values that are unix
// timestamps from those that are a delay in seconds.
const resetEpochThreshold = 1_000_000_000

// retryAfter reads the delay from the gateway's rate-limit headers.
func retryAfter(h http.Header) time.Duration {
	return retryAfterAt(h, time.Now())
}

func retryAfterAt(h http.Header, now time.Time) time.Duration {
	for _, key := range []string{"Retry-After", "X-RateLimit-Retry", "X-RateLimit-Retry-After", "X-RateLimit-Reset"} {
		raw := strings.TrimSpace(h.Get(key))
		if raw == "" {
			continue
		}
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			if n >= resetEpochThreshold {
				if d := time.Unix(n, 0).Sub(now); d > 0 {
					return d.Round(time.Second)
				}
				continue
			}
			return time.Duration(n) * time.Second
		}
		if at, err := http.ParseTime(raw); err == nil {
			if d := at.Sub(now); d > 0 {
				return d.Round(time.Second)
			}
		}
	}
	return DefaultRetryAfter
}

// RetryAfterSeconds renders a delay as whole seconds, at least one.
func RetryAfterSeconds(d time.Duration) int {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
