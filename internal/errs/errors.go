// Package errs defines the trading error taxonomy. Retryability is a
// property of the error kind, not of message matching: transient upstream
// failures (network, timeout, rate limit) are retryable, everything that
// represents a policy or validation outcome is not.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a trading error.
type Kind string

const (
	KindNetwork            Kind = "network"
	KindTimeout            Kind = "timeout"
	KindRateLimitExceeded  Kind = "rate_limit_exceeded"
	KindValidation         Kind = "validation"
	KindInsufficientFunds  Kind = "insufficient_funds"
	KindInvalidTransaction Kind = "invalid_transaction"
	KindAPI                Kind = "api"
)

// E is a classified trading error.
type E struct {
	Kind Kind
	Msg  string
	Err  error // wrapped cause, may be nil
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *E) Unwrap() error { return e.Err }

// Is matches on kind so callers can use errors.Is(err, errs.Network("")).
func (e *E) Is(target error) bool {
	var t *E
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func newE(kind Kind, format string, args ...interface{}) *E {
	return &E{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Network reports a transient transport failure.
func Network(format string, args ...interface{}) *E {
	return newE(KindNetwork, format, args...)
}

// Timeout reports an operation that ran out of time.
func Timeout(format string, args ...interface{}) *E {
	return newE(KindTimeout, format, args...)
}

// RateLimited reports an upstream 429 or local throttle rejection.
func RateLimited(format string, args ...interface{}) *E {
	return newE(KindRateLimitExceeded, format, args...)
}

// Validation reports an input or policy rejection.
func Validation(format string, args ...interface{}) *E {
	return newE(KindValidation, format, args...)
}

// InsufficientFunds reports that capital or position cannot cover the trade.
func InsufficientFunds(format string, args ...interface{}) *E {
	return newE(KindInsufficientFunds, format, args...)
}

// InvalidTransaction reports a transaction the venue will never accept.
func InvalidTransaction(format string, args ...interface{}) *E {
	return newE(KindInvalidTransaction, format, args...)
}

// API reports an upstream error that fits no other kind.
func API(format string, args ...interface{}) *E {
	return newE(KindAPI, format, args...)
}

// Wrap attaches a cause to a classified error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *E {
	return &E{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or KindAPI for unclassified errors.
func KindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindAPI
}

// Retryable reports whether err is expected to be transient. Unclassified
// errors are not retried: without a kind there is no evidence a retry can
// change the outcome.
func Retryable(err error) bool {
	var e *E
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindNetwork, KindTimeout, KindRateLimitExceeded:
		return true
	}
	return false
}

// FromHTTPStatus maps an upstream HTTP status to a classified error.
// 429 is a rate limit, 408/503/504 are timeouts, remaining 5xx are network
// failures, remaining 4xx are validation failures.
func FromHTTPStatus(status int, body string) *E {
	switch {
	case status == 429:
		return RateLimited("HTTP 429: %s", body)
	case status == 408 || status == 503 || status == 504:
		return Timeout("HTTP %d: %s", status, body)
	case status >= 500 && status <= 599:
		return Network("server error %d: %s", status, body)
	case status >= 400 && status <= 499:
		return Validation("client error %d: %s", status, body)
	default:
		return API("HTTP %d: %s", status, body)
	}
}
