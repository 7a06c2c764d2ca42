package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"network", Network("connection reset"), true},
		{"timeout", Timeout("deadline exceeded"), true},
		{"rate_limited", RateLimited("429"), true},
		{"validation", Validation("bad size"), false},
		{"insufficient_funds", InsufficientFunds("need 100"), false},
		{"invalid_transaction", InvalidTransaction("bad nonce"), false},
		{"api", API("unexpected"), false},
		{"plain_error", errors.New("something"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Retryable(tc.err); got != tc.want {
				t.Errorf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestRetryableThroughWrapping(t *testing.T) {
	err := fmt.Errorf("execute swap: %w", Network("dial tcp: refused"))
	if !Retryable(err) {
		t.Error("wrapped network error should stay retryable")
	}
}

func TestFromHTTPStatus(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{429, KindRateLimitExceeded},
		{408, KindTimeout},
		{503, KindTimeout},
		{504, KindTimeout},
		{500, KindNetwork},
		{502, KindNetwork},
		{400, KindValidation},
		{404, KindValidation},
		{302, KindAPI},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("status_%d", tc.status), func(t *testing.T) {
			err := FromHTTPStatus(tc.status, "body")
			if err.Kind != tc.want {
				t.Errorf("FromHTTPStatus(%d) kind = %s, want %s", tc.status, err.Kind, tc.want)
			}
		})
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", Timeout("slow venue"))
	if !errors.Is(err, Timeout("")) {
		t.Error("errors.Is should match on kind")
	}
	if errors.Is(err, Network("")) {
		t.Error("errors.Is should not match a different kind")
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(InsufficientFunds("x")); got != KindInsufficientFunds {
		t.Errorf("KindOf = %s, want %s", got, KindInsufficientFunds)
	}
	if got := KindOf(errors.New("raw")); got != KindAPI {
		t.Errorf("KindOf(plain) = %s, want %s", got, KindAPI)
	}
}
