package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

func TestPermanent_NilStaysNil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("expected nil")
	}
}

func TestPermanent_Unwrap(t *testing.T) {
	inner := errors.New("blocked")
	err := fmt.Errorf("scrape: %w", Permanent(inner))
	if !IsPermanent(err) {
		t.Error("expected wrapped permanent error to be detected")
	}
	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to reach the inner error")
	}
	if err.Error() != "scrape: blocked" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("page load failed"), true},
		{"permanent", Permanent(errors.New("captcha")), false},
		{"cancelled", fmt.Errorf("navigate: %w", context.Canceled), false},
		{"deadline", fmt.Errorf("navigate: %w", context.DeadlineExceeded), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsNetwork(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"regular", errors.New("selector not found"), false},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"refused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
		{"dns timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"chrome", errors.New("page load error net::ERR_NAME_NOT_RESOLVED"), true},
		{"io timeout", errors.New("read tcp 10.0.0.1:443: i/o timeout"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNetwork(tt.err); got != tt.want {
				t.Errorf("IsNetwork(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
