package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// PermanentError marks an error that another attempt cannot fix, such as a
// bot-check page or markup the parser does not understand.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so the retry loop gives up on it. Nil stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err or anything it wraps is a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// IsRetryable is the default retry predicate. Page loads fail for many
// reasons a browser does not classify, so everything not marked permanent
// and not a caller cancellation is retried.
func IsRetryable(err error) bool {
	if err == nil || IsPermanent(err) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

// IsNetwork reports whether err looks like a network-level failure. It is
// used for labelling failures, not for the retry decision.
func IsNetwork(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// Chrome reports navigation failures as "net::ERR_*" strings.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"net::err_",
		"connection reset by peer",
		"no such host",
		"i/o timeout",
		"tls handshake timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
