package resilience

import (
	"context"
	"errors"
	"net"
	"time"
)

// CallFunc is one bounded external call
type CallFunc func(ctx context.Context) error

// WithTimeout runs fn under a bounded deadline derived from parent. The
// caller maps an expired budget to its own component's error kind via
// IsTimeout. Automatic retries are deliberately not offered here: failed
// calls surface to the client as explicit error events.
func WithTimeout(parent context.Context, budget time.Duration, fn CallFunc) error {
	if budget <= 0 {
		return fn(parent)
	}

	ctx, cancel := context.WithTimeout(parent, budget)
	defer cancel()

	return fn(ctx)
}

// IsTimeout reports whether err represents an expired call budget, either as
// a context deadline or a network-level timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
