package resilience

import (
	"sync"
	"time"
)

// IdleWatchdog fires a callback when no activity is reported within a
// window. A transcription stream uses one to end itself when the provider
// goes silent instead of holding the session open forever.
type IdleWatchdog struct {
	mu       sync.Mutex
	window   time.Duration
	timer    *time.Timer
	onExpire func()
	stopped  bool
	expired  bool
}

// NewIdleWatchdog creates a watchdog that is already armed. onExpire runs at
// most once, on its own goroutine (time.AfterFunc semantics).
func NewIdleWatchdog(window time.Duration, onExpire func()) *IdleWatchdog {
	w := &IdleWatchdog{
		window:   window,
		onExpire: onExpire,
	}
	w.timer = time.AfterFunc(window, w.expire)
	return w
}

func (w *IdleWatchdog) expire() {
	w.mu.Lock()
	if w.stopped || w.expired {
		w.mu.Unlock()
		return
	}
	w.expired = true
	w.mu.Unlock()

	w.onExpire()
}

// Reset reports activity and re-arms the window. Resetting a stopped or
// already-expired watchdog is a no-op.
func (w *IdleWatchdog) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped || w.expired {
		return
	}
	w.timer.Stop()
	w.timer = time.AfterFunc(w.window, w.expire)
}

// Stop disarms the watchdog. Safe to call multiple times.
func (w *IdleWatchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.stopped = true
	w.timer.Stop()
}

// Expired reports whether the watchdog has fired.
func (w *IdleWatchdog) Expired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expired
}
