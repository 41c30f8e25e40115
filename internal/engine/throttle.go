package engine

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer the throttle needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it once wrapped.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Throttle limits calls to fn to one per interval. The first Trigger in a
// quiet period calls fn at once (leading edge). Triggers that arrive while a
// window is open are coalesced into a single call when it closes (trailing
// edge), which opens another window. A window that closes with no pending
// trigger ends the busy period.
type Throttle struct {
	interval  time.Duration
	fn        func()
	afterFunc AfterFunc

	mu      sync.Mutex
	timer   Timer
	pending bool
	stopped bool
}

func NewThrottle(interval time.Duration, fn func(), afterFunc AfterFunc) *Throttle {
	if afterFunc == nil {
		afterFunc = realAfterFunc
	}
	return &Throttle{
		interval:  interval,
		fn:        fn,
		afterFunc: afterFunc,
	}
}

// Trigger requests a call. fn runs on the caller's goroutine for a leading
// call and on the timer goroutine for a trailing one.
func (t *Throttle) Trigger() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	if t.timer != nil {
		t.pending = true
		t.mu.Unlock()
		return
	}
	t.timer = t.afterFunc(t.interval, t.windowClosed)
	t.mu.Unlock()

	t.fn()
}

func (t *Throttle) windowClosed() {
	t.mu.Lock()
	if t.stopped || !t.pending {
		t.timer = nil
		t.mu.Unlock()
		return
	}
	t.pending = false
	t.timer = t.afterFunc(t.interval, t.windowClosed)
	t.mu.Unlock()

	t.fn()
}

// Flush runs a pending trailing call now instead of waiting for the window.
func (t *Throttle) Flush() {
	t.mu.Lock()
	if t.stopped || !t.pending {
		t.mu.Unlock()
		return
	}
	t.pending = false
	t.mu.Unlock()

	t.fn()
}

// Stop cancels any open window and drops a pending trailing call.
func (t *Throttle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	t.pending = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
