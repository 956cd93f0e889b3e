package playback

import (
	"sync"
	"time"
)

// DefaultControlsTimeout is the idle window before the controls hide.
const DefaultControlsTimeout = 3 * time.Second

// Timer is a pending callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type clock struct{}

func (clock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// IdleTimer holds at most one pending hide callback. Each Reset replaces the
// previous one; callbacks receive the sequence number they were armed with so
// the owner can drop one that fired while a newer reset was being applied.
type IdleTimer struct {
	mu      sync.Mutex
	sched   Scheduler
	window  time.Duration
	seq     uint64
	pending Timer
	onIdle  func(seq uint64)
}

func NewIdleTimer(sched Scheduler, window time.Duration, onIdle func(seq uint64)) *IdleTimer {
	if sched == nil {
		sched = clock{}
	}
	if window <= 0 {
		window = DefaultControlsTimeout
	}

	return &IdleTimer{
		sched:  sched,
		window: window,
		onIdle: onIdle,
	}
}

// Reset cancels the pending callback and arms a new one.
func (t *IdleTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.seq++
	seq := t.seq
	t.pending = t.sched.AfterFunc(t.window, func() {
		t.onIdle(seq)
	})
}

// Cancel drops the pending callback, if any.
func (t *IdleTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.seq++
}

// IsCurrent reports whether seq belongs to the armed callback.
func (t *IdleTimer) IsCurrent(seq uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != nil && seq == t.seq
}

// Pending reports whether a callback is armed.
func (t *IdleTimer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != nil
}

func (t *IdleTimer) stopLocked() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}
