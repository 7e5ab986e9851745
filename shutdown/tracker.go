// Package shutdown coordinates graceful termination: it tracks in-flight
// generations, runs registered cleanup hooks in priority order, and turns
// a second signal into a forced exit.
package shutdown

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned when starting work on a closed tracker.
var ErrClosed = errors.New("shutdown: tracker closed")

// ErrWaitTimeout is returned when in-flight work does not drain in time.
var ErrWaitTimeout = errors.New("shutdown: timed out waiting for in-flight work")

// Tracker counts in-flight operations so shutdown can drain them.
// The zero value is not usable; call NewTracker.
type Tracker struct {
	wg     sync.WaitGroup
	mu     sync.Mutex
	active int64
	closed bool
}

// NewTracker creates a Tracker accepting new work.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Begin registers a new operation. It returns false when the tracker is
// closed, in which case the caller must reject the work. Every true
// return must be paired with a call to End.
func (t *Tracker) Begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.wg.Add(1)
	atomic.AddInt64(&t.active, 1)
	return true
}

// End marks one operation complete.
func (t *Tracker) End() {
	atomic.AddInt64(&t.active, -1)
	t.wg.Done()
}

// Close stops new work from starting. In-flight work continues.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// Drain blocks until all in-flight work finishes or timeout elapses.
func (t *Tracker) Drain(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrWaitTimeout
	}
}

// Active returns the number of in-flight operations.
func (t *Tracker) Active() int64 {
	return atomic.LoadInt64(&t.active)
}

// IsClosed reports whether Begin will reject new work.
func (t *Tracker) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
