package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/tarun02-git/Prodigy-GenAI-Task4/logging"
)

// HookFunc is a cleanup function run during shutdown.
// The context carries the remaining shutdown deadline.
type HookFunc func(ctx context.Context) error

// hook is one registered cleanup function.
// Lower priority values run earlier.
type hook struct {
	name     string
	priority int
	fn       HookFunc
}

// Coordinator drives graceful shutdown. It cancels its context on the
// first SIGINT/SIGTERM, exits immediately on the second, drains
// in-flight work, then runs cleanup hooks in priority order.
//
// Priority conventions:
//   - 0-9: flush logs and metrics
//   - 10-19: stop accepting connections
//   - 20-29: stop background workers
//   - 30+: close databases and files
type Coordinator struct {
	logger  *logging.Logger
	timeout time.Duration

	mu       sync.Mutex
	hooks    []hook
	started  bool
	finished bool

	ctx     context.Context
	cancel  context.CancelFunc
	tracker *Tracker
	sigChan chan os.Signal

	// exit is os.Exit unless overridden by tests.
	exit func(int)
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithTimeout sets the total time allowed for draining and cleanup.
// Default is 30 seconds.
func WithTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewCoordinator creates a Coordinator. The logger is required.
func NewCoordinator(logger *logging.Logger, opts ...CoordinatorOption) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		logger:  logger,
		timeout: 30 * time.Second,
		ctx:     ctx,
		cancel:  cancel,
		tracker: NewTracker(),
		sigChan: make(chan os.Signal, 1),
		exit:    os.Exit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Context is cancelled when shutdown begins.
// Long-running components should watch it.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// Register adds a cleanup hook. Lower priority values run first.
// Registration after Shutdown has run is a no-op.
func (c *Coordinator) Register(name string, priority int, fn HookFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		return
	}
	c.hooks = append(c.hooks, hook{name: name, priority: priority, fn: fn})
	c.logger.Debugw("registered shutdown hook", "name", name, "priority", priority)
}

// Start installs the SIGINT/SIGTERM handler. The first signal cancels
// the context; the second exits the process with the conventional
// signal exit code. Safe to call more than once.
func (c *Coordinator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true

	signal.Notify(c.sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		signals := 0
		for sig := range c.sigChan {
			signals++
			if signals == 1 {
				c.logger.Infow("shutdown signal received", "signal", sig.String())
				c.cancel()
				continue
			}
			c.logger.Warnw("second signal received, exiting immediately", "signal", sig.String())
			if s, ok := sig.(syscall.Signal); ok {
				c.exit(128 + int(s))
			} else {
				c.exit(1)
			}
		}
	}()
}

// Guard runs fn as a tracked operation so shutdown waits for it.
// Returns ErrClosed without running fn once shutdown has begun.
func (c *Coordinator) Guard(ctx context.Context, name string, fn func(context.Context) error) error {
	if !c.tracker.Begin() {
		c.logger.Debugw("operation rejected, shutting down", "operation", name)
		return ErrClosed
	}
	defer c.tracker.End()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return context.Canceled
	default:
	}
	return fn(ctx)
}

// InFlight returns the number of tracked operations still running.
func (c *Coordinator) InFlight() int64 {
	return c.tracker.Active()
}

// Wait blocks until shutdown has been initiated.
func (c *Coordinator) Wait() {
	<-c.ctx.Done()
}

// Shutdown drains in-flight work and runs the hooks. Idempotent.
func (c *Coordinator) Shutdown() error {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return nil
	}
	c.finished = true
	hooks := make([]hook, len(c.hooks))
	copy(hooks, c.hooks)
	c.mu.Unlock()

	start := time.Now()
	c.cancel()
	c.tracker.Close()

	if n := c.tracker.Active(); n > 0 {
		c.logger.Infow("waiting for in-flight work", "active", n)
	}
	if err := c.tracker.Drain(c.timeout); err != nil {
		c.logger.Warnw("in-flight work did not drain",
			"waited", time.Since(start).String(),
			"remaining", c.tracker.Active(),
		)
	}

	remaining := c.timeout - time.Since(start)
	if remaining < time.Second {
		remaining = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	sort.SliceStable(hooks, func(i, j int) bool {
		return hooks[i].priority < hooks[j].priority
	})

	var failed int
	for _, h := range hooks {
		if err := h.fn(ctx); err != nil {
			failed++
			c.logger.Errorw("shutdown hook failed", "name", h.name, "error", err.Error())
		}
	}

	signal.Stop(c.sigChan)

	if failed > 0 {
		return fmt.Errorf("shutdown: %d hooks failed", failed)
	}
	c.logger.Infow("shutdown complete", "duration", time.Since(start).Round(time.Millisecond).String())
	return nil
}
