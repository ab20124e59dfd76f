package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Dispatcher sends notifications in the background, fire-and-forget.
type Dispatcher struct {
	notifier *Notifier
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Each send is bounded by timeout when it is positive.
func NewDispatcher(notifier *Notifier, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		timeout:  timeout,
		logger:   logger.With("component", "notify.dispatcher"),
	}
}

// Dispatch sends msg without blocking the caller.
// Failures are logged; after Shutdown the message is dropped.
func (d *Dispatcher) Dispatch(msg Notification) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("dispatcher closed, dropping notification", "kind", msg.Kind)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		ctx := context.Background()
		if d.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}

		if err := d.notifier.Send(ctx, msg); err != nil {
			d.logger.Error("failed to send notification",
				"kind", msg.Kind,
				"error", err,
				"transport", d.notifier.Transport(),
			)
		}
	}()
}

// Shutdown stops accepting messages and waits for in-flight sends.
// It matches server.ShutdownFunc.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.logger.Warn("dispatcher shutdown timed out with sends in flight")
		return ctx.Err()
	}
}
