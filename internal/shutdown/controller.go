package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/oshokin/edge-telemetry/internal/logger"
)

const (
	// ReasonUnload is recorded when the runtime asks the module to stop.
	ReasonUnload = "unload"
	// ReasonInterrupt is recorded on an interactive interrupt.
	ReasonInterrupt = "interrupt"
	// ReasonContext is recorded when the parent context is cancelled.
	ReasonContext = "context canceled"
)

// Controller turns external stop events into the cancellation signal.
type Controller struct {
	// signal is fired on the first stop event.
	signal *Signal
	// notify receives OS signals.
	notify chan os.Signal
	// stopped is closed by Stop to release the watcher goroutine.
	stopped chan struct{}
	// stopOnce guards Stop.
	stopOnce sync.Once
}

// NewController returns a controller owning a fresh signal.
func NewController() *Controller {
	return &Controller{
		signal:  NewSignal(),
		notify:  make(chan os.Signal, 2),
		stopped: make(chan struct{}),
	}
}

// Signal returns the cancellation signal fired by the controller.
func (c *Controller) Signal() *Signal {
	return c.signal
}

// Arm subscribes to SIGTERM and SIGINT and watches ctx. The first event fires
// the signal; later events are ignored.
func (c *Controller) Arm(ctx context.Context) {
	signal.Notify(c.notify, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		select {
		case sig := <-c.notify:
			c.Trigger(ctx, reasonFor(sig))
		case <-ctx.Done():
			c.Trigger(ctx, ReasonContext)
		case <-c.stopped:
		}
	}()
}

// Trigger fires the signal programmatically.
func (c *Controller) Trigger(ctx context.Context, reason string) {
	if c.signal.Fire(reason) {
		logger.InfoKV(ctx, "Shutdown requested", "reason", reason)
	}
}

// Wait blocks until the signal has fired.
func (c *Controller) Wait() {
	<-c.signal.Done()
}

// Stop releases the OS signal subscription. It is safe to call more than once.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		signal.Stop(c.notify)
		close(c.stopped)
	})
}

func reasonFor(sig os.Signal) string {
	if sig == syscall.SIGTERM {
		return ReasonUnload
	}

	return ReasonInterrupt
}
