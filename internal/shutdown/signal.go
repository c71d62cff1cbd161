package shutdown

import (
	"context"
	"sync"
	"time"
)

// Signal is a single-fire broadcast. It can be observed by any number of
// goroutines and is never reset.
type Signal struct {
	// done is closed when the signal fires.
	done chan struct{}
	// reason records what fired the signal.
	reason string
	// once guards the close of done.
	once sync.Once
	// mu protects reason.
	mu sync.Mutex
}

// NewSignal returns an armed, unfired signal.
func NewSignal() *Signal {
	return &Signal{
		done: make(chan struct{}),
	}
}

// Fire fires the signal. It returns true only for the call that fired it;
// later calls are no-ops.
func (s *Signal) Fire(reason string) bool {
	fired := false

	s.once.Do(func() {
		s.mu.Lock()
		s.reason = reason
		s.mu.Unlock()

		close(s.done)

		fired = true
	})

	return fired
}

// Fired reports whether the signal has fired.
func (s *Signal) Fired() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the signal fires.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Reason returns what fired the signal, or an empty string.
func (s *Signal) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reason
}

// Wait blocks for at most timeout and reports whether the signal fired.
// A non-positive timeout only polls.
func (s *Signal) Wait(timeout time.Duration) bool {
	if timeout <= 0 {
		return s.Fired()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.done:
		return true
	case <-timer.C:
		return s.Fired()
	}
}

// Context returns a child of parent that is cancelled when the signal fires.
func (s *Signal) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
