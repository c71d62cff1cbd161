package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/edge-telemetry/internal/channel"
	"github.com/oshokin/edge-telemetry/internal/domain/telemetry"
)

var (
	errTestCapture = errors.New("camera unplugged")
	errTestPublish = errors.New("broker rejected message")
	errTestDial    = errors.New("connection refused")
)

// seqSampler encodes the tick number in BatteryVoltage.
type seqSampler struct {
	n atomic.Int64
}

func (s *seqSampler) Sample() telemetry.Sample {
	n := s.n.Add(1)

	return telemetry.Sample{
		BatteryVoltage:     float64(n),
		ResponseTime:       3,
		AmbientTemperature: 20,
		Humidity:           50,
		CapturedAt:         time.Unix(n, 0).UTC(),
	}
}

// attempt is one recorded publish.
type attempt struct {
	msg     telemetry.OutboundMessage
	route   string
	started time.Time
	ended   time.Time
}

// recordingChannel records publishes, detects overlap and can fire a hook.
type recordingChannel struct {
	mu       sync.Mutex
	attempts []attempt
	inFlight atomic.Int32
	overlap  atomic.Bool
	closed   atomic.Int32
	delay    time.Duration
	// fail decides the error of attempt i (1-based).
	fail func(i int) error
	// after runs after attempt i is recorded.
	after func(i int)
}

func (c *recordingChannel) Publish(_ context.Context, msg channel.Message) error {
	if c.inFlight.Add(1) > 1 {
		c.overlap.Store(true)
	}
	defer c.inFlight.Add(-1)

	started := time.Now()

	if c.delay > 0 {
		time.Sleep(c.delay)
	}

	var decoded telemetry.OutboundMessage
	if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
		return err
	}

	c.mu.Lock()
	c.attempts = append(c.attempts, attempt{msg: decoded, route: msg.Route, started: started, ended: time.Now()})
	i := len(c.attempts)
	c.mu.Unlock()

	if c.after != nil {
		c.after(i)
	}

	if c.fail != nil {
		return c.fail(i)
	}

	return nil
}

func (c *recordingChannel) Close() error {
	c.closed.Add(1)
	return nil
}

func (c *recordingChannel) snapshot() []attempt {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]attempt(nil), c.attempts...)
}

func openerFor(ch channel.Channel) Opener {
	return func(context.Context) (channel.Channel, error) {
		return ch, nil
	}
}

// scriptedClassifier returns results[i] / errs[i] for call i (0-based), cycling.
type scriptedClassifier struct {
	mu      sync.Mutex
	calls   int
	results []*telemetry.ClassificationResult
	errs    []error
	block   bool
}

func (c *scriptedClassifier) Classify(ctx context.Context, _ []byte) (*telemetry.ClassificationResult, error) {
	c.mu.Lock()
	i := c.calls
	c.calls++
	c.mu.Unlock()

	if c.block {
		<-ctx.Done()
		return nil, errors.Join(telemetry.ErrTransport, ctx.Err())
	}

	idx := i % len(c.results)

	return c.results[idx], c.errs[idx]
}

func (c *scriptedClassifier) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls
}

// staticImage is an in-memory camera.Source.
type staticImage struct {
	err error
}

func (s staticImage) Capture(context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}

	return []byte("BM"), nil
}

func score(v float64) *float64 {
	return &v
}

// hangingCamera blocks every capture until its context ends.
type hangingCamera struct {
	calls atomic.Int32
}

func (c *hangingCamera) Capture(ctx context.Context) ([]byte, error) {
	c.calls.Add(1)
	<-ctx.Done()

	return nil, ctx.Err()
}
