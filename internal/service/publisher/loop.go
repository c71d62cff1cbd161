package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/edge-telemetry/internal/camera"
	"github.com/oshokin/edge-telemetry/internal/channel"
	"github.com/oshokin/edge-telemetry/internal/config"
	"github.com/oshokin/edge-telemetry/internal/domain/telemetry"
	"github.com/oshokin/edge-telemetry/internal/logger"
	"github.com/oshokin/edge-telemetry/internal/metrics"
	"github.com/oshokin/edge-telemetry/internal/sampler"
	"github.com/oshokin/edge-telemetry/internal/shutdown"
)

// Classifier scores an image.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (*telemetry.ClassificationResult, error)
}

// Opener runs the bootstrap and returns the open channel.
type Opener func(ctx context.Context) (channel.Channel, error)

// Settings are the loop's fixed parameters.
type Settings struct {
	// Route is the output the messages are published to.
	Route string
	// Interval is the pause after every tick.
	Interval time.Duration
	// ClassifyEvery classifies one tick out of ClassifyEvery.
	ClassifyEvery int
	// ClassifyTimeout bounds image capture and classification of one tick.
	ClassifyTimeout time.Duration
}

// Loop is the publish loop state machine.
type Loop struct {
	// open bootstraps trust and opens the channel.
	open Opener
	// sampler produces the readings.
	sampler sampler.Sampler
	// classifier and images are both set when classification is enabled.
	classifier Classifier
	images     camera.Source
	// metrics may be nil.
	metrics *metrics.Metrics
	// newID generates message identifiers.
	newID func() string
	// settings are the loop parameters.
	settings Settings
	// state is the current State.
	state atomic.Int32
}

// Option configures a Loop.
type Option func(*Loop)

// WithClassification enables best-effort classification of images from src.
func WithClassification(c Classifier, src camera.Source) Option {
	return func(l *Loop) {
		if c != nil && src != nil {
			l.classifier = c
			l.images = src
		}
	}
}

// WithMetrics records loop activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loop) {
		l.metrics = m
	}
}

// WithIDGenerator replaces the message id generator.
func WithIDGenerator(newID func() string) Option {
	return func(l *Loop) {
		if newID != nil {
			l.newID = newID
		}
	}
}

// NewLoop returns a loop in the bootstrapping state.
func NewLoop(open Opener, s sampler.Sampler, settings Settings, opts ...Option) *Loop {
	if settings.Route == "" {
		settings.Route = config.DefaultOutputName
	}

	if settings.Interval <= 0 {
		settings.Interval = config.DefaultInterval
	}

	if settings.ClassifyEvery <= 0 {
		settings.ClassifyEvery = 1
	}

	if settings.ClassifyTimeout <= 0 {
		settings.ClassifyTimeout = config.DefaultClassificationTimeout
	}

	l := &Loop{
		open:     open,
		sampler:  s,
		newID:    uuid.NewString,
		settings: settings,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// State returns the current state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Run bootstraps the channel and publishes one message per interval until
// stop fires or ctx is done. Bootstrap failures are returned; everything
// after the channel opens is handled per tick and Run returns nil.
func (l *Loop) Run(ctx context.Context, stop *shutdown.Signal) error {
	l.transition(ctx, StateBootstrapping)

	// Install trust and open the channel.
	ch, err := l.open(ctx)
	if err != nil {
		l.transition(ctx, StateStopped)
		return err
	}

	l.transition(ctx, StateChannelOpen)

	// Classification is abandoned as soon as shutdown starts.
	classifyCtx, cancel := stop.Context(ctx)
	defer cancel()

	l.transition(ctx, StateRunning)

	for seq := uint64(1); ; seq++ {
		// Never start a tick once shutdown was requested.
		if stop.Fired() || ctx.Err() != nil {
			break
		}

		l.tick(ctx, classifyCtx, ch, seq)

		// Sleep one interval unless the signal wakes us.
		if l.wait(ctx, stop) {
			break
		}
	}

	l.transition(ctx, StateDraining)

	// The tick in flight has finished, release the channel.
	if err := ch.Close(); err != nil {
		logger.WarnKV(ctx, "Close channel failed", "error", err)
	}

	l.transition(ctx, StateStopped)

	return nil
}

// tick runs one sample, classify, merge, publish cycle.
func (l *Loop) tick(ctx, classifyCtx context.Context, ch channel.Channel, seq uint64) {
	l.metrics.Tick()

	sample := l.sampler.Sample()

	var result *telemetry.ClassificationResult
	if l.shouldClassify(seq) {
		result = l.classify(classifyCtx, seq)
	}

	msg := telemetry.Merge(sample, result, l.newID())

	payload, err := json.Marshal(msg)
	if err != nil {
		logger.ErrorKV(ctx, "Encode message failed", "seq", seq, "error", err)
		return
	}

	started := time.Now()

	// The publish in flight is never preempted by shutdown; the channel
	// timeout bounds it.
	err = ch.Publish(context.WithoutCancel(ctx), channel.Message{
		Route:   l.settings.Route,
		ID:      msg.MessageID,
		Payload: payload,
	})
	l.metrics.Published(time.Since(started), err)

	if err != nil {
		logger.ErrorKV(ctx, "Publish failed", "seq", seq, "message_id", msg.MessageID, "error", err)
		return
	}

	logger.DebugKV(ctx, "Message published",
		"seq", seq,
		"message_id", msg.MessageID,
		"classified", msg.Classification != nil,
	)
}

func (l *Loop) shouldClassify(seq uint64) bool {
	if l.classifier == nil || l.images == nil {
		return false
	}

	return (seq-1)%uint64(l.settings.ClassifyEvery) == 0
}

// classify captures and scores an image within the classify timeout. Any
// failure yields nil.
func (l *Loop) classify(ctx context.Context, seq uint64) *telemetry.ClassificationResult {
	ctx, cancel := context.WithTimeout(ctx, l.settings.ClassifyTimeout)
	defer cancel()

	image, err := l.images.Capture(ctx)
	if err != nil {
		l.metrics.Classified(metrics.OutcomeCapture)
		logger.WarnKV(ctx, "Image capture failed, publishing without classification", "seq", seq, "error", err)

		return nil
	}

	result, err := l.classifier.Classify(ctx, image)
	if err != nil {
		outcome := metrics.OutcomeTransport
		if errors.Is(err, telemetry.ErrParse) {
			outcome = metrics.OutcomeParse
		}

		l.metrics.Classified(outcome)
		logger.WarnKV(ctx, "Classification failed, publishing without classification", "seq", seq, "error", err)

		return nil
	}

	l.metrics.Classified(metrics.OutcomeSuccess)

	return result
}

// wait pauses for one interval and reports whether the loop must stop.
func (l *Loop) wait(ctx context.Context, stop *shutdown.Signal) bool {
	timer := time.NewTimer(l.settings.Interval)
	defer timer.Stop()

	select {
	case <-stop.Done():
		return true
	case <-ctx.Done():
		return true
	case <-timer.C:
		return stop.Fired()
	}
}

func (l *Loop) transition(ctx context.Context, next State) {
	prev := State(l.state.Swap(int32(next)))
	l.metrics.State(next.String(), allStates)

	if prev != next {
		logger.InfoKV(ctx, "Publish loop state", "from", prev.String(), "to", next.String())
	}
}
