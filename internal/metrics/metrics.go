// Package metrics exposes Prometheus counters for the publish loop.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/edge-telemetry/internal/logger"
)

// Classification outcomes used as label values.
const (
	OutcomeSuccess   = "success"
	OutcomeTransport = "transport_error"
	OutcomeParse     = "parse_error"
	OutcomeCapture   = "capture_error"
)

// Metrics groups the loop's collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	ticks           prometheus.Counter
	publishes       *prometheus.CounterVec
	publishDuration prometheus.Histogram
	classifications *prometheus.CounterVec
	state           *prometheus.GaugeVec
}

// readHeaderTimeout bounds slow clients of the metrics listener.
const readHeaderTimeout = 5 * time.Second

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edge_telemetry_ticks_total",
			Help: "Total ticks started by the publish loop.",
		}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edge_telemetry_publishes_total",
			Help: "Publish attempts by result.",
		}, []string{"result"}),
		publishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "edge_telemetry_publish_duration_seconds",
			Help:    "Time to get a publish acknowledged.",
			Buckets: prometheus.DefBuckets,
		}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edge_telemetry_classifications_total",
			Help: "Classification attempts by outcome.",
		}, []string{"outcome"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "edge_telemetry_loop_state",
			Help: "1 for the current publish loop state, 0 otherwise.",
		}, []string{"state"}),
	}

	collectors := []prometheus.Collector{
		m.ticks,
		m.publishes,
		m.publishDuration,
		m.classifications,
		m.state,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	return m, nil
}

// Tick counts a started tick.
func (m *Metrics) Tick() {
	if m == nil {
		return
	}

	m.ticks.Inc()
}

// Published records a publish attempt.
func (m *Metrics) Published(elapsed time.Duration, err error) {
	if m == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}

	m.publishes.WithLabelValues(result).Inc()
	m.publishDuration.Observe(elapsed.Seconds())
}

// Classified records a classification outcome.
func (m *Metrics) Classified(outcome string) {
	if m == nil {
		return
	}

	m.classifications.WithLabelValues(outcome).Inc()
}

// State marks current as the active loop state among all.
func (m *Metrics) State(current string, all []string) {
	if m == nil {
		return
	}

	for _, s := range all {
		value := 0.0
		if s == current {
			value = 1
		}

		m.state.WithLabelValues(s).Set(value)
	}
}

// Serve exposes gatherer on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	logger.InfoKV(ctx, "Metrics listening", "address", lis.Addr().String())

	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}

	<-done

	return nil
}
