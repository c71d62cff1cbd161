package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oshokin/edge-telemetry/internal/camera"
	"github.com/oshokin/edge-telemetry/internal/channel"
	"github.com/oshokin/edge-telemetry/internal/classifier"
	"github.com/oshokin/edge-telemetry/internal/config"
	"github.com/oshokin/edge-telemetry/internal/domain/telemetry"
	"github.com/oshokin/edge-telemetry/internal/logger"
	"github.com/oshokin/edge-telemetry/internal/metrics"
	"github.com/oshokin/edge-telemetry/internal/sampler"
	"github.com/oshokin/edge-telemetry/internal/shutdown"
	"github.com/oshokin/edge-telemetry/internal/trust"
	"github.com/oshokin/edge-telemetry/internal/version"
)

// Options are the command-line inputs of the module.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LogLevel overrides the configured log level when set.
	LogLevel string
	// Interval overrides the configured sampling interval when positive.
	Interval time.Duration
	// BypassCertVerification forces the certificate bypass on.
	BypassCertVerification bool
	// MetricsAddress overrides the metrics listener address when set.
	MetricsAddress string

	// dial replaces the MQTT dialer in tests.
	dial Dialer
}

// overrides turns the options into config overrides.
func (o *Options) overrides() config.Override {
	return func(cfg *config.Config) {
		if o.LogLevel != "" {
			cfg.LogLevel = o.LogLevel
		}

		if o.Interval > 0 {
			cfg.Interval = o.Interval
		}

		if o.BypassCertVerification {
			cfg.BypassCertVerification = true
		}

		if o.MetricsAddress != "" {
			cfg.MetricsAddress = o.MetricsAddress
		}
	}
}

// Run loads the settings, arms the shutdown controller and runs the publish
// loop until SIGTERM, SIGINT or ctx cancellation. It returns an error only
// when startup fails.
//
//nolint:funlen // Wiring reads best top to bottom.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "edge-telemetry")

	// Load settings from the configuration file, environment and flags.
	cfg, err := config.Load(opts.ConfigPath, opts.overrides())
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Apply the configured log level.
	level, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		return fmt.Errorf("%w: unknown log level %q", telemetry.ErrConfig, cfg.LogLevel)
	}

	logger.SetLevel(level)
	logger.InfoKV(ctx, "Starting edge-telemetry", version.KV()...)

	// Identify the device and module from the connection string.
	descriptor, err := channel.ParseConnectionString(cfg.ConnectionString)
	if err != nil {
		return fmt.Errorf("parse connection string: %w", err)
	}

	ctx = logger.WithKV(ctx, "device_id", descriptor.DeviceID, "module_id", descriptor.ModuleID)

	// Arm the cancellation signal before anything can block.
	controller := shutdown.NewController()
	controller.Arm(ctx)

	defer controller.Stop()

	// Register collectors on a private registry.
	registry := prometheus.NewRegistry()

	m, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	loopOptions := []Option{WithMetrics(m)}

	// Classification is optional and only built when an endpoint is set.
	if cfg.Classification.Enabled() {
		classification, err := newClassification(cfg)
		if err != nil {
			return err
		}

		loopOptions = append(loopOptions, classification)
	}

	// Expose metrics until Run returns.
	if cfg.MetricsAddress != "" {
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()

		go func() {
			if err := metrics.Serve(metricsCtx, cfg.MetricsAddress, registry); err != nil {
				logger.ErrorKV(ctx, "Metrics listener failed", "error", err)
			}
		}()
	}

	// Use the real MQTT dialer unless a test replaced it.
	dial := opts.dial
	if dial == nil {
		dial = dialMQTT
	}

	// Seed the sampler once for the whole run.
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	loop := NewLoop(
		newOpener(cfg, descriptor, trust.NewStore(), dial),
		sampler.NewRandom(seed),
		Settings{
			Route:           cfg.OutputName,
			Interval:        cfg.Interval,
			ClassifyEvery:   cfg.Classification.Every,
			ClassifyTimeout: cfg.Classification.Timeout,
		},
		loopOptions...,
	)

	logger.InfoKV(ctx, "Starting publish loop",
		"broker", descriptor.BrokerHost(),
		"output", cfg.OutputName,
		"interval", cfg.Interval.String(),
		"classification", cfg.Classification.Enabled(),
	)

	// Block in the loop until shutdown; only bootstrap failures come back.
	if err = loop.Run(ctx, controller.Signal()); err != nil {
		return err
	}

	// A cancelled parent reaches the controller asynchronously; wait for it
	// so the reason below is set.
	controller.Wait()

	logger.InfoKV(ctx, "Publish loop stopped", "reason", controller.Signal().Reason())

	return nil
}

// newClassification builds the classifier and the image source.
func newClassification(cfg *config.Config) (Option, error) {
	client, err := classifier.New(
		cfg.Classification.Endpoint,
		classifier.WithCallTimeout(cfg.Classification.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create classifier: %w", err)
	}

	var source camera.Source = camera.NewFile(cfg.Classification.ImageFile)

	if len(cfg.Classification.CaptureCommand) > 0 {
		command, err := camera.NewCommand(cfg.Classification.CaptureCommand, cfg.Classification.ImageFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", telemetry.ErrConfig, err)
		}

		source = command
	}

	return WithClassification(client, source), nil
}
