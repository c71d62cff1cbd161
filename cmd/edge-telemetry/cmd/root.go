package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/edge-telemetry/internal/config"
	"github.com/oshokin/edge-telemetry/internal/service/publisher"
	"github.com/oshokin/edge-telemetry/internal/version"
)

//nolint:gochecknoglobals // Cobra flag targets.
var (
	// configPath stores the path to the settings YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string
	// interval overrides the configured sampling interval.
	interval time.Duration
	// bypassCertVerification accepts any broker certificate.
	bypassCertVerification bool
	// metricsAddress overrides the metrics listener address.
	metricsAddress string

	// rootCmd runs the telemetry module.
	rootCmd = &cobra.Command{
		Use:   "edge-telemetry",
		Short: "Publish machine telemetry to the edge hub.",
		Long: `Edge module that samples machine and ambient readings once per interval,
optionally scores a camera image with a vision classifier, and publishes the
merged JSON message to the hub output over MQTT.

The connection string and CA certificate come from the settings file or from
the EdgeHubConnectionString and EdgeModuleCACertificateFile environment
variables. The module runs until SIGTERM or SIGINT, finishes the tick in
flight and closes the channel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The controller inside the service owns SIGTERM and SIGINT; this
			// context only covers the window before it is armed.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			cmd.SilenceUsage = true

			return publisher.Run(ctx, &publisher.Options{
				ConfigPath:             configPath,
				LogLevel:               logLevel,
				Interval:               interval,
				BypassCertVerification: bypassCertVerification,
				MetricsAddress:         metricsAddress,
			})
		},
	}
)

// Execute runs the edge-telemetry CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()

	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to settings file")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.DurationVar(&interval, "interval", 0, "pause between ticks, overrides the settings file")
	flags.BoolVar(&bypassCertVerification, "bypass-cert-verification", false,
		"accept any broker certificate (development only)")
	flags.StringVar(&metricsAddress, "metrics-addr", "", "address of the Prometheus metrics listener")
}
