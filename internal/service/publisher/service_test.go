package publisher

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/edge-telemetry/internal/config"
	"github.com/oshokin/edge-telemetry/internal/domain/telemetry"
)

func writeSettings(t *testing.T, cfg *config.Config) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(path, cfg))

	return path
}

// TestRun_PublishesUntilCancelled runs the whole module against a fake channel.
func TestRun_PublishesUntilCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := &recordingChannel{
		after: func(i int) {
			if i == 3 {
				cancel()
			}
		},
	}
	dialer := &dialRecorder{ch: ch}

	path := writeSettings(t, &config.Config{
		ConnectionString:       testConnectionString,
		BypassCertVerification: true,
		OutputName:             "telemetry",
		Seed:                   7,
	})

	done := make(chan error, 1)

	go func() {
		done <- Run(ctx, &Options{
			ConfigPath: path,
			Interval:   time.Millisecond,
			dial:       dialer.dial,
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	attempts := ch.snapshot()
	require.Len(t, attempts, 3)
	require.Equal(t, int32(1), ch.closed.Load())
	require.True(t, dialer.settings.AcceptAnyCertificate)

	for _, a := range attempts {
		require.Equal(t, "telemetry", a.route)
		require.NotEmpty(t, a.msg.MessageID)
		require.Nil(t, a.msg.Classification)
		require.GreaterOrEqual(t, a.msg.Machine.BatteryVoltage, 20.0)
		require.Less(t, a.msg.Machine.BatteryVoltage, 40.0)
	}
}

// TestRun_StartupErrors returns configuration problems before anything is opened.
func TestRun_StartupErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  *config.Config
		opts Options
	}{
		{
			name: "malformed connection string",
			cfg:  &config.Config{ConnectionString: "HostName=hub", BypassCertVerification: true},
		},
		{
			name: "missing certificate without bypass",
			cfg:  &config.Config{ConnectionString: testConnectionString},
		},
		{
			name: "unknown log level",
			cfg:  &config.Config{ConnectionString: testConnectionString, BypassCertVerification: true},
			opts: Options{LogLevel: "chatty"},
		},
		{
			name: "invalid classification endpoint",
			cfg: &config.Config{
				ConnectionString:       testConnectionString,
				BypassCertVerification: true,
				Classification:         config.Classification{Endpoint: "::not a url"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dialer := &dialRecorder{ch: new(recordingChannel)}

			opts := tt.opts
			opts.ConfigPath = writeSettings(t, tt.cfg)
			opts.dial = dialer.dial

			err := Run(context.Background(), &opts)
			require.ErrorIs(t, err, telemetry.ErrConfig)
			require.Zero(t, dialer.calls)
		})
	}
}

// TestRun_TrustFailureIsFatal stops before dialing when the certificate is unreadable.
func TestRun_TrustFailureIsFatal(t *testing.T) {
	t.Parallel()

	dialer := &dialRecorder{ch: new(recordingChannel)}
	path := writeSettings(t, &config.Config{
		ConnectionString:  testConnectionString,
		CACertificateFile: filepath.Join(t.TempDir(), "missing.pem"),
	})

	err := Run(context.Background(), &Options{ConfigPath: path, dial: dialer.dial})
	require.ErrorIs(t, err, telemetry.ErrTrustStore)
	require.Zero(t, dialer.calls)
}

// TestOptions_Overrides applies only the flags that were set.
func TestOptions_Overrides(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{LogLevel: "warn", Interval: time.Second, MetricsAddress: ":9100"}

	opts := &Options{LogLevel: "debug", BypassCertVerification: true}
	opts.overrides()(cfg)

	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, time.Second, cfg.Interval)
	require.True(t, cfg.BypassCertVerification)
	require.Equal(t, ":9100", cfg.MetricsAddress)
}
