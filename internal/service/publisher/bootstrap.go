package publisher

import (
	"context"
	"fmt"

	"github.com/oshokin/edge-telemetry/internal/channel"
	"github.com/oshokin/edge-telemetry/internal/config"
	"github.com/oshokin/edge-telemetry/internal/logger"
	"github.com/oshokin/edge-telemetry/internal/trust"
)

// Dialer opens the channel with the given settings.
type Dialer func(ctx context.Context, descriptor channel.Descriptor, settings channel.Settings) (channel.Channel, error)

// dialMQTT is the production Dialer.
func dialMQTT(ctx context.Context, descriptor channel.Descriptor, settings channel.Settings) (channel.Channel, error) {
	ch, err := channel.Dial(ctx, descriptor, settings)
	if err != nil {
		return nil, err
	}

	return ch, nil
}

// newOpener returns the bootstrap for the loop: trust first, then the channel.
func newOpener(cfg *config.Config, descriptor channel.Descriptor, store *trust.Store, dial Dialer) Opener {
	return func(ctx context.Context) (channel.Channel, error) {
		settings := channel.Settings{
			Kind:     channel.TransportKind(cfg.Transport),
			Timeout:  cfg.Timeout,
			TokenTTL: cfg.TokenTTL,
		}

		if cfg.BypassCertVerification {
			logger.WarnKV(ctx, "Certificate verification bypassed, any remote certificate is accepted",
				"broker", descriptor.BrokerHost())

			settings.AcceptAnyCertificate = true
		} else {
			added, err := store.Install(cfg.CACertificateFile)
			if err != nil {
				return nil, fmt.Errorf("install certificate: %w", err)
			}

			logger.InfoKV(ctx, "Added certificate", "path", cfg.CACertificateFile, "new", added)

			settings.RootCAs = store.Pool()
		}

		ch, err := dial(ctx, descriptor, settings)
		if err != nil {
			return nil, fmt.Errorf("open channel: %w", err)
		}

		return ch, nil
	}
}
