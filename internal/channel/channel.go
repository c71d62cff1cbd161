package channel

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/edge-telemetry/internal/domain/telemetry"
	"github.com/oshokin/edge-telemetry/internal/logger"
)

// Message is one payload handed to the channel.
type Message struct {
	// Route is the logical output the message is published to.
	Route string
	// ID is the message identifier carried as a system property.
	ID string
	// Payload is the serialized body.
	Payload []byte
}

// Channel publishes messages over an open connection.
type Channel interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// ClientFactory builds the MQTT client from its options.
type ClientFactory func(opts *mqtt.ClientOptions) mqtt.Client

// MQTT is a Channel backed by a Paho client.
type MQTT struct {
	// client is the connected Paho client.
	client mqtt.Client
	// descriptor identifies the device and builds topics.
	descriptor Descriptor
	// timeout bounds each publish.
	timeout time.Duration
}

// Option configures Dial.
type Option func(*dialer)

// dialer collects Dial dependencies.
type dialer struct {
	newClient ClientFactory
	now       func() time.Time
}

const (
	// publishQoS is at-least-once delivery to the hub.
	publishQoS = 1
	// disconnectQuiesce is how long Close lets in-flight work finish, milliseconds.
	disconnectQuiesce = 250
)

var (
	// errTimeout is wrapped when an MQTT operation does not complete in time.
	errTimeout = errors.New("operation timed out")
	// errClosed is returned when publishing on a closed channel.
	errClosed = errors.New("channel is closed")
)

// WithClientFactory replaces the Paho client constructor.
func WithClientFactory(factory ClientFactory) Option {
	return func(d *dialer) {
		if factory != nil {
			d.newClient = factory
		}
	}
}

// WithClock overrides the clock used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(d *dialer) {
		if now != nil {
			d.now = now
		}
	}
}

// Dial opens the channel and waits for the connection to be acknowledged.
// Every failure wraps telemetry.ErrChannelOpen.
func Dial(ctx context.Context, descriptor Descriptor, settings Settings, opts ...Option) (*MQTT, error) {
	d := &dialer{
		newClient: mqtt.NewClient,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	settings = settings.withDefaults()

	clientOptions, err := d.clientOptions(ctx, descriptor, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", telemetry.ErrChannelOpen, err)
	}

	client := d.newClient(clientOptions)

	if err = waitToken(ctx, client.Connect(), settings.Timeout); err != nil {
		// Stop the connect attempt still running in the background.
		client.Disconnect(0)

		return nil, fmt.Errorf("%w: connect to %s: %w", telemetry.ErrChannelOpen, descriptor.BrokerHost(), err)
	}

	logger.InfoKV(ctx, "Channel open",
		"broker", descriptor.BrokerHost(),
		"client_id", descriptor.ClientID(),
		"transport", string(settings.Kind),
		"accept_any_certificate", settings.AcceptAnyCertificate,
	)

	return &MQTT{
		client:     client,
		descriptor: descriptor,
		timeout:    settings.Timeout,
	}, nil
}

// clientOptions translates the descriptor and settings into Paho options.
func (d *dialer) clientOptions(ctx context.Context, descriptor Descriptor, settings Settings) (*mqtt.ClientOptions, error) {
	broker, err := settings.brokerURL(descriptor.BrokerHost())
	if err != nil {
		return nil, err
	}

	// Fail early on a bad key instead of on the first connect attempt.
	if _, err = SharedAccessSignature(descriptor.ResourceURI(), descriptor.SharedAccessKey, d.now()); err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(descriptor.ClientID()).
		SetProtocolVersion(4).
		SetTLSConfig(settings.tlsConfig(descriptor.BrokerHost())).
		SetKeepAlive(settings.KeepAlive).
		SetConnectTimeout(settings.Timeout).
		SetWriteTimeout(settings.Timeout).
		SetCleanSession(false).
		SetOrderMatters(true).
		SetAutoReconnect(true)

	opts.SetCredentialsProvider(func() (string, string) {
		token, err := SharedAccessSignature(descriptor.ResourceURI(), descriptor.SharedAccessKey, d.now().Add(settings.TokenTTL))
		if err != nil {
			// Key was validated above; an empty password only fails the connect.
			logger.ErrorKV(ctx, "Build shared access signature failed", "error", err)
		}

		return descriptor.Username(), token
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.WarnKV(ctx, "Channel connection lost", "error", err)
	})

	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		logger.Info(ctx, "Channel reconnecting")
	})

	return opts, nil
}

// Publish sends one message and waits for the acknowledgement, bounded by the
// channel timeout. Failures wrap telemetry.ErrPublish.
func (m *MQTT) Publish(ctx context.Context, msg Message) error {
	if m == nil || m.client == nil {
		return fmt.Errorf("%w: %w", telemetry.ErrPublish, errClosed)
	}

	topic := m.descriptor.EventsTopic(msg.Route, msg.ID)

	if err := waitToken(ctx, m.client.Publish(topic, publishQoS, false, msg.Payload), m.timeout); err != nil {
		return fmt.Errorf("%w: route %s: %w", telemetry.ErrPublish, msg.Route, err)
	}

	return nil
}

// Close disconnects the client. It is safe to call more than once.
func (m *MQTT) Close() error {
	if m == nil || m.client == nil {
		return nil
	}

	m.client.Disconnect(disconnectQuiesce)
	m.client = nil

	return nil
}

// waitToken waits for token completion, the context, or the timeout.
func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errTimeout
	}
}
