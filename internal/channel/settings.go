package channel

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/edge-telemetry/internal/domain/telemetry"
)

// TransportKind selects how MQTT is carried.
type TransportKind string

const (
	// TransportMQTT is MQTT over TLS on port 8883.
	TransportMQTT TransportKind = "mqtt"
	// TransportMQTTWebSocket is MQTT over secure WebSocket on port 443.
	TransportMQTTWebSocket TransportKind = "mqtt-ws"
)

// Settings carries the transport options of the channel.
type Settings struct {
	// Kind is the transport; empty means TransportMQTT.
	Kind TransportKind
	// AcceptAnyCertificate disables server certificate verification.
	AcceptAnyCertificate bool
	// RootCAs verifies the server; nil means the system pool.
	RootCAs *x509.CertPool
	// Timeout bounds connect and publish.
	Timeout time.Duration
	// TokenTTL is the lifetime of each generated signature.
	TokenTTL time.Duration
	// KeepAlive is the MQTT keep-alive period.
	KeepAlive time.Duration
}

const (
	// DefaultTimeout bounds connect and publish when Settings.Timeout is zero.
	DefaultTimeout = 5 * time.Second
	// DefaultTokenTTL is used when Settings.TokenTTL is zero.
	DefaultTokenTTL = time.Hour
	// DefaultKeepAlive is used when Settings.KeepAlive is zero.
	DefaultKeepAlive = 60 * time.Second
)

// errUnknownTransport is wrapped for unsupported transport kinds.
var errUnknownTransport = errors.New("unknown transport kind")

// brokerURL returns the broker address for host.
func (s Settings) brokerURL(host string) (string, error) {
	switch s.Kind {
	case TransportMQTT, "":
		return "ssl://" + host + ":8883", nil
	case TransportMQTTWebSocket:
		return "wss://" + host + ":443/$iothub/websocket", nil
	default:
		return "", fmt.Errorf("%w: %w: %q", telemetry.ErrConfig, errUnknownTransport, s.Kind)
	}
}

// tlsConfig returns the TLS configuration for serverName.
func (s Settings) tlsConfig(serverName string) *tls.Config {
	//nolint:gosec // InsecureSkipVerify is an explicit, logged operator choice.
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         serverName,
		RootCAs:            s.RootCAs,
		InsecureSkipVerify: s.AcceptAnyCertificate,
	}
}

func (s Settings) withDefaults() Settings {
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}

	if s.TokenTTL <= 0 {
		s.TokenTTL = DefaultTokenTTL
	}

	if s.KeepAlive <= 0 {
		s.KeepAlive = DefaultKeepAlive
	}

	return s
}
