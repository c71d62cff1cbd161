package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/edge-telemetry/internal/domain/telemetry"
)

// Config holds everything the module reads once at startup.
type Config struct {
	// ConnectionString describes the device identity and shared credential.
	ConnectionString string `yaml:"connection_string"`
	// CACertificateFile is the path of the edge gateway's CA certificate.
	CACertificateFile string `yaml:"ca_certificate_file"`
	// BypassCertVerification skips the trust bootstrap and accepts any
	// remote certificate. Meant for hosts where verification is unreliable.
	BypassCertVerification bool `yaml:"bypass_cert_verification"`
	// Transport is "mqtt" (TLS on 8883) or "mqtt-ws" (secure WebSocket on 443).
	Transport string `yaml:"transport"`
	// OutputName is the logical output route messages are published to.
	OutputName string `yaml:"output_name"`
	// Interval is the pause between two ticks.
	Interval time.Duration `yaml:"interval"`
	// Timeout bounds channel connect and publish operations.
	Timeout time.Duration `yaml:"timeout"`
	// TokenTTL is the lifetime of generated shared access signatures.
	TokenTTL time.Duration `yaml:"token_ttl"`
	// Classification configures the optional image classification step.
	Classification Classification `yaml:"classification"`
	// MetricsAddress enables the Prometheus listener when not empty.
	MetricsAddress string `yaml:"metrics_addr"`
	// LogLevel is the minimum log level.
	LogLevel string `yaml:"log_level"`
	// Seed seeds the synthetic sampler; zero picks a time-based seed.
	Seed uint64 `yaml:"seed"`
}

// Classification configures image capture and the prediction endpoint.
type Classification struct {
	// Endpoint is the prediction URL. Classification is disabled when empty.
	Endpoint string `yaml:"endpoint"`
	// ImageFile is the image read on every classified tick.
	ImageFile string `yaml:"image_file"`
	// CaptureCommand, when set, is run before reading ImageFile.
	CaptureCommand []string `yaml:"capture_command"`
	// Timeout bounds one classification round-trip.
	Timeout time.Duration `yaml:"timeout"`
	// Every classifies one tick out of Every.
	Every int `yaml:"every"`
}

// Enabled reports whether classification is configured.
func (c *Classification) Enabled() bool {
	return c.Endpoint != ""
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "edge-telemetry-settings.yaml"

	// DefaultTransport is MQTT over TLS.
	DefaultTransport = "mqtt"

	// DefaultOutputName is the route used by the edge runtime's default routes.
	DefaultOutputName = "output1"

	// DefaultInterval is the pause between ticks.
	DefaultInterval = 1 * time.Second

	// DefaultTimeout bounds network operations on the channel.
	DefaultTimeout = 5 * time.Second

	// DefaultClassificationTimeout bounds one classification call.
	DefaultClassificationTimeout = 3 * time.Second

	// DefaultTokenTTL is the lifetime of a shared access signature.
	DefaultTokenTTL = time.Hour

	// DefaultImageFile is where the capture step leaves the image.
	DefaultImageFile = "temp.bmp"

	// DefaultFilePermissions is the permission for saved settings.
	DefaultFilePermissions = 0o600

	// EnvConnectionString overrides ConnectionString.
	EnvConnectionString = "EdgeHubConnectionString"

	// EnvCACertificateFile overrides CACertificateFile.
	EnvCACertificateFile = "EdgeModuleCACertificateFile"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errConnectionStringRequired is returned when no connection string is available.
	errConnectionStringRequired = errors.New("connection string must be provided")
	// errCertificateRequired is returned when the CA path is missing and verification is on.
	errCertificateRequired = errors.New("missing path to certificate file")
	// errNegativeValue is returned for negative durations or counters.
	errNegativeValue = errors.New("value must not be negative")
)

// Override adjusts loaded settings before validation, e.g. from CLI flags.
type Override func(cfg *Config)

// Load reads settings from path, applies overrides from the process
// environment and then the given overrides, and validates the result.
func Load(path string, overrides ...Override) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv, overrides...)
}

// LoadWithEnv is Load with an explicit environment lookup. A missing file is
// not an error when the environment and overrides supply the required values.
func LoadWithEnv(path string, lookup func(string) (string, bool), overrides ...Override) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("%w: unmarshal settings: %w", telemetry.ErrConfig, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Environment-only configuration.
	default:
		return nil, fmt.Errorf("%w: read settings: %w", telemetry.ErrConfig, err)
	}

	ApplyEnv(&cfg, lookup)

	for _, override := range overrides {
		override(&cfg)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyEnv overrides settings from the environment lookup function.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvConnectionString); ok && strings.TrimSpace(v) != "" {
		cfg.ConnectionString = strings.TrimSpace(v)
	}

	if v, ok := lookup(EnvCACertificateFile); ok && strings.TrimSpace(v) != "" {
		cfg.CACertificateFile = strings.TrimSpace(v)
	}
}

// Save writes settings to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Settings hold a shared key, keep them private.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills defaults. Every error wraps
// telemetry.ErrConfig.
//
//nolint:cyclop // One branch per setting reads better than a table here.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: %w", telemetry.ErrConfig, errConfigIsNotSet)
	}

	if strings.TrimSpace(cfg.ConnectionString) == "" {
		return fmt.Errorf("%w: %w", telemetry.ErrConfig, errConnectionStringRequired)
	}

	if !cfg.BypassCertVerification && strings.TrimSpace(cfg.CACertificateFile) == "" {
		return fmt.Errorf("%w: %w (set %s or bypass_cert_verification)",
			telemetry.ErrConfig, errCertificateRequired, EnvCACertificateFile)
	}

	if cfg.Interval < 0 || cfg.Timeout < 0 || cfg.TokenTTL < 0 ||
		cfg.Classification.Timeout < 0 || cfg.Classification.Every < 0 {
		return fmt.Errorf("%w: %w", telemetry.ErrConfig, errNegativeValue)
	}

	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}

	if cfg.Transport == "" {
		cfg.Transport = DefaultTransport
	}

	if cfg.OutputName == "" {
		cfg.OutputName = DefaultOutputName
	}

	if !cfg.Classification.Enabled() {
		return nil
	}

	if _, err := url.ParseRequestURI(cfg.Classification.Endpoint); err != nil {
		return fmt.Errorf("%w: invalid classification endpoint: %w", telemetry.ErrConfig, err)
	}

	if cfg.Classification.Timeout == 0 {
		cfg.Classification.Timeout = DefaultClassificationTimeout
	}

	if cfg.Classification.Every == 0 {
		cfg.Classification.Every = 1
	}

	if cfg.Classification.ImageFile == "" {
		cfg.Classification.ImageFile = DefaultImageFile
	}

	return nil
}
