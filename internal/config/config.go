// SPDX-License-Identifier: MIT

// Package config loads the daemon configuration from an optional YAML file
// with environment variable overrides. Environment always wins.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "250ms" or "5s".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the fully merged daemon configuration.
type Config struct {
	Listen  string `yaml:"listen"`
	DataDir string `yaml:"dataDir"`

	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Provider  ProviderConfig  `yaml:"provider"`
	Platform  PlatformConfig  `yaml:"platform"`
	Relay     RelayConfig     `yaml:"relay"`
	Media     MediaConfig     `yaml:"media"`
	Chat      ChatConfig      `yaml:"chat"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type StoreConfig struct {
	// Backend is "sqlite" or "memory".
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// ProviderConfig points at the avatar rendering provider.
type ProviderConfig struct {
	BaseURL string `yaml:"baseUrl"`
	APIKey  string `yaml:"apiKey"`

	// CatalogTTL bounds how long avatar reference data is cached.
	CatalogTTL Duration `yaml:"catalogTtl"`
}

// PlatformConfig points at the broadcast platform API. Optional; without
// it, platforms that need a provisioned broadcast degrade to relay-only.
type PlatformConfig struct {
	BaseURL string `yaml:"baseUrl"`
	APIKey  string `yaml:"apiKey"`
}

type RelayConfig struct {
	IngestURL     string   `yaml:"ingestUrl"`
	BearerToken   string   `yaml:"bearerToken"`
	STUNServers   []string `yaml:"stunServers"`
	GatherTimeout Duration `yaml:"gatherTimeout"`
}

type MediaConfig struct {
	TrackTimeout       Duration `yaml:"trackTimeout"`
	CaptureSettleDelay Duration `yaml:"captureSettleDelay"`
	OpeningLineDelay   Duration `yaml:"openingLineDelay"`
}

type ChatConfig struct {
	PollInterval  Duration `yaml:"pollInterval"`
	ErrorInterval Duration `yaml:"errorInterval"`
}

// RedisConfig enables the Redis-backed catalog cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`

	// ExporterType selects the OTLP transport, "grpc" or "http".
	ExporterType string `yaml:"exporterType"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:  ":8080",
		DataDir: "./data",
		Log:     LogConfig{Level: "info"},
		Store:   StoreConfig{Backend: "sqlite"},
		Provider: ProviderConfig{
			CatalogTTL: Duration(5 * time.Minute),
		},
		Relay: RelayConfig{
			GatherTimeout: Duration(5 * time.Second),
		},
		Media: MediaConfig{
			TrackTimeout:       Duration(10 * time.Second),
			CaptureSettleDelay: Duration(3 * time.Second),
			OpeningLineDelay:   Duration(2 * time.Second),
		},
		Chat: ChatConfig{
			PollInterval:  Duration(5 * time.Second),
			ErrorInterval: Duration(15 * time.Second),
		},
		Telemetry: TelemetryConfig{ExporterType: "grpc"},
		RateLimit: RateLimitConfig{RequestsPerMinute: 120},
	}
}

// Load merges defaults, the optional YAML file at path and environment
// overrides, then validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. Called by Load; exported for
// callers that assemble a Config by hand.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("config: listen address required")
	}
	switch c.Store.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.Provider.BaseURL == "" {
		return errors.New("config: provider.baseUrl required")
	}
	if err := validURL(c.Provider.BaseURL); err != nil {
		return fmt.Errorf("config: provider.baseUrl: %w", err)
	}
	if c.Platform.BaseURL != "" {
		if err := validURL(c.Platform.BaseURL); err != nil {
			return fmt.Errorf("config: platform.baseUrl: %w", err)
		}
	}
	if c.Relay.IngestURL != "" {
		if err := validURL(c.Relay.IngestURL); err != nil {
			return fmt.Errorf("config: relay.ingestUrl: %w", err)
		}
	}
	if c.Media.TrackTimeout <= 0 {
		return errors.New("config: media.trackTimeout must be positive")
	}
	if c.Chat.PollInterval <= 0 || c.Chat.ErrorInterval <= 0 {
		return errors.New("config: chat intervals must be positive")
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return errors.New("config: rateLimit.requestsPerMinute must be positive")
	}
	switch c.Telemetry.ExporterType {
	case "grpc", "http":
	default:
		return fmt.Errorf("config: unknown telemetry exporter %q", c.Telemetry.ExporterType)
	}
	return nil
}

func validURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
