// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "avocast.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWithFile(t *testing.T) {
	path := writeConfig(t, `
provider:
  baseUrl: "https://provider.example"
  apiKey: "sk-test"
platform:
  baseUrl: "https://platform.example"
relay:
  ingestUrl: "https://relay.example/whip"
media:
  captureSettleDelay: 250ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Listen)
	require.Equal(t, "sqlite", cfg.Store.Backend)
	require.Equal(t, "https://provider.example", cfg.Provider.BaseURL)
	require.Equal(t, "sk-test", cfg.Provider.APIKey)
	require.Equal(t, 250*time.Millisecond, cfg.Media.CaptureSettleDelay.Std())
	require.Equal(t, 10*time.Second, cfg.Media.TrackTimeout.Std())
	require.Equal(t, 5*time.Second, cfg.Chat.PollInterval.Std())
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("AVOCAST_PROVIDER_BASE_URL", "https://provider.example")

	cfg, err := Load("")
	require.NoError(t, err)

	want := Default()
	want.Provider.BaseURL = "https://provider.example"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
listen: ":9999"
provider:
  baseUrl: "https://file.example"
store:
  backend: memory
`)
	t.Setenv("AVOCAST_LISTEN", ":7070")
	t.Setenv("AVOCAST_PROVIDER_BASE_URL", "https://env.example")
	t.Setenv("AVOCAST_MEDIA_TRACK_TIMEOUT", "3s")
	t.Setenv("AVOCAST_RELAY_STUN_SERVERS", "stun:a.example:3478, stun:b.example:3478")
	t.Setenv("AVOCAST_TELEMETRY_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, ":7070", cfg.Listen)
	require.Equal(t, "https://env.example", cfg.Provider.BaseURL)
	require.Equal(t, "memory", cfg.Store.Backend)
	require.Equal(t, 3*time.Second, cfg.Media.TrackTimeout.Std())
	require.Equal(t, []string{"stun:a.example:3478", "stun:b.example:3478"}, cfg.Relay.STUNServers)
	require.True(t, cfg.Telemetry.Enabled)
}

func TestTelemetryExporter(t *testing.T) {
	t.Setenv("AVOCAST_PROVIDER_BASE_URL", "https://provider.example")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "grpc", cfg.Telemetry.ExporterType)

	t.Setenv("AVOCAST_TELEMETRY_EXPORTER", "http")
	cfg, err = Load("")
	require.NoError(t, err)
	require.Equal(t, "http", cfg.Telemetry.ExporterType)
}

func TestLoadRejectsMissingProvider(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "provider.baseUrl")
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"bad backend", "provider:\n  baseUrl: https://p.example\nstore:\n  backend: etcd\n"},
		{"bad provider scheme", "provider:\n  baseUrl: ftp://p.example\n"},
		{"bad platform url", "provider:\n  baseUrl: https://p.example\nplatform:\n  baseUrl: '::bad'\n"},
		{"bad ingest url", "provider:\n  baseUrl: https://p.example\nrelay:\n  ingestUrl: 'not a url'\n"},
		{"bad telemetry exporter", "provider:\n  baseUrl: https://p.example\ntelemetry:\n  exporterType: udp\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
