// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnv overlays AVOCAST_* environment variables onto cfg.
func applyEnv(cfg *Config) {
	setString(&cfg.Listen, "AVOCAST_LISTEN")
	setString(&cfg.DataDir, "AVOCAST_DATA_DIR")
	setString(&cfg.Log.Level, "AVOCAST_LOG_LEVEL")

	setString(&cfg.Store.Backend, "AVOCAST_STORE_BACKEND")
	setString(&cfg.Store.Path, "AVOCAST_STORE_PATH")

	setString(&cfg.Provider.BaseURL, "AVOCAST_PROVIDER_BASE_URL")
	setString(&cfg.Provider.APIKey, "AVOCAST_PROVIDER_API_KEY")
	setDuration(&cfg.Provider.CatalogTTL, "AVOCAST_PROVIDER_CATALOG_TTL")

	setString(&cfg.Platform.BaseURL, "AVOCAST_PLATFORM_BASE_URL")
	setString(&cfg.Platform.APIKey, "AVOCAST_PLATFORM_API_KEY")

	setString(&cfg.Relay.IngestURL, "AVOCAST_RELAY_INGEST_URL")
	setString(&cfg.Relay.BearerToken, "AVOCAST_RELAY_BEARER_TOKEN")
	setStrings(&cfg.Relay.STUNServers, "AVOCAST_RELAY_STUN_SERVERS")
	setDuration(&cfg.Relay.GatherTimeout, "AVOCAST_RELAY_GATHER_TIMEOUT")

	setDuration(&cfg.Media.TrackTimeout, "AVOCAST_MEDIA_TRACK_TIMEOUT")
	setDuration(&cfg.Media.CaptureSettleDelay, "AVOCAST_MEDIA_CAPTURE_SETTLE_DELAY")
	setDuration(&cfg.Media.OpeningLineDelay, "AVOCAST_MEDIA_OPENING_LINE_DELAY")

	setDuration(&cfg.Chat.PollInterval, "AVOCAST_CHAT_POLL_INTERVAL")
	setDuration(&cfg.Chat.ErrorInterval, "AVOCAST_CHAT_ERROR_INTERVAL")

	setString(&cfg.Redis.Addr, "AVOCAST_REDIS_ADDR")
	setString(&cfg.Redis.Password, "AVOCAST_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "AVOCAST_REDIS_DB")

	setBool(&cfg.Telemetry.Enabled, "AVOCAST_TELEMETRY_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "AVOCAST_TELEMETRY_ENDPOINT")
	setString(&cfg.Telemetry.ExporterType, "AVOCAST_TELEMETRY_EXPORTER")

	setInt(&cfg.RateLimit.RequestsPerMinute, "AVOCAST_RATE_LIMIT_RPM")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setStrings(dst *[]string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		out := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = Duration(d)
		}
	}
}
