// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/avocast/avocast/internal/api"
	"github.com/avocast/avocast/internal/avatar"
	"github.com/avocast/avocast/internal/avatar/catalog"
	"github.com/avocast/avocast/internal/broadcast"
	"github.com/avocast/avocast/internal/cache"
	"github.com/avocast/avocast/internal/chat"
	"github.com/avocast/avocast/internal/config"
	avlog "github.com/avocast/avocast/internal/log"
	"github.com/avocast/avocast/internal/media/capture"
	"github.com/avocast/avocast/internal/media/receiver"
	"github.com/avocast/avocast/internal/session/manager"
	"github.com/avocast/avocast/internal/session/store"
	"github.com/avocast/avocast/internal/telemetry"
	"github.com/avocast/avocast/internal/types"
	"github.com/avocast/avocast/internal/whip"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("avocastd %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "avocastd: %v\n", err)
		os.Exit(1)
	}

	avlog.Configure(avlog.Config{
		Level:   cfg.Log.Level,
		Service: "avocast",
	})
	logger := avlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("daemon exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	tracing, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "avocast",
		ServiceVersion: version,
		ExporterType:   cfg.Telemetry.ExporterType,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   1.0,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	storePath := cfg.Store.Path
	if storePath == "" {
		storePath = filepath.Join(cfg.DataDir, "avocast.db")
	}
	st, err := store.Open(cfg.Store.Backend, storePath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("store close failed")
		}
	}()

	cat, err := buildCatalog(cfg)
	if err != nil {
		return err
	}

	recv := receiver.New(
		receiver.WithTrackTimeout(cfg.Media.TrackTimeout.Std()),
		receiver.WithNotice(func(msg string) {
			logger.Warn().Str("component", "receiver").Msg(msg)
		}),
	)

	orch := &manager.Orchestrator{
		Store:              st,
		Avatars:            cat,
		Provider:           avatar.New(cfg.Provider.BaseURL, cfg.Provider.APIKey),
		Receiver:           recv,
		Capture:            captureSource{adapter: capture.New(recv)},
		Relay:              relaySource{negotiator: buildNegotiator(cfg)},
		IngestURL:          cfg.Relay.IngestURL,
		CaptureSettleDelay: cfg.Media.CaptureSettleDelay.Std(),
		OpeningLineDelay:   cfg.Media.OpeningLineDelay.Std(),
	}

	if cfg.Platform.BaseURL != "" {
		bc := broadcast.New(cfg.Platform.BaseURL, cfg.Platform.APIKey)
		orch.Broadcast = bc
		orch.Chat = chat.New(bc, types.PlatformYouTube,
			chat.WithIntervals(cfg.Chat.PollInterval.Std(), cfg.Chat.ErrorInterval.Std()))
	} else {
		logger.Info().Msg("no platform API configured, broadcast provisioning disabled")
	}

	if err := orch.Init(); err != nil {
		return fmt.Errorf("init orchestrator: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.NewServer(orch, cat, api.Config{RequestsPerMinute: cfg.RateLimit.RequestsPerMinute}).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("listen", cfg.Listen).Str("version", version).Msg("avocastd started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := orch.Stop(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("session teardown during shutdown failed")
		}
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func buildCatalog(cfg config.Config) (*catalog.Catalog, error) {
	opts := []catalog.Option{catalog.WithTTL(cfg.Provider.CatalogTTL.Std())}
	if cfg.Redis.Addr != "" {
		c, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, avlog.WithComponent("cache"))
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		opts = append(opts, catalog.WithCache(c))
	} else {
		opts = append(opts, catalog.WithCache(cache.NewMemoryCache(time.Minute)))
	}
	return catalog.New(cfg.Provider.BaseURL, cfg.Provider.APIKey, opts...), nil
}

func buildNegotiator(cfg config.Config) *whip.Negotiator {
	opts := []whip.Option{whip.WithGatherTimeout(cfg.Relay.GatherTimeout.Std())}
	if cfg.Relay.BearerToken != "" {
		opts = append(opts, whip.WithBearerToken(cfg.Relay.BearerToken))
	}
	if len(cfg.Relay.STUNServers) > 0 {
		opts = append(opts, whip.WithICEServers([]webrtc.ICEServer{{URLs: cfg.Relay.STUNServers}}))
	}
	return whip.New(opts...)
}
