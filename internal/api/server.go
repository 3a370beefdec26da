// SPDX-License-Identifier: MIT

// Package api exposes the operator-facing HTTP surface: session lifecycle,
// chat, avatar lookups, health and metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/avocast/avocast/internal/log"
	"github.com/avocast/avocast/internal/session/manager"
	"github.com/avocast/avocast/internal/session/model"
	"github.com/avocast/avocast/internal/types"
)

// SessionService is the orchestration surface the API needs.
// *manager.Orchestrator satisfies it.
type SessionService interface {
	Start(ctx context.Context, avatarID string, platforms []types.PlatformID) (*manager.StartResult, error)
	Stop(ctx context.Context) error
	Speak(ctx context.Context, text string) error
	Status() manager.Status
}

// AvatarCatalog resolves avatar reference data for lookups.
type AvatarCatalog interface {
	Get(ctx context.Context, id string) (*model.Avatar, error)
}

// Config tunes the HTTP server.
type Config struct {
	// RequestsPerMinute caps each client IP. Zero disables rate limiting.
	RequestsPerMinute int
}

// Server wires the handlers to their collaborators.
type Server struct {
	sessions SessionService
	avatars  AvatarCatalog
	cfg      Config
	logger   zerolog.Logger
}

func NewServer(sessions SessionService, avatars AvatarCatalog, cfg Config) *Server {
	return &Server{
		sessions: sessions,
		avatars:  avatars,
		cfg:      cfg,
		logger:   log.WithComponent("api"),
	}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	if s.cfg.RequestsPerMinute > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RequestsPerMinute, time.Minute))
	}

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return otelhttp.NewHandler(next, "avocast-api")
		})

		r.Post("/sessions", s.handleStartSession)
		r.Route("/sessions/current", func(r chi.Router) {
			r.Get("/", s.handleCurrentSession)
			r.Delete("/", s.handleStopSession)
			r.Get("/chat", s.handleChat)
			r.Post("/speak", s.handleSpeak)
		})
		r.Get("/avatars/{id}", s.handleGetAvatar)
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
