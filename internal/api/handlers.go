// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/avocast/avocast/internal/avatar/catalog"
	"github.com/avocast/avocast/internal/session/manager"
	"github.com/avocast/avocast/internal/types"
)

type startSessionRequest struct {
	AvatarID  string   `json:"avatar_id"`
	Platforms []string `json:"platforms"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	platforms := make([]types.PlatformID, 0, len(req.Platforms))
	for _, raw := range req.Platforms {
		p, err := types.ParsePlatformID(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		platforms = append(platforms, p)
	}

	res, err := s.sessions.Start(r.Context(), req.AvatarID, platforms)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, res)
	case errors.Is(err, manager.ErrSessionActive):
		writeError(w, http.StatusConflict, "a session is already active")
	case errors.Is(err, manager.ErrAvatarRequired), errors.Is(err, manager.ErrNoPlatforms):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("session start failed")
		writeError(w, http.StatusBadGateway, "session start failed: "+err.Error())
	}
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Status())
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Stop(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("session stop failed")
		writeError(w, http.StatusInternalServerError, "session stop failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	st := s.sessions.Status()

	comments := st.Comments
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if limit < len(comments) {
			comments = comments[len(comments)-limit:]
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":    st.State,
		"comments": comments,
	})
}

type speakRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "text required")
		return
	}

	err := s.sessions.Speak(r.Context(), req.Text)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
	case errors.Is(err, manager.ErrNoActiveSession):
		writeError(w, http.StatusConflict, "no active session")
	default:
		s.logger.Error().Err(err).Msg("speak failed")
		writeError(w, http.StatusBadGateway, "speak failed")
	}
}

func (s *Server) handleGetAvatar(w http.ResponseWriter, r *http.Request) {
	if s.avatars == nil {
		writeError(w, http.StatusNotFound, "avatar catalog not configured")
		return
	}
	id := chi.URLParam(r, "id")

	av, err := s.avatars.Get(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, av)
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "avatar not found")
	default:
		s.logger.Warn().Err(err).Str("avatar_id", id).Msg("avatar lookup failed")
		writeError(w, http.StatusBadGateway, "avatar lookup failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
