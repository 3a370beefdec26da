// SPDX-License-Identifier: MIT

// Package model defines the persisted and in-flight records of a live
// broadcast session.
package model

import (
	"time"

	"github.com/avocast/avocast/internal/types"
)

// LiveSession is the persisted record of one broadcast session.
// Created in "starting" state; deleted outright if the start sequence fails
// before going live (a session that never went live must not persist).
type LiveSession struct {
	ID        string             `json:"id"`
	AvatarID  string             `json:"avatar_id"`
	Platforms []types.PlatformID `json:"platforms"`
	Status    types.SessionState `json:"status"`
	StartedAt time.Time          `json:"started_at"`
	EndedAt   *time.Time         `json:"ended_at,omitempty"`

	ViewerCount  int `json:"viewer_count"`
	CommentCount int `json:"comment_count"`

	// Capability flags for degraded starts.
	RelayActive     bool `json:"relay_active"`
	BroadcastActive bool `json:"broadcast_active"`
}

// HasPlatform reports whether the session targets the given platform.
func (s *LiveSession) HasPlatform(id types.PlatformID) bool {
	for _, p := range s.Platforms {
		if p == id {
			return true
		}
	}
	return false
}

// Avatar is read-only reference data owned by the external catalog.
type Avatar struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	OpeningLine  string `json:"opening_line,omitempty"`
	ClosingLine  string `json:"closing_line,omitempty"`
}

// BroadcastResource holds the externally issued identifiers of one remote
// live event. Its lifetime is strictly bounded by the owning LiveSession.
type BroadcastResource struct {
	BroadcastID   string `json:"broadcast_id"`
	StreamID      string `json:"stream_id"`
	IngestURL     string `json:"ingest_url"`
	StreamKey     string `json:"stream_key"`
	WatchURL      string `json:"watch_url"`
	ChatChannelID string `json:"chat_channel_id,omitempty"`
}
