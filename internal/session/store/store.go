// SPDX-License-Identifier: MIT

// Package store persists LiveSession records.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/avocast/avocast/internal/session/model"
)

var (
	// ErrNotFound is returned when no session with the given ID exists.
	ErrNotFound = errors.New("session store: not found")

	// ErrActiveSessionExists is returned by Create when another session is
	// still in a non-terminal state. At most one session may be starting or
	// live per operator.
	ErrActiveSessionExists = errors.New("session store: an active session already exists")
)

// Store is the persistence boundary for LiveSession records. The orchestrator
// only writes status, timestamps, counters and capability flags through it.
type Store interface {
	// Create inserts a new session record. Fails with ErrActiveSessionExists
	// if a session in a non-terminal state is already present.
	Create(ctx context.Context, s *model.LiveSession) error

	// Get returns the session with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*model.LiveSession, error)

	// Update overwrites the stored record (counters, capability flags).
	Update(ctx context.Context, s *model.LiveSession) error

	// MarkLive sets status=live and stamps the start time.
	MarkLive(ctx context.Context, id string, at time.Time) error

	// MarkEnded sets status=ended and stamps the end time.
	MarkEnded(ctx context.Context, id string, at time.Time) error

	// Delete removes the record. Used when a start sequence fails before the
	// session ever went live.
	Delete(ctx context.Context, id string) error

	// List returns all stored sessions, newest first.
	List(ctx context.Context) ([]*model.LiveSession, error)

	Close() error
}
