// SPDX-License-Identifier: MIT
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avocast/avocast/internal/session/model"
	"github.com/avocast/avocast/internal/types"
)

// MemoryStore is an in-memory Store for tests and throwaway deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.LiveSession
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*model.LiveSession)}
}

func clone(s *model.LiveSession) *model.LiveSession {
	cp := *s
	cp.Platforms = append(cp.Platforms[:0:0], s.Platforms...)
	if s.EndedAt != nil {
		at := *s.EndedAt
		cp.EndedAt = &at
	}
	return &cp
}

func (m *MemoryStore) Create(_ context.Context, s *model.LiveSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sessions {
		if existing.Status.IsActive() {
			return ErrActiveSessionExists
		}
	}
	m.sessions[s.ID] = clone(s)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*model.LiveSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

func (m *MemoryStore) Update(_ context.Context, s *model.LiveSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return ErrNotFound
	}
	m.sessions[s.ID] = clone(s)
	return nil
}

func (m *MemoryStore) MarkLive(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = types.SessionStateLive
	s.StartedAt = at
	return nil
}

func (m *MemoryStore) MarkEnded(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = types.SessionStateEnded
	s.EndedAt = &at
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]*model.LiveSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.LiveSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, clone(s))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
