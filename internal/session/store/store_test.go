// SPDX-License-Identifier: MIT
package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avocast/avocast/internal/session/model"
	"github.com/avocast/avocast/internal/types"
)

func newSession(id string) *model.LiveSession {
	return &model.LiveSession{
		ID:        id,
		AvatarID:  "avatar-1",
		Platforms: []types.PlatformID{types.PlatformYouTube, types.PlatformTikTok},
		Status:    types.SessionStateStarting,
		StartedAt: time.Now().Truncate(time.Millisecond),
	}
}

// runStoreSuite exercises the Store contract against any backend.
func runStoreSuite(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		s := open(t)
		defer func() { _ = s.Close() }()

		want := newSession("sess-1")
		require.NoError(t, s.Create(ctx, want))

		got, err := s.Get(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.AvatarID, got.AvatarID)
		assert.Equal(t, want.Platforms, got.Platforms)
		assert.Equal(t, types.SessionStateStarting, got.Status)
		assert.Nil(t, got.EndedAt)
	})

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		s := open(t)
		defer func() { _ = s.Close() }()

		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("second active session rejected", func(t *testing.T) {
		s := open(t)
		defer func() { _ = s.Close() }()

		require.NoError(t, s.Create(ctx, newSession("sess-1")))
		err := s.Create(ctx, newSession("sess-2"))
		assert.ErrorIs(t, err, ErrActiveSessionExists)
	})

	t.Run("new session allowed after previous ended", func(t *testing.T) {
		s := open(t)
		defer func() { _ = s.Close() }()

		require.NoError(t, s.Create(ctx, newSession("sess-1")))
		require.NoError(t, s.MarkEnded(ctx, "sess-1", time.Now()))
		assert.NoError(t, s.Create(ctx, newSession("sess-2")))
	})

	t.Run("mark live then ended", func(t *testing.T) {
		s := open(t)
		defer func() { _ = s.Close() }()

		require.NoError(t, s.Create(ctx, newSession("sess-1")))

		liveAt := time.Now().Truncate(time.Millisecond)
		require.NoError(t, s.MarkLive(ctx, "sess-1", liveAt))

		got, err := s.Get(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, types.SessionStateLive, got.Status)

		endAt := liveAt.Add(time.Minute)
		require.NoError(t, s.MarkEnded(ctx, "sess-1", endAt))

		got, err = s.Get(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, types.SessionStateEnded, got.Status)
		require.NotNil(t, got.EndedAt)
		assert.Equal(t, endAt.UnixMilli(), got.EndedAt.UnixMilli())
	})

	t.Run("update counters and flags", func(t *testing.T) {
		s := open(t)
		defer func() { _ = s.Close() }()

		sess := newSession("sess-1")
		require.NoError(t, s.Create(ctx, sess))

		sess.CommentCount = 7
		sess.RelayActive = true
		require.NoError(t, s.Update(ctx, sess))

		got, err := s.Get(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, 7, got.CommentCount)
		assert.True(t, got.RelayActive)
		assert.False(t, got.BroadcastActive)
	})

	t.Run("delete removes record", func(t *testing.T) {
		s := open(t)
		defer func() { _ = s.Close() }()

		require.NoError(t, s.Create(ctx, newSession("sess-1")))
		require.NoError(t, s.Delete(ctx, "sess-1"))

		_, err := s.Get(ctx, "sess-1")
		assert.ErrorIs(t, err, ErrNotFound)

		assert.ErrorIs(t, s.Delete(ctx, "sess-1"), ErrNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		s := open(t)
		defer func() { _ = s.Close() }()

		old := newSession("sess-old")
		old.StartedAt = time.Now().Add(-time.Hour)
		require.NoError(t, s.Create(ctx, old))
		require.NoError(t, s.MarkEnded(ctx, "sess-old", time.Now().Add(-30*time.Minute)))

		require.NoError(t, s.Create(ctx, newSession("sess-new")))

		all, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "sess-new", all[0].ID)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestSqliteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := NewSqliteStore(filepath.Join(t.TempDir(), "sessions.db"))
		require.NoError(t, err)
		return s
	})
}

func TestFactory(t *testing.T) {
	s, err := Open("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open("sqlite", filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	assert.IsType(t, &SqliteStore{}, s)
	_ = s.Close()

	_, err = Open("bolt", "")
	assert.Error(t, err)
}
