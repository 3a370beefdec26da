// SPDX-License-Identifier: MIT
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avocast/avocast/internal/persistence/sqlite"
	"github.com/avocast/avocast/internal/session/model"
	"github.com/avocast/avocast/internal/types"
)

const schemaVersion = 1

// SqliteStore implements Store using SQLite.
type SqliteStore struct {
	DB *sql.DB
}

// NewSqliteStore initializes a new SQLite session store.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	s := &SqliteStore{DB: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session store: migration failed: %w", err)
	}

	return s, nil
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}

func (s *SqliteStore) migrate() error {
	var currentVersion int
	if err := s.DB.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS live_sessions (
		session_id TEXT PRIMARY KEY,
		avatar_id TEXT NOT NULL,
		platforms_json TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at_ms INTEGER NOT NULL,
		ended_at_ms INTEGER,
		viewer_count INTEGER NOT NULL DEFAULT 0,
		comment_count INTEGER NOT NULL DEFAULT 0,
		relay_active INTEGER NOT NULL DEFAULT 0,
		broadcast_active INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_live_sessions_status ON live_sessions(status);
	CREATE INDEX IF NOT EXISTS idx_live_sessions_started ON live_sessions(started_at_ms);
	`

	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SqliteStore) Create(ctx context.Context, sess *model.LiveSession) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM live_sessions WHERE status IN ('starting','live','stopping')`,
	).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrActiveSessionExists
	}

	platforms, err := json.Marshal(sess.Platforms)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO live_sessions
			(session_id, avatar_id, platforms_json, status, started_at_ms, ended_at_ms,
			 viewer_count, comment_count, relay_active, broadcast_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.AvatarID, string(platforms), string(sess.Status),
		sess.StartedAt.UnixMilli(), endedMs(sess.EndedAt),
		sess.ViewerCount, sess.CommentCount, boolInt(sess.RelayActive), boolInt(sess.BroadcastActive),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SqliteStore) Get(ctx context.Context, id string) (*model.LiveSession, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT session_id, avatar_id, platforms_json, status, started_at_ms, ended_at_ms,
		       viewer_count, comment_count, relay_active, broadcast_active
		FROM live_sessions WHERE session_id = ?`, id)
	return scanSession(row)
}

func (s *SqliteStore) Update(ctx context.Context, sess *model.LiveSession) error {
	platforms, err := json.Marshal(sess.Platforms)
	if err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `
		UPDATE live_sessions SET
			avatar_id = ?, platforms_json = ?, status = ?, started_at_ms = ?, ended_at_ms = ?,
			viewer_count = ?, comment_count = ?, relay_active = ?, broadcast_active = ?
		WHERE session_id = ?`,
		sess.AvatarID, string(platforms), string(sess.Status),
		sess.StartedAt.UnixMilli(), endedMs(sess.EndedAt),
		sess.ViewerCount, sess.CommentCount, boolInt(sess.RelayActive), boolInt(sess.BroadcastActive),
		sess.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SqliteStore) MarkLive(ctx context.Context, id string, at time.Time) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE live_sessions SET status = ?, started_at_ms = ? WHERE session_id = ?`,
		string(types.SessionStateLive), at.UnixMilli(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SqliteStore) MarkEnded(ctx context.Context, id string, at time.Time) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE live_sessions SET status = ?, ended_at_ms = ? WHERE session_id = ?`,
		string(types.SessionStateEnded), at.UnixMilli(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SqliteStore) Delete(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM live_sessions WHERE session_id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SqliteStore) List(ctx context.Context) ([]*model.LiveSession, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT session_id, avatar_id, platforms_json, status, started_at_ms, ended_at_ms,
		       viewer_count, comment_count, relay_active, broadcast_active
		FROM live_sessions ORDER BY started_at_ms DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.LiveSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*model.LiveSession, error) {
	var (
		sess          model.LiveSession
		platformsJSON string
		status        string
		startedMs     int64
		endedAtMs     sql.NullInt64
		relay, bcast  int
	)
	err := row.Scan(&sess.ID, &sess.AvatarID, &platformsJSON, &status, &startedMs, &endedAtMs,
		&sess.ViewerCount, &sess.CommentCount, &relay, &bcast)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(platformsJSON), &sess.Platforms); err != nil {
		return nil, fmt.Errorf("session store: corrupt platforms column: %w", err)
	}
	sess.Status = types.SessionState(status)
	sess.StartedAt = time.UnixMilli(startedMs)
	if endedAtMs.Valid {
		at := time.UnixMilli(endedAtMs.Int64)
		sess.EndedAt = &at
	}
	sess.RelayActive = relay != 0
	sess.BroadcastActive = bcast != 0
	return &sess, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func endedMs(at *time.Time) any {
	if at == nil {
		return nil
	}
	return at.UnixMilli()
}
