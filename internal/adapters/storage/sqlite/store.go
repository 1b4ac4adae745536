// Package sqlite is a session.Backend on top of SQLite (modernc.org/sqlite,
// no cgo). Unlike the memory store it survives restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/PabloGalante/arcana/internal/domain"
	"github.com/PabloGalante/arcana/internal/session"
)

// Store implements session.Backend using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens dsn and applies migrations.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		`CREATE TABLE IF NOT EXISTS sessions (
			guild_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			version INTEGER NOT NULL,
			payload TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (guild_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(m), err)
		}
	}
	return nil
}

func (s *Store) Load(ctx context.Context, key domain.SessionKey) (domain.Record, int64, error) {
	var (
		version int64
		payload string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT version, payload FROM sessions WHERE guild_id = ? AND user_id = ?`,
		string(key.GuildID), string(key.UserID),
	).Scan(&version, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, 0, nil
	}
	if err != nil {
		return domain.Record{}, 0, fmt.Errorf("sqlite load: %w", err)
	}

	var rec domain.Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return domain.Record{}, 0, fmt.Errorf("sqlite decode record: %w", err)
	}
	return rec, version, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, key domain.SessionKey, version int64, rec domain.Record) (bool, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("sqlite encode record: %w", err)
	}

	// versions come from the clock, so a row recreated after Delete starts
	// above anything issued before it
	next := session.NextVersion(version)

	var res sql.Result
	if version == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO sessions (guild_id, user_id, version, payload, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (guild_id, user_id) DO NOTHING`,
			string(key.GuildID), string(key.UserID), next, string(payload), toMillis(rec.UpdatedAt),
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE sessions SET version = ?, payload = ?, updated_at = ?
			 WHERE guild_id = ? AND user_id = ? AND version = ?`,
			next, string(payload), toMillis(rec.UpdatedAt), string(key.GuildID), string(key.UserID), version,
		)
	}
	if err != nil {
		return false, fmt.Errorf("sqlite compare-and-swap: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *Store) Delete(ctx context.Context, key domain.SessionKey) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE guild_id = ? AND user_id = ?`,
		string(key.GuildID), string(key.UserID),
	)
	if err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	return nil
}

// DeleteIdle removes sessions last updated before the cutoff.
func (s *Store) DeleteIdle(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, toMillis(before))
	if err != nil {
		return 0, fmt.Errorf("sqlite delete idle: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite rows affected: %w", err)
	}
	return int(n), nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
