//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"autokit/pkg/logx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS job_checkpoint (
    name         TEXT PRIMARY KEY,
    last_run     TEXT,
    last_outcome TEXT NOT NULL DEFAULT 'never_run',
    run_count    INTEGER NOT NULL DEFAULT 0
);
`

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Load(ctx context.Context) (map[string]JobState, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name, last_run, last_outcome, run_count FROM job_checkpoint`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := map[string]JobState{}
	for rows.Next() {
		var (
			name    string
			lastRun sql.NullString
			outcome string
			count   int
		)
		if err := rows.Scan(&name, &lastRun, &outcome, &count); err != nil {
			return nil, err
		}
		st := JobState{LastOutcome: outcome, RunCount: count}
		if lastRun.Valid && lastRun.String != "" {
			t, err := time.Parse(time.RFC3339Nano, lastRun.String)
			if err == nil {
				st.LastRun = t
			}
		}
		states[name] = st
	}
	return states, rows.Err()
}

func (s *sqliteStore) Save(ctx context.Context, states map[string]JobState) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Full replace: the checkpoint is a snapshot, and jobs removed from the
	// config should not linger.
	if _, err := tx.ExecContext(ctx, `DELETE FROM job_checkpoint`); err != nil {
		return err
	}
	for name, st := range states {
		var lastRun any
		if !st.LastRun.IsZero() {
			lastRun = st.LastRun.Format(time.RFC3339Nano)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO job_checkpoint(name, last_run, last_outcome, run_count) VALUES(?,?,?,?)`,
			name, lastRun, st.LastOutcome, st.RunCount,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}
