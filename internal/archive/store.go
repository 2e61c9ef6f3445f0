// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive records finished research sessions in a SQLite database
// so they can be listed, reloaded, and exported after the process exits.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/deep-research/pkg/types"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned by Get when no session has the requested ID.
var ErrNotFound = errors.New("session not found")

// Store manages the session archive database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the archive database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			state TEXT NOT NULL,
			aborted INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			iterations INTEGER,
			hit_count INTEGER,
			citation_count INTEGER,
			snapshot TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS hits (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			url TEXT NOT NULL,
			title TEXT,
			query TEXT,
			reliability REAL,
			category TEXT,
			backend TEXT,
			PRIMARY KEY (session_id, url)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_hits_url ON hits(url)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save records snap, replacing any earlier record with the same ID.
func (s *Store) Save(ctx context.Context, snap types.SessionSnapshot) error {
	if snap.ID == "" {
		return errors.New("session has no ID")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, snap.ID); err != nil {
		return fmt.Errorf("replacing session %s: %w", snap.ID, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, query, state, aborted, started_at, finished_at, iterations, hit_count, citation_count, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Query, string(snap.State), boolToInt(snap.Aborted),
		formatTime(snap.StartedAt), formatTime(snap.FinishedAt),
		snap.Iterations, len(snap.Hits), len(snap.Citations), string(data),
	)
	if err != nil {
		return fmt.Errorf("inserting session %s: %w", snap.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO hits (session_id, position, url, title, query, reliability, category, backend)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing hit insert: %w", err)
	}
	defer stmt.Close()
	for i, h := range snap.Hits {
		if _, err := stmt.ExecContext(ctx, snap.ID, i, h.URL, h.Title, h.Query, h.Reliability, string(h.Category), h.Backend); err != nil {
			return fmt.Errorf("inserting hit %s: %w", h.URL, err)
		}
	}

	return tx.Commit()
}

// Summary is the listing view of an archived session.
type Summary struct {
	ID            string      `json:"id" yaml:"id"`
	Query         string      `json:"query" yaml:"query"`
	State         types.State `json:"state" yaml:"state"`
	Aborted       bool        `json:"aborted" yaml:"aborted"`
	StartedAt     time.Time   `json:"started_at" yaml:"started_at"`
	Iterations    int         `json:"iterations" yaml:"iterations"`
	HitCount      int         `json:"hit_count" yaml:"hit_count"`
	CitationCount int         `json:"citation_count" yaml:"citation_count"`
}

// ListOptions filters List and Export.
type ListOptions struct {
	// Query keeps sessions whose query contains this text.
	Query string

	// URL keeps sessions that collected a hit with this exact URL.
	URL string

	// Limit caps the number of sessions. Zero means no limit.
	Limit int
}

// List returns matching sessions, most recent first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT id, query, state, aborted, started_at, iterations, hit_count, citation_count FROM sessions`)

	var where []string
	if opts.Query != "" {
		where = append(where, `query LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(opts.Query)+"%")
	}
	if opts.URL != "" {
		where = append(where, `id IN (SELECT session_id FROM hits WHERE url = ?)`)
		args = append(args, opts.URL)
	}
	if len(where) > 0 {
		qb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	qb.WriteString(" ORDER BY started_at DESC, id")
	if opts.Limit > 0 {
		qb.WriteString(" LIMIT ?")
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var (
			sum     Summary
			state   string
			aborted int
			started string
		)
		if err := rows.Scan(&sum.ID, &sum.Query, &state, &aborted, &started, &sum.Iterations, &sum.HitCount, &sum.CitationCount); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sum.State = types.State(state)
		sum.Aborted = aborted != 0
		sum.StartedAt, _ = time.Parse(timeLayout, started)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Get reloads the full snapshot of session id.
func (s *Store) Get(ctx context.Context, id string) (types.SessionSnapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM sessions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return types.SessionSnapshot{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.SessionSnapshot{}, fmt.Errorf("loading session %s: %w", id, err)
	}

	var snap types.SessionSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return types.SessionSnapshot{}, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return snap, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
