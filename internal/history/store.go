// Package history keeps a local SQLite log of conversions for the
// `history` command.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go driver
)

// Status values stored per entry.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Entry is one recorded conversion.
type Entry struct {
	ID          int64
	StartedAt   time.Time
	Input       string
	Output      string
	Encoder     string
	Status      string
	Reason      string // failure label; empty on success
	InputBytes  int64
	OutputBytes int64
	TargetKbps  int // 0 in quality mode
	Attempts    int
	Seconds     float64
}

// Ratio is OutputBytes/InputBytes, or 0 when unknown.
func (e Entry) Ratio() float64 {
	if e.InputBytes <= 0 || e.OutputBytes <= 0 {
		return 0
	}
	return float64(e.OutputBytes) / float64(e.InputBytes)
}

// Store persists entries.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS conversions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		input TEXT NOT NULL,
		output TEXT NOT NULL,
		encoder TEXT NOT NULL,
		status TEXT NOT NULL CHECK(status IN ('ok', 'failed')),
		reason TEXT NOT NULL DEFAULT '',
		input_bytes INTEGER NOT NULL DEFAULT 0,
		output_bytes INTEGER NOT NULL DEFAULT 0,
		target_kbps INTEGER NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL DEFAULT 0,
		seconds REAL NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_conversions_started ON conversions(started_at);
	`)
	return err
}

// Record inserts e and returns its ID.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
	INSERT INTO conversions
		(started_at, input, output, encoder, status, reason, input_bytes, output_bytes, target_kbps, attempts, seconds)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.StartedAt.UTC().Format(time.RFC3339Nano), e.Input, e.Output, e.Encoder, e.Status, e.Reason,
		e.InputBytes, e.OutputBytes, e.TargetKbps, e.Attempts, e.Seconds,
	)
	if err != nil {
		return 0, fmt.Errorf("record conversion: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, started_at, input, output, encoder, status, reason,
		input_bytes, output_bytes, target_kbps, attempts, seconds
	FROM conversions
	ORDER BY started_at DESC, id DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		var started string
		if err := rows.Scan(&e.ID, &started, &e.Input, &e.Output, &e.Encoder, &e.Status, &e.Reason,
			&e.InputBytes, &e.OutputBytes, &e.TargetKbps, &e.Attempts, &e.Seconds); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
			e.StartedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
