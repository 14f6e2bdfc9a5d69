// Package history keeps a SQLite journal of processed rounds. The daemon
// appends a record after every round; the status command reads it back.
// The journal is informational only: round-progress decisions are driven by
// the state package, never by this journal.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Record is one processed round.
type Record struct {
	RunID       string
	Round       int
	Trained     bool
	Outcome     string
	Duration    time.Duration
	ProcessedAt time.Time
}

// Store is the SQLite-backed round journal.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the journal database. Use ":memory:" in tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rounds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		trained INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		duration_seconds REAL NOT NULL,
		processed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rounds_round ON rounds(round);
	CREATE INDEX IF NOT EXISTS idx_rounds_processed_at ON rounds(processed_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records a processed round. The RunID is assigned here if empty.
func (s *Store) Append(ctx context.Context, rec Record) error {
	if rec.RunID == "" {
		rec.RunID = uuid.NewString()
	}
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now()
	}

	trained := 0
	if rec.Trained {
		trained = 1
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO rounds (run_id, round, trained, outcome, duration_seconds, processed_at) VALUES (?, ?, ?, ?, ?, ?)",
		rec.RunID, rec.Round, trained, rec.Outcome, rec.Duration.Seconds(), rec.ProcessedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert round record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, round, trained, outcome, duration_seconds, processed_at FROM rounds ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query round records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var trained int
		var durationSeconds float64
		var processedAt int64
		if err := rows.Scan(&rec.RunID, &rec.Round, &trained, &rec.Outcome, &durationSeconds, &processedAt); err != nil {
			return nil, fmt.Errorf("scan round record: %w", err)
		}
		rec.Trained = trained != 0
		rec.Duration = time.Duration(durationSeconds * float64(time.Second))
		rec.ProcessedAt = time.Unix(processedAt, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}
