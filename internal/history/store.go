// Package history keeps a local SQLite log of phase transitions. It exists
// for operators (status --log, post-mortems); the workflow never reads it,
// so the forge's labels stay the only source of truth.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS phase_transitions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	issue_number INTEGER NOT NULL,
	phase        TEXT NOT NULL,
	from_label   TEXT NOT NULL,
	to_label     TEXT NOT NULL,
	execution_id TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_transitions_issue ON phase_transitions(issue_number);
`

// Entry is one recorded phase transition.
type Entry struct {
	ID          int64
	IssueNumber int
	Phase       string
	FromLabel   string
	ToLabel     string
	ExecutionID string
	CreatedAt   time.Time
}

// Store is the transition history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordTransition appends one transition.
func (s *Store) RecordTransition(ctx context.Context, issueNumber int, phase, from, to, executionID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO phase_transitions (issue_number, phase, from_label, to_label, execution_id)
		 VALUES (?, ?, ?, ?, ?)`,
		issueNumber, phase, from, to, executionID)
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return nil
}

// Recent returns the latest n transitions, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, issue_number, phase, from_label, to_label, execution_id, created_at
		 FROM phase_transitions ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.IssueNumber, &e.Phase, &e.FromLabel, &e.ToLabel, &e.ExecutionID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ForIssue returns the transitions of one issue, oldest first.
func (s *Store) ForIssue(ctx context.Context, issueNumber int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, issue_number, phase, from_label, to_label, execution_id, created_at
		 FROM phase_transitions WHERE issue_number = ? ORDER BY id ASC`, issueNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.IssueNumber, &e.Phase, &e.FromLabel, &e.ToLabel, &e.ExecutionID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
