// Package journal records outbound intents in sqlite for diagnostics. Nothing
// is ever replayed from it; the host remains the system of record.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"blackmarket/internal/logger"
)

// Connection pool configuration
const (
	maxOpenConns    = 4
	maxIdleConns    = 2
	connMaxLifetime = time.Hour
	connMaxIdleTime = time.Minute * 15
	queryTimeout    = time.Second * 10
)

// TimeFormat is fixed width so stored timestamps sort as text.
const TimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Delivery outcomes.
const (
	OutcomeDelivered = "delivered"
	OutcomeDropped   = "dropped"
)

// Entry is one journaled intent.
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Action    string    `json:"action"`
	BodyJSON  string    `json:"body"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store wraps the journal database.
type Store struct {
	db   *sql.DB
	path string
}

// =============================================================================
// CONNECTION AND SETUP
// =============================================================================

// Open connects to the sqlite file at path, retrying a few times, and makes
// sure the schema exists.
func Open(path string) (*Store, error) {
	db, err := openWithRetry(path, 3)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, path: path}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	logger.LogInfo("Intent journal ready at %s", path)
	return s, nil
}

func openWithRetry(dataSourceName string, maxRetries int) (*sql.DB, error) {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		db, err := sql.Open("sqlite", dataSourceName)
		if err != nil {
			lastErr = err
			logger.LogWarn("Journal connection attempt %d failed: %v", attempt, err)
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
			continue
		}

		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxIdleConns)
		db.SetConnMaxLifetime(connMaxLifetime)
		db.SetConnMaxIdleTime(connMaxIdleTime)

		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		err = db.PingContext(ctx)
		cancel()
		if err != nil {
			lastErr = err
			logger.LogWarn("Journal ping attempt %d failed: %v", attempt, err)
			db.Close()
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
			continue
		}

		if err := enablePragmas(db); err != nil {
			logger.LogWarn("Failed to enable some journal optimizations: %v", err)
		}
		return db, nil
	}

	return nil, fmt.Errorf("failed to open journal after %d attempts: %w", maxRetries, lastErr)
}

func enablePragmas(conn *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA temp_store = MEMORY",
	}

	var lastErr error
	for _, pragma := range pragmas {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		_, err := conn.ExecContext(ctx, pragma)
		cancel()

		if err != nil {
			logger.LogWarn("Failed to execute %s: %v", pragma, err)
			lastErr = err
		}
	}
	return lastErr
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// =============================================================================
// SCHEMA
// =============================================================================

const intentTableSchema = `
	CREATE TABLE IF NOT EXISTS intent_journal (
		id TEXT PRIMARY KEY,
		session_id TEXT DEFAULT '',
		action TEXT NOT NULL,
		body_json TEXT DEFAULT '{}',
		outcome TEXT NOT NULL,
		error TEXT DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_intent_created_at ON intent_journal(created_at);
	CREATE INDEX IF NOT EXISTS idx_intent_session ON intent_journal(session_id);`

func (s *Store) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, intentTableSchema); err != nil {
		return fmt.Errorf("failed to create intent_journal table: %w", err)
	}
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Record inserts one entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.BodyJSON == "" {
		e.BodyJSON = "{}"
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const stmt = `
		INSERT INTO intent_journal (id, session_id, action, body_json, outcome, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, stmt,
		e.ID, e.SessionID, e.Action, e.BodyJSON, e.Outcome, e.Error, e.CreatedAt.UTC().Format(TimeFormat))
	if err != nil {
		return fmt.Errorf("record intent %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const query = `
		SELECT id, session_id, action, body_json, outcome, error, created_at
		FROM intent_journal
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent intents: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Action, &e.BodyJSON, &e.Outcome, &e.Error, &created); err != nil {
			return nil, fmt.Errorf("scan intent: %w", err)
		}
		if e.CreatedAt, err = time.Parse(TimeFormat, created); err != nil {
			logger.LogWarn("Bad created_at %q on intent %s: %v", created, e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByOutcome groups the journal by delivery outcome.
func (s *Store) CountByOutcome(ctx context.Context) (map[string]int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM intent_journal GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("count intents: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan intent count: %w", err)
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

// DeleteBefore removes at most limit entries created before cutoff and
// returns how many went.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const stmt = `
		DELETE FROM intent_journal
		WHERE id IN (
			SELECT id FROM intent_journal
			WHERE created_at < ?
			LIMIT ?
		)`

	result, err := s.db.ExecContext(ctx, stmt, cutoff.UTC().Format(TimeFormat), limit)
	if err != nil {
		return 0, fmt.Errorf("delete old intents: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rowsAffected), nil
}
