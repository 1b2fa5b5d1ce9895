// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides session/turn/escalation persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			session_key TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			session_key TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL,

			FOREIGN KEY (session_key) REFERENCES sessions(session_key),
			CHECK (role IN ('user', 'assistant'))
		);

		CREATE INDEX IF NOT EXISTS idx_turns_session_created
			ON turns(session_key, created_at);

		CREATE TABLE IF NOT EXISTS escalations (
			id TEXT PRIMARY KEY,
			session_key TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			message TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'open',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,

			CHECK (status IN ('open', 'in-progress', 'closed'))
		);

		CREATE INDEX IF NOT EXISTS idx_escalations_created
			ON escalations(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// GetOrCreateSession returns the session for key, creating an empty one if
// it has not been seen before. The returned session includes ordered turns.
func (s *SQLiteStore) GetOrCreateSession(ctx context.Context, key string) (*Session, error) {
	session, err := s.GetSession(ctx, key)
	if err == nil {
		return session, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO sessions (session_key, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(session_key) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query,
		key,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	); err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}

	s.logger.Debug("created session", "session_key", key)

	// Re-read so a concurrent creator's row wins over our in-memory view
	return s.GetSession(ctx, key)
}

// GetSession retrieves a session and its ordered turns.
// Returns ErrNotFound if the session key has never been seen.
func (s *SQLiteStore) GetSession(ctx context.Context, key string) (*Session, error) {
	query := `
		SELECT session_key, created_at, updated_at
		FROM sessions
		WHERE session_key = ?
	`

	var session Session
	var createdAtStr, updatedAtStr string

	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&session.SessionKey,
		&createdAtStr,
		&updatedAtStr,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	session.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	turns, err := s.getTurns(ctx, key)
	if err != nil {
		return nil, err
	}
	session.Turns = turns

	return &session, nil
}

// getTurns returns all turns for a session in insertion order. Ordering by
// rowid rather than created_at: the timestamps are RFC3339Nano text, whose
// lexicographic order diverges from chronological order within a second.
func (s *SQLiteStore) getTurns(ctx context.Context, key string) ([]*Turn, error) {
	query := `
		SELECT id, session_key, role, content, created_at
		FROM turns
		WHERE session_key = ?
		ORDER BY rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []*Turn
	for rows.Next() {
		var turn Turn
		var createdAtStr string

		if err := rows.Scan(
			&turn.ID,
			&turn.SessionKey,
			&turn.Role,
			&turn.Content,
			&createdAtStr,
		); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}

		turn.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing turn created_at: %w", err)
		}

		turns = append(turns, &turn)
	}

	return turns, rows.Err()
}

// AppendTurn durably appends a turn to the session transcript.
// The session row's updated_at is bumped in the same call.
func (s *SQLiteStore) AppendTurn(ctx context.Context, key, role, content string) (*Turn, error) {
	turn := &Turn{
		ID:         uuid.New().String(),
		SessionKey: key,
		Role:       role,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}

	query := `
		INSERT INTO turns (id, session_key, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		turn.ID,
		turn.SessionKey,
		turn.Role,
		turn.Content,
		turn.CreatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("inserting turn: %w", err)
	}

	bump := `UPDATE sessions SET updated_at = ? WHERE session_key = ?`
	if _, err := s.db.ExecContext(ctx, bump,
		turn.CreatedAt.Format(time.RFC3339),
		key,
	); err != nil {
		return nil, fmt.Errorf("updating session timestamp: %w", err)
	}

	s.logger.Debug("appended turn", "session_key", key, "role", role, "turn_id", turn.ID)
	return turn, nil
}

// CreateEscalation inserts a new escalation record.
// The UNIQUE constraint on session_key is the source of truth for the
// at-most-one invariant; ErrDuplicateEscalation is returned on violation.
func (s *SQLiteStore) CreateEscalation(ctx context.Context, esc *Escalation) error {
	if esc.ID == "" {
		esc.ID = uuid.New().String()
	}
	if esc.Status == "" {
		esc.Status = EscalationStatusOpen
	}
	now := time.Now().UTC()
	if esc.CreatedAt.IsZero() {
		esc.CreatedAt = now
	}
	if esc.UpdatedAt.IsZero() {
		esc.UpdatedAt = now
	}

	query := `
		INSERT INTO escalations (id, session_key, name, email, message, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		esc.ID,
		esc.SessionKey,
		esc.Name,
		strings.ToLower(strings.TrimSpace(esc.Email)),
		esc.Message,
		esc.Status,
		esc.CreatedAt.Format(time.RFC3339),
		esc.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateEscalation
		}
		return fmt.Errorf("inserting escalation: %w", err)
	}

	s.logger.Debug("created escalation", "session_key", esc.SessionKey, "id", esc.ID)
	return nil
}

// GetEscalationBySession retrieves the escalation for a session key.
// Returns ErrNotFound if none exists.
func (s *SQLiteStore) GetEscalationBySession(ctx context.Context, key string) (*Escalation, error) {
	query := `
		SELECT id, session_key, name, email, message, status, created_at, updated_at
		FROM escalations
		WHERE session_key = ?
	`

	esc, err := scanEscalation(s.db.QueryRowContext(ctx, query, key))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying escalation: %w", err)
	}

	return esc, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEscalation(row rowScanner) (*Escalation, error) {
	var esc Escalation
	var createdAtStr, updatedAtStr string

	if err := row.Scan(
		&esc.ID,
		&esc.SessionKey,
		&esc.Name,
		&esc.Email,
		&esc.Message,
		&esc.Status,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return nil, err
	}

	var err error
	esc.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	esc.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &esc, nil
}

// ListEscalations returns a page of escalations, newest first, plus the
// total record count for pagination.
func (s *SQLiteStore) ListEscalations(ctx context.Context, page, limit int) ([]*Escalation, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	query := `
		SELECT id, session_key, name, email, message, status, created_at, updated_at
		FROM escalations
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying escalations: %w", err)
	}
	defer rows.Close()

	escalations := make([]*Escalation, 0)
	for rows.Next() {
		esc, err := scanEscalation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning escalation: %w", err)
		}
		escalations = append(escalations, esc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM escalations`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting escalations: %w", err)
	}

	return escalations, total, nil
}
