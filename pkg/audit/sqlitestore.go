package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLiteStore is a SQLite-backed Log. Timestamps are stored as Unix
// nanoseconds so the hash input survives the round trip exactly.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLiteStore over an open database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// EnsureTable creates the audit_events table if it doesn't exist.
func (s *SQLiteStore) EnsureTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id        TEXT PRIMARY KEY,
			type      TEXT NOT NULL,
			user_id   TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			content   TEXT NOT NULL DEFAULT '{}',
			causes    TEXT NOT NULL DEFAULT '[]',
			hash      TEXT NOT NULL,
			prev_hash TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_audit_events_user ON audit_events(user_id, timestamp)`)
	return err
}

// Append creates and stores a new event, extending the hash chain.
func (s *SQLiteStore) Append(ctx context.Context, eventType, userID string, content map[string]any, causes []string) (*Event, error) {
	if content == nil {
		content = map[string]any{}
	}
	if causes == nil {
		causes = []string{}
	}
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("marshal content: %w", err)
	}
	causesJSON, err := json.Marshal(causes)
	if err != nil {
		return nil, fmt.Errorf("marshal causes: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		prevHash string
		headNano int64
	)
	err = tx.QueryRowContext(ctx, `SELECT hash, timestamp FROM audit_events ORDER BY timestamp DESC, id DESC LIMIT 1`).Scan(&prevHash, &headNano)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chain head: %w", err)
	}
	var headTS time.Time
	if prevHash != "" {
		headTS = time.Unix(0, headNano).UTC()
	}

	now := nextTimestamp(time.Now(), headTS, time.Nanosecond)
	id := uuid.Must(uuid.NewV7()).String()

	e := &Event{
		ID:        id,
		Type:      eventType,
		UserID:    userID,
		Timestamp: now,
		Content:   content,
		Causes:    causes,
		Hash:      computeHash(prevHash, id, eventType, userID, now, contentJSON),
		PrevHash:  prevHash,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Type, e.UserID, now.UnixNano(), string(contentJSON), string(causesJSON), e.Hash, e.PrevHash)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit event: %w", err)
	}
	return e, nil
}

// Get retrieves a single event by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Event, error) {
	e, _, err := scanSQLiteEvent(s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM audit_events WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	return e, nil
}

// ByUser returns a user's most recent events, newest first.
func (s *SQLiteStore) ByUser(ctx context.Context, userID string, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM audit_events
		WHERE user_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("events by user: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		e, _, err := scanSQLiteEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return events, nil
}

// Count returns the total number of events.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// VerifyChain walks the entire chain chronologically and verifies hash integrity.
func (s *SQLiteStore) VerifyChain(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM audit_events ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("verify chain query: %w", err)
	}
	defer rows.Close()

	prevHash := ""
	i := 0
	for rows.Next() {
		e, raw, err := scanSQLiteEvent(rows)
		if err != nil {
			return fmt.Errorf("verify chain scan row %d: %w", i, err)
		}
		if err := checkLink(i, prevHash, e, raw); err != nil {
			return err
		}
		prevHash = e.Hash
		i++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("verify chain rows: %w", err)
	}
	return nil
}

func scanSQLiteEvent(row interface{ Scan(dest ...any) error }) (*Event, []byte, error) {
	var e Event
	var nanos int64
	var content, causes string
	if err := row.Scan(&e.ID, &e.Type, &e.UserID, &nanos, &content, &causes, &e.Hash, &e.PrevHash); err != nil {
		return nil, nil, err
	}
	e.Timestamp = time.Unix(0, nanos).UTC()
	e.Content = decodeContent([]byte(content))
	if err := json.Unmarshal([]byte(causes), &e.Causes); err != nil || e.Causes == nil {
		e.Causes = []string{}
	}
	return &e, []byte(content), nil
}
