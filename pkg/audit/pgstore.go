package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, type, user_id, timestamp, content, causes, hash, prev_hash`

// PgStore is a PostgreSQL-backed Log with hash-chained integrity.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the audit_events table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id        TEXT PRIMARY KEY,
			type      TEXT NOT NULL,
			user_id   TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			content   JSONB NOT NULL DEFAULT '{}',
			causes    TEXT[] DEFAULT '{}',
			hash      TEXT NOT NULL,
			prev_hash TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_audit_events_user ON audit_events(user_id, timestamp)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp_id ON audit_events(timestamp, id)`)
	return err
}

// Append creates and stores a new event, extending the hash chain.
func (s *PgStore) Append(ctx context.Context, eventType, userID string, content map[string]any, causes []string) (*Event, error) {
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Held until commit; concurrent appends queue here, including on an empty table.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, chainLockKey); err != nil {
		return nil, fmt.Errorf("lock chain: %w", err)
	}

	var (
		prevHash string
		headTS   time.Time
	)
	err = tx.QueryRow(ctx, `SELECT hash, timestamp FROM audit_events ORDER BY timestamp DESC, id DESC LIMIT 1`).Scan(&prevHash, &headTS)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("chain head: %w", err)
	}

	now := nextTimestamp(time.Now(), headTS, time.Microsecond)
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

	_, err = tx.Exec(ctx, `
		INSERT INTO audit_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8)`,
		e.ID, e.Type, e.UserID, e.Timestamp, string(contentJSON), e.Causes, e.Hash, e.PrevHash)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit event: %w", err)
	}
	return e, nil
}

// Get retrieves a single event by ID.
func (s *PgStore) Get(ctx context.Context, id string) (*Event, error) {
	e, _, err := scanPgEvent(s.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM audit_events WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	return e, nil
}

// ByUser returns a user's most recent events, newest first.
func (s *PgStore) ByUser(ctx context.Context, userID string, limit int) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+` FROM audit_events
		WHERE user_id = $1 ORDER BY timestamp DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("events by user: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		e, _, err := scanPgEvent(rows)
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
func (s *PgStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// VerifyChain walks the entire chain chronologically and verifies hash integrity.
func (s *PgStore) VerifyChain(ctx context.Context) error {
	rows, err := s.pool.Query(ctx, `SELECT `+eventColumns+` FROM audit_events ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("verify chain query: %w", err)
	}
	defer rows.Close()

	prevHash := ""
	i := 0
	for rows.Next() {
		e, raw, err := scanPgEvent(rows)
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

func scanPgEvent(row pgx.Row) (*Event, []byte, error) {
	var e Event
	var raw []byte
	if err := row.Scan(&e.ID, &e.Type, &e.UserID, &e.Timestamp, &raw, &e.Causes, &e.Hash, &e.PrevHash); err != nil {
		return nil, nil, err
	}
	e.Content = decodeContent(raw)
	if e.Causes == nil {
		e.Causes = []string{}
	}
	return &e, raw, nil
}
