package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, user_id, title, description, completed, priority, category, due_date, created_at, updated_at`

const orderClause = `ORDER BY completed ASC,
	CASE priority WHEN 'HIGH' THEN 2 WHEN 'MEDIUM' THEN 1 ELSE 0 END DESC,
	created_at DESC`

// PgStore is a PostgreSQL-backed task store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the todos table if it doesn't exist. The users table
// must exist first.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS todos (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			completed   BOOLEAN NOT NULL DEFAULT FALSE,
			priority    TEXT NOT NULL DEFAULT 'MEDIUM',
			category    TEXT NOT NULL DEFAULT '',
			due_date    TIMESTAMPTZ,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_todos_user ON todos(user_id, completed)`)
	return err
}

// Create inserts a new task owned by userID.
func (s *PgStore) Create(ctx context.Context, userID string, f Fields) (*Task, error) {
	t := newTask(userID, f)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO todos (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.UserID, t.Title, t.Description, t.Completed, string(t.Priority), t.Category, t.DueDate, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// FindMany returns the user's tasks matching filter in listing order.
func (s *PgStore) FindMany(ctx context.Context, userID string, filter Filter) ([]Task, error) {
	where := "user_id = $1"
	args := []any{userID}
	argIdx := 2

	if filter.Completed != nil {
		where += fmt.Sprintf(" AND completed = $%d", argIdx)
		args = append(args, *filter.Completed)
		argIdx++
	}
	if filter.Priority != "" {
		where += fmt.Sprintf(" AND priority = $%d", argIdx)
		args = append(args, string(filter.Priority))
		argIdx++
	}
	if filter.Category != "" {
		where += fmt.Sprintf(" AND LOWER(category) = LOWER($%d)", argIdx)
		args = append(args, filter.Category)
		argIdx++
	}
	if filter.Search != "" {
		where += fmt.Sprintf(` AND (title ILIKE $%d ESCAPE '\' OR description ILIKE $%d ESCAPE '\')`, argIdx, argIdx)
		args = append(args, containsPattern(filter.Search))
	}

	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM todos WHERE `+where+` `+orderClause, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// FindByID returns a single task owned by userID.
func (s *PgStore) FindByID(ctx context.Context, userID, id string) (*Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

// FindByTitle returns the user's tasks whose title matches under case folding.
func (s *PgStore) FindByTitle(ctx context.Context, userID, title string) ([]Task, error) {
	return findByTitle(ctx, s, userID, title)
}

// FindByIDOrTitle resolves ref as an id, then as a unique title.
func (s *PgStore) FindByIDOrTitle(ctx context.Context, userID, ref string) (*Task, error) {
	return findByIDOrTitle(ctx, s, userID, ref)
}

// Update applies f to the task and returns the new state.
func (s *PgStore) Update(ctx context.Context, userID, id string, f Fields) (*Task, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	// Build SET clause dynamically
	setClauses := "updated_at = $1"
	args := []any{now}
	argIdx := 2

	set := func(col string, v any) {
		setClauses += fmt.Sprintf(", %s = $%d", col, argIdx)
		args = append(args, v)
		argIdx++
	}
	if f.Title != nil {
		set("title", *f.Title)
	}
	if f.Description != nil {
		set("description", *f.Description)
	}
	if f.Completed != nil {
		set("completed", *f.Completed)
	}
	if f.Priority != nil {
		set("priority", string(*f.Priority))
	}
	if f.Category != nil {
		set("category", *f.Category)
	}
	if f.DueDate != nil {
		set("due_date", f.DueDate.UTC())
	} else if f.ClearDueDate {
		setClauses += ", due_date = NULL"
	}

	args = append(args, id, userID)
	query := fmt.Sprintf("UPDATE todos SET %s WHERE id = $%d AND user_id = $%d RETURNING %s",
		setClauses, argIdx, argIdx+1, taskColumns)

	t, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	return t, nil
}

// Delete removes the task.
func (s *PgStore) Delete(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleCompleted flips the completed flag in a single statement.
func (s *PgStore) ToggleCompleted(ctx context.Context, userID, id string) (*Task, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	t, err := scanTask(s.pool.QueryRow(ctx, `
		UPDATE todos SET completed = NOT completed, updated_at = $1
		WHERE id = $2 AND user_id = $3
		RETURNING `+taskColumns, now, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("toggle task %s: %w", id, err)
	}
	return t, nil
}

// Count returns the user's task count.
func (s *PgStore) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM todos WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

// newTask fills defaults for a task about to be inserted.
func newTask(userID string, f Fields) *Task {
	now := time.Now().UTC().Truncate(time.Microsecond)
	t := &Task{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Priority:  DefaultPriority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if f.Title != nil {
		t.Title = *f.Title
	}
	if f.Description != nil {
		t.Description = *f.Description
	}
	if f.Completed != nil {
		t.Completed = *f.Completed
	}
	if f.Priority != nil {
		t.Priority = *f.Priority
	}
	if f.Category != nil {
		t.Category = *f.Category
	}
	if f.DueDate != nil {
		d := f.DueDate.UTC()
		t.DueDate = &d
	}
	return t
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var priority string
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &priority, &t.Category, &t.DueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Priority = Priority(priority)
	return &t, nil
}

func scanTaskRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Task, error) {
	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return tasks, nil
}
