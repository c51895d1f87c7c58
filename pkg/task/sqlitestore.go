package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore is a SQLite-backed task store for single-node deployments and
// local development.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLiteStore over an open database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// EnsureTable creates the todos table if it doesn't exist.
func (s *SQLiteStore) EnsureTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS todos (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			completed   BOOLEAN NOT NULL DEFAULT 0,
			priority    TEXT NOT NULL DEFAULT 'MEDIUM',
			category    TEXT NOT NULL DEFAULT '',
			due_date    TIMESTAMP,
			created_at  TIMESTAMP NOT NULL,
			updated_at  TIMESTAMP NOT NULL
		)`)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_todos_user ON todos(user_id, completed)`)
	return err
}

// Create inserts a new task owned by userID.
func (s *SQLiteStore) Create(ctx context.Context, userID string, f Fields) (*Task, error) {
	t := newTask(userID, f)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO todos (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Title, t.Description, t.Completed, string(t.Priority), t.Category, nullTime(t.DueDate), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// FindMany returns the user's tasks matching filter in listing order.
func (s *SQLiteStore) FindMany(ctx context.Context, userID string, filter Filter) ([]Task, error) {
	where := "user_id = ?"
	args := []any{userID}

	if filter.Completed != nil {
		where += " AND completed = ?"
		args = append(args, *filter.Completed)
	}
	if filter.Priority != "" {
		where += " AND priority = ?"
		args = append(args, string(filter.Priority))
	}
	if filter.Category != "" {
		where += " AND category = ? COLLATE NOCASE"
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		where += ` AND (title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`
		like := containsPattern(filter.Search)
		args = append(args, like, like)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM todos WHERE `+where+` `+orderClause, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	return scanSQLiteRows(rows)
}

// FindByID returns a single task owned by userID.
func (s *SQLiteStore) FindByID(ctx context.Context, userID, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM todos WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanSQLiteTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

// FindByTitle returns the user's tasks whose title matches under case folding.
func (s *SQLiteStore) FindByTitle(ctx context.Context, userID, title string) ([]Task, error) {
	return findByTitle(ctx, s, userID, title)
}

// FindByIDOrTitle resolves ref as an id, then as a unique title.
func (s *SQLiteStore) FindByIDOrTitle(ctx context.Context, userID, ref string) (*Task, error) {
	return findByIDOrTitle(ctx, s, userID, ref)
}

// Update applies f to the task and returns the new state.
func (s *SQLiteStore) Update(ctx context.Context, userID, id string, f Fields) (*Task, error) {
	setClauses := "updated_at = ?"
	args := []any{time.Now().UTC()}

	if f.Title != nil {
		setClauses += ", title = ?"
		args = append(args, *f.Title)
	}
	if f.Description != nil {
		setClauses += ", description = ?"
		args = append(args, *f.Description)
	}
	if f.Completed != nil {
		setClauses += ", completed = ?"
		args = append(args, *f.Completed)
	}
	if f.Priority != nil {
		setClauses += ", priority = ?"
		args = append(args, string(*f.Priority))
	}
	if f.Category != nil {
		setClauses += ", category = ?"
		args = append(args, *f.Category)
	}
	if f.DueDate != nil {
		setClauses += ", due_date = ?"
		args = append(args, f.DueDate.UTC())
	} else if f.ClearDueDate {
		setClauses += ", due_date = NULL"
	}
	args = append(args, id, userID)

	res, err := s.db.ExecContext(ctx, `UPDATE todos SET `+setClauses+` WHERE id = ? AND user_id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, userID, id)
}

// Delete removes the task.
func (s *SQLiteStore) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleCompleted flips the completed flag.
func (s *SQLiteStore) ToggleCompleted(ctx context.Context, userID, id string) (*Task, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE todos SET completed = NOT completed, updated_at = ?
		WHERE id = ? AND user_id = ?`, time.Now().UTC(), id, userID)
	if err != nil {
		return nil, fmt.Errorf("toggle task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, userID, id)
}

// Count returns the user's task count.
func (s *SQLiteStore) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func scanSQLiteTask(row rowScanner) (*Task, error) {
	var t Task
	var priority string
	var due sql.NullTime
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &priority, &t.Category, &due, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Priority = Priority(priority)
	if due.Valid {
		d := due.Time.UTC()
		t.DueDate = &d
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

func scanSQLiteRows(rows *sql.Rows) ([]Task, error) {
	tasks := []Task{}
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
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
