package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// SQLiteStore is a SQLite-backed user store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLiteStore over an open database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// EnsureTable creates the users table if it doesn't exist.
func (s *SQLiteStore) EnsureTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMP NOT NULL,
			updated_at    TIMESTAMP NOT NULL
		)`)
	return err
}

// Register creates an account.
func (s *SQLiteStore) Register(ctx context.Context, email, name, passwordHash string) (*User, error) {
	now := time.Now().UTC()
	u := &User{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Email:        NormalizeEmail(email),
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("register user %s: %w", u.Email, err)
	}
	return u, nil
}

// Get returns an account by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.scanOne(ctx, `SELECT id, email, name, password_hash, created_at, updated_at FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// ByEmail returns an account by email.
func (s *SQLiteStore) ByEmail(ctx context.Context, email string) (*User, error) {
	u, err := s.scanOne(ctx, `SELECT id, email, name, password_hash, created_at, updated_at FROM users WHERE email = ?`, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("user by email: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) scanOne(ctx context.Context, query string, args ...any) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
