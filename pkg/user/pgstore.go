package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed user store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the users table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL,
			name          TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS users_email_idx ON users(email)`)
	return err
}

// Register creates an account.
func (s *PgStore) Register(ctx context.Context, email, name, passwordHash string) (*User, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &User{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Email:        NormalizeEmail(email),
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("register user %s: %w", u.Email, err)
	}
	return u, nil
}

// Get returns an account by ID.
func (s *PgStore) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.scanOne(ctx, `SELECT id, email, name, password_hash, created_at, updated_at FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// ByEmail returns an account by email.
func (s *PgStore) ByEmail(ctx context.Context, email string) (*User, error) {
	u, err := s.scanOne(ctx, `SELECT id, email, name, password_hash, created_at, updated_at FROM users WHERE email = $1`, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("user by email: %w", err)
	}
	return u, nil
}

func (s *PgStore) scanOne(ctx context.Context, query string, args ...any) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, query, args...).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
