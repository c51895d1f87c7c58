// Package user holds account records for the people who own tasks.
package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no account matches.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned by Register when the email is already registered.
	ErrEmailTaken = errors.New("user already exists")
)

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Store is the contract for account persistence.
type Store interface {
	// Register creates an account. Emails are unique, compared case-insensitively.
	Register(ctx context.Context, email, name, passwordHash string) (*User, error)

	// Get returns an account by ID.
	Get(ctx context.Context, id string) (*User, error)

	// ByEmail returns an account by email.
	ByEmail(ctx context.Context, email string) (*User, error)

	// EnsureTable creates the users table if it doesn't exist.
	EnsureTable(ctx context.Context) error
}

// NormalizeEmail is the stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
