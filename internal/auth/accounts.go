package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"tasktalk/pkg/user"
)

// DefaultCost is the bcrypt cost for new password hashes.
const DefaultCost = 12

var (
	// ErrMissingFields is returned when registration or login input is incomplete.
	ErrMissingFields = errors.New("missing required fields")
	// ErrInvalidEmail is returned when the email address does not parse.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Accounts registers and authenticates users.
type Accounts struct {
	users user.Store
	cost  int
}

// NewAccounts creates Accounts over a user store. A zero cost means DefaultCost.
func NewAccounts(users user.Store, cost int) *Accounts {
	if cost == 0 {
		cost = DefaultCost
	}
	return &Accounts{users: users, cost: cost}
}

// Register creates a user with a hashed password.
func (a *Accounts) Register(ctx context.Context, email, name, password string) (*user.User, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || name == "" || password == "" {
		return nil, ErrMissingFields
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return a.users.Register(ctx, email, name, string(hash))
}

// Login checks a password and returns the matching user.
func (a *Accounts) Login(ctx context.Context, email, password string) (*user.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingFields
	}
	u, err := a.users.ByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// User returns the account behind a verified token.
func (a *Accounts) User(ctx context.Context, id string) (*user.User, error) {
	return a.users.Get(ctx, id)
}
