package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tasktalk/pkg/user"
)

// FakeUserStore is an in-memory user.Store.
type FakeUserStore struct {
	mu    sync.Mutex
	users []user.User
}

// Register implements user.Store.
func (f *FakeUserStore) Register(_ context.Context, email, name, passwordHash string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = user.NormalizeEmail(email)
	for _, u := range f.users {
		if u.Email == email {
			return nil, user.ErrEmailTaken
		}
	}
	now := time.Now().UTC()
	u := user.User{
		ID:           fmt.Sprintf("user-%d", len(f.users)+1),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.users = append(f.users, u)
	return &u, nil
}

// Get implements user.Store.
func (f *FakeUserStore) Get(_ context.Context, id string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}

// ByEmail implements user.Store.
func (f *FakeUserStore) ByEmail(_ context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = user.NormalizeEmail(email)
	for _, u := range f.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}

// EnsureTable implements user.Store.
func (f *FakeUserStore) EnsureTable(context.Context) error { return nil }
