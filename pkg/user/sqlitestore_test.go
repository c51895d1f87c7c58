package user_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktalk/internal/db"
	"tasktalk/pkg/user"
)

func TestSQLiteStore_RegisterAndLookup(t *testing.T) {
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	defer conn.Close()

	s := user.NewSQLiteStore(conn)
	ctx := context.Background()
	require.NoError(t, s.EnsureTable(ctx))

	u, err := s.Register(ctx, "  Ada@Example.com ", "Ada", "hash")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)

	byEmail, err := s.ByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := s.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", byID.Name)

	_, err = s.Register(ctx, "ada@example.com", "Other", "hash2")
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	_, err = s.ByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
}
