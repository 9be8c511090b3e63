package users

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhclegal/lhc-backend/internal/db"
)

// gormStore connects to DATABASE_URL or skips the test.
func gormStore(t *testing.T) *GormStore {
	t.Helper()
	_ = godotenv.Load("../../.env.local")
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" || testing.Short() {
		t.Skip("skipping integration test (requires DATABASE_URL)")
	}

	d, err := db.Connect(dsn, db.Options{})
	require.NoError(t, err)
	require.NoError(t, Init(d))
	t.Cleanup(func() { _ = db.Close(d) })
	return NewGormStore(d)
}

func TestGormStore_Lifecycle(t *testing.T) {
	s := gormStore(t)
	ctx := context.Background()

	email := "it_" + uuid.NewString()[:8] + "@example.com"
	u := &User{Username: "Integration", Email: email}
	require.NoError(t, u.SetPassword("Weak1!"))
	require.NoError(t, s.Create(ctx, u))
	t.Cleanup(func() { _ = s.Delete(ctx, u.ID) })

	assert.ErrorIs(t, s.Create(ctx, &User{Username: "Dup", Email: email, PasswordHash: "x"}), ErrDuplicate)

	got, err := s.FindByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.False(t, got.IsAdmin)
	assert.True(t, got.CheckPassword("Weak1!"))

	taken, err := s.EmailTaken(ctx, email, u.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	require.NoError(t, s.Delete(ctx, u.ID))
	_, err = s.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
