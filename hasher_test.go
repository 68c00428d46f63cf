package sessions_test

import (
	"strings"
	"testing"

	sessions "github.com/goliatone/go-sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("hash verifies against original password", func(t *testing.T) {
		hash, err := sessions.HashPassword("password123")

		require.NoError(t, err)
		assert.NotEmpty(t, hash)
		assert.NotEqual(t, "password123", hash)
		assert.True(t, strings.HasPrefix(hash, "$2a$"))

		assert.NoError(t, sessions.ComparePasswordAndHash("password123", hash))
	})

	t.Run("same password hashes to different strings", func(t *testing.T) {
		first, err := sessions.HashPassword("password123")
		require.NoError(t, err)

		second, err := sessions.HashPassword("password123")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.NoError(t, sessions.ComparePasswordAndHash("password123", first))
		assert.NoError(t, sessions.ComparePasswordAndHash("password123", second))
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		hash, err := sessions.HashPassword("")

		assert.Empty(t, hash)
		assert.ErrorIs(t, err, sessions.ErrNoEmptyString)
	})

	t.Run("short password is rejected", func(t *testing.T) {
		hash, err := sessions.HashPassword("12345")

		assert.Empty(t, hash)
		assert.ErrorIs(t, err, sessions.ErrPasswordTooShort)
	})
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := sessions.HashPassword("correct_password")
	require.NoError(t, err)

	t.Run("wrong password fails with credential error", func(t *testing.T) {
		err := sessions.ComparePasswordAndHash("wrong_password", hash)

		assert.ErrorIs(t, err, sessions.ErrMismatchedHashAndPassword)
	})

	t.Run("garbage hash fails", func(t *testing.T) {
		err := sessions.ComparePasswordAndHash("correct_password", "not-a-bcrypt-hash")

		assert.Error(t, err)
	})
}

func TestNewHasher(t *testing.T) {
	t.Run("out of range cost falls back to default", func(t *testing.T) {
		h := sessions.NewHasher(99)

		hash, err := h.HashPassword("password123")
		require.NoError(t, err)
		assert.NoError(t, h.ComparePasswordAndHash("password123", hash))
	})

	t.Run("low cost still round-trips", func(t *testing.T) {
		h := sessions.NewHasher(4)

		hash, err := h.HashPassword("password123")
		require.NoError(t, err)
		assert.NoError(t, h.ComparePasswordAndHash("password123", hash))
	})
}

func TestRandomPasswordHash(t *testing.T) {
	hash := sessions.RandomPasswordHash()

	assert.NotEmpty(t, hash)
	// Nothing should ever match a throwaway hash.
	assert.Error(t, sessions.ComparePasswordAndHash("password123", hash))
	assert.NotEqual(t, hash, sessions.RandomPasswordHash())
}
