package sessions_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/goliatone/go-errors"
	sessions "github.com/goliatone/go-sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorSentinels(t *testing.T) {
	t.Run("credential error carries a generic message", func(t *testing.T) {
		var richErr *errors.Error
		require.True(t, errors.As(sessions.ErrMismatchedHashAndPassword, &richErr))

		assert.Equal(t, sessions.TextCodeInvalidCreds, richErr.TextCode)
		assert.Equal(t, http.StatusUnauthorized, richErr.Code)
		// Must not reveal whether the account exists.
		assert.NotContains(t, richErr.Message, "user")
		assert.NotContains(t, richErr.Message, "password")
	})

	t.Run("expired and malformed share a public message", func(t *testing.T) {
		var expired, malformed *errors.Error
		require.True(t, errors.As(sessions.ErrTokenExpired, &expired))
		require.True(t, errors.As(sessions.ErrTokenMalformed, &malformed))

		assert.Equal(t, expired.Message, malformed.Message)
		assert.NotEqual(t, expired.TextCode, malformed.TextCode)
	})

	t.Run("privilege error is forbidden not unauthorized", func(t *testing.T) {
		var richErr *errors.Error
		require.True(t, errors.As(sessions.ErrInsufficientPrivilege, &richErr))

		assert.Equal(t, http.StatusForbidden, richErr.Code)
	})

	t.Run("duplicate errors are distinguishable", func(t *testing.T) {
		assert.False(t, stderrors.Is(sessions.ErrDuplicateEmail, sessions.ErrDuplicateUsername))

		var email, username *errors.Error
		require.True(t, errors.As(sessions.ErrDuplicateEmail, &email))
		require.True(t, errors.As(sessions.ErrDuplicateUsername, &username))
		assert.NotEqual(t, email.TextCode, username.TextCode)
	})
}

func TestIsDuplicateIdentity(t *testing.T) {
	assert.True(t, sessions.IsDuplicateIdentity(sessions.ErrDuplicateEmail))
	assert.True(t, sessions.IsDuplicateIdentity(sessions.ErrDuplicateUsername))
	assert.False(t, sessions.IsDuplicateIdentity(sessions.ErrIdentityNotFound))
	assert.False(t, sessions.IsDuplicateIdentity(nil))
}

func TestIsTokenExpiredError(t *testing.T) {
	assert.True(t, sessions.IsTokenExpiredError(sessions.ErrTokenExpired))
	assert.True(t, sessions.IsTokenExpiredError(stderrors.New("token is expired by 1h")))
	assert.False(t, sessions.IsTokenExpiredError(sessions.ErrTokenMalformed))
	assert.False(t, sessions.IsTokenExpiredError(nil))
}

func TestIsMalformedError(t *testing.T) {
	assert.True(t, sessions.IsMalformedError(sessions.ErrTokenMalformed))
	assert.True(t, sessions.IsMalformedError(stderrors.New("token is malformed")))
	assert.True(t, sessions.IsMalformedError(stderrors.New("missing or malformed JWT")))
	assert.False(t, sessions.IsMalformedError(sessions.ErrTokenExpired))
	assert.False(t, sessions.IsMalformedError(nil))
}
