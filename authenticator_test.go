package sessions_test

import (
	"context"
	"testing"
	"time"

	sessions "github.com/goliatone/go-sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestConfig() sessions.SimpleConfig {
	return sessions.SimpleConfig{
		SigningKey:      "test-signing-key",
		TokenExpiration: 24,
		Issuer:          "test-issuer",
		Audience:        []string{"test-audience"},
	}
}

func TestAutherLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("successful login returns a usable token", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		identity := testIdentity{
			id:     "14ca48a6-5f28-4b8c-a4cd-a4b689c161f5",
			email:  "test@example.com",
			role:   sessions.RoleUser,
			active: true,
		}
		provider.On("VerifyIdentity", ctx, "test@example.com", "password123").
			Return(identity, nil).Once()

		auther := sessions.NewAuthenticator(provider, newTestConfig())

		token, gotIdentity, err := auther.Login(ctx, "test@example.com", "password123")
		require.NoError(t, err)
		require.NotEmpty(t, token)
		assert.Equal(t, identity.ID(), gotIdentity.ID())

		session, err := auther.SessionFromToken(token)
		require.NoError(t, err)
		assert.Equal(t, identity.ID(), session.GetUserID())
		assert.Equal(t, "test@example.com", session.GetEmail())
		assert.Equal(t, sessions.RoleUser, session.GetRole())
		assert.Equal(t, "test-issuer", session.GetIssuer())

		uid, err := session.GetUserUUID()
		require.NoError(t, err)
		assert.Equal(t, identity.ID(), uid.String())

		provider.AssertExpectations(t)
	})

	t.Run("verification failure passes through untranslated", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", ctx, "test@example.com", "wrong").
			Return(nil, sessions.ErrMismatchedHashAndPassword).Once()

		auther := sessions.NewAuthenticator(provider, newTestConfig())

		token, identity, err := auther.Login(ctx, "test@example.com", "wrong")
		assert.Empty(t, token)
		assert.Nil(t, identity)
		assert.ErrorIs(t, err, sessions.ErrMismatchedHashAndPassword)

		provider.AssertExpectations(t)
	})

	t.Run("deactivated account error passes through", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", ctx, mock.Anything, mock.Anything).
			Return(nil, sessions.ErrAccountDeactivated).Once()

		auther := sessions.NewAuthenticator(provider, newTestConfig())

		_, _, err := auther.Login(ctx, "test@example.com", "password123")
		assert.ErrorIs(t, err, sessions.ErrAccountDeactivated)

		provider.AssertExpectations(t)
	})
}

func TestAutherSessionFromToken(t *testing.T) {
	provider := new(MockIdentityProvider)
	auther := sessions.NewAuthenticator(provider, newTestConfig())

	t.Run("rejects garbage", func(t *testing.T) {
		session, err := auther.SessionFromToken("garbage")
		assert.Nil(t, session)
		assert.True(t, sessions.IsMalformedError(err))
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		issuedAt := time.Now().Add(-48 * time.Hour)
		expiredService := sessions.NewTokenService(
			[]byte("test-signing-key"), 24, "test-issuer", []string{"test-audience"}, nil,
		).WithClock(func() time.Time { return issuedAt })

		token, err := expiredService.Generate(testIdentity{id: "user-123", role: sessions.RoleUser})
		require.NoError(t, err)

		session, err := auther.SessionFromToken(token)
		assert.Nil(t, session)
		assert.ErrorIs(t, err, sessions.ErrTokenExpired)
	})
}

func TestAutherIdentityFromSession(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves the principal behind a session", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		identity := testIdentity{id: "user-123", role: sessions.RoleUser, active: true}
		provider.On("FindIdentityByIdentifier", ctx, "user-123").Return(identity, nil).Once()

		auther := sessions.NewAuthenticator(provider, newTestConfig())

		got, err := auther.IdentityFromSession(ctx, &sessions.SessionObject{UserID: "user-123"})
		require.NoError(t, err)
		assert.Equal(t, "user-123", got.ID())

		provider.AssertExpectations(t)
	})

	t.Run("deactivated principal fails", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("FindIdentityByIdentifier", ctx, "user-123").
			Return(nil, sessions.ErrAccountDeactivated).Once()

		auther := sessions.NewAuthenticator(provider, newTestConfig())

		got, err := auther.IdentityFromSession(ctx, &sessions.SessionObject{UserID: "user-123"})
		assert.Nil(t, got)
		assert.ErrorIs(t, err, sessions.ErrAccountDeactivated)

		provider.AssertExpectations(t)
	})
}
