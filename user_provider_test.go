package sessions_test

import (
	"context"
	"errors"
	"testing"

	sessions "github.com/goliatone/go-sessions"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserProviderVerifyIdentity(t *testing.T) {
	ctx := context.Background()

	newUser := func(t *testing.T, password string, active bool) *sessions.User {
		t.Helper()
		hash, err := sessions.HashPassword(password)
		require.NoError(t, err)
		return &sessions.User{
			ID:           uuid.New(),
			Username:     "testuser",
			Email:        "test@example.com",
			PasswordHash: hash,
			Role:         sessions.RoleUser,
			IsActive:     active,
		}
	}

	t.Run("successful verification tracks the login", func(t *testing.T) {
		store := new(MockUserStore)
		user := newUser(t, "password123", true)

		store.On("GetByIdentifier", ctx, "test@example.com").Return(user, nil).Once()
		store.On("TrackSuccessfulLogin", ctx, user).Return(nil).Once()

		provider := sessions.NewUserProvider(store)
		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")

		require.NoError(t, err)
		require.NotNil(t, identity)
		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, "testuser", identity.Username())
		assert.Equal(t, sessions.RoleUser, identity.Role())

		store.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		store := new(MockUserStore)
		user := newUser(t, "correct_password", true)

		store.On("GetByIdentifier", ctx, "test@example.com").Return(user, nil).Once()

		provider := sessions.NewUserProvider(store)
		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "wrong_password")

		assert.Nil(t, identity)
		assert.ErrorIs(t, err, sessions.ErrMismatchedHashAndPassword)

		store.AssertExpectations(t)
	})

	t.Run("unknown identifier yields the same error as a wrong password", func(t *testing.T) {
		store := new(MockUserStore)
		store.On("GetByIdentifier", ctx, "ghost@example.com").
			Return(nil, sessions.ErrIdentityNotFound).Once()

		provider := sessions.NewUserProvider(store)
		identity, err := provider.VerifyIdentity(ctx, "ghost@example.com", "password123")

		assert.Nil(t, identity)
		assert.ErrorIs(t, err, sessions.ErrMismatchedHashAndPassword)

		store.AssertExpectations(t)
	})

	t.Run("deactivated account with correct password", func(t *testing.T) {
		store := new(MockUserStore)
		user := newUser(t, "password123", false)

		store.On("GetByIdentifier", ctx, "test@example.com").Return(user, nil).Once()

		provider := sessions.NewUserProvider(store)
		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")

		assert.Nil(t, identity)
		assert.ErrorIs(t, err, sessions.ErrAccountDeactivated)

		store.AssertExpectations(t)
	})

	t.Run("deactivated account cannot be probed with a wrong password", func(t *testing.T) {
		store := new(MockUserStore)
		user := newUser(t, "password123", false)

		store.On("GetByIdentifier", ctx, "test@example.com").Return(user, nil).Once()

		provider := sessions.NewUserProvider(store)
		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "wrong_password")

		assert.Nil(t, identity)
		assert.ErrorIs(t, err, sessions.ErrMismatchedHashAndPassword)
		assert.NotErrorIs(t, err, sessions.ErrAccountDeactivated)

		store.AssertExpectations(t)
	})

	t.Run("login tracking failure does not block the login", func(t *testing.T) {
		store := new(MockUserStore)
		user := newUser(t, "password123", true)

		store.On("GetByIdentifier", ctx, "test@example.com").Return(user, nil).Once()
		store.On("TrackSuccessfulLogin", ctx, user).Return(errors.New("db busy")).Once()

		provider := sessions.NewUserProvider(store)
		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")

		assert.NoError(t, err)
		assert.NotNil(t, identity)

		store.AssertExpectations(t)
	})

	t.Run("store failure surfaces as an internal error", func(t *testing.T) {
		store := new(MockUserStore)
		store.On("GetByIdentifier", ctx, "test@example.com").
			Return(nil, errors.New("connection refused")).Once()

		provider := sessions.NewUserProvider(store)
		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")

		assert.Nil(t, identity)
		require.Error(t, err)
		assert.NotErrorIs(t, err, sessions.ErrMismatchedHashAndPassword)

		store.AssertExpectations(t)
	})
}

func TestUserProviderFindIdentityByIdentifier(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves an active user", func(t *testing.T) {
		store := new(MockUserStore)
		user := &sessions.User{
			ID:       uuid.New(),
			Username: "testuser",
			Email:    "test@example.com",
			Role:     sessions.RoleAdmin,
			IsActive: true,
		}
		store.On("GetByIdentifier", ctx, user.ID.String()).Return(user, nil).Once()

		provider := sessions.NewUserProvider(store)
		identity, err := provider.FindIdentityByIdentifier(ctx, user.ID.String())

		require.NoError(t, err)
		assert.Equal(t, sessions.RoleAdmin, identity.Role())

		store.AssertExpectations(t)
	})

	t.Run("deactivated user fails", func(t *testing.T) {
		store := new(MockUserStore)
		user := &sessions.User{ID: uuid.New(), IsActive: false}
		store.On("GetByIdentifier", ctx, user.ID.String()).Return(user, nil).Once()

		provider := sessions.NewUserProvider(store)
		identity, err := provider.FindIdentityByIdentifier(ctx, user.ID.String())

		assert.Nil(t, identity)
		assert.ErrorIs(t, err, sessions.ErrAccountDeactivated)

		store.AssertExpectations(t)
	})

	t.Run("unknown identifier", func(t *testing.T) {
		store := new(MockUserStore)
		store.On("GetByIdentifier", ctx, "ghost").
			Return(nil, sessions.ErrIdentityNotFound).Once()

		provider := sessions.NewUserProvider(store)
		identity, err := provider.FindIdentityByIdentifier(ctx, "ghost")

		assert.Nil(t, identity)
		assert.ErrorIs(t, err, sessions.ErrIdentityNotFound)

		store.AssertExpectations(t)
	})
}
