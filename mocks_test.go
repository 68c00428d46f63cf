package sessions_test

import (
	"context"

	sessions "github.com/goliatone/go-sessions"
	"github.com/stretchr/testify/mock"
)

// MockUserStore implements sessions.UserStore and sessions.PrincipalStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByIdentifier(ctx context.Context, identifier string) (*sessions.User, error) {
	args := m.Called(ctx, identifier)
	user, _ := args.Get(0).(*sessions.User)
	return user, args.Error(1)
}

func (m *MockUserStore) TrackSuccessfulLogin(ctx context.Context, user *sessions.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockIdentityProvider implements sessions.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (sessions.Identity, error) {
	args := m.Called(ctx, identifier, password)
	identity, _ := args.Get(0).(sessions.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (sessions.Identity, error) {
	args := m.Called(ctx, identifier)
	identity, _ := args.Get(0).(sessions.Identity)
	return identity, args.Error(1)
}

// MockLogger implements sessions.Logger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// testIdentity is a plain value Identity for cases where a mock is overkill.
type testIdentity struct {
	id       string
	username string
	email    string
	role     string
	active   bool
}

func (t testIdentity) ID() string       { return t.id }
func (t testIdentity) Username() string { return t.username }
func (t testIdentity) Email() string    { return t.email }
func (t testIdentity) Role() string     { return t.role }
func (t testIdentity) Active() bool     { return t.active }
