package sessions

import (
	"context"

	"github.com/goliatone/go-errors"
)

// UserStore is the slice of the credential store the provider needs.
type UserStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// UserProvider resolves and verifies identities against the credential store.
type UserProvider struct {
	store  UserStore
	hasher PasswordAuthenticator
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserStore) *UserProvider {
	return &UserProvider{
		store:  store,
		hasher: NewHasher(DefaultHashCost),
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

func (u *UserProvider) WithHasher(h PasswordAuthenticator) *UserProvider {
	if h != nil {
		u.hasher = h
	}
	return u
}

// VerifyIdentity finds the user, compares the password, and returns the
// identity. Unknown identifiers and wrong passwords produce the identical
// ErrMismatchedHashAndPassword; a deactivated account produces the distinct
// ErrAccountDeactivated, which only surfaces after a correct password so the
// status of an account cannot be probed with garbage credentials.
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			// Burn a comparison anyway so the miss costs the same as a
			// wrong password.
			_ = u.hasher.ComparePasswordAndHash(password, RandomPasswordHash())
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := u.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrMismatchedHashAndPassword
	}

	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	if err := u.store.TrackSuccessfulLogin(ctx, user); err != nil {
		u.logger.Error("failed to track successful login", "error", err)
	}

	return IdentityFromUser(user), nil
}

// FindIdentityByIdentifier resolves an identity without a password check.
// Deactivated accounts still fail: middleware uses this path to re-check a
// principal on every request.
func (u *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	return IdentityFromUser(user), nil
}

var _ IdentityProvider = (*UserProvider)(nil)
