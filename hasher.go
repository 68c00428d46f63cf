package sessions

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is expensive enough to resist offline brute force while
// keeping interactive login latency sub-second on commodity hardware.
const DefaultHashCost = 12

// MinPasswordLength is enforced before any hashing happens.
const MinPasswordLength = 6

// Hasher performs one-way password hashing with a tunable bcrypt cost.
// bcrypt salts every call, so hashing the same plaintext twice yields two
// different strings.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher. Costs outside bcrypt's supported range fall
// back to DefaultHashCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	return &Hasher{cost: cost}
}

// HashPassword will generate a password hash
func (h *Hasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}

	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ComparePasswordAndHash will validate the given cleartext password matches
// the hashed password
func (h *Hasher) ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

var _ PasswordAuthenticator = (*Hasher)(nil)

// HashPassword hashes with the default cost
func HashPassword(password string) (string, error) {
	return NewHasher(DefaultHashCost).HashPassword(password)
}

// ComparePasswordAndHash validates cleartext against a stored hash
func ComparePasswordAndHash(password, hash string) error {
	return NewHasher(DefaultHashCost).ComparePasswordAndHash(password, hash)
}

// RandomPasswordHash returns the hash of a throwaway random password. The
// provider compares against it when an identifier matches no user, so the
// unknown-user path costs the same as a wrong-password path.
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}
