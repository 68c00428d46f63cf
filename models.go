package sessions

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persisted principal record. PasswordHash is never serialized:
// it is excluded from JSON and stripped again by Sanitize before a record is
// attached to a request context or returned by a handler.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email        string    `bun:"email,notnull,unique" json:"email,omitempty"`
	Username     string    `bun:"username,notnull,unique" json:"username,omitempty"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Role         UserRole  `bun:"user_role,notnull" json:"role,omitempty"`
	IsActive     bool      `bun:"is_active,notnull,default:true" json:"is_active"`

	// Profile attributes, opaque to this subsystem.
	DisplayName string `bun:"display_name" json:"display_name,omitempty"`
	Address     string `bun:"address" json:"address,omitempty"`
	Company     string `bun:"company" json:"company,omitempty"`
	Phone       string `bun:"phone_number" json:"phone_number,omitempty"`

	LastLoginAt *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	LoginCount  int        `bun:"login_count,notnull,default:0" json:"login_count,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Sanitize returns a copy safe to hand to downstream handlers and JSON
// encoders: the password hash is gone even for callers that bypass the JSON
// tags by reading the struct directly.
func (u *User) Sanitize() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	return &out
}

// NormalizeEmail lowercases and trims an email for case-insensitive
// uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EnsureDefaults fills role, active flag, normalized email, and ID for new
// records.
func (u *User) EnsureDefaults() *User {
	if u == nil {
		return nil
	}

	u.Email = NormalizeEmail(u.Email)
	u.Username = strings.TrimSpace(u.Username)

	if u.Role == "" {
		u.Role = RoleUser
	}

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	return u
}

// Identity view over a User record.

type userIdentity struct {
	id       string
	username string
	email    string
	role     string
	active   bool
}

func (a userIdentity) ID() string       { return a.id }
func (a userIdentity) Username() string { return a.username }
func (a userIdentity) Email() string    { return a.email }
func (a userIdentity) Role() string     { return a.role }
func (a userIdentity) Active() bool     { return a.active }

var _ Identity = userIdentity{}

// IdentityFromUser adapts a stored record to the Identity interface.
func IdentityFromUser(u *User) Identity {
	if u == nil {
		return nil
	}
	return userIdentity{
		id:       u.ID.String(),
		username: u.Username,
		email:    u.Email,
		role:     string(u.Role),
		active:   u.IsActive,
	}
}
