package sessions

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var trackLoginSQL = `UPDATE "users" AS "usr"
SET
	"last_login_at" = ?,
	"login_count" = "login_count" + 1
WHERE
	"usr"."id" = ?;`

var resetPasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"updated_at" = ?
WHERE
	"usr"."id" = ?
RETURNING *;`

// Users is the credential store adapter. Create relies on the store's unique
// constraints for email and username; the insert-time violation is the
// authoritative duplicate signal, translated into ErrDuplicateEmail or
// ErrDuplicateUsername so callers can produce a precise message.
type Users interface {
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	UpdateByID(ctx context.Context, user *User) (*User, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*User, error)
	List(ctx context.Context) ([]*User, error)

	TrackSuccessfulLogin(ctx context.Context, user *User) error
	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

// RegisterTx inserts a new user. The existence pre-check produces a stable
// error ordering when both fields collide; safety comes from the unique
// constraints, not from the pre-check.
func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	user.EnsureDefaults()

	if existing, err := a.findConflict(ctx, tx, user); err != nil {
		return nil, err
	} else if existing != nil {
		if existing.Email == user.Email {
			return nil, ErrDuplicateEmail
		}
		return nil, ErrDuplicateUsername
	}

	created, err := a.Repository.CreateTx(ctx, tx, user)
	if err != nil {
		if dup := translateDuplicate(err); dup != nil {
			return nil, dup
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create user")
	}

	return created, nil
}

func (a *users) findConflict(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	existing := &User{}
	err := tx.NewSelect().Model(existing).
		Where("?TableAlias.email = ?", user.Email).
		WhereOr("?TableAlias.username = ?", user.Username).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to check duplicate identity")
	}
	return existing, nil
}

// translateDuplicate maps a driver unique-violation error to the matching
// duplicate sentinel. Recognizes sqlite ("UNIQUE constraint failed:
// users.email") and postgres ("duplicate key value violates unique
// constraint") shapes.
func translateDuplicate(err error) error {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "unique constraint") &&
		!strings.Contains(msg, "constraint failed") &&
		!strings.Contains(msg, "duplicate key") {
		return nil
	}

	if strings.Contains(msg, "email") {
		return ErrDuplicateEmail
	}
	if strings.Contains(msg, "username") {
		return ErrDuplicateUsername
	}
	return ErrDuplicateEmail
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier)
}

func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error) {
	options := resolveUserIdentifier(identifier)
	if len(options) == 0 {
		return nil, ErrIdentityNotFound
	}

	for _, opt := range options {
		record := &User{}
		err := tx.NewSelect().Model(record).
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up user")
		}

		return record, nil
	}

	return nil, ErrIdentityNotFound
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up user")
	}
	return record, nil
}

// UpdateByID persists profile-level mutations. The incoming record is a
// sparse patch: empty fields mean "leave as is", and the patch is merged
// onto the stored row before writing so credential and lifecycle columns
// (password hash, active flag, login counters) only change through their
// own operations. Identity fields keep their uniqueness: a collision on
// email or username is translated the same way as on registration.
func (a *users) UpdateByID(ctx context.Context, user *User) (*User, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, errors.New("user id is required for update", errors.CategoryBadInput)
	}

	current, err := a.GetByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	record := mergeProfile(current, user)
	now := time.Now()
	record.UpdatedAt = &now

	updated, err := a.Repository.UpdateTx(ctx, a.db, record, repository.UpdateByID(record.ID.String()))
	if err != nil {
		if dup := translateDuplicate(err); dup != nil {
			return nil, dup
		}
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update user")
	}

	return updated, nil
}

// mergeProfile lays the non-empty profile fields of patch over the stored
// record. PasswordHash, IsActive, LoginCount and LastLoginAt are carried
// from current untouched.
func mergeProfile(current, patch *User) *User {
	merged := *current
	if patch.Username != "" {
		merged.Username = strings.TrimSpace(patch.Username)
	}
	if patch.Email != "" {
		merged.Email = NormalizeEmail(patch.Email)
	}
	if patch.DisplayName != "" {
		merged.DisplayName = patch.DisplayName
	}
	if patch.Address != "" {
		merged.Address = patch.Address
	}
	if patch.Company != "" {
		merged.Company = patch.Company
	}
	if patch.Phone != "" {
		merged.Phone = patch.Phone
	}
	if patch.Role != "" {
		merged.Role = patch.Role
	}
	return &merged
}

func (a *users) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res, err := a.db.NewDelete().Model((*User)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete user")
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return ErrIdentityNotFound
	}

	return nil
}

// SetActive flips the soft-disable flag. Deactivation makes every subsequent
// login fail even with a correct password, and invalidates already-issued
// tokens at the middleware's principal check.
func (a *users) SetActive(ctx context.Context, id uuid.UUID, active bool) (*User, error) {
	res, err := a.db.NewUpdate().Model((*User)(nil)).
		Set("is_active = ?", active).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update user status")
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return nil, ErrIdentityNotFound
	}

	return a.GetByID(ctx, id)
}

func (a *users) List(ctx context.Context) ([]*User, error) {
	var records []*User
	err := a.db.NewSelect().Model(&records).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list users")
	}
	return records, nil
}

// TrackSuccessfulLogin stamps last_login_at and bumps the monotonic
// login_count. These two fields mutate only through this path.
func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	// NOTE: raw SQL so login_count increments server-side instead of racing a
	// read-modify-write.
	_, err := a.db.NewRaw(trackLoginSQL, time.Now(), user.ID).Exec(ctx)
	return err
}

func (a *users) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.ResetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *users) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, resetPasswordSQL, passwordHash, time.Now(), id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return ErrIdentityNotFound
	}

	return nil
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  NormalizeEmail(trimmed),
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  trimmed,
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
