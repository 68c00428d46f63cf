package sessions

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ChangePasswordMessage struct {
	UserID          uuid.UUID `json:"user_id"`
	CurrentPassword string    `json:"current_password"`
	NewPassword     string    `json:"new_password"`
}

func (e ChangePasswordMessage) Type() string { return "user.change_password" }

// ChangePasswordHandler re-hashes a principal's password after verifying the
// current one. This is the only path that mutates PasswordHash after
// registration.
type ChangePasswordHandler struct {
	repo   RepositoryManager
	hasher PasswordAuthenticator
}

func NewChangePasswordHandler(repo RepositoryManager, hasher PasswordAuthenticator) *ChangePasswordHandler {
	if hasher == nil {
		hasher = NewHasher(DefaultHashCost)
	}
	return &ChangePasswordHandler{repo: repo, hasher: hasher}
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.UserID.String())
		if err != nil {
			return err
		}

		if err := h.hasher.ComparePasswordAndHash(event.CurrentPassword, user.PasswordHash); err != nil {
			// Wrong current password is a validation failure at this
			// boundary, not an authentication one: the caller is already
			// authenticated.
			return goerrors.New("current password is incorrect", goerrors.CategoryValidation).
				WithTextCode(TextCodeInvalidCreds).
				WithCode(goerrors.CodeBadRequest)
		}

		hash, err := h.hasher.HashPassword(event.NewPassword)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		return h.repo.Users().ResetPasswordTx(ctx, tx, user.ID, hash)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password change transaction failed")
	}

	return nil
}
