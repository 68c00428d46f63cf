package sessions

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes are stable machine-readable identifiers attached to structured
// errors. UI boundaries key message formatting off these, never off Message.
const (
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeAccountDeactivated = "ACCOUNT_DEACTIVATED"
	TextCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	TextCodeDuplicateUsername  = "DUPLICATE_USERNAME"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeAuthRequired       = "AUTHENTICATION_REQUIRED"
	TextCodePrivilege          = "INSUFFICIENT_PRIVILEGE"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeWeakPassword       = "PASSWORD_TOO_SHORT"
)

// ErrIdentityNotFound is returned for lookups that matched no user record.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrMismatchedHashAndPassword is the single error returned for both unknown
// identifiers and wrong passwords, so callers cannot enumerate accounts.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrAccountDeactivated is returned when the principal exists, the password
// may even be correct, but the account has been disabled by an administrator.
// Distinct from ErrMismatchedHashAndPassword on purpose: reaching it already
// requires a valid identifier.
var ErrAccountDeactivated = errors.New("account deactivated", errors.CategoryAuth).
	WithTextCode(TextCodeAccountDeactivated).
	WithCode(errors.CodeUnauthorized)

// ErrDuplicateEmail signals a registration conflict on the email column.
var ErrDuplicateEmail = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(errors.CodeBadRequest)

// ErrDuplicateUsername signals a registration conflict on the username column.
var ErrDuplicateUsername = errors.New("username already taken", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateUsername).
	WithCode(errors.CodeBadRequest)

// ErrTokenExpired is returned by TokenService.Validate for structurally valid
// tokens past their expiry instant.
var ErrTokenExpired = errors.New("invalid or expired session", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers tampered signatures and undecodable tokens.
var ErrTokenMalformed = errors.New("invalid or expired session", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrAuthHeaderMissing is returned when a protected route is hit without a
// usable Authorization header.
var ErrAuthHeaderMissing = errors.New("authentication required", errors.CategoryAuth).
	WithTextCode(TextCodeAuthRequired).
	WithCode(errors.CodeUnauthorized)

// ErrInsufficientPrivilege is returned when the principal authenticated fine
// but its role does not cover the requested operation.
var ErrInsufficientPrivilege = errors.New("insufficient privilege", errors.CategoryAuthz).
	WithTextCode(TextCodePrivilege).
	WithCode(errors.CodeForbidden)

// ErrNoEmptyString rejects empty plaintext passwords before hashing.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrPasswordTooShort rejects plaintexts under the minimum length.
var ErrPasswordTooShort = errors.New("password must be at least 6 characters", errors.CategoryValidation).
	WithTextCode(TextCodeWeakPassword).
	WithCode(errors.CodeBadRequest)

// IsDuplicateIdentity reports whether err is either duplicate-identity
// variant. Use the individual sentinels when the field matters.
func IsDuplicateIdentity(err error) bool {
	return errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrDuplicateUsername)
}

// IsTokenExpiredError will check for expired tokens, including legacy
// string-shaped errors coming out of the JWT parser.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for tampered or undecodable tokens.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
