package sessions

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// PrincipalStore is the slice of the credential store the middleware needs to
// resolve the full principal behind a validated token.
type PrincipalStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
}

// AuthMiddleware gates fiber handlers. Each request walks the same chain:
// extract bearer token, validate signature and expiry, load the principal,
// check the active flag, then (optionally) the role. Any failed step
// short-circuits to a terminal rejection; on success the sanitized principal
// and claims are attached to the request context.
type AuthMiddleware struct {
	tokens       TokenService
	store        PrincipalStore
	cfg          Config
	logger       Logger
	ErrorHandler func(c *fiber.Ctx, err error) error
}

// ClaimsKey is the locals key for validated claims.
const ClaimsKey = "session_claims"

func NewAuthMiddleware(tokens TokenService, store PrincipalStore, cfg Config) *AuthMiddleware {
	m := &AuthMiddleware{
		tokens: tokens,
		store:  store,
		cfg:    cfg,
		logger: defLogger{},
	}
	m.ErrorHandler = func(c *fiber.Ctx, err error) error {
		return WriteError(c, err)
	}
	return m
}

func (m *AuthMiddleware) WithLogger(l Logger) *AuthMiddleware {
	if l != nil {
		m.logger = l
	}
	return m
}

// RequireAuth authenticates the request and attaches the principal. One
// credential-store lookup and one token verification per request, nothing
// shared across requests.
func (m *AuthMiddleware) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := m.extractToken(c)
		if err != nil {
			return m.ErrorHandler(c, err)
		}

		claims, err := m.tokens.Validate(raw)
		if err != nil {
			// Expired vs tampered stays distinguishable in logs; the caller
			// sees one generic 401.
			m.logger.Debug("token validation failed", "error", err)
			return m.ErrorHandler(c, err)
		}

		user, err := m.store.GetByIdentifier(c.UserContext(), claims.UserID())
		if err != nil {
			if errors.IsNotFound(err) {
				return m.ErrorHandler(c, ErrTokenExpired)
			}
			return m.ErrorHandler(c, err)
		}

		if !user.IsActive {
			return m.ErrorHandler(c, ErrAccountDeactivated)
		}

		sanitized := user.Sanitize()
		c.Locals(m.cfg.GetContextKey(), sanitized)
		c.Locals(ClaimsKey, claims)
		c.SetUserContext(WithClaimsContext(WithContext(c.UserContext(), sanitized), claims))

		return c.Next()
	}
}

// RequireRole rejects principals below minRole with 403. Must run after
// RequireAuth; an unauthenticated request is rejected 401 here too rather
// than leaking whether the route exists.
func (m *AuthMiddleware) RequireRole(minRole UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromCtx(c, m.cfg.GetContextKey())
		if !ok {
			return m.ErrorHandler(c, ErrAuthHeaderMissing)
		}

		if !RoleIsAtLeast(user.Role, minRole) {
			return m.ErrorHandler(c, ErrInsufficientPrivilege)
		}

		return c.Next()
	}
}

func (m *AuthMiddleware) extractToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", ErrAuthHeaderMissing
	}

	scheme := m.cfg.GetAuthScheme()
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], scheme) || strings.TrimSpace(parts[1]) == "" {
		return "", ErrAuthHeaderMissing
	}

	return strings.TrimSpace(parts[1]), nil
}

// UserFromCtx returns the sanitized principal attached by RequireAuth.
func UserFromCtx(c *fiber.Ctx, key string) (*User, bool) {
	raw := c.Locals(key)
	if raw == nil {
		return nil, false
	}
	user, ok := raw.(*User)
	return user, ok
}

// ClaimsFromCtx returns the validated claims attached by RequireAuth.
func ClaimsFromCtx(c *fiber.Ctx) (AuthClaims, bool) {
	raw := c.Locals(ClaimsKey)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(AuthClaims)
	return claims, ok
}
