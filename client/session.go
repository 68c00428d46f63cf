package client

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// DefaultSessionTTL is the UI-facing session length. It is independent of
// the server token's TTL; the shorter of the two governs how long the user
// actually stays signed in.
const DefaultSessionTTL = 24 * time.Hour

// ErrNoSession is returned when an operation needs an adopted token and the
// session holds none.
var ErrNoSession = errors.New("no session present", errors.CategoryAuth).
	WithTextCode("NO_SESSION")

// ErrResumeConsumed is returned by a second Resume call on the same session
// instance. Resumption is a process-start affair and happens at most once.
var ErrResumeConsumed = errors.New("session resumption already attempted", errors.CategoryOperation).
	WithTextCode("RESUME_CONSUMED")

// FetchPrincipal validates a stored token against the server, typically by
// calling GET /auth/me. A non-nil error means the token is unusable.
type FetchPrincipal func(ctx context.Context, token string) error

// Session owns the current token and its absolute expiry. There is no global
// instance: construct one, hand it to whatever needs it, and its lifecycle
// stays testable in isolation.
//
// The expiry is computed locally at the moment a token is adopted
// (now + TTL) and never read from the token's claims, so a skewed server
// clock cannot distort the countdown.
type Session struct {
	mu    sync.Mutex
	store Store
	ttl   time.Duration
	now   func() time.Time

	token     string
	expiresAt time.Time

	resumeAttempted bool
}

type SessionOption func(*Session)

// WithTTL overrides the client session TTL.
func WithTTL(ttl time.Duration) SessionOption {
	return func(s *Session) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock injects a time source, useful for expiry tests.
func WithClock(clock func() time.Time) SessionOption {
	return func(s *Session) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewSession builds a Session and loads any state a prior process persisted.
// An orphaned half pair (token without expiry or vice versa) is cleared
// rather than trusted.
func NewSession(ctx context.Context, store Store, opts ...SessionOption) (*Session, error) {
	s := &Session{
		store: store,
		ttl:   DefaultSessionTTL,
		now:   time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	state, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}

	if state.Orphaned() {
		if err := store.Clear(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}

	if !state.Empty() {
		s.token = state.Token
		s.expiresAt = time.UnixMilli(state.ExpiresAt)
	}

	return s, nil
}

// Adopt stores a freshly issued token and computes its absolute expiry as
// now + TTL. The pair is persisted together before the in-memory swap, so
// the durable store never holds half a session.
func (s *Session) Adopt(ctx context.Context, token string) error {
	if token == "" {
		return ErrNoSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := s.now().Add(s.ttl)

	if err := s.store.Save(ctx, State{
		Token:     token,
		ExpiresAt: expiresAt.UnixMilli(),
	}); err != nil {
		return err
	}

	s.token = token
	s.expiresAt = expiresAt
	return nil
}

// Clear drops the token and expiry together, durably and in memory. Safe to
// call on an already empty session.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		return err
	}

	s.token = ""
	s.expiresAt = time.Time{}
	return nil
}

// Token returns the current token, or empty when no session is held.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// IsValid reports whether a token is present and its locally computed expiry
// has not passed.
func (s *Session) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != "" && s.now().Before(s.expiresAt)
}

// Remaining returns how much session time is left, clamped at zero.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" {
		return 0
	}

	remaining := s.expiresAt.Sub(s.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingMs returns the remaining time in milliseconds, never negative.
func (s *Session) RemainingMs() int64 {
	return s.Remaining().Milliseconds()
}

// Resume attempts exactly one silent resumption of a previously persisted
// token. Any failure (expired state, fetch error, cancellation) clears the
// session so no stale unusable token stays resident. A second call returns
// ErrResumeConsumed regardless of the first outcome.
func (s *Session) Resume(ctx context.Context, fetch FetchPrincipal) error {
	s.mu.Lock()
	if s.resumeAttempted {
		s.mu.Unlock()
		return ErrResumeConsumed
	}
	s.resumeAttempted = true
	token := s.token
	valid := s.token != "" && s.now().Before(s.expiresAt)
	s.mu.Unlock()

	if token == "" {
		return ErrNoSession
	}

	if !valid {
		_ = s.Clear(ctx)
		return ErrNoSession
	}

	if err := ctx.Err(); err != nil {
		_ = s.Clear(ctx)
		return err
	}

	if err := fetch(ctx, token); err != nil {
		_ = s.Clear(ctx)
		return err
	}

	return nil
}

// HandleUnauthorized is the client-side reaction to a 401 on any
// authenticated call: drop the session so the UI can redirect to login
// instead of showing stale protected content.
func (s *Session) HandleUnauthorized(ctx context.Context) error {
	return s.Clear(ctx)
}
