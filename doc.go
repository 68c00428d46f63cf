// Package sessions implements a credential-and-session subsystem: password
// hashing, stateless JWT issuance and verification, a Bun-backed credential
// store, and role-aware HTTP authorization for protected routes.
//
// Server side:
//   - Users are persisted with unique email and username. Registration relies
//     on the store's unique constraints; the insert-time violation is the
//     authoritative duplicate signal and is translated into distinguishable
//     duplicate-email vs duplicate-username errors.
//   - Auther verifies credentials through a UserProvider and mints HS256
//     tokens. Verification failures are deliberately indistinguishable between
//     "no such user" and "wrong password"; a deactivated account is reported
//     with its own error so products can show a distinct message.
//   - RequireAuth / RequireRole gate fiber handlers. On success the sanitized
//     principal (password hash stripped) is attached to the request context.
//
// Client side lives in the client subpackage: a durable Session holding the
// current token plus its locally computed absolute expiry, and an
// ExpiryWatcher that fires a logout callback exactly once when the session
// runs out.
package sessions
