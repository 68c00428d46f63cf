// Package client is the client half of the credential subsystem: a durable
// Session that owns the current bearer token and its locally computed
// absolute expiry, and an ExpiryWatcher that polls the session once a second
// to drive a countdown display and force logout exactly once when the
// session runs out.
//
// The absolute expiry is always derived on this side (now + client TTL) when
// a token is adopted, never read back from the token's own claims, so the
// countdown stays consistent even when client and server clocks disagree.
// The token and its expiry are persisted and cleared together; a store with
// only one of the pair is treated as empty and repaired on load.
package client
