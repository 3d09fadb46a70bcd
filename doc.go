// Package authcore provides the session-security engine for the paydeck
// platform: short-lived JWT access tokens paired with long-lived, rotating
// refresh-token families backed by Redis, with replay/theft detection.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy, and value types (TokenPair, SessionInfo,
// MetricsSnapshot). Credential verification and user lookup are delegated to
// the caller through [CredentialVerifier] and [UserDirectory]; authcore never
// sees or stores a password hash algorithm of its own.
//
// # What this package must NOT do
//
//   - Expose Redis clients, record-store internals, or token wire formats in
//     its public API.
//   - Reveal to callers which specific sub-reason made a refresh fail; use
//     [PublicAuthError] at the request boundary to collapse the taxonomy into
//     [ErrUnauthorized].
//   - Extend the expiry of an existing refresh record. Rotation always
//     creates a sibling record with a fresh window.
//
// # Concurrency contract
//
// The only operation that needs a true atomic primitive is the rotation
// consume step, which runs as a single Lua compare-and-set against the
// presented record. Everything else is idempotent or append-only and
// coordinates solely through Redis.
package authcore
