// Package refresh persists rotating refresh-token records in Redis and
// implements the atomic consume step that makes reuse detection possible.
//
// # Data model
//
// One Redis hash per record, keyed by the hex SHA-256 digest of the token's
// random secret. A family set and a user set index the digests for cascade
// revocation and session listing. Record keys carry no Redis TTL: expired
// records must stay observable (they classify as expired, not missing) until
// the sweeper physically removes them.
//
// # Consume semantics
//
// Consume runs as a single Lua EVALSHA: classify the record (missing,
// expired, already replaced, revoked) and, only if it is live, mark it
// revoked and stamp the successor's ID. Exactly one concurrent caller can
// win; all others observe the replaced state.
package refresh
