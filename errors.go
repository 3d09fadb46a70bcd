package authcore

import "errors"

var (
	// ErrUnauthorized is the collapsed public form of every refresh or access
	// failure. Request boundaries must return this (via PublicAuthError)
	// instead of the precise internal reason.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials signals a failed password check at login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by UserDirectory implementations when the
	// identifier does not resolve. The engine maps it to ErrInvalidCredentials
	// before it reaches a caller.
	ErrUserNotFound = errors.New("user not found")
	// ErrLoginRateLimited is an exported constant or variable used by the authentication engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is an exported constant or variable used by the authentication engine.
	ErrRefreshRateLimited = errors.New("refresh rate limited")

	// ErrTokenInvalid covers malformed tokens, bad signatures, wrong audience
	// and wrong token type.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenNotFound means the presented refresh token verified but no
	// record exists for it (deleted by sweep, or never issued here).
	ErrTokenNotFound = errors.New("refresh token not found")
	// ErrTokenExpired means the record exists but its validity window has
	// passed. Expiry is judged against the stored record, not token claims.
	ErrTokenExpired = errors.New("refresh token expired")
	// ErrTokenRevoked means the record was revoked without being consumed by
	// a rotation (logout, family cascade, revoke-all).
	ErrTokenRevoked = errors.New("refresh token revoked")
	// ErrReuseDetected means an already-rotated refresh token was presented
	// again. The whole family is revoked as a consequence.
	ErrReuseDetected = errors.New("refresh token reuse detected")

	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// PublicAuthError collapses the internal error taxonomy into the single
// generic ErrUnauthorized for responses leaving the service, so failure
// sub-reasons are not observable by callers. Rate-limit errors pass through
// unchanged since they map to a different status class. A nil err stays nil.
func PublicAuthError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrLoginRateLimited), errors.Is(err, ErrRefreshRateLimited):
		return err
	default:
		return ErrUnauthorized
	}
}
