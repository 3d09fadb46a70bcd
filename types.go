package authcore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CredentialVerifier is implemented by the caller and owns the password
// hashing scheme end to end. The engine never inspects hash formats; it only
// asks for a verdict and, optionally, an upgraded hash.
//
//	Docs: docs/engine.md, docs/usage.md
type CredentialVerifier interface {
	// VerifyPassword reports whether password matches the stored hash.
	// A false verdict with a nil error is a normal failed login.
	VerifyPassword(hash, password string) (bool, error)
	// NeedsUpgrade reports whether hash was produced with parameters weaker
	// than the verifier's current policy.
	NeedsUpgrade(hash string) bool
	// Rehash produces a fresh hash of password under current parameters.
	Rehash(password string) (string, error)
}

// UserDirectory is the caller-provided lookup surface for user accounts.
//
//	Docs: docs/engine.md, docs/usage.md
type UserDirectory interface {
	GetUserByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error
}

// UserRecord is the account projection returned by [UserDirectory].
type UserRecord struct {
	UserID       string
	Identifier   string
	PasswordHash string
	Role         string
}

// Clock supplies the current time for every lifecycle decision (issuance,
// expiry classification, revocation stamps, sweeping). Injecting it keeps
// time-dependent behavior testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// TokenPair carries a freshly minted access token and the refresh token
// that can later replace it.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// AccessExpiresAt is advisory for clients scheduling their next refresh.
	AccessExpiresAt time.Time
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	UserID string
	Role   string
	Tokens TokenPair
}

// AccessIdentity is the verified subject of an access token, returned by
// [Engine.ValidateAccess].
type AccessIdentity struct {
	UserID string
	Role   string
}

// SessionInfo is one active refresh record in a user's session listing.
// Only metadata is exposed; token secrets and hashes never leave the store.
//
//	Docs: docs/session.md
type SessionInfo struct {
	TokenID   uuid.UUID
	FamilyID  string
	CreatedAt time.Time
	ExpiresAt time.Time
	IP        string
	UserAgent string
}

// SweepResult summarizes one cleanup pass, returned by [Engine.Sweep].
type SweepResult struct {
	Scanned int
	Deleted int
}
