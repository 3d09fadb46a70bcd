package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod defines a public type used by authcore APIs.
//
// SigningMethod instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SigningMethod string

const (
	// MethodEd25519 is an exported constant or variable used by the authentication engine.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 is an exported constant or variable used by the authentication engine.
	MethodHS256 SigningMethod = "hs256"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

var (
	// ErrInvalid covers malformed tokens, bad signatures, wrong issuer or
	// audience, and claims that fail structural checks.
	ErrInvalid = errors.New("invalid token")
	// ErrExpired is returned by ParseAccess when the token's own exp claim
	// has passed. Refresh envelopes never fail with ErrExpired here; their
	// expiry is judged against the stored record.
	ErrExpired = errors.New("token expired")
	// ErrWrongType is returned when an access token is presented where a
	// refresh envelope is expected or vice versa.
	ErrWrongType = errors.New("wrong token type")
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	// Now overrides the time source for issuance claims. Defaults to
	// time.Now when nil.
	Now func() time.Time
}

// Manager signs and verifies both token shapes: short-lived access tokens
// and the refresh envelope that wraps a record's random secret.
type Manager struct {
	config Config
}

// AccessClaims defines a public type used by authcore APIs.
type AccessClaims struct {
	UID       string `json:"uid"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh envelope. Secret is the
// base64url-encoded random secret whose digest keys the stored record;
// FamilyID and TokenID are carried for cross-checking against that record.
type RefreshClaims struct {
	UID       string `json:"uid"`
	FamilyID  string `json:"fam"`
	TokenID   string `json:"rid"`
	Secret    string `json:"sec"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
// NewManager does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("audience is required")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{config: cfg}, nil
}

// CreateAccess mints a short-lived access token for the given subject.
// It returns the signed token and its expiry instant.
func (m *Manager) CreateAccess(uid, role string) (string, time.Time, error) {
	now := m.config.Now()
	expiresAt := now.Add(m.config.AccessTTL)

	claims := AccessClaims{
		UID:       uid,
		Role:      role,
		TokenType: typeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
			Audience:  jwt.ClaimStrings{m.config.Audience},
		},
	}

	token := jwt.NewWithClaims(m.getMethod(), claims)

	signKey, err := m.getSignKey()
	if err != nil {
		return "", time.Time{}, err
	}

	signed, err := token.SignedString(signKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseAccess verifies signature, issuer, audience, expiry, and token type.
//
// ParseAccess may return an error when input validation, dependency calls, or security checks fail.
// ParseAccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.getMethod().Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.config.Now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, m.verifyKeyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalid
	}
	if claims.TokenType != typeAccess {
		return nil, ErrWrongType
	}
	if claims.UID == "" {
		return nil, ErrInvalid
	}

	return claims, nil
}

// CreateRefresh wraps a record's identity in a signed envelope. The exp
// claim mirrors the record's expiry for client convenience but is advisory;
// the stored record remains the authority.
func (m *Manager) CreateRefresh(uid, familyID, tokenID, secret string, expiresAt time.Time) (string, error) {
	claims := RefreshClaims{
		UID:       uid,
		FamilyID:  familyID,
		TokenID:   tokenID,
		Secret:    secret,
		TokenType: typeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(m.config.Now()),
			Issuer:    m.config.Issuer,
			Audience:  jwt.ClaimStrings{m.config.Audience},
		},
	}

	token := jwt.NewWithClaims(m.getMethod(), claims)

	signKey, err := m.getSignKey()
	if err != nil {
		return "", err
	}

	return token.SignedString(signKey)
}

// ParseRefresh verifies the envelope's signature, issuer, audience, and
// token type. It deliberately skips claims-expiry validation: whether the
// underlying record is expired, revoked, or consumed is the store's call,
// and conflating envelope exp with record state would collapse the error
// taxonomy.
func (m *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{m.getMethod().Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &RefreshClaims{}, m.verifyKeyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalid
	}
	if claims.TokenType != typeRefresh {
		return nil, ErrWrongType
	}
	if claims.Issuer != m.config.Issuer {
		return nil, ErrInvalid
	}
	if !containsAudience(claims.Audience, m.config.Audience) {
		return nil, ErrInvalid
	}
	if claims.UID == "" || claims.FamilyID == "" || claims.TokenID == "" || claims.Secret == "" {
		return nil, ErrInvalid
	}

	return claims, nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

func (m *Manager) verifyKeyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != m.getMethod().Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}
	return m.getVerifyKey()
}

func (m *Manager) getMethod() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (m *Manager) getSignKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.PrivateKey, nil
	default:
		return parseEdPrivateKey(m.config.PrivateKey)
	}
}

func (m *Manager) getVerifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.PrivateKey, nil
	default:
		return parseEdPublicKey(m.config.PublicKey)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
