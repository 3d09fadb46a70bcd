package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}
	return pub, priv
}

func newTestManager(t *testing.T, mutate func(*Config)) *Manager {
	t.Helper()
	pub, priv := testKeys(t)

	cfg := Config{
		AccessTTL:     5 * time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "authcore",
		Audience:      "authcore",
		Leeway:        30 * time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestAccessRoundTrip(t *testing.T) {
	m := newTestManager(t, nil)

	signed, expiresAt, err := m.CreateAccess("user-1", "admin")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if expiresAt.Before(time.Now()) {
		t.Fatal("expiry should be in the future")
	}

	claims, err := m.ParseAccess(signed)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.UID != "user-1" {
		t.Fatalf("expected uid user-1, got %q", claims.UID)
	}
	if claims.Role != "admin" {
		t.Fatalf("expected role admin, got %q", claims.Role)
	}
}

func TestAccessExpiredAgainstInjectedClock(t *testing.T) {
	t0 := time.Now()
	now := t0
	m := newTestManager(t, func(cfg *Config) {
		cfg.Leeway = 0
		cfg.Now = func() time.Time { return now }
	})

	signed, _, err := m.CreateAccess("user-1", "")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	now = t0.Add(10 * time.Minute)
	if _, err := m.ParseAccess(signed); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestAccessRejectsTamperedToken(t *testing.T) {
	m := newTestManager(t, nil)

	signed, _, err := m.CreateAccess("user-1", "")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	// Flip a character in the signature segment.
	parts := strings.Split(signed, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", signed)
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := m.ParseAccess(tampered); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestAccessRejectsForeignIssuer(t *testing.T) {
	pub, priv := testKeys(t)
	base := Config{
		AccessTTL:     5 * time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "authcore",
		Audience:      "authcore",
	}

	issuerA, err := NewManager(base)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	base.Issuer = "other-service"
	issuerB, err := NewManager(base)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	signed, _, err := issuerB.CreateAccess("user-1", "")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if _, err := issuerA.ParseAccess(signed); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for foreign issuer, got %v", err)
	}
}

func TestRefreshRoundTrip(t *testing.T) {
	m := newTestManager(t, nil)

	tokenID := uuid.NewString()
	signed, err := m.CreateRefresh("user-1", "fam-1", tokenID, "c2VjcmV0", time.Now().Add(7*24*time.Hour))
	if err != nil {
		t.Fatalf("CreateRefresh failed: %v", err)
	}

	claims, err := m.ParseRefresh(signed)
	if err != nil {
		t.Fatalf("ParseRefresh failed: %v", err)
	}
	if claims.UID != "user-1" || claims.FamilyID != "fam-1" || claims.TokenID != tokenID {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if claims.Secret != "c2VjcmV0" {
		t.Fatalf("expected secret carried through, got %q", claims.Secret)
	}
}

func TestParseRefreshIgnoresEnvelopeExpiry(t *testing.T) {
	m := newTestManager(t, nil)

	signed, err := m.CreateRefresh("user-1", "fam-1", uuid.NewString(), "c2VjcmV0", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("CreateRefresh failed: %v", err)
	}

	// Record state is authoritative for refresh expiry; the envelope's own
	// exp claim must not reject the parse.
	if _, err := m.ParseRefresh(signed); err != nil {
		t.Fatalf("expected expired envelope to still parse, got %v", err)
	}
}

func TestTokenTypeConfusionRejected(t *testing.T) {
	m := newTestManager(t, nil)

	access, _, err := m.CreateAccess("user-1", "")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	refresh, err := m.CreateRefresh("user-1", "fam-1", uuid.NewString(), "c2VjcmV0", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("CreateRefresh failed: %v", err)
	}

	if _, err := m.ParseRefresh(access); !errors.Is(err, ErrWrongType) {
		t.Fatalf("expected ErrWrongType for access token, got %v", err)
	}
	if _, err := m.ParseAccess(refresh); !errors.Is(err, ErrWrongType) {
		t.Fatalf("expected ErrWrongType for refresh envelope, got %v", err)
	}
}

func TestHS256RoundTrip(t *testing.T) {
	m := newTestManager(t, func(cfg *Config) {
		cfg.SigningMethod = MethodHS256
		cfg.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
		cfg.PublicKey = nil
	})

	signed, _, err := m.CreateAccess("user-1", "viewer")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	claims, err := m.ParseAccess(signed)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.Role != "viewer" {
		t.Fatalf("expected role viewer, got %q", claims.Role)
	}
}

func TestNewManagerValidation(t *testing.T) {
	pub, priv := testKeys(t)

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero ttl", func(c *Config) { c.AccessTTL = 0 }},
		{"negative leeway", func(c *Config) { c.Leeway = -time.Second }},
		{"excessive leeway", func(c *Config) { c.Leeway = 5 * time.Minute }},
		{"missing issuer", func(c *Config) { c.Issuer = "" }},
		{"missing audience", func(c *Config) { c.Audience = "" }},
		{"unknown method", func(c *Config) { c.SigningMethod = "rs256" }},
		{"bad ed25519 key", func(c *Config) { c.PrivateKey = []byte("short") }},
		{"hs256 without key", func(c *Config) {
			c.SigningMethod = MethodHS256
			c.PrivateKey = nil
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{
				AccessTTL:     5 * time.Minute,
				SigningMethod: MethodEd25519,
				PrivateKey:    priv,
				PublicKey:     pub,
				Issuer:        "authcore",
				Audience:      "authcore",
			}
			tc.mutate(&cfg)
			if _, err := NewManager(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func FuzzParseRefresh(f *testing.F) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		f.Fatalf("keygen failed: %v", err)
	}
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "authcore",
		Audience:      "authcore",
	})
	if err != nil {
		f.Fatalf("NewManager failed: %v", err)
	}

	valid, err := m.CreateRefresh("user-1", "fam-1", uuid.NewString(), "c2VjcmV0", time.Now().Add(time.Hour))
	if err != nil {
		f.Fatalf("CreateRefresh failed: %v", err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJub25lIn0..")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := m.ParseRefresh(input)
		if err == nil && (claims.UID == "" || claims.Secret == "") {
			t.Fatalf("accepted envelope with empty identity claims: %+v", claims)
		}
	})
}
