package authcore

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

func validTestConfig(t *testing.T) Config {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}

	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	return cfg
}

func TestValidateAcceptsDefaultWithKeys(t *testing.T) {
	cfg := validTestConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero access ttl", func(c *Config) { c.JWT.AccessTTL = 0 }},
		{"unknown signing method", func(c *Config) { c.JWT.SigningMethod = "rs256" }},
		{"ed25519 without private key", func(c *Config) { c.JWT.PrivateKey = nil }},
		{"ed25519 without public key", func(c *Config) { c.JWT.PublicKey = nil }},
		{"hs256 without key", func(c *Config) {
			c.JWT.SigningMethod = "hs256"
			c.JWT.PrivateKey = nil
		}},
		{"hs256 short key", func(c *Config) {
			c.JWT.SigningMethod = "hs256"
			c.JWT.PrivateKey = []byte("too-short")
		}},
		{"missing issuer", func(c *Config) { c.JWT.Issuer = "" }},
		{"missing audience", func(c *Config) { c.JWT.Audience = "" }},
		{"negative leeway", func(c *Config) { c.JWT.Leeway = -time.Second }},
		{"zero refresh ttl", func(c *Config) { c.Refresh.TTL = 0 }},
		{"refresh ttl below access ttl", func(c *Config) { c.Refresh.TTL = time.Minute }},
		{"missing redis prefix", func(c *Config) { c.Refresh.RedisPrefix = "" }},
		{"zero sweep batch", func(c *Config) { c.Refresh.SweepBatchSize = 0 }},
		{"login throttle without attempts", func(c *Config) { c.Throttle.MaxLoginAttempts = 0 }},
		{"login throttle without cooldown", func(c *Config) { c.Throttle.LoginCooldownDuration = 0 }},
		{"refresh throttle without attempts", func(c *Config) { c.Throttle.MaxRefreshAttempts = 0 }},
		{"refresh throttle without cooldown", func(c *Config) { c.Throttle.RefreshCooldownDuration = 0 }},
		{"audit without buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig(t)
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCloneConfigIsolatesKeyMaterial(t *testing.T) {
	cfg := validTestConfig(t)
	clone := cloneConfig(cfg)

	clone.JWT.PrivateKey[0] ^= 0xff
	if cfg.JWT.PrivateKey[0] == clone.JWT.PrivateKey[0] {
		t.Fatal("clone must not share key backing arrays")
	}
}
