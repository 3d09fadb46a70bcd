package authcore

import (
	"errors"
	"time"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT      JWTConfig
	Refresh  RefreshConfig
	Throttle ThrottleConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by authcore APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig defines a public type used by authcore APIs.
//
// RefreshConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RefreshConfig struct {
	TTL         time.Duration
	RedisPrefix string
	// SweepBatchSize bounds how many record keys a single Sweep SCAN page
	// inspects.
	SweepBatchSize int
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig defines a public type used by authcore APIs.
//
// ThrottleConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ThrottleConfig struct {
	EnableLoginThrottle     bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// AuditConfig defines a public type used by authcore APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authcore APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration used by [New]. Key
// material is intentionally absent and must be supplied by the caller.
//
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     5 * time.Minute,
			SigningMethod: "ed25519",
			Issuer:        "authcore",
			Audience:      "authcore",
			Leeway:        30 * time.Second,
		},
		Refresh: RefreshConfig{
			TTL:            7 * 24 * time.Hour,
			RedisPrefix:    "ar",
			SweepBatchSize: 256,
		},
		Throttle: ThrottleConfig{
			EnableLoginThrottle:     true,
			MaxLoginAttempts:        5,
			LoginCooldownDuration:   15 * time.Minute,
			EnableRefreshThrottle:   true,
			MaxRefreshAttempts:      20,
			RefreshCooldownDuration: 1 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}

	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}

	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) < 32 {
		return errors.New("hs256 key length must be >= 256 bits")
	}
	if c.JWT.Issuer == "" {
		return errors.New("JWT Issuer is required")
	}
	if c.JWT.Audience == "" {
		return errors.New("JWT Audience is required")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}

	// Refresh
	if c.Refresh.TTL <= 0 {
		return errors.New("Refresh TTL must be > 0")
	}
	if c.Refresh.TTL <= c.JWT.AccessTTL {
		return errors.New("Refresh TTL must exceed JWT AccessTTL")
	}
	if c.Refresh.RedisPrefix == "" {
		return errors.New("Refresh RedisPrefix is required")
	}
	if c.Refresh.SweepBatchSize <= 0 {
		return errors.New("Refresh SweepBatchSize must be > 0")
	}

	// Throttle
	if c.Throttle.EnableLoginThrottle {
		if c.Throttle.MaxLoginAttempts <= 0 {
			return errors.New("MaxLoginAttempts must be > 0 when login throttle is enabled")
		}
		if c.Throttle.LoginCooldownDuration <= 0 {
			return errors.New("LoginCooldownDuration must be > 0 when login throttle is enabled")
		}
	}
	if c.Throttle.EnableRefreshThrottle {
		if c.Throttle.MaxRefreshAttempts <= 0 {
			return errors.New("MaxRefreshAttempts must be > 0 when refresh throttle is enabled")
		}
		if c.Throttle.RefreshCooldownDuration <= 0 {
			return errors.New("RefreshCooldownDuration must be > 0 when refresh throttle is enabled")
		}
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	return nil
}
