package authcore

import (
	"errors"

	"github.com/paydeck/authcore/internal/rate"
	"github.com/paydeck/authcore/refresh"
	"github.com/paydeck/authcore/token"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by authcore APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	verifier  CredentialVerifier
	directory UserDirectory
	clock     Clock
	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialVerifier describes the withcredentialverifier operation and its observable behavior.
//
// WithCredentialVerifier does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

// WithUserDirectory describes the withuserdirectory operation and its observable behavior.
//
// WithUserDirectory does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithUserDirectory(d UserDirectory) *Builder {
	b.directory = d
	return b
}

// WithClock overrides the engine's time source. Nil means wall clock.
// Intended for tests and replay tooling; production code normally omits it.
func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.verifier == nil {
		return nil, errors.New("credential verifier required")
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}

	clock := b.clock
	if clock == nil {
		clock = systemClock{}
	}

	engine := &Engine{
		config:      cloneConfig(cfg),
		recordStore: refresh.NewStore(b.redis, cfg.Refresh.RedisPrefix),
		verifier:    b.verifier,
		directory:   b.directory,
		clock:       clock,
	}

	if cfg.Throttle.EnableLoginThrottle || cfg.Throttle.EnableRefreshThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:        cfg.Throttle.EnableLoginThrottle,
			EnableRefreshThrottle:   cfg.Throttle.EnableRefreshThrottle,
			MaxLoginAttempts:        cfg.Throttle.MaxLoginAttempts,
			LoginCooldownDuration:   cfg.Throttle.LoginCooldownDuration,
			MaxRefreshAttempts:      cfg.Throttle.MaxRefreshAttempts,
			RefreshCooldownDuration: cfg.Throttle.RefreshCooldownDuration,
		})
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	tm, err := token.NewManager(token.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: token.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		Now:           clock.Now,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = tm

	b.built = true

	return engine, nil
}
