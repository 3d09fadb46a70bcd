package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/paydeck/authcore/internal/rate"
	"github.com/paydeck/authcore/refresh"
	"github.com/paydeck/authcore/token"
)

// Engine defines a public type used by authcore APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config      Config
	recordStore *refresh.Store
	rateLimiter *rate.Limiter
	audit       *auditDispatcher
	metrics     *Metrics
	tokens      *token.Manager
	verifier    CredentialVerifier
	directory   UserDirectory
	clock       Clock
}

// Close describes the close operation and its observable behavior.
//
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were shed under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n uint64) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Add(id, n)
}

func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock.Now()
	}
	return time.Now()
}

// ValidateAccess verifies an access token by signature and claims alone; no
// store lookup happens, which is what keeps the hot path Redis-free.
//
// ValidateAccess may return an error when input validation, dependency calls, or security checks fail.
// ValidateAccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr string) (*AccessIdentity, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.ParseAccess(tokenStr)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	return &AccessIdentity{
		UserID: claims.UID,
		Role:   claims.Role,
	}, nil
}
