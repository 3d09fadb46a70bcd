package authcore

import (
	"time"

	"github.com/paydeck/authcore/internal/security"
)

// SecurityReport summarizes the engine's effective security posture: signing
// algorithm, token lifetimes, and which protections are active. It carries
// no key material and is safe to log at startup.
type SecurityReport struct {
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	RotationEnabled       bool
	ReuseDetectionEnabled bool
	LoginThrottleActive   bool
	RefreshThrottleActive bool
	AuditEnabled          bool
	MetricsEnabled        bool
}

// SecurityReport describes the securityreport operation and its observable behavior.
//
// SecurityReport does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	rep := security.BuildReport(security.ReportInput{
		SigningAlgorithm:        e.config.JWT.SigningMethod,
		AccessTTL:               e.config.JWT.AccessTTL,
		RefreshTTL:              e.config.Refresh.TTL,
		EnableLoginThrottle:     e.config.Throttle.EnableLoginThrottle,
		MaxLoginAttempts:        e.config.Throttle.MaxLoginAttempts,
		LoginCooldownDuration:   e.config.Throttle.LoginCooldownDuration,
		EnableRefreshThrottle:   e.config.Throttle.EnableRefreshThrottle,
		MaxRefreshAttempts:      e.config.Throttle.MaxRefreshAttempts,
		RefreshCooldownDuration: e.config.Throttle.RefreshCooldownDuration,
		AuditEnabled:            e.config.Audit.Enabled,
		MetricsEnabled:          e.config.Metrics.Enabled,
	})

	return SecurityReport{
		SigningAlgorithm:      rep.SigningAlgorithm,
		AccessTTL:             rep.AccessTTL,
		RefreshTTL:            rep.RefreshTTL,
		RotationEnabled:       rep.RotationEnabled,
		ReuseDetectionEnabled: rep.ReuseDetectionEnabled,
		LoginThrottleActive:   rep.LoginThrottleActive,
		RefreshThrottleActive: rep.RefreshThrottleActive,
		AuditEnabled:          rep.AuditEnabled,
		MetricsEnabled:        rep.MetricsEnabled,
	}
}
