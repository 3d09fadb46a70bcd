package security

import "time"

type Report struct {
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

type ReportInput struct {
	SigningAlgorithm        string
	AccessTTL               time.Duration
	RefreshTTL              time.Duration
	EnableLoginThrottle     bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
	AuditEnabled            bool
	MetricsEnabled          bool
}

func BuildReport(input ReportInput) Report {
	loginThrottle := input.EnableLoginThrottle &&
		input.MaxLoginAttempts > 0 &&
		input.LoginCooldownDuration > 0

	refreshThrottle := input.EnableRefreshThrottle &&
		input.MaxRefreshAttempts > 0 &&
		input.RefreshCooldownDuration > 0

	return Report{
		SigningAlgorithm:      input.SigningAlgorithm,
		AccessTTL:             input.AccessTTL,
		RefreshTTL:            input.RefreshTTL,
		RotationEnabled:       true,
		ReuseDetectionEnabled: true,
		LoginThrottleActive:   loginThrottle,
		RefreshThrottleActive: refreshThrottle,
		AuditEnabled:          input.AuditEnabled,
		MetricsEnabled:        input.MetricsEnabled,
	}
}
