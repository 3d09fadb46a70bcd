package security

import (
	"testing"
	"time"
)

func TestBuildReportThrottleActivity(t *testing.T) {
	input := ReportInput{
		SigningAlgorithm:        "ed25519",
		AccessTTL:               5 * time.Minute,
		RefreshTTL:              7 * 24 * time.Hour,
		EnableLoginThrottle:     true,
		MaxLoginAttempts:        5,
		LoginCooldownDuration:   15 * time.Minute,
		EnableRefreshThrottle:   true,
		MaxRefreshAttempts:      0, // enabled but unconfigured: not active
		RefreshCooldownDuration: time.Minute,
		AuditEnabled:            true,
	}

	report := BuildReport(input)
	if !report.RotationEnabled || !report.ReuseDetectionEnabled {
		t.Fatal("rotation and reuse detection are structural and always on")
	}
	if !report.LoginThrottleActive {
		t.Fatal("expected login throttle active")
	}
	if report.RefreshThrottleActive {
		t.Fatal("refresh throttle without an attempt budget must read inactive")
	}
	if !report.AuditEnabled || report.MetricsEnabled {
		t.Fatalf("observability flags not carried through: %+v", report)
	}
	if report.SigningAlgorithm != "ed25519" || report.AccessTTL != 5*time.Minute {
		t.Fatalf("identity fields not carried through: %+v", report)
	}
}
