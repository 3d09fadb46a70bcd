package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, cfg), mr
}

func TestLoginThrottleWindow(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		EnableIPThrottle:      true,
		MaxLoginAttempts:      3,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "alice", "203.0.113.1"); err != nil {
			t.Fatalf("attempt %d: unexpected check failure: %v", i+1, err)
		}
		if err := l.IncrementLogin(ctx, "alice", "203.0.113.1"); err != nil {
			t.Fatalf("attempt %d: unexpected increment failure: %v", i+1, err)
		}
	}

	if err := l.IncrementLogin(ctx, "alice", "203.0.113.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited past the budget, got %v", err)
	}
	if err := l.CheckLogin(ctx, "alice", "203.0.113.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected CheckLogin to refuse, got %v", err)
	}

	// Other identifiers are unaffected.
	if err := l.CheckLogin(ctx, "bob", "198.51.100.2"); err != nil {
		t.Fatalf("unrelated identifier throttled: %v", err)
	}
}

func TestLoginThrottleWindowExpires(t *testing.T) {
	l, mr := newTestLimiter(t, Config{
		MaxLoginAttempts:      1,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "alice", "")
	if err := l.IncrementLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := l.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("expected fresh window after cooldown, got %v", err)
	}
}

func TestResetLoginClearsCounters(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		EnableIPThrottle:      true,
		MaxLoginAttempts:      2,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "alice", "203.0.113.1")
	_ = l.IncrementLogin(ctx, "alice", "203.0.113.1")

	if err := l.ResetLogin(ctx, "alice", "203.0.113.1"); err != nil {
		t.Fatalf("ResetLogin failed: %v", err)
	}

	attempts, err := l.GetLoginAttempts(ctx, "alice")
	if err != nil {
		t.Fatalf("GetLoginAttempts failed: %v", err)
	}
	if attempts != 0 {
		t.Fatalf("expected cleared counter, got %d", attempts)
	}
}

func TestRefreshThrottlePerFamily(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		EnableRefreshThrottle:   true,
		MaxRefreshAttempts:      2,
		RefreshCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.CheckRefresh(ctx, "fam-1"); err != nil {
			t.Fatalf("attempt %d: unexpected refusal: %v", i+1, err)
		}
	}
	if err := l.CheckRefresh(ctx, "fam-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// Budgets are per family.
	if err := l.CheckRefresh(ctx, "fam-2"); err != nil {
		t.Fatalf("unrelated family throttled: %v", err)
	}
}

func TestRefreshThrottleDisabled(t *testing.T) {
	l, _ := newTestLimiter(t, Config{EnableRefreshThrottle: false})
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if err := l.CheckRefresh(ctx, "fam-1"); err != nil {
			t.Fatalf("disabled throttle must not refuse: %v", err)
		}
	}
}

func TestGetLoginAttemptsMissingKey(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxLoginAttempts: 5, LoginCooldownDuration: time.Minute})

	attempts, err := l.GetLoginAttempts(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetLoginAttempts failed: %v", err)
	}
	if attempts != 0 {
		t.Fatalf("missing key must read 0, got %d", attempts)
	}
}
