package authcore

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/paydeck/authcore/internal"
	"github.com/paydeck/authcore/refresh"
)

// Login verifies credentials through the external [CredentialVerifier],
// starts a brand-new refresh-token family with its first record, and returns
// the initial token pair. Each login gets its own family; concurrent logins
// never share rotation chains.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if e == nil || e.verifier == nil || e.directory == nil {
		return nil, ErrEngineNotReady
	}
	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, username, ip); err != nil {
			return nil, e.loginRateLimited(ctx, username, "")
		}
	}
	if password == "" {
		return nil, e.loginFailed(ctx, username, "", "empty_password")
	}

	user, err := e.directory.GetUserByIdentifier(ctx, username)
	if err != nil {
		return nil, e.loginFailed(ctx, username, "", "user_not_found")
	}

	ok, err := e.verifier.VerifyPassword(user.PasswordHash, password)
	if err != nil || !ok {
		return nil, e.loginFailed(ctx, username, user.UserID, "password_mismatch")
	}

	if e.verifier.NeedsUpgrade(user.PasswordHash) {
		if upgradedHash, rehashErr := e.verifier.Rehash(password); rehashErr == nil {
			// Rehash update is best-effort and must not block successful login.
			if updateErr := e.directory.UpdatePasswordHash(ctx, user.UserID, upgradedHash); updateErr != nil {
				log.Print("authcore: password hash upgrade update failed")
			} else {
				e.emitAudit(ctx, auditEventPasswordRehash, true, user.UserID, "", "", nil, nil)
			}
		} else {
			log.Print("authcore: password hash upgrade generation failed")
		}
	}
	password = ""

	fid, err := internal.NewFamilyID()
	if err != nil {
		return nil, e.loginFailed(ctx, username, user.UserID, "family_id_generation")
	}
	familyID := fid.String()

	pair, recordID, err := e.mintPair(ctx, user.UserID, user.Role, familyID)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, familyID, "", err, func() map[string]string {
			return map[string]string{
				"identifier": username,
				"reason":     "mint_failed",
			}
		})
		return nil, err
	}

	if e.rateLimiter != nil {
		// Limiter reset is best-effort and must not fail an issued login.
		if err := e.rateLimiter.ResetLogin(ctx, username, ip); err != nil {
			log.Print("authcore: login limiter reset failed")
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, familyID, recordID.String(), nil, func() map[string]string {
		return map[string]string{
			"identifier": username,
		}
	})

	return &LoginResult{
		UserID: user.UserID,
		Role:   user.Role,
		Tokens: pair,
	}, nil
}

// mintPair creates the next record in familyID with a fresh validity window
// and returns the matching token pair. Used by both login (first record) and
// refresh (successor record).
func (e *Engine) mintPair(ctx context.Context, userID, role, familyID string) (TokenPair, uuid.UUID, error) {
	return e.mintPairWithID(ctx, userID, role, familyID, uuid.New())
}

func (e *Engine) mintPairWithID(ctx context.Context, userID, role, familyID string, recordID uuid.UUID) (TokenPair, uuid.UUID, error) {
	secret, err := internal.NewTokenSecret()
	if err != nil {
		return TokenPair{}, uuid.Nil, err
	}

	now := e.now()
	rec := &refresh.Record{
		ID:        recordID,
		FamilyID:  familyID,
		UserID:    userID,
		Role:      role,
		State:     refresh.StateActive,
		CreatedAt: now,
		ExpiresAt: now.Add(e.config.Refresh.TTL),
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
	}

	if err := e.recordStore.Save(ctx, internal.HexDigest(secret), rec); err != nil {
		return TokenPair{}, uuid.Nil, err
	}
	e.metricInc(MetricRecordCreated)

	access, accessExpiry, err := e.tokens.CreateAccess(userID, role)
	if err != nil {
		return TokenPair{}, uuid.Nil, err
	}

	refreshToken, err := e.tokens.CreateRefresh(
		userID,
		familyID,
		recordID.String(),
		internal.EncodeSecret(secret),
		rec.ExpiresAt,
	)
	if err != nil {
		return TokenPair{}, uuid.Nil, err
	}

	return TokenPair{
		AccessToken:     access,
		RefreshToken:    refreshToken,
		AccessExpiresAt: accessExpiry,
	}, recordID, nil
}

func (e *Engine) loginRateLimited(ctx context.Context, username, userID string) error {
	e.metricInc(MetricLoginRateLimited)
	e.emitAudit(ctx, auditEventLoginRateLimited, false, userID, "", "", ErrLoginRateLimited, func() map[string]string {
		return map[string]string{
			"identifier": username,
		}
	})
	e.emitRateLimit(ctx, "login", func() map[string]string {
		return map[string]string{
			"identifier": username,
		}
	})
	return ErrLoginRateLimited
}

func (e *Engine) loginFailed(ctx context.Context, username, userID, reason string) error {
	if e.rateLimiter != nil {
		ip := clientIPFromContext(ctx)
		if err := e.rateLimiter.IncrementLogin(ctx, username, ip); err != nil {
			return e.loginRateLimited(ctx, username, userID)
		}
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, "", "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"identifier": username,
			"reason":     reason,
		}
	})
	return ErrInvalidCredentials
}
