package authcore

import (
	"context"

	"github.com/paydeck/authcore/internal"
)

// Logout revokes the single record behind the presented refresh token. It
// is idempotent: a missing, expired, or already-revoked record is not an
// error, so clients can retry logout freely.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.tokens == nil || e.recordStore == nil {
		return ErrEngineNotReady
	}

	claims, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		e.emitAudit(ctx, auditEventLogoutSession, false, "", "", "", ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "envelope_rejected",
			}
		})
		return ErrTokenInvalid
	}

	secret, err := internal.DecodeSecret(claims.Secret)
	if err != nil {
		e.emitAudit(ctx, auditEventLogoutSession, false, claims.UID, claims.FamilyID, claims.TokenID, ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "secret_decode_failed",
			}
		})
		return ErrTokenInvalid
	}

	changed, err := e.recordStore.RevokeByDigest(ctx, internal.HexDigest(secret), e.now())
	if err != nil {
		e.emitAudit(ctx, auditEventLogoutSession, false, claims.UID, claims.FamilyID, claims.TokenID, err, nil)
		return err
	}

	if changed {
		e.metricInc(MetricLogout)
	}
	e.emitAudit(ctx, auditEventLogoutSession, true, claims.UID, claims.FamilyID, claims.TokenID, nil, nil)

	return nil
}

// RevokeFamily revokes every record in a family, consumed or not. Used for
// targeted incident response ("kill that device's chain"). Idempotent.
func (e *Engine) RevokeFamily(ctx context.Context, familyID string) error {
	if e == nil || e.recordStore == nil {
		return ErrEngineNotReady
	}

	revoked, err := e.recordStore.RevokeFamily(ctx, familyID, e.now())
	if err != nil {
		e.emitAudit(ctx, auditEventFamilyRevoked, false, "", familyID, "", err, nil)
		return err
	}

	if revoked > 0 {
		e.metricInc(MetricFamilyRevoked)
	}
	e.emitAudit(ctx, auditEventFamilyRevoked, true, "", familyID, "", nil, func() map[string]string {
		return map[string]string{
			"trigger": "explicit",
		}
	})

	return nil
}

// LogoutAll revokes every record across all of the user's families. After
// it returns, the user's session listing is empty and no refresh token they
// hold can rotate. Idempotent.
//
// LogoutAll may return an error when input validation, dependency calls, or security checks fail.
// LogoutAll does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if e == nil || e.recordStore == nil {
		return ErrEngineNotReady
	}

	revoked, err := e.recordStore.RevokeAllForUser(ctx, userID, e.now())
	if err != nil {
		e.emitAudit(ctx, auditEventLogoutAll, false, userID, "", "", err, nil)
		return err
	}

	if revoked > 0 {
		e.metricInc(MetricLogoutAll)
	}
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, "", "", nil, nil)

	return nil
}
