package authcore

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/google/uuid"
	"github.com/paydeck/authcore/internal"
	"github.com/paydeck/authcore/refresh"
)

// Refresh rotates a refresh token: the presented record is atomically
// consumed and a successor record is minted in the same family with a fresh
// validity window. Presenting an already-consumed token is treated as theft
// evidence; the whole family is revoked and [ErrReuseDetected] returned.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.tokens == nil || e.recordStore == nil {
		return nil, ErrEngineNotReady
	}

	start := e.now()

	claims, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", "", ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "envelope_rejected",
			}
		})
		return nil, ErrTokenInvalid
	}

	secret, err := internal.DecodeSecret(claims.Secret)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", claims.FamilyID, claims.TokenID, ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "secret_decode_failed",
			}
		})
		return nil, ErrTokenInvalid
	}

	tokenID, err := uuid.Parse(claims.TokenID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", claims.FamilyID, claims.TokenID, ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "token_id_invalid",
			}
		})
		return nil, ErrTokenInvalid
	}

	if _, err := internal.ParseFamilyID(claims.FamilyID); err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", claims.FamilyID, claims.TokenID, ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "family_id_invalid",
			}
		})
		return nil, ErrTokenInvalid
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckRefresh(ctx, claims.FamilyID); err != nil {
			e.metricInc(MetricRefreshRateLimited)
			e.emitAudit(ctx, auditEventRefreshRateLimited, false, "", claims.FamilyID, claims.TokenID, ErrRefreshRateLimited, nil)
			e.emitRateLimit(ctx, "refresh", func() map[string]string {
				return map[string]string{
					"family_id": claims.FamilyID,
				}
			})
			return nil, ErrRefreshRateLimited
		}
	}

	successorID := uuid.New()
	now := e.now()

	receipt, err := e.recordStore.Consume(
		ctx,
		internal.HexDigest(secret),
		tokenID,
		claims.FamilyID,
		successorID,
		now,
	)
	if err != nil {
		return nil, e.refreshConsumeFailed(ctx, claims.FamilyID, claims.TokenID, receipt, err)
	}

	// The script already matched id and family; the subject is cross-checked
	// here so a record rewired to another user can never mint their tokens.
	if !internal.ConstantTimeEqual(receipt.UserID, claims.UID) {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, receipt.UserID, claims.FamilyID, claims.TokenID, ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "subject_mismatch",
			}
		})
		return nil, ErrTokenInvalid
	}

	pair, _, err := e.mintPairWithID(ctx, receipt.UserID, receipt.Role, receipt.FamilyID, successorID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, receipt.UserID, claims.FamilyID, claims.TokenID, err, func() map[string]string {
			return map[string]string{
				"reason": "mint_failed",
			}
		})
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricRotateLatency, e.now().Sub(start))
	}
	e.emitAudit(ctx, auditEventRefreshSuccess, true, receipt.UserID, receipt.FamilyID, successorID.String(), nil, nil)

	return &pair, nil
}

func (e *Engine) refreshConsumeFailed(ctx context.Context, familyID, tokenID string, receipt *refresh.ConsumeReceipt, err error) error {
	switch {
	case errors.Is(err, refresh.ErrRecordReused):
		e.metricInc(MetricReuseDetected)

		userID := ""
		if receipt != nil {
			userID = receipt.UserID
		}
		revoked, revokeErr := e.recordStore.RevokeFamily(ctx, familyID, e.now())
		if revokeErr != nil {
			// The reuse verdict stands even if the cascade could not finish;
			// remaining siblings will be caught on their next presentation.
			log.Print("authcore: family revocation after reuse detection failed")
		}
		if revoked > 0 {
			e.metricInc(MetricFamilyRevoked)
		}

		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, userID, familyID, tokenID, ErrReuseDetected, func() map[string]string {
			return map[string]string{
				"revoked_records": strconv.Itoa(revoked),
			}
		})
		e.emitAudit(ctx, auditEventFamilyRevoked, revokeErr == nil, userID, familyID, "", revokeErr, func() map[string]string {
			return map[string]string{
				"trigger": "reuse_detected",
			}
		})
		return ErrReuseDetected

	case errors.Is(err, refresh.ErrRecordExpired):
		return e.refreshRejected(ctx, familyID, tokenID, ErrTokenExpired, "record_expired")
	case errors.Is(err, refresh.ErrRecordRevoked):
		return e.refreshRejected(ctx, familyID, tokenID, ErrTokenRevoked, "record_revoked")
	case errors.Is(err, refresh.ErrRecordNotFound):
		return e.refreshRejected(ctx, familyID, tokenID, ErrTokenNotFound, "record_not_found")
	case errors.Is(err, refresh.ErrRecordMismatch):
		return e.refreshRejected(ctx, familyID, tokenID, ErrTokenInvalid, "claims_mismatch")
	default:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", familyID, tokenID, err, func() map[string]string {
			return map[string]string{
				"reason": "consume_failed",
			}
		})
		return err
	}
}

func (e *Engine) refreshRejected(ctx context.Context, familyID, tokenID string, err error, reason string) error {
	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, auditEventRefreshInvalid, false, "", familyID, tokenID, err, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	return err
}
