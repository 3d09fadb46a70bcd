package authcore

import (
	"context"
	"strconv"
)

// ListSessions returns metadata for the user's active refresh records: one
// entry per live session, with creation time, expiry, IP, and user agent.
// Revoked, consumed, and expired records are excluded.
//
// ListSessions may return an error when input validation, dependency calls, or security checks fail.
// ListSessions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ListSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	if e == nil || e.recordStore == nil {
		return nil, ErrEngineNotReady
	}

	records, err := e.recordStore.ListActive(ctx, userID, e.now())
	if err != nil {
		return nil, err
	}

	sessions := make([]SessionInfo, 0, len(records))
	for _, rec := range records {
		sessions = append(sessions, SessionInfo{
			TokenID:   rec.ID,
			FamilyID:  rec.FamilyID,
			CreatedAt: rec.CreatedAt,
			ExpiresAt: rec.ExpiresAt,
			IP:        rec.IP,
			UserAgent: rec.UserAgent,
		})
	}

	return sessions, nil
}

// Sweep physically deletes records whose validity window has passed,
// whatever their revocation state. It is the only operation that removes
// record keys, so history (revoked and consumed records) stays queryable
// until expiry.
//
// Admin/cron surface; O(n) over record keys, never called on request paths.
func (e *Engine) Sweep(ctx context.Context) (SweepResult, error) {
	if e == nil || e.recordStore == nil {
		return SweepResult{}, ErrEngineNotReady
	}

	res, err := e.recordStore.Sweep(ctx, e.now(), e.config.Refresh.SweepBatchSize)
	out := SweepResult{Scanned: res.Scanned, Deleted: res.Deleted}
	if err != nil {
		e.emitAudit(ctx, auditEventSweepCompleted, false, "", "", "", err, nil)
		return out, err
	}

	e.metricAdd(MetricSweepDeleted, uint64(out.Deleted))
	e.emitAudit(ctx, auditEventSweepCompleted, true, "", "", "", nil, func() map[string]string {
		return map[string]string{
			"scanned": strconv.Itoa(out.Scanned),
			"deleted": strconv.Itoa(out.Deleted),
		}
	})

	return out, nil
}
