package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is an exported constant or variable used by the authentication engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrRecordNotFound is returned when no record exists for the presented digest.
var ErrRecordNotFound = errors.New("refresh record not found")

// ErrRecordExpired is returned when the record's validity window has passed.
var ErrRecordExpired = errors.New("refresh record expired")

// ErrRecordRevoked is returned when the record was revoked without being consumed.
var ErrRecordRevoked = errors.New("refresh record revoked")

// ErrRecordReused is returned when a consumed record is presented again.
var ErrRecordReused = errors.New("refresh record already consumed")

// ErrRecordMismatch is returned when envelope claims do not match the stored record.
var ErrRecordMismatch = errors.New("refresh record claims mismatch")

// ErrRecordCorrupt is returned when a stored record hash fails to decode.
var ErrRecordCorrupt = errors.New("refresh record corrupt")

const (
	consumeStatusNotFound int64 = 0
	consumeStatusExpired  int64 = 1
	consumeStatusReused   int64 = 2
	consumeStatusRevoked  int64 = 3
	consumeStatusConsumed int64 = 4
	consumeStatusMismatch int64 = 5
)

// Classification order is load-bearing: a consumed record carries both
// revoked_at and replaced_by, and replaying it must read as reuse, not as a
// plain revocation. Expiry wins over everything.
const consumeScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local replaced_by = ARGV[2]
local expected_id = ARGV[3]
local expected_family = ARGV[4]

if redis.call("EXISTS", key) == 0 then
  return {0}
end

local vals = redis.call("HMGET", key, "id", "family", "user", "role", "expires_at", "replaced_by", "state")
local id = vals[1]
local family = vals[2]
local expires_at = tonumber(vals[5])

if not id or not family or not expires_at then
  return {6}
end
if id ~= expected_id or family ~= expected_family then
  return {5}
end
if expires_at <= now then
  return {1}
end
if vals[6] and vals[6] ~= "" then
  return {2, vals[3], vals[2]}
end
if vals[7] == "revoked" then
  return {3}
end

redis.call("HSET", key, "state", "revoked", "revoked_at", now, "replaced_by", replaced_by)
return {4, vals[3], vals[2], vals[4]}
`

var consumeLua = redis.NewScript(consumeScript)

const revokeScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HGET", KEYS[1], "state") == "revoked" then
  return 1
end
redis.call("HSET", KEYS[1], "state", "revoked", "revoked_at", ARGV[1])
return 2
`

var revokeLua = redis.NewScript(revokeScript)

const sweepDeleteScript = `
local vals = redis.call("HMGET", KEYS[1], "expires_at", "family", "user")
local expires_at = tonumber(vals[1])
if not expires_at then
  redis.call("DEL", KEYS[1])
  return 1
end
if expires_at > tonumber(ARGV[1]) then
  return 0
end
redis.call("DEL", KEYS[1])
if vals[2] then
  redis.call("SREM", ARGV[3] .. vals[2], ARGV[2])
end
if vals[3] then
  redis.call("SREM", ARGV[4] .. vals[3], ARGV[2])
end
return 1
`

var sweepDeleteLua = redis.NewScript(sweepDeleteScript)

// Store is a Redis-backed refresh-record store that handles persistence,
// family/user indexing, atomic rotation consumption, cascade revocation,
// and expired-record sweeping.
//
//	Docs: docs/session.md
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a refresh [Store] backed by the given Redis client.
// prefix sets the Redis key namespace.
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Store) recordKey(digest string) string {
	return s.prefix + ":tok:" + digest
}

func (s *Store) familyKeyPrefix() string {
	return s.prefix + ":fam:"
}

func (s *Store) familyKey(familyID string) string {
	return s.familyKeyPrefix() + familyID
}

func (s *Store) userKeyPrefix() string {
	return s.prefix + ":usr:"
}

func (s *Store) userKey(userID string) string {
	return s.userKeyPrefix() + userID
}

// Save persists a [Record] under the given digest and indexes it in the
// family and user sets. Record keys deliberately carry no TTL; deletion is
// the sweeper's job so that expired records stay classifiable.
//
//	Performance: 3 Redis commands in one transaction.
func (s *Store) Save(ctx context.Context, digest string, rec *Record) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.recordKey(digest), rec.fields())
		pipe.SAdd(ctx, s.familyKey(rec.FamilyID), digest)
		pipe.SAdd(ctx, s.userKey(rec.UserID), digest)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get fetches a record by digest without mutating any Redis state.
func (s *Store) Get(ctx context.Context, digest string) (*Record, error) {
	raw, err := s.redis.HGetAll(ctx, s.recordKey(digest)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(raw) == 0 {
		return nil, ErrRecordNotFound
	}

	return recordFromHash(raw)
}

// ConsumeReceipt is returned by a winning [Store.Consume] call.
type ConsumeReceipt struct {
	UserID   string
	FamilyID string
	Role     string
}

// Consume atomically uses up the record identified by digest: if and only
// if it is live, it transitions to revoked with replacedBy stamped as the
// successor. The caller's envelope claims are cross-checked inside the same
// script so a mismatch cannot mutate state.
//
// Exactly one concurrent caller for the same digest can succeed. Losers
// observe the record already replaced and get [ErrRecordReused].
//
//	Performance: 1 Lua EVALSHA (atomic compare-and-set).
//	Security: CAS is the reuse-detection primitive; never bypass it.
func (s *Store) Consume(
	ctx context.Context,
	digest string,
	expectedID uuid.UUID,
	expectedFamily string,
	replacedBy uuid.UUID,
	now time.Time,
) (*ConsumeReceipt, error) {
	result, err := consumeLua.Run(
		ctx,
		s.redis,
		[]string{s.recordKey(digest)},
		now.Unix(),
		replacedBy.String(),
		expectedID.String(),
		expectedFamily,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid consume script response", ErrRedisUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid consume script status", ErrRedisUnavailable)
	}

	switch code {
	case consumeStatusNotFound:
		return nil, ErrRecordNotFound
	case consumeStatusExpired:
		return nil, ErrRecordExpired
	case consumeStatusReused:
		receipt, decErr := receiptFromParts(parts)
		if decErr != nil {
			return nil, decErr
		}
		return receipt, ErrRecordReused
	case consumeStatusRevoked:
		return nil, ErrRecordRevoked
	case consumeStatusConsumed:
		return receiptFromParts(parts)
	case consumeStatusMismatch:
		return nil, ErrRecordMismatch
	default:
		return nil, ErrRecordCorrupt
	}
}

func receiptFromParts(parts []interface{}) (*ConsumeReceipt, error) {
	receipt := &ConsumeReceipt{}
	read := func(i int) string {
		if i >= len(parts) {
			return ""
		}
		switch v := parts[i].(type) {
		case string:
			return v
		case []byte:
			return string(v)
		default:
			return ""
		}
	}

	receipt.UserID = read(1)
	receipt.FamilyID = read(2)
	receipt.Role = read(3)
	if receipt.UserID == "" || receipt.FamilyID == "" {
		return nil, ErrRecordCorrupt
	}
	return receipt, nil
}

// RevokeByDigest revokes a single record. It is idempotent: revoking an
// already-revoked record reports false without touching its original
// revocation timestamp or replaced_by reference.
func (s *Store) RevokeByDigest(ctx context.Context, digest string, now time.Time) (bool, error) {
	code, err := revokeLua.Run(ctx, s.redis, []string{s.recordKey(digest)}, now.Unix()).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return code == 2, nil
}

// RevokeFamily revokes every record in a family, consumed or not. Returns
// how many records transitioned on this call; repeat invocations return 0.
func (s *Store) RevokeFamily(ctx context.Context, familyID string, now time.Time) (int, error) {
	return s.revokeSet(ctx, s.familyKey(familyID), now)
}

// RevokeAllForUser revokes every record across all of a user's families.
func (s *Store) RevokeAllForUser(ctx context.Context, userID string, now time.Time) (int, error) {
	return s.revokeSet(ctx, s.userKey(userID), now)
}

func (s *Store) revokeSet(ctx context.Context, setKey string, now time.Time) (int, error) {
	digests, err := s.redis.SMembers(ctx, setKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	revoked := 0
	for _, digest := range digests {
		changed, revokeErr := s.RevokeByDigest(ctx, digest, now)
		if revokeErr != nil {
			return revoked, revokeErr
		}
		if changed {
			revoked++
		}
	}

	return revoked, nil
}

// ListActive returns the user's live records: not revoked, not consumed,
// and not past expiry at now. Stale index entries whose record was swept
// are pruned as a side effect.
//
//	Performance: SMEMBERS + pipelined HGETALL per digest.
func (s *Store) ListActive(ctx context.Context, userID string, now time.Time) ([]*Record, error) {
	userKey := s.userKey(userID)

	digests, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Record{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(digests) == 0 {
		return []*Record{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(digests))
	for i, digest := range digests {
		cmds[i] = pipe.HGetAll(ctx, s.recordKey(digest))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	records := make([]*Record, 0, len(digests))
	var stale []interface{}
	for i, cmd := range cmds {
		raw, cmdErr := cmd.Result()
		if cmdErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}
		if len(raw) == 0 {
			stale = append(stale, digests[i])
			continue
		}

		rec, decErr := recordFromHash(raw)
		if decErr != nil {
			return nil, decErr
		}
		if rec.State != StateActive || rec.Expired(now) {
			continue
		}
		records = append(records, rec)
	}

	if len(stale) > 0 {
		// Best effort: a failed prune only leaves the entry for next time.
		_ = s.redis.SRem(ctx, userKey, stale...).Err()
	}

	return records, nil
}

// SweepResult reports one cleanup pass.
type SweepResult struct {
	Scanned int
	Deleted int
}

// Sweep scans record keys and physically deletes those past expiry at now,
// regardless of revocation state, detaching them from their family and user
// indexes. This is the only code path that deletes record keys.
//
// Admin-only O(n) operation; must not be called from request hot paths.
func (s *Store) Sweep(ctx context.Context, now time.Time, batchSize int) (SweepResult, error) {
	if batchSize <= 0 {
		batchSize = 256
	}

	pattern := s.prefix + ":tok:*"
	keyPrefixLen := len(s.prefix + ":tok:")

	var (
		cursor uint64
		result SweepResult
	)

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, int64(batchSize)).Result()
		if err != nil {
			return result, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}

		for _, key := range keys {
			result.Scanned++
			digest := key[keyPrefixLen:]

			deleted, sweepErr := sweepDeleteLua.Run(
				ctx,
				s.redis,
				[]string{key},
				now.Unix(),
				digest,
				s.familyKeyPrefix(),
				s.userKeyPrefix(),
			).Int64()
			if sweepErr != nil {
				return result, fmt.Errorf("%w: %v", ErrRedisUnavailable, sweepErr)
			}
			if deleted == 1 {
				result.Deleted++
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
