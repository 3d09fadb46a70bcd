package refresh

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// State is the explicit lifecycle state persisted with every record.
// A record is either active or revoked; consumption by rotation is the
// revoked state plus a non-nil ReplacedBy.
type State uint8

const (
	// StateActive is an exported constant or variable used by the authentication engine.
	StateActive State = iota
	// StateRevoked is an exported constant or variable used by the authentication engine.
	StateRevoked
)

func (s State) String() string {
	if s == StateRevoked {
		return "revoked"
	}
	return "active"
}

func parseState(raw string) State {
	if raw == "revoked" {
		return StateRevoked
	}
	return StateActive
}

// Record is one link in a refresh-token family chain.
type Record struct {
	ID        uuid.UUID
	FamilyID  string
	UserID    string
	Role      string
	State     State
	CreatedAt time.Time
	ExpiresAt time.Time
	// RevokedAt is zero while the record is active.
	RevokedAt time.Time
	// ReplacedBy is uuid.Nil unless the record was consumed by a rotation,
	// in which case it names the successor record.
	ReplacedBy uuid.UUID
	IP         string
	UserAgent  string
}

// Consumed reports whether the record was used up by a successful rotation.
func (r *Record) Consumed() bool {
	return r.ReplacedBy != uuid.Nil
}

// Expired reports whether the record's validity window has passed at now.
func (r *Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

const (
	fieldID         = "id"
	fieldFamily     = "family"
	fieldUser       = "user"
	fieldRole       = "role"
	fieldState      = "state"
	fieldCreatedAt  = "created_at"
	fieldExpiresAt  = "expires_at"
	fieldRevokedAt  = "revoked_at"
	fieldReplacedBy = "replaced_by"
	fieldIP         = "ip"
	fieldUserAgent  = "ua"
)

func (r *Record) fields() map[string]interface{} {
	revokedAt := int64(0)
	if !r.RevokedAt.IsZero() {
		revokedAt = r.RevokedAt.Unix()
	}
	replacedBy := ""
	if r.ReplacedBy != uuid.Nil {
		replacedBy = r.ReplacedBy.String()
	}

	return map[string]interface{}{
		fieldID:         r.ID.String(),
		fieldFamily:     r.FamilyID,
		fieldUser:       r.UserID,
		fieldRole:       r.Role,
		fieldState:      r.State.String(),
		fieldCreatedAt:  r.CreatedAt.Unix(),
		fieldExpiresAt:  r.ExpiresAt.Unix(),
		fieldRevokedAt:  revokedAt,
		fieldReplacedBy: replacedBy,
		fieldIP:         r.IP,
		fieldUserAgent:  r.UserAgent,
	}
}

func recordFromHash(raw map[string]string) (*Record, error) {
	id, err := uuid.Parse(raw[fieldID])
	if err != nil {
		return nil, ErrRecordCorrupt
	}

	createdAt, err := strconv.ParseInt(raw[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, ErrRecordCorrupt
	}
	expiresAt, err := strconv.ParseInt(raw[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, ErrRecordCorrupt
	}

	rec := &Record{
		ID:        id,
		FamilyID:  raw[fieldFamily],
		UserID:    raw[fieldUser],
		Role:      raw[fieldRole],
		State:     parseState(raw[fieldState]),
		CreatedAt: time.Unix(createdAt, 0),
		ExpiresAt: time.Unix(expiresAt, 0),
		IP:        raw[fieldIP],
		UserAgent: raw[fieldUserAgent],
	}
	if rec.FamilyID == "" || rec.UserID == "" {
		return nil, ErrRecordCorrupt
	}

	if s := raw[fieldRevokedAt]; s != "" && s != "0" {
		revokedAt, parseErr := strconv.ParseInt(s, 10, 64)
		if parseErr != nil {
			return nil, ErrRecordCorrupt
		}
		rec.RevokedAt = time.Unix(revokedAt, 0)
	}
	if s := raw[fieldReplacedBy]; s != "" {
		replacedBy, parseErr := uuid.Parse(s)
		if parseErr != nil {
			return nil, ErrRecordCorrupt
		}
		rec.ReplacedBy = replacedBy
	}

	return rec, nil
}
