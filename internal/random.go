package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// FamilyID identifies a chain of refresh records descending from one login.
type FamilyID [16]byte

const secretSize = 32

func NewFamilyID() (FamilyID, error) {
	var fid FamilyID
	_, err := rand.Read(fid[:])
	return fid, err
}

func (f FamilyID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(f[:])
}

func ParseFamilyID(familyID string) (FamilyID, error) {
	var fid FamilyID

	raw, err := base64.RawURLEncoding.DecodeString(familyID)
	if err != nil {
		return fid, err
	}
	if len(raw) != len(fid) {
		return fid, errors.New("invalid family id size")
	}

	copy(fid[:], raw)
	return fid, nil
}

// NewTokenSecret draws the 256-bit random secret embedded in a refresh
// token. Only its digest is ever persisted.
func NewTokenSecret() ([secretSize]byte, error) {
	var secret [secretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

func HashSecret(secret [secretSize]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

// HexDigest is the store's primary-key form of a secret digest.
func HexDigest(secret [secretSize]byte) string {
	sum := HashSecret(secret)
	return hex.EncodeToString(sum[:])
}

func EncodeSecret(secret [secretSize]byte) string {
	return base64.RawURLEncoding.EncodeToString(secret[:])
}

func DecodeSecret(encoded string) ([secretSize]byte, error) {
	var secret [secretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return secret, err
	}
	if len(raw) != secretSize {
		return secret, errors.New("invalid secret size")
	}

	copy(secret[:], raw)
	return secret, nil
}

// ConstantTimeEqual compares two strings without leaking a timing signal on
// the position of the first difference.
func ConstantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
