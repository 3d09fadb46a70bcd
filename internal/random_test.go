package internal

import (
	"testing"
)

func TestFamilyIDRoundTrip(t *testing.T) {
	fid, err := NewFamilyID()
	if err != nil {
		t.Fatalf("NewFamilyID failed: %v", err)
	}

	parsed, err := ParseFamilyID(fid.String())
	if err != nil {
		t.Fatalf("ParseFamilyID failed: %v", err)
	}
	if parsed != fid {
		t.Fatalf("round trip mismatch: %v != %v", parsed, fid)
	}

	if _, err := ParseFamilyID("not base64url!!"); err == nil {
		t.Fatal("expected parse error for invalid encoding")
	}
	if _, err := ParseFamilyID("c2hvcnQ"); err == nil {
		t.Fatal("expected parse error for wrong size")
	}
}

func TestSecretEncodingAndDigest(t *testing.T) {
	secret, err := NewTokenSecret()
	if err != nil {
		t.Fatalf("NewTokenSecret failed: %v", err)
	}

	decoded, err := DecodeSecret(EncodeSecret(secret))
	if err != nil {
		t.Fatalf("DecodeSecret failed: %v", err)
	}
	if decoded != secret {
		t.Fatal("secret round trip mismatch")
	}

	other, err := NewTokenSecret()
	if err != nil {
		t.Fatalf("NewTokenSecret failed: %v", err)
	}
	if HexDigest(secret) == HexDigest(other) {
		t.Fatal("distinct secrets must not collide")
	}
	if len(HexDigest(secret)) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(HexDigest(secret)))
	}

	if _, err := DecodeSecret("dG9vLXNob3J0"); err == nil {
		t.Fatal("expected decode error for wrong size")
	}
}

func TestConstantTimeEqual(t *testing.T) {
	if !ConstantTimeEqual("user-1", "user-1") {
		t.Fatal("equal strings must compare equal")
	}
	if ConstantTimeEqual("user-1", "user-2") {
		t.Fatal("different strings must not compare equal")
	}
	if ConstantTimeEqual("user-1", "user-10") {
		t.Fatal("different lengths must not compare equal")
	}
}
