package crypto

import (
	"bytes"
	"testing"

	"southwinds.dev/rotor/internal/misc"
)

func TestDeriveSubKeysIsDeterministic(t *testing.T) {
	key := []byte("unit-test-secret-key-0123456789")
	salt := []byte("0123456789abcdef")

	first := DeriveSubKeys(key, salt)
	second := DeriveSubKeys(key, salt)

	if !bytes.Equal(first.Encryption, second.Encryption) || !bytes.Equal(first.HMAC, second.HMAC) {
		t.Fatal("derivation is not deterministic for identical inputs")
	}
	if len(first.Encryption) != int(misc.ArgonKeyLen) || len(first.HMAC) != int(misc.ArgonKeyLen) {
		t.Errorf("unexpected subkey lengths: %d, %d", len(first.Encryption), len(first.HMAC))
	}
	if bytes.Equal(first.Encryption, first.HMAC) {
		t.Error("encryption and hmac subkeys are identical; domain separation is broken")
	}

	otherSalt := DeriveSubKeys(key, []byte("fedcba9876543210"))
	if bytes.Equal(first.Encryption, otherSalt.Encryption) {
		t.Error("different salts produced the same encryption subkey")
	}
}

func TestComputeTag(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	tag := ComputeTag(key, "c2FsdA==", "aXY=", "Y3Q=")
	same := ComputeTag(key, "c2FsdA==", "aXY=", "Y3Q=")
	if !TagsEqual(tag, same) {
		t.Fatal("identical inputs produced different tags")
	}

	different := ComputeTag(key, "c2FsdA==", "aXY=", "Y3Q9")
	if TagsEqual(tag, different) {
		t.Error("different ciphertext produced the same tag")
	}
}

func TestIsWeakKey(t *testing.T) {
	if !IsWeakKey(make([]byte, 32)) {
		t.Error("all-zero key not flagged as weak")
	}
	if !IsWeakKey(bytes.Repeat([]byte{0xAB}, 32)) {
		t.Error("repeated-byte key not flagged as weak")
	}
	if !IsWeakKey([]byte("short")) {
		t.Error("short key not flagged as weak")
	}

	strong, err := RandomBytes(32)
	if err != nil {
		t.Fatalf("failed to generate random bytes: %v", err)
	}
	if IsWeakKey(strong) {
		t.Error("random 32-byte key flagged as weak")
	}
}
