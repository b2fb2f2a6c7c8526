package rotor

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"southwinds.dev/rotor/internal/misc"
)

const testSecretKey = "unit-test-secret-key-0123456789"

func TestCryptoEngine(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*testing.T)
	}{
		{"EncryptDecryptRoundTrip", testEncryptDecryptRoundTrip},
		{"EncryptProducesUniqueEnvelopes", testEncryptProducesUniqueEnvelopes},
		{"DecryptRejectsTamperedSegments", testDecryptRejectsTamperedSegments},
		{"DecryptRejectsWrongKey", testDecryptRejectsWrongKey},
		{"InputValidation", testCryptoInputValidation},
		{"GenerateSecretKey", testGenerateSecretKey},
		{"KeyHash", testKeyHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t)
		})
	}
}

func testEncryptDecryptRoundTrip(t *testing.T) {
	engine := NewCryptoEngine()

	plaintexts := []string{
		"db-password-123",
		"value with spaces and = signs == inside",
		"unicode: käse, 秘密, 🔑",
		strings.Repeat("long", 1024),
	}

	for _, plaintext := range plaintexts {
		envelope, err := engine.Encrypt(plaintext, testSecretKey)
		if err != nil {
			t.Fatalf("encrypt failed: %v", err)
		}
		if !IsEncrypted(envelope) {
			t.Fatalf("encrypt output is not a detectable envelope: %s", envelope)
		}

		decrypted, err := engine.Decrypt(envelope, testSecretKey)
		if err != nil {
			t.Fatalf("decrypt failed: %v", err)
		}
		if decrypted != plaintext {
			t.Errorf("round trip mismatch: got %q, want %q", decrypted, plaintext)
		}
	}
}

func testEncryptProducesUniqueEnvelopes(t *testing.T) {
	engine := NewCryptoEngine()

	first, err := engine.Encrypt("same plaintext", testSecretKey)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	second, err := engine.Encrypt("same plaintext", testSecretKey)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if first == second {
		t.Error("two encryptions of the same plaintext produced identical envelopes; salt or iv is being reused")
	}

	firstParts, _ := ParseEnvelope(first)
	secondParts, _ := ParseEnvelope(second)
	if firstParts.Salt == secondParts.Salt {
		t.Error("salt reused across encryptions")
	}
	if firstParts.IV == secondParts.IV {
		t.Error("iv reused across encryptions")
	}
}

func testDecryptRejectsTamperedSegments(t *testing.T) {
	engine := NewCryptoEngine()

	envelope, err := engine.Encrypt("sensitive value", testSecretKey)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	parts, err := ParseEnvelope(envelope)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	flip := func(encoded string) string {
		raw, _ := base64.StdEncoding.DecodeString(encoded)
		raw[0] ^= 0xff
		return base64.StdEncoding.EncodeToString(raw)
	}

	tampered := map[string]string{
		"salt":       FormatEnvelope(flip(parts.Salt), parts.IV, parts.CipherText, parts.HMAC),
		"iv":         FormatEnvelope(parts.Salt, flip(parts.IV), parts.CipherText, parts.HMAC),
		"ciphertext": FormatEnvelope(parts.Salt, parts.IV, flip(parts.CipherText), parts.HMAC),
		"hmac":       FormatEnvelope(parts.Salt, parts.IV, parts.CipherText, flip(parts.HMAC)),
	}

	for segment, bad := range tampered {
		_, err := engine.Decrypt(bad, testSecretKey)
		if err == nil {
			t.Errorf("tampered %s: expected decryption to fail", segment)
			continue
		}
		var decErr *DecryptionError
		if !errors.As(err, &decErr) {
			t.Errorf("tampered %s: expected DecryptionError, got %T", segment, err)
			continue
		}
		var integrityErr *IntegrityError
		if !errors.As(err, &integrityErr) {
			t.Errorf("tampered %s: expected wrapped IntegrityError, got %v", segment, err)
		}
	}
}

func testDecryptRejectsWrongKey(t *testing.T) {
	engine := NewCryptoEngine()

	envelope, err := engine.Encrypt("sensitive value", testSecretKey)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	_, err = engine.Decrypt(envelope, "a-completely-different-key-9876")
	if err == nil {
		t.Fatal("expected decryption with the wrong key to fail")
	}
	var integrityErr *IntegrityError
	if !errors.As(err, &integrityErr) {
		t.Errorf("expected IntegrityError for wrong key, got %v", err)
	}
}

func testCryptoInputValidation(t *testing.T) {
	engine := NewCryptoEngine()

	assertValidation := func(name string, err error) {
		if err == nil {
			t.Errorf("%s: expected validation error", name)
			return
		}
		var valErr *ValidationError
		if !errors.As(err, &valErr) {
			t.Errorf("%s: expected ValidationError, got %T: %v", name, err, err)
		}
	}

	_, err := engine.Encrypt("", testSecretKey)
	assertValidation("encrypt empty plaintext", err)

	_, err = engine.Encrypt("value", "")
	assertValidation("encrypt empty key", err)

	_, err = engine.Encrypt("value", "short")
	assertValidation("encrypt short key", err)

	_, err = engine.Decrypt("", testSecretKey)
	assertValidation("decrypt empty ciphertext", err)

	_, err = engine.Decrypt("whatever", "short")
	assertValidation("decrypt short key", err)
}

func testGenerateSecretKey(t *testing.T) {
	key, err := GenerateSecretKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		t.Fatalf("generated key is not valid base64: %v", err)
	}
	if len(raw) != misc.SecretKeyBytes {
		t.Errorf("expected %d raw key bytes, got %d", misc.SecretKeyBytes, len(raw))
	}
	if len(key) < misc.MinSecretKeyLength {
		t.Errorf("generated key shorter than the engine minimum: %d", len(key))
	}

	other, err := GenerateSecretKey()
	if err != nil {
		t.Fatalf("failed to generate second key: %v", err)
	}
	if key == other {
		t.Error("two generated keys are identical")
	}
}

func testKeyHash(t *testing.T) {
	hash := KeyHash(testSecretKey)
	if len(hash) != misc.KeyHashLength {
		t.Errorf("expected hash of length %d, got %d", misc.KeyHashLength, len(hash))
	}
	if hash != KeyHash(testSecretKey) {
		t.Error("hash is not deterministic")
	}
	if hash == KeyHash("another-key-value-123456") {
		t.Error("different keys produced the same hash")
	}
	if strings.Contains(hash, testSecretKey) {
		t.Error("hash leaks key material")
	}
}
