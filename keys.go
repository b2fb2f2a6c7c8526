package rotor

import (
	"encoding/base64"
	"fmt"

	"southwinds.dev/rotor/internal/crypto"
	"southwinds.dev/rotor/internal/misc"
)

// GenerateSecretKey produces a new secret key: 32 bytes from a
// cryptographically secure random source, base64 encoded. The raw entropy is
// rejected and redrawn in the unlikely case it looks degenerate (all zero or
// a single repeated byte).
func GenerateSecretKey() (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		raw, err := crypto.RandomBytes(misc.SecretKeyBytes)
		if err != nil {
			return "", fmt.Errorf("failed to generate secret key: %w", err)
		}
		if crypto.IsWeakKey(raw) {
			continue
		}
		return base64.StdEncoding.EncodeToString(raw), nil
	}
	return "", fmt.Errorf("random source produced degenerate key material")
}

// KeyHash returns a short non-reversible fingerprint of a secret key,
// suitable for logs and audit records. It never exposes key material.
func KeyHash(secretKey string) string {
	return crypto.HashKey(secretKey)
}
