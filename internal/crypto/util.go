package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"

	"southwinds.dev/rotor/internal/misc"
)

// SubKeys holds the two independent subkeys split out of a single key
// derivation: one for the symmetric cipher, one for message authentication.
type SubKeys struct {
	Encryption []byte
	HMAC       []byte
}

// DeriveSubKeys runs Argon2id over the secret key and salt and splits the
// double-length output into the encryption and HMAC subkeys. The derivation
// is deterministic for a given (secretKey, salt) pair so decryption can
// re-derive the same keys from the salt embedded in the envelope.
func DeriveSubKeys(secretKey, salt []byte) SubKeys {
	material := argon2.IDKey(
		secretKey,
		salt,
		misc.ArgonTime,
		misc.ArgonMemory,
		misc.ArgonThreads,
		2*misc.ArgonKeyLen,
	)
	return SubKeys{
		Encryption: material[:misc.ArgonKeyLen],
		HMAC:       material[misc.ArgonKeyLen:],
	}
}

// ComputeTag calculates HMAC-SHA-256 over the transport-encoded salt, IV and
// ciphertext, in that order. Authenticating the encoded segments means the
// tag covers exactly the bytes that travel inside the envelope.
func ComputeTag(hmacKey []byte, encodedSalt, encodedIV, encodedCipherText string) []byte {
	mac := hmac.New(sha256.New, hmacKey)
	mac.Write([]byte(encodedSalt))
	mac.Write([]byte(encodedIV))
	mac.Write([]byte(encodedCipherText))
	return mac.Sum(nil)
}

// TagsEqual compares two authentication tags in constant time.
func TagsEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// RandomBytes returns n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return buf, nil
}

// HashKey returns a truncated SHA-256 digest of a secret key value, suitable
// for audit comparison. The raw key is never recorded.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:misc.KeyHashLength]
}

// CalculateChecksum calculates SHA-256 checksum of data
func CalculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// IsWeakKey reports whether generated key material has obviously poor
// entropy: too short, all zeros, a single repeated byte, or too few distinct
// byte values.
func IsWeakKey(key []byte) bool {
	if len(key) < 32 {
		return true
	}

	allZero := true
	for _, b := range key {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return true
	}

	firstByte := key[0]
	allSame := true
	for _, b := range key[1:] {
		if b != firstByte {
			allSame = false
			break
		}
	}
	if allSame {
		return true
	}

	uniqueBytes := make(map[byte]bool)
	for _, b := range key {
		uniqueBytes[b] = true
	}
	return len(uniqueBytes) < 16
}
