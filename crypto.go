package rotor

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"

	"southwinds.dev/rotor/internal/crypto"
	"southwinds.dev/rotor/internal/misc"
)

// Engine encrypts and decrypts individual values. Implementations are
// stateless: every call derives its own keys from the secret key and the
// per-value salt.
type Engine interface {
	Encrypt(plaintext, secretKey string) (string, error)
	Decrypt(envelope, secretKey string) (string, error)
}

// CryptoEngine is the production Engine: Argon2id key derivation,
// AES-256-CTR for confidentiality and HMAC-SHA-256 in an
// encrypt-then-MAC construction, packaged in the versioned envelope format.
type CryptoEngine struct{}

// NewCryptoEngine returns a ready-to-use engine.
func NewCryptoEngine() *CryptoEngine {
	return &CryptoEngine{}
}

// Encrypt encrypts a plaintext value under the secret key and returns the
// serialized envelope.
//
// A fresh random salt and IV are generated for every call; neither is ever
// reused. The secret key and salt are run through Argon2id to derive the
// cipher and HMAC subkeys, the plaintext is encrypted with AES-256-CTR, and
// the authentication tag is computed over the transport-encoded salt, IV and
// ciphertext so the tag covers exactly the bytes stored in the envelope.
func (e *CryptoEngine) Encrypt(plaintext, secretKey string) (string, error) {
	if err := validateSecretKey(secretKey); err != nil {
		return "", err
	}
	if plaintext == "" {
		return "", &ValidationError{Msg: "plaintext must be a non-empty string"}
	}

	salt, err := crypto.RandomBytes(misc.SaltSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	iv, err := crypto.RandomBytes(misc.IVSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	keys := crypto.DeriveSubKeys([]byte(secretKey), salt)

	block, err := aes.NewCipher(keys.Encryption)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	cipherText := make([]byte, len(plaintext))
	cipher.NewCTR(block, iv).XORKeyStream(cipherText, []byte(plaintext))

	encodedSalt := base64.StdEncoding.EncodeToString(salt)
	encodedIV := base64.StdEncoding.EncodeToString(iv)
	encodedCipherText := base64.StdEncoding.EncodeToString(cipherText)

	tag := crypto.ComputeTag(keys.HMAC, encodedSalt, encodedIV, encodedCipherText)
	encodedTag := base64.StdEncoding.EncodeToString(tag)

	return FormatEnvelope(encodedSalt, encodedIV, encodedCipherText, encodedTag), nil
}

// Decrypt parses an envelope, re-derives the subkeys from the embedded salt,
// verifies the authentication tag and only then decrypts.
//
// Verification strictly precedes decryption, so a tampered envelope never
// reaches the cipher. Any failure (parsing, tag mismatch, cipher decode) is
// returned as a DecryptionError wrapping the specific cause; the caller must
// treat it as fatal for that value.
func (e *CryptoEngine) Decrypt(envelope, secretKey string) (string, error) {
	if err := validateSecretKey(secretKey); err != nil {
		return "", err
	}
	if envelope == "" {
		return "", &ValidationError{Msg: "ciphertext must be a non-empty string"}
	}

	parts, err := ParseEnvelope(envelope)
	if err != nil {
		return "", &DecryptionError{Err: err}
	}

	salt, err := base64.StdEncoding.DecodeString(parts.Salt)
	if err != nil {
		return "", &DecryptionError{Err: &FormatError{Msg: "salt is not valid base64"}}
	}

	iv, err := base64.StdEncoding.DecodeString(parts.IV)
	if err != nil {
		return "", &DecryptionError{Err: &FormatError{Msg: "iv is not valid base64"}}
	}

	receivedTag, err := base64.StdEncoding.DecodeString(parts.HMAC)
	if err != nil {
		return "", &DecryptionError{Err: &FormatError{Msg: "hmac is not valid base64"}}
	}

	keys := crypto.DeriveSubKeys([]byte(secretKey), salt)

	expectedTag := crypto.ComputeTag(keys.HMAC, parts.Salt, parts.IV, parts.CipherText)
	if !crypto.TagsEqual(expectedTag, receivedTag) {
		return "", &DecryptionError{Err: &IntegrityError{Msg: "authentication tag mismatch"}}
	}

	cipherText, err := base64.StdEncoding.DecodeString(parts.CipherText)
	if err != nil {
		return "", &DecryptionError{Err: &FormatError{Msg: "ciphertext is not valid base64"}}
	}

	if len(iv) != misc.IVSize {
		return "", &DecryptionError{Err: &FormatError{Msg: "iv has wrong length"}}
	}

	block, err := aes.NewCipher(keys.Encryption)
	if err != nil {
		return "", &DecryptionError{Err: err}
	}

	plaintext := make([]byte, len(cipherText))
	cipher.NewCTR(block, iv).XORKeyStream(plaintext, cipherText)

	return string(plaintext), nil
}

func validateSecretKey(secretKey string) error {
	if secretKey == "" {
		return &ValidationError{Msg: "secret key must be a non-empty string"}
	}
	if len(secretKey) < misc.MinSecretKeyLength {
		return &ValidationError{
			Msg: fmt.Sprintf("secret key must be at least %d characters, got %d",
				misc.MinSecretKeyLength, len(secretKey)),
		}
	}
	return nil
}
