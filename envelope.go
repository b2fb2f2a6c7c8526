package rotor

import (
	"encoding/base64"
	"strings"
)

// Envelope wire format:
//
//	ROTOR:v1:b64(salt):b64(iv):b64(cipherText):b64(hmac)
//
// The format is self-describing: the prefix marks a value as an envelope,
// the version segment selects the layout, and the four remaining segments
// are standard base64. Detection must never error on arbitrary input.
const (
	EnvelopePrefix    = "ROTOR:"
	EnvelopeVersion   = "v1"
	EnvelopeSeparator = ":"

	// envelopeParts is the number of encoded segments after the version:
	// salt, iv, cipherText, hmac.
	envelopeParts = 4
)

// EnvelopeParts holds the decoded-on-the-wire segments of one envelope.
// Each field is still base64 text; the engine decodes them as needed.
type EnvelopeParts struct {
	Salt       string
	IV         string
	CipherText string
	HMAC       string
}

// IsEncrypted reports whether a value is an envelope produced by this
// format. It is a pure detector: malformed input of any shape yields false,
// never an error.
func IsEncrypted(value string) bool {
	if !strings.HasPrefix(value, EnvelopePrefix) {
		return false
	}

	segments := strings.Split(strings.TrimPrefix(value, EnvelopePrefix), EnvelopeSeparator)
	if len(segments) != envelopeParts+1 {
		return false
	}

	if segments[0] != EnvelopeVersion {
		return false
	}

	for _, segment := range segments[1:] {
		if segment == "" {
			return false
		}
		if _, err := base64.StdEncoding.DecodeString(segment); err != nil {
			return false
		}
	}

	return true
}

// FormatEnvelope concatenates the encoded segments into the wire form. The
// caller is trusted; no validation is performed.
func FormatEnvelope(salt, iv, cipherText, hmac string) string {
	return EnvelopePrefix + EnvelopeVersion +
		EnvelopeSeparator + salt +
		EnvelopeSeparator + iv +
		EnvelopeSeparator + cipherText +
		EnvelopeSeparator + hmac
}

// ParseEnvelope is the inverse of FormatEnvelope. It accepts exactly the
// values IsEncrypted accepts and fails with a FormatError otherwise.
func ParseEnvelope(envelope string) (EnvelopeParts, error) {
	if !IsEncrypted(envelope) {
		return EnvelopeParts{}, &FormatError{Msg: "value is not a valid envelope"}
	}

	segments := strings.Split(strings.TrimPrefix(envelope, EnvelopePrefix), EnvelopeSeparator)
	return EnvelopeParts{
		Salt:       segments[1],
		IV:         segments[2],
		CipherText: segments[3],
		HMAC:       segments[4],
	}, nil
}
