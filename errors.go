package rotor

import (
	"fmt"
	"strings"
)

// ValidationError reports input that violates the engine's shape or length
// rules. It is never retried; the caller must fix the input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

// FormatError reports an envelope that does not match the wire format.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string {
	return "envelope format: " + e.Msg
}

// IntegrityError reports an authentication tag mismatch. The ciphertext has
// been altered or the wrong key was supplied; decryption is never attempted
// after this error.
type IntegrityError struct {
	Msg string
}

func (e *IntegrityError) Error() string {
	return "integrity: " + e.Msg
}

// DecryptionError wraps any failure while decrypting a value: envelope
// parsing, key derivation, tag verification or cipher decode. Fatal for that
// value; callers must not substitute a default.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decryption failed: %v", e.Err)
}

func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// RotationNotNeededError is the policy guard raised when a rotation is
// requested for a key that is still active. Recoverable by passing
// ForceRotation.
type RotationNotNeededError struct {
	KeyName       string
	DaysRemaining int
}

func (e *RotationNotNeededError) Error() string {
	return fmt.Sprintf("rotation not needed for %s: %d day(s) until expiration (use force to override)",
		e.KeyName, e.DaysRemaining)
}

// PartialFailureError names every variable that failed during a batch
// encrypt or decrypt step. The batch runs to completion before this error is
// raised so the caller sees the full failure set.
type PartialFailureError struct {
	Op         string
	FailedKeys []string
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s failed for %d variable(s): %s",
		e.Op, len(e.FailedKeys), strings.Join(e.FailedKeys, ", "))
}

// InvalidDateError reports an expiry timestamp that cannot be interpreted.
type InvalidDateError struct {
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date: %q", e.Value)
}
