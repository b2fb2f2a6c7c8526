package rotor

import "time"

// SecretKeyMetadata is the lifecycle record for one secret key. It is
// created on first generation and mutated in place on every rotation;
// CreatedAt never changes after creation and RotationCount only ever grows.
// Status is a derived field, recomputed from ExpiresAt on every read.
type SecretKeyMetadata struct {
	KeyName       string     `json:"key_name"`
	Environment   Stage      `json:"environment"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	RotationDays  int        `json:"rotation_days"`
	LastRotatedAt *time.Time `json:"last_rotated_at,omitempty"`
	RotationCount int        `json:"rotation_count"`
	Status        KeyStatus  `json:"status"`
	Algorithm     string     `json:"algorithm"`
	KeyLength     int        `json:"key_length"`
	PerformedBy   string     `json:"performed_by,omitempty"`
}

// RotationReason says why a rotation was performed.
type RotationReason string

const (
	ReasonScheduled   RotationReason = "scheduled"
	ReasonManual      RotationReason = "manual"
	ReasonCompromised RotationReason = "compromised"
	ReasonExpired     RotationReason = "expired"
)

// SecretKeyRotationEntry records one rotation attempt, successful or not.
// The key hashes are short SHA-256 fingerprints; raw key material is never
// written to history.
type SecretKeyRotationEntry struct {
	KeyName         string         `json:"key_name"`
	Environment     Stage          `json:"environment"`
	RotationDate    time.Time      `json:"rotation_date"`
	PreviousKeyHash string         `json:"previous_key_hash,omitempty"`
	NewKeyHash      string         `json:"new_key_hash,omitempty"`
	RotationReason  RotationReason `json:"rotation_reason"`
	PerformedBy     string         `json:"performed_by,omitempty"`
	Success         bool           `json:"success"`
}

// EncryptionEntry records one encrypt-all pass over a variable file.
type EncryptionEntry struct {
	Timestamp          time.Time `json:"timestamp"`
	KeyName            string    `json:"key_name"`
	Environment        Stage     `json:"environment"`
	VariablesEncrypted []string  `json:"variables_encrypted"`
	TotalVariables     int       `json:"total_variables"`
	SkippedVariables   []string  `json:"skipped_variables,omitempty"`
	AlreadyEncrypted   []string  `json:"already_encrypted,omitempty"`
	EmptyVariables     []string  `json:"empty_variables,omitempty"`
	PerformedBy        string    `json:"performed_by,omitempty"`
	DurationMs         int64     `json:"duration_ms"`
}
