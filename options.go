package rotor

import (
	validation "github.com/jellydator/validation"

	"southwinds.dev/rotor/internal/misc"
)

// RotateOptions configures a single key rotation.
type RotateOptions struct {
	// KeyName is the logical name of the key being rotated.
	KeyName string `json:"key_name"`

	// Environment scopes the rotation to one deployment stage.
	Environment Stage `json:"environment"`

	// RotationDays is the new key's lifetime; the expiry is reset this many
	// days into the future on success. Defaults to misc.DefaultRotationDays.
	RotationDays int `json:"rotation_days"`

	// RotationReason is recorded in the rotation history entry.
	RotationReason RotationReason `json:"rotation_reason"`

	// ForceRotation skips the due-date check and rotates regardless of the
	// key's current status.
	ForceRotation bool `json:"force_rotation"`

	// DryRun runs the validation and decrypt phases only. No key is
	// generated and nothing is written; the result reports how many
	// variables a real rotation would re-encrypt.
	DryRun bool `json:"dry_run"`

	// PerformedBy attributes the rotation in metadata, history and audit
	// records. Defaults to the current OS user.
	PerformedBy string `json:"performed_by,omitempty"`
}

// Validate checks the options before any rotation work starts.
func (o RotateOptions) Validate() error {
	err := validation.ValidateStruct(&o,
		validation.Field(&o.KeyName,
			validation.Required.Error("key name is required"),
		),
		validation.Field(&o.Environment,
			validation.Required.Error("environment is required"),
			validation.In(stageValues()...).Error("environment must be one of dev, qa, uat, preprod, prod"),
		),
		validation.Field(&o.RotationDays,
			validation.Min(0).Error("rotation days must not be negative"),
		),
		validation.Field(&o.RotationReason,
			validation.In(
				ReasonScheduled, ReasonManual, ReasonCompromised, ReasonExpired,
			).Error("rotation reason must be one of scheduled, manual, compromised, expired"),
		),
	)
	if err != nil {
		return &ValidationError{Msg: err.Error()}
	}
	return nil
}

// withDefaults fills unset fields. Callers get deterministic behavior
// without having to spell out every knob.
func (o RotateOptions) withDefaults() RotateOptions {
	if o.RotationDays <= 0 {
		o.RotationDays = misc.DefaultRotationDays
	}
	if o.RotationReason == "" {
		o.RotationReason = ReasonManual
	}
	if o.PerformedBy == "" {
		o.PerformedBy = CurrentUser()
	}
	return o
}

func stageValues() []interface{} {
	stages := Stages()
	values := make([]interface{}, len(stages))
	for i, s := range stages {
		values[i] = s
	}
	return values
}
