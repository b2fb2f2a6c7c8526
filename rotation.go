package rotor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/awnumar/memguard"

	"southwinds.dev/rotor/audit"
	"southwinds.dev/rotor/envfile"
	"southwinds.dev/rotor/internal/mem"
	"southwinds.dev/rotor/internal/misc"
)

// RotationState names the phase a rotation attempt is in. The sequence is
// Validating, Decrypting, then either DryRunDone or Generating, Storing,
// ReEncrypting, Persisting, Tracking, ending in Done or Failed.
type RotationState string

const (
	StateValidating   RotationState = "validating"
	StateDecrypting   RotationState = "decrypting"
	StateDryRunDone   RotationState = "dry_run_done"
	StateGenerating   RotationState = "generating"
	StateStoring      RotationState = "storing"
	StateReEncrypting RotationState = "re_encrypting"
	StatePersisting   RotationState = "persisting"
	StateTracking     RotationState = "tracking"
	StateDone         RotationState = "done"
	StateFailed       RotationState = "failed"
)

// RotationResult is the outcome of one rotation attempt. Key hashes are
// present only on a real success, never on a dry run or a failure.
type RotationResult struct {
	Success            bool          `json:"success"`
	KeyName            string        `json:"key_name"`
	Environment        Stage         `json:"environment"`
	VariablesProcessed int           `json:"variables_processed"`
	VariablesFailed    []string      `json:"variables_failed,omitempty"`
	OldKeyHash         string        `json:"old_key_hash,omitempty"`
	NewKeyHash         string        `json:"new_key_hash,omitempty"`
	Duration           time.Duration `json:"duration"`
	State              RotationState `json:"state"`
	DryRun             bool          `json:"dry_run,omitempty"`
	Error              string        `json:"error,omitempty"`
}

// Rotator orchestrates secret key rotation: it decrypts every encrypted
// variable under the old key, generates and stores a new key, re-encrypts
// the same set under the new key and records the outcome in the metadata,
// history and audit stores.
//
// A Rotator is a single logical worker. Concurrent rotations of the same key
// from independent processes are not safe; there is no cross-process locking
// on the variable file or the stores.
type Rotator struct {
	engine     Engine
	metadata   *MetadataStore
	history    *RotationHistoryStore
	tracking   *EncryptionTrackingStore
	logger     audit.Logger
	resolver   EnvironmentResolver
	protection mem.ProtectionLevel
}

// NewRotator wires an orchestrator from its collaborators. The audit logger
// is wrapped so bookkeeping failures never abort a rotation. Memory locking
// is attempted so key material is not swapped to disk; a degraded protection
// level is reported by MemoryProtection, not treated as an error.
func NewRotator(engine Engine, metadata *MetadataStore, history *RotationHistoryStore,
	tracking *EncryptionTrackingStore, logger audit.Logger, resolver EnvironmentResolver) *Rotator {
	protection, _ := mem.Lock()
	return &Rotator{
		engine:     engine,
		metadata:   metadata,
		history:    history,
		tracking:   tracking,
		logger:     audit.NewBestEffort(logger),
		resolver:   resolver,
		protection: protection,
	}
}

// MemoryProtection reports the level of memory locking achieved at
// construction: "full", "partial" or "none".
func (r *Rotator) MemoryProtection() string {
	return r.protection.String()
}

// decryptedVariable is one variable as seen during the decrypt pass.
type decryptedVariable struct {
	name         string
	plaintext    string
	wasEncrypted bool
}

// RotateKeyWithReEncryption performs one complete rotation.
//
// Pre-condition violations surface as errors before any state changes: bad
// options, a missing current key, or a key that is not yet due (a
// RotationNotNeededError, overridable with ForceRotation). Once the rotation
// is underway, failures no longer propagate as errors; they come back as a
// RotationResult with Success=false and the cause in Error, after a failed
// rotation entry has been recorded. This keeps the batch caller's contract
// simple: inspect per-result Success.
//
// Ordering is load-bearing: decrypt-all strictly precedes key generation,
// which precedes re-encrypt-all, which precedes persistence. The decrypt
// pass is fail-fast and happens before any mutation, so a rotation that
// cannot read its corpus changes nothing.
func (r *Rotator) RotateKeyWithReEncryption(options RotateOptions) (*RotationResult, error) {
	start := time.Now()

	if err := options.Validate(); err != nil {
		return nil, err
	}
	options = options.withDefaults()

	// Validating
	if !options.ForceRotation {
		meta, found, err := r.metadata.GetStatus(options.KeyName)
		if err != nil {
			return nil, err
		}
		if found && meta.Status == KeyStatusActive {
			days, _ := DaysUntilExpiration(meta.ExpiresAt)
			return nil, &RotationNotNeededError{KeyName: options.KeyName, DaysRemaining: days}
		}
	}

	varFile := r.resolver.VariableFilePath(options.Environment)
	keyVar := r.resolver.SecretKeyName(options.Environment)

	oldKey, found, err := envfile.GetValue(varFile, keyVar)
	if err != nil {
		return nil, err
	}
	if !found || oldKey == "" {
		return nil, &ValidationError{
			Msg: fmt.Sprintf("no secret key %s found in %s", keyVar, varFile),
		}
	}
	oldKeyEnclave := memguard.NewEnclave([]byte(oldKey))
	oldKeyHash := KeyHash(oldKey)

	// Decrypting
	lines, err := envfile.ReadAll(varFile)
	if err != nil {
		return r.fail(options, StateDecrypting, oldKeyHash, "", start, err), nil
	}

	decrypted, failedNames, err := r.decryptAll(lines, keyVar, oldKeyEnclave)
	if err != nil {
		return r.fail(options, StateDecrypting, oldKeyHash, "", start, err), nil
	}
	if len(failedNames) > 0 {
		err = &DecryptionError{Err: fmt.Errorf("failed to decrypt variables: %s",
			strings.Join(failedNames, ", "))}
		result := r.fail(options, StateDecrypting, oldKeyHash, "", start, err)
		result.VariablesFailed = failedNames
		return result, nil
	}

	encryptedCount := 0
	for _, dv := range decrypted {
		if dv.wasEncrypted {
			encryptedCount++
		}
	}

	if options.DryRun {
		r.logger.Log(audit.Entry{
			Action:      audit.ActionRotate,
			KeyName:     options.KeyName,
			Environment: string(options.Environment),
			Status:      audit.StatusSuccess,
			PerformedBy: options.PerformedBy,
			Details:     fmt.Sprintf("dry run: %d variables would be re-encrypted", encryptedCount),
		})
		return &RotationResult{
			Success:            true,
			KeyName:            options.KeyName,
			Environment:        options.Environment,
			VariablesProcessed: encryptedCount,
			Duration:           time.Since(start),
			State:              StateDryRunDone,
			DryRun:             true,
		}, nil
	}

	// Generating
	newKey, err := GenerateSecretKey()
	if err != nil {
		return r.fail(options, StateGenerating, oldKeyHash, "", start, err), nil
	}
	newKeyEnclave := memguard.NewEnclave([]byte(newKey))
	newKeyHash := KeyHash(newKey)
	newKey = ""

	// Storing: persist the new key under the same name, then re-verify it
	// is retrievable before anything depends on it.
	if err = r.storeNewKey(varFile, keyVar, newKeyEnclave); err != nil {
		return r.fail(options, StateStoring, oldKeyHash, newKeyHash, start, err), nil
	}

	// ReEncrypting
	updates, failedNames, err := r.reEncryptAll(decrypted, newKeyEnclave)
	if err != nil {
		return r.fail(options, StateReEncrypting, oldKeyHash, newKeyHash, start, err), nil
	}
	if len(failedNames) > 0 {
		err = &PartialFailureError{Op: "re-encrypt", FailedKeys: failedNames}
		result := r.fail(options, StateReEncrypting, oldKeyHash, newKeyHash, start, err)
		result.VariablesFailed = failedNames
		return result, nil
	}

	// Persisting: the file has changed since the decrypt pass (the new key
	// was just stored in it), so re-read the lines before updating.
	lines, err = envfile.ReadAll(varFile)
	if err != nil {
		return r.fail(options, StatePersisting, oldKeyHash, newKeyHash, start, err), nil
	}
	if err = envfile.WriteAll(varFile, envfile.UpdateMany(lines, updates)); err != nil {
		return r.fail(options, StatePersisting, oldKeyHash, newKeyHash, start, err), nil
	}

	// Tracking
	if _, err = r.metadata.Track(options.KeyName, options.Environment, TrackOptions{
		RotationDays: options.RotationDays,
		IsRotation:   true,
		Algorithm:    "AES-256-CTR",
		KeyLength:    misc.SecretKeyBytes * 8,
		PerformedBy:  options.PerformedBy,
	}); err != nil {
		return r.fail(options, StateTracking, oldKeyHash, newKeyHash, start, err), nil
	}

	r.appendHistory(options, oldKeyHash, newKeyHash, true)
	r.logger.Log(audit.Entry{
		Action:      audit.ActionRotate,
		KeyName:     options.KeyName,
		Environment: string(options.Environment),
		Status:      audit.StatusSuccess,
		PerformedBy: options.PerformedBy,
		Details:     fmt.Sprintf("rotated key, re-encrypted %d variables", len(updates)),
	})

	return &RotationResult{
		Success:            true,
		KeyName:            options.KeyName,
		Environment:        options.Environment,
		VariablesProcessed: len(updates),
		OldKeyHash:         oldKeyHash,
		NewKeyHash:         newKeyHash,
		Duration:           time.Since(start),
		State:              StateDone,
	}, nil
}

// decryptAll walks every variable in the file and decrypts the encrypted
// ones with the old key. It collects the names of all variables that fail
// instead of stopping at the first, so the caller can report the full set.
func (r *Rotator) decryptAll(lines []string, keyVar string, oldKey *memguard.Enclave) ([]decryptedVariable, []string, error) {
	buf, err := oldKey.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open key enclave: %w", err)
	}
	defer buf.Destroy()
	secretKey := buf.String()

	vars := envfile.ExtractVariables(lines)
	names := make([]string, 0, len(vars))
	for name := range vars {
		if name == keyVar {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var decrypted []decryptedVariable
	var failed []string
	for _, name := range names {
		value := vars[name]
		if !IsEncrypted(value) {
			decrypted = append(decrypted, decryptedVariable{name: name, plaintext: value})
			continue
		}
		plaintext, err := r.engine.Decrypt(value, secretKey)
		if err != nil {
			failed = append(failed, name)
			continue
		}
		decrypted = append(decrypted, decryptedVariable{
			name:         name,
			plaintext:    plaintext,
			wasEncrypted: true,
		})
	}
	return decrypted, failed, nil
}

// reEncryptAll encrypts every originally-encrypted variable under the new
// key. Individual failures are collected rather than fatal, so the caller
// learns about every failing variable in one pass.
func (r *Rotator) reEncryptAll(decrypted []decryptedVariable, newKey *memguard.Enclave) (map[string]string, []string, error) {
	buf, err := newKey.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open key enclave: %w", err)
	}
	defer buf.Destroy()
	secretKey := buf.String()

	updates := make(map[string]string)
	var failed []string
	for _, dv := range decrypted {
		if !dv.wasEncrypted {
			continue
		}
		envelope, err := r.engine.Encrypt(dv.plaintext, secretKey)
		if err != nil {
			failed = append(failed, dv.name)
			continue
		}
		updates[dv.name] = envelope
	}
	return updates, failed, nil
}

func (r *Rotator) storeNewKey(varFile, keyVar string, newKey *memguard.Enclave) error {
	buf, err := newKey.Open()
	if err != nil {
		return fmt.Errorf("failed to open key enclave: %w", err)
	}
	defer buf.Destroy()
	value := buf.String()

	if err = envfile.Store(varFile, keyVar, value, false); err != nil {
		return fmt.Errorf("failed to store new key: %w", err)
	}

	stored, found, err := envfile.GetValue(varFile, keyVar)
	if err != nil {
		return fmt.Errorf("failed to re-read new key: %w", err)
	}
	if !found || stored != value {
		return fmt.Errorf("new key was not retrievable after store")
	}
	return nil
}

// fail records a failed rotation entry, emits an audit record and converts
// the error into a structured failure result. History and audit writes here
// are best-effort; the original failure is what the caller sees.
func (r *Rotator) fail(options RotateOptions, state RotationState, oldKeyHash, newKeyHash string,
	start time.Time, cause error) *RotationResult {
	r.appendHistory(options, oldKeyHash, newKeyHash, false)
	r.logger.Log(audit.Entry{
		Action:      audit.ActionRotate,
		KeyName:     options.KeyName,
		Environment: string(options.Environment),
		Status:      audit.StatusFailure,
		PerformedBy: options.PerformedBy,
		Details:     fmt.Sprintf("rotation failed in state %s: %v", state, cause),
	})
	return &RotationResult{
		Success:     false,
		KeyName:     options.KeyName,
		Environment: options.Environment,
		Duration:    time.Since(start),
		State:       StateFailed,
		Error:       cause.Error(),
	}
}

func (r *Rotator) appendHistory(options RotateOptions, oldKeyHash, newKeyHash string, success bool) {
	entry := SecretKeyRotationEntry{
		KeyName:        options.KeyName,
		Environment:    options.Environment,
		RotationDate:   time.Now().UTC(),
		RotationReason: options.RotationReason,
		PerformedBy:    options.PerformedBy,
		Success:        success,
	}
	if success {
		entry.PreviousKeyHash = oldKeyHash
		entry.NewKeyHash = newKeyHash
	}
	if err := r.history.Append(entry); err != nil {
		r.logger.Log(audit.Entry{
			Action:  audit.ActionRotate,
			KeyName: options.KeyName,
			Status:  audit.StatusWarning,
			Details: fmt.Sprintf("failed to append rotation history: %v", err),
		})
	}
}

// RotateAllExpiredKeys rotates every key whose status is expired. Each key
// is rotated independently with ForceRotation set and the expired reason; a
// failure in one key does not stop the others. Callers inspect per-result
// Success.
func (r *Rotator) RotateAllExpiredKeys(options RotateOptions) ([]RotationResult, error) {
	expired, err := r.metadata.KeysNeedingRotation()
	if err != nil {
		return nil, err
	}

	results := make([]RotationResult, 0, len(expired))
	for _, meta := range expired {
		opts := options
		opts.KeyName = meta.KeyName
		opts.Environment = meta.Environment
		opts.RotationReason = ReasonExpired
		opts.ForceRotation = true
		if opts.RotationDays <= 0 {
			opts.RotationDays = meta.RotationDays
		}

		result, err := r.RotateKeyWithReEncryption(opts)
		if err != nil {
			results = append(results, RotationResult{
				Success:     false,
				KeyName:     meta.KeyName,
				Environment: meta.Environment,
				State:       StateFailed,
				Error:       err.Error(),
			})
			continue
		}
		results = append(results, *result)
	}
	return results, nil
}
