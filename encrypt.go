package rotor

import (
	"fmt"
	"sort"
	"time"

	"southwinds.dev/rotor/audit"
	"southwinds.dev/rotor/envfile"
	"southwinds.dev/rotor/internal/misc"
)

// EnsureKey makes sure a stage has a secret key: if the key variable is
// absent from the stage's variable file a fresh key is generated, stored and
// tracked. An existing key is left untouched. It returns the key's logical
// name.
func (r *Rotator) EnsureKey(env Stage, rotationDays int, performedBy string) (string, error) {
	varFile := r.resolver.VariableFilePath(env)
	keyVar := r.resolver.SecretKeyName(env)

	if performedBy == "" {
		performedBy = CurrentUser()
	}
	if rotationDays <= 0 {
		rotationDays = misc.DefaultRotationDays
	}

	_, found, err := envfile.GetValue(varFile, keyVar)
	if err != nil {
		return "", err
	}
	if found {
		return keyVar, nil
	}

	key, err := GenerateSecretKey()
	if err != nil {
		return "", err
	}
	if err = envfile.Store(varFile, keyVar, key, true); err != nil {
		return "", err
	}

	if _, err = r.metadata.Track(keyVar, env, TrackOptions{
		RotationDays: rotationDays,
		Algorithm:    "AES-256-CTR",
		KeyLength:    misc.SecretKeyBytes * 8,
		PerformedBy:  performedBy,
	}); err != nil {
		return "", err
	}

	r.logger.Log(audit.Entry{
		Action:      audit.ActionCreate,
		KeyName:     keyVar,
		Environment: string(env),
		Status:      audit.StatusSuccess,
		PerformedBy: performedBy,
		Details:     "generated new secret key",
	})
	return keyVar, nil
}

// EncryptAllVariables encrypts every plaintext variable in a stage's file
// under the stage's secret key. The key variable itself is skipped, already
// encrypted values are left alone and empty values are reported but not
// touched. The pass is recorded in the encryption tracking store, which in
// turn mirrors it into the audit trail.
func (r *Rotator) EncryptAllVariables(env Stage, performedBy string) (*EncryptionEntry, error) {
	start := time.Now()

	varFile := r.resolver.VariableFilePath(env)
	keyVar := r.resolver.SecretKeyName(env)

	if performedBy == "" {
		performedBy = CurrentUser()
	}

	secretKey, found, err := envfile.GetValue(varFile, keyVar)
	if err != nil {
		return nil, err
	}
	if !found || secretKey == "" {
		return nil, &ValidationError{
			Msg: fmt.Sprintf("no secret key %s found in %s", keyVar, varFile),
		}
	}

	lines, err := envfile.ReadAll(varFile)
	if err != nil {
		return nil, err
	}
	vars := envfile.ExtractVariables(lines)

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	entry := EncryptionEntry{
		KeyName:        keyVar,
		Environment:    env,
		TotalVariables: len(names),
		PerformedBy:    performedBy,
	}

	updates := make(map[string]string)
	for _, name := range names {
		value := vars[name]
		switch {
		case name == keyVar:
			entry.SkippedVariables = append(entry.SkippedVariables, name)
		case value == "":
			entry.EmptyVariables = append(entry.EmptyVariables, name)
		case IsEncrypted(value):
			entry.AlreadyEncrypted = append(entry.AlreadyEncrypted, name)
		default:
			envelope, err := r.engine.Encrypt(value, secretKey)
			if err != nil {
				return nil, fmt.Errorf("failed to encrypt %s: %w", name, err)
			}
			updates[name] = envelope
			entry.VariablesEncrypted = append(entry.VariablesEncrypted, name)
		}
	}

	if len(updates) > 0 {
		if err = envfile.WriteAll(varFile, envfile.UpdateMany(lines, updates)); err != nil {
			return nil, err
		}
	}

	entry.DurationMs = time.Since(start).Milliseconds()
	if err = r.tracking.Record(entry); err != nil {
		// Bookkeeping only; the variables are already encrypted on disk.
		r.logger.Log(audit.Entry{
			Action:  audit.ActionEncrypt,
			KeyName: keyVar,
			Status:  audit.StatusWarning,
			Details: fmt.Sprintf("failed to record encryption event: %v", err),
		})
	}
	return &entry, nil
}

// VerifyResult summarizes a verification pass over a stage's variable file.
type VerifyResult struct {
	Environment Stage    `json:"environment"`
	Verified    int      `json:"verified"`
	Plaintext   int      `json:"plaintext"`
	Failed      []string `json:"failed,omitempty"`
}

// VerifyAll decrypts every encrypted variable in a stage's file to prove the
// corpus is readable under the current key. Nothing is written; failures are
// collected so one bad value does not mask the rest.
func (r *Rotator) VerifyAll(env Stage) (*VerifyResult, error) {
	varFile := r.resolver.VariableFilePath(env)
	keyVar := r.resolver.SecretKeyName(env)

	secretKey, found, err := envfile.GetValue(varFile, keyVar)
	if err != nil {
		return nil, err
	}
	if !found || secretKey == "" {
		return nil, &ValidationError{
			Msg: fmt.Sprintf("no secret key %s found in %s", keyVar, varFile),
		}
	}

	lines, err := envfile.ReadAll(varFile)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{Environment: env}
	vars := envfile.ExtractVariables(lines)

	names := make([]string, 0, len(vars))
	for name := range vars {
		if name == keyVar {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := vars[name]
		if !IsEncrypted(value) {
			result.Plaintext++
			continue
		}
		if _, err := r.engine.Decrypt(value, secretKey); err != nil {
			result.Failed = append(result.Failed, name)
			continue
		}
		result.Verified++
	}

	status := audit.StatusSuccess
	if len(result.Failed) > 0 {
		status = audit.StatusFailure
	}
	r.logger.Log(audit.Entry{
		Action:      audit.ActionVerify,
		KeyName:     keyVar,
		Environment: string(env),
		Status:      status,
		Details: fmt.Sprintf("verified %d variable(s), %d plaintext, %d failed",
			result.Verified, result.Plaintext, len(result.Failed)),
	})
	return result, nil
}
