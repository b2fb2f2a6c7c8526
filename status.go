package rotor

import (
	"fmt"

	"southwinds.dev/rotor/audit"
	"southwinds.dev/rotor/envfile"
)

// Severity buckets a rotation status report into one of three tiers.
type Severity string

const (
	SeverityOK           Severity = "ok"
	SeverityExpiringSoon Severity = "expiring_soon"
	SeverityExpired      Severity = "expired"
)

// RotationStatus is the composed health report for one key: its derived
// lifecycle status, how many variables its key currently protects and a
// human-readable recommendation.
type RotationStatus struct {
	KeyName            string    `json:"key_name"`
	Environment        Stage     `json:"environment"`
	Status             KeyStatus `json:"status"`
	DaysRemaining      int       `json:"days_remaining"`
	RotationCount      int       `json:"rotation_count"`
	EncryptedVariables int       `json:"encrypted_variables"`
	Severity           Severity  `json:"severity"`
	Recommendation     string    `json:"recommendation"`
	Tracked            bool      `json:"tracked"`
}

// CheckRotationStatus composes the expiration policy, the stored metadata
// and a count of currently-encrypted variables into a single report. An
// untracked key comes back with Tracked=false and a recommendation to
// generate metadata; it is not an error.
func (r *Rotator) CheckRotationStatus(keyName string, env Stage) (*RotationStatus, error) {
	meta, found, err := r.metadata.GetStatus(keyName)
	if err != nil {
		return nil, err
	}

	encrypted, err := r.countEncryptedVariables(env)
	if err != nil {
		return nil, err
	}

	report := &RotationStatus{
		KeyName:            keyName,
		Environment:        env,
		EncryptedVariables: encrypted,
		Tracked:            found,
	}

	if !found {
		report.Severity = SeverityOK
		report.Recommendation = fmt.Sprintf(
			"key %s is not tracked; run an encrypt pass to create its metadata", keyName)
		r.auditStatusCheck(report)
		return report, nil
	}

	days, err := DaysUntilExpiration(meta.ExpiresAt)
	if err != nil {
		return nil, err
	}

	report.Status = meta.Status
	report.DaysRemaining = days
	report.RotationCount = meta.RotationCount

	switch meta.Status {
	case KeyStatusExpired:
		report.Severity = SeverityExpired
		report.Recommendation = fmt.Sprintf(
			"key %s expired %d day(s) ago; rotate now, %d encrypted variable(s) depend on it",
			keyName, -days, encrypted)
	case KeyStatusExpiringSoon:
		report.Severity = SeverityExpiringSoon
		report.Recommendation = fmt.Sprintf(
			"key %s expires in %d day(s); schedule a rotation for its %d encrypted variable(s)",
			keyName, days, encrypted)
	default:
		report.Severity = SeverityOK
		report.Recommendation = fmt.Sprintf(
			"key %s is healthy; next rotation due in %d day(s)", keyName, days)
	}

	r.auditStatusCheck(report)
	return report, nil
}

func (r *Rotator) countEncryptedVariables(env Stage) (int, error) {
	varFile := r.resolver.VariableFilePath(env)
	keyVar := r.resolver.SecretKeyName(env)

	lines, err := envfile.ReadAll(varFile)
	if err != nil {
		return 0, err
	}

	count := 0
	for name, value := range envfile.ExtractVariables(lines) {
		if name == keyVar {
			continue
		}
		if IsEncrypted(value) {
			count++
		}
	}
	return count, nil
}

func (r *Rotator) auditStatusCheck(report *RotationStatus) {
	r.logger.Log(audit.Entry{
		Action:      audit.ActionExpireCheck,
		KeyName:     report.KeyName,
		Environment: string(report.Environment),
		Status:      audit.StatusSuccess,
		Details:     report.Recommendation,
	})
}
