package rotor

import (
	"time"

	"southwinds.dev/rotor/internal/misc"
)

// KeyStatus classifies a key against its expiration date. The status is
// always recomputed from the stored expiry and the clock, never persisted as
// ground truth.
type KeyStatus string

const (
	KeyStatusActive       KeyStatus = "active"
	KeyStatusExpiringSoon KeyStatus = "expiring_soon"
	KeyStatusExpired      KeyStatus = "expired"
)

// ExpirationDate returns the UTC timestamp rotationDays whole days after
// from. A zero from means "starting now".
func ExpirationDate(from time.Time, rotationDays int) time.Time {
	if from.IsZero() {
		from = time.Now()
	}
	return from.UTC().Add(time.Duration(rotationDays) * 24 * time.Hour)
}

// DaysUntilExpiration returns the number of whole days remaining before
// expiresAt, negative once the date has passed. A zero expiresAt fails with
// InvalidDateError.
func DaysUntilExpiration(expiresAt time.Time) (int, error) {
	return DaysUntilExpirationAt(expiresAt, time.Now())
}

// DaysUntilExpirationAt is DaysUntilExpiration evaluated at an explicit
// clock reading.
func DaysUntilExpirationAt(expiresAt, now time.Time) (int, error) {
	if expiresAt.IsZero() {
		return 0, &InvalidDateError{Value: "expiration date is not set"}
	}
	remaining := expiresAt.Sub(now)
	days := int(remaining / (24 * time.Hour))
	// Integer division truncates toward zero; floor instead so that any
	// elapsed expiry, however recent, counts as a negative day.
	if remaining < 0 && remaining%(24*time.Hour) != 0 {
		days--
	}
	return days, nil
}

// Status classifies expiresAt against the default threshold of
// misc.ExpiryThresholdDays days.
func Status(expiresAt time.Time) (KeyStatus, error) {
	return StatusAt(expiresAt, time.Now(), misc.ExpiryThresholdDays)
}

// StatusAt is the pure form of Status: expired when the date has passed,
// expiring_soon when at most thresholdDays whole days remain, active
// otherwise. For a fixed now the classification is deterministic.
func StatusAt(expiresAt, now time.Time, thresholdDays int) (KeyStatus, error) {
	days, err := DaysUntilExpirationAt(expiresAt, now)
	if err != nil {
		return "", err
	}
	switch {
	case days < 0:
		return KeyStatusExpired, nil
	case days <= thresholdDays:
		return KeyStatusExpiringSoon, nil
	default:
		return KeyStatusActive, nil
	}
}
