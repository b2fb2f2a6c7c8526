package rotor

import (
	"errors"
	"testing"
	"time"

	"southwinds.dev/rotor/internal/misc"
)

func TestExpirationPolicy(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*testing.T)
	}{
		{"ExpirationDate", testExpirationDate},
		{"DaysUntilExpiration", testDaysUntilExpiration},
		{"StatusBoundaries", testStatusBoundaries},
		{"StatusIsIdempotent", testStatusIsIdempotent},
		{"InvalidDate", testInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t)
		})
	}
}

func testExpirationDate(t *testing.T) {
	from := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	expires := ExpirationDate(from, 90)
	if want := from.Add(90 * 24 * time.Hour); !expires.Equal(want) {
		t.Errorf("expected %v, got %v", want, expires)
	}

	// Zero start means now.
	before := time.Now()
	expires = ExpirationDate(time.Time{}, 1)
	if expires.Before(before.Add(24 * time.Hour)) {
		t.Errorf("expiry from zero start is in the past: %v", expires)
	}
}

func testDaysUntilExpiration(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		expiresAt time.Time
		want      int
	}{
		{"ninety days out", now.Add(90 * 24 * time.Hour), 90},
		{"half a day out", now.Add(12 * time.Hour), 0},
		{"exactly now", now, 0},
		{"one second ago", now.Add(-time.Second), -1},
		{"three days ago", now.Add(-3 * 24 * time.Hour), -3},
	}

	for _, tc := range cases {
		got, err := DaysUntilExpirationAt(tc.expiresAt, now)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: expected %d days, got %d", tc.name, tc.want, got)
		}
	}
}

func testStatusBoundaries(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	cases := []struct {
		name      string
		expiresAt time.Time
		want      KeyStatus
	}{
		{"eight days out is active", now.Add(8 * day), KeyStatusActive},
		{"seven days out is expiring soon", now.Add(7 * day), KeyStatusExpiringSoon},
		{"one day out is expiring soon", now.Add(day), KeyStatusExpiringSoon},
		{"expiring today is expiring soon", now.Add(time.Hour), KeyStatusExpiringSoon},
		{"one second past is expired", now.Add(-time.Second), KeyStatusExpired},
		{"long past is expired", now.Add(-30 * day), KeyStatusExpired},
	}

	for _, tc := range cases {
		got, err := StatusAt(tc.expiresAt, now, misc.ExpiryThresholdDays)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func testStatusIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expiresAt := now.Add(5 * 24 * time.Hour)

	first, err := StatusAt(expiresAt, now, misc.ExpiryThresholdDays)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := StatusAt(expiresAt, now, misc.ExpiryThresholdDays)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("classification changed between identical calls: %s then %s", first, second)
	}
}

func testInvalidDate(t *testing.T) {
	_, err := DaysUntilExpiration(time.Time{})
	if err == nil {
		t.Fatal("expected error for zero expiry date")
	}
	var dateErr *InvalidDateError
	if !errors.As(err, &dateErr) {
		t.Errorf("expected InvalidDateError, got %T: %v", err, err)
	}

	if _, err = Status(time.Time{}); err == nil {
		t.Error("expected status of zero expiry date to fail")
	}
}
