package clinic

import (
	"testing"
	"time"
)

func TestExpiredComputedLive(t *testing.T) {
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	v := &ValidityPeriod{EndDate: end, IsExpired: false}

	if v.Expired(end.Add(-time.Hour)) {
		t.Fatal("not yet expired")
	}
	if !v.Expired(end.Add(time.Hour)) {
		t.Fatal("expected expired")
	}
	// cached flag is stale on purpose; live computation wins
	v.IsExpired = true
	if v.Expired(end.Add(-time.Hour)) {
		t.Fatal("cached flag must not drive the live check")
	}
}

func TestExpiredExactlyAtEndDate(t *testing.T) {
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	v := &ValidityPeriod{EndDate: end}
	if v.Expired(end) {
		t.Fatal("end date itself is still valid")
	}
}

func TestDaysUntilExpiry(t *testing.T) {
	end := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	v := &ValidityPeriod{EndDate: end}

	cases := []struct {
		now  time.Time
		want int
	}{
		{end.AddDate(0, 0, -5), 5},
		{end.Add(-36 * time.Hour), 2},  // partial day rounds up
		{end.Add(-time.Minute), 1},
		{end, 0},
		{end.AddDate(0, 0, 3), -3},
	}
	for _, tc := range cases {
		if got := v.DaysUntilExpiry(tc.now); got != tc.want {
			t.Errorf("DaysUntilExpiry(%s) = %d, want %d", tc.now, got, tc.want)
		}
	}
}

func TestClinicValidate(t *testing.T) {
	c := &Clinic{Name: "Sunrise", AdminName: "Dr. Lee", AdminEmail: "lee@sunrise.com"}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	c.AdminEmail = " "
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for blank admin email")
	}
}

func TestMonthsBetween(t *testing.T) {
	a := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		b    time.Time
		want int
	}{
		{time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC), 12},
		{time.Date(2027, 1, 14, 0, 0, 0, 0, time.UTC), 11},
		{time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), 2},
		{time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tc := range cases {
		if got := monthsBetween(a, tc.b); got != tc.want {
			t.Errorf("monthsBetween(%s, %s) = %d, want %d", a, tc.b, got, tc.want)
		}
	}
}
