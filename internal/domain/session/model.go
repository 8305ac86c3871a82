// Package session tracks login lifecycle per account: a login history, a
// free-form activity log and per-user counters including the consecutive-day
// login streak. Tracking is best-effort; failures are logged and swallowed so
// they never gate a login.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Login methods recorded in history entries.
const (
	MethodPassword  = "password"
	MethodOTP       = "otp"
	MethodBiometric = "biometric"
	MethodSocial    = "social"
)

// ValidMethod reports whether m is a recognized login method.
func ValidMethod(m string) bool {
	switch m {
	case MethodPassword, MethodOTP, MethodBiometric, MethodSocial:
		return true
	}
	return false
}

// LoginEntry maps to the login_history table.
type LoginEntry struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	LoginTime  time.Time  `db:"login_time" json:"login_time"`
	LogoutTime *time.Time `db:"logout_time" json:"logout_time,omitempty"`
	IPAddress  string     `db:"ip_address" json:"ip_address"`
	UserAgent  string     `db:"user_agent" json:"user_agent"`
	Device     *string    `db:"device" json:"device,omitempty"`
	Method     string     `db:"method" json:"method"`
}

// Activity maps to the activity_log table.
type Activity struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Action    string    `db:"action" json:"action"`
	Detail    *string   `db:"detail" json:"detail,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Stats maps to the session_stats table, one row per user.
type Stats struct {
	UserID              uuid.UUID  `db:"user_id" json:"user_id"`
	TotalLogins         int        `db:"total_logins" json:"total_logins"`
	SessionCount        int        `db:"session_count" json:"session_count"`
	LoginStreak         int        `db:"login_streak" json:"login_streak"`
	TotalSessionMinutes int        `db:"total_session_minutes" json:"total_session_minutes"`
	LastLoginAt         *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// NextStreak returns the streak value after a login at now, given the
// previous login time. Consecutive calendar days extend the streak, a
// same-day repeat leaves it unchanged, anything else resets it to 1.
func NextStreak(current int, previous *time.Time, now time.Time) int {
	if previous == nil || current == 0 {
		return 1
	}
	prevDay := previous.UTC().Truncate(24 * time.Hour)
	today := now.UTC().Truncate(24 * time.Hour)
	switch today.Sub(prevDay) {
	case 0:
		return current
	case 24 * time.Hour:
		return current + 1
	default:
		return 1
	}
}
