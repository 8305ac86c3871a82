// Package clinic holds the tenant aggregate: the clinic account, its admin
// credentials, named additional users, and the paid validity period with its
// append-only renewal history.
package clinic

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinValidityMonths is the shortest subscription window accepted at
// registration and the minimum extension on every renewal.
const MinValidityMonths = 12

var (
	ErrValidityTooShort = errors.New("validity period must cover at least 12 months")
	ErrRenewalTooShort  = errors.New("renewal must extend the current end date by at least 12 months")
	ErrEmailTaken       = errors.New("email already registered for this clinic")
	ErrUserNotFound     = errors.New("additional user not found in this clinic")
)

// Clinic maps to the clinic table.
type Clinic struct {
	ID                uuid.UUID `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Address           *string   `db:"address" json:"address,omitempty"`
	Phone             *string   `db:"phone" json:"phone,omitempty"`
	AdminName         string    `db:"admin_name" json:"admin_name"`
	AdminEmail        string    `db:"admin_email" json:"admin_email"`
	AdminUsername     string    `db:"admin_username" json:"admin_username"`
	AdminPasswordHash string    `db:"admin_password_hash" json:"-"`
	IsActive          bool      `db:"is_active" json:"is_active"`

	ResetOTPCode    *string    `db:"reset_otp_code" json:"-"`
	ResetOTPExpires *time.Time `db:"reset_otp_expires" json:"-"`

	Validity        *ValidityPeriod  `db:"-" json:"validity,omitempty"`
	AdditionalUsers []AdditionalUser `db:"-" json:"additional_users,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (c *Clinic) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(c.AdminEmail) == "" {
		return fmt.Errorf("admin_email is required")
	}
	if strings.TrimSpace(c.AdminName) == "" {
		return fmt.Errorf("admin_name is required")
	}
	return nil
}

// AdditionalUser is a named contact owned by the clinic account. These are
// directory entries, not login credentials.
type AdditionalUser struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ClinicID  uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ValidityPeriod maps to the clinic_validity table. IsExpired is a cached
// flag refreshed on renewal; authorization decisions always use Expired(now).
type ValidityPeriod struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ClinicID       uuid.UUID `db:"clinic_id" json:"clinic_id"`
	StartDate      time.Time `db:"start_date" json:"start_date"`
	EndDate        time.Time `db:"end_date" json:"end_date"`
	DurationMonths int       `db:"duration_months" json:"duration_months"`
	IsExpired      bool      `db:"is_expired" json:"is_expired"`

	RenewalHistory []Renewal `db:"-" json:"renewal_history,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Expired reports whether the subscription has lapsed as of now. The cached
// IsExpired flag is never consulted here.
func (v *ValidityPeriod) Expired(now time.Time) bool {
	return now.After(v.EndDate)
}

// DaysUntilExpiry returns whole days remaining, rounding partial days up.
// Negative once the period has lapsed.
func (v *ValidityPeriod) DaysUntilExpiry(now time.Time) int {
	d := v.EndDate.Sub(now)
	days := int(d / (24 * time.Hour))
	// division truncates toward zero, which is already ceiling for
	// negative durations
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// Renewal is one append-only history row recording who extended the
// subscription and from what end date to what end date.
type Renewal struct {
	ID              uuid.UUID `db:"id" json:"id"`
	ValidityID      uuid.UUID `db:"validity_id" json:"validity_id"`
	PreviousEndDate time.Time `db:"previous_end_date" json:"previous_end_date"`
	NewEndDate      time.Time `db:"new_end_date" json:"new_end_date"`
	RenewedBy       uuid.UUID `db:"renewed_by" json:"renewed_by"`
	RenewalDate     time.Time `db:"renewal_date" json:"renewal_date"`
	Reason          *string   `db:"reason" json:"reason,omitempty"`
}
