// Package user holds the staff and patient account aggregate: credentials,
// role assignment, clinic membership and the volatile one-time-code fields
// used by the authentication flows.
package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/platform/auth"
)

// User maps to the app_user table.
type User struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	Email          string     `db:"email" json:"email"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	Role           string     `db:"role" json:"role"`
	ClinicID       *uuid.UUID `db:"clinic_id" json:"clinic_id,omitempty"`
	Specialization *string    `db:"specialization" json:"specialization,omitempty"`
	LicenseNumber  *string    `db:"license_number" json:"license_number,omitempty"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	IsVerified     bool       `db:"is_verified" json:"is_verified"`

	// One-time codes are write-only server state.
	OTPCode         *string    `db:"otp_code" json:"-"`
	OTPExpires      *time.Time `db:"otp_expires" json:"-"`
	ResetOTPCode    *string    `db:"reset_otp_code" json:"-"`
	ResetOTPExpires *time.Time `db:"reset_otp_expires" json:"-"`

	LastLogin *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Validate checks the role-conditional field requirements.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if !auth.ValidUserRole(u.Role) {
		return fmt.Errorf("invalid role: %s", u.Role)
	}
	if auth.RequiresClinic(u.Role) && u.ClinicID == nil {
		return fmt.Errorf("clinic_id is required for role %s", u.Role)
	}
	if auth.RequiresLicense(u.Role) {
		if u.LicenseNumber == nil || strings.TrimSpace(*u.LicenseNumber) == "" {
			return fmt.Errorf("license_number is required for role %s", u.Role)
		}
		if u.Specialization == nil || strings.TrimSpace(*u.Specialization) == "" {
			return fmt.Errorf("specialization is required for role %s", u.Role)
		}
	}
	return nil
}

// NormalizeEmail lowercases and trims the address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
