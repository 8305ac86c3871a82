// Package auth carries the authenticated principal through request context
// and decides allow/deny for role and clinic-scope rules. The principal is a
// normalized view over two storage shapes (individual users and clinic
// accounts); every consumer works against this one struct instead of
// duck-typing optional fields.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Principal roles. clinic_admin is synthesized for clinic tokens and never
// stored on a user record.
const (
	RoleSuperMasterAdmin = "super_master_admin"
	RoleSuperAdmin       = "super_admin"
	RoleClinicAdmin      = "clinic_admin"
	RoleDoctor           = "doctor"
	RoleNurse            = "nurse"
	RoleBillingStaff     = "billing_staff"
	RolePharmacyStaff    = "pharmacy_staff"
	RolePatient          = "patient"
)

// StaffRoles are the user roles that must belong to a clinic.
var StaffRoles = []string{RoleSuperAdmin, RoleDoctor, RoleNurse, RoleBillingStaff, RolePharmacyStaff}

// ValidUserRole reports whether role is one of the roles a stored user may
// carry.
func ValidUserRole(role string) bool {
	switch role {
	case RoleSuperMasterAdmin, RoleSuperAdmin, RoleDoctor, RoleNurse,
		RoleBillingStaff, RolePharmacyStaff, RolePatient:
		return true
	}
	return false
}

// RequiresClinic reports whether a user with this role must carry a clinic
// affiliation. Only the platform owner and patients exist outside a clinic.
func RequiresClinic(role string) bool {
	return role != RoleSuperMasterAdmin && role != RolePatient
}

// RequiresLicense reports whether the role needs a license number on record.
func RequiresLicense(role string) bool {
	return role == RoleDoctor || role == RoleNurse
}

// Principal is the runtime-only result of token verification.
type Principal struct {
	ID       uuid.UUID  `json:"id"`
	Type     string     `json:"type"` // "user" or "clinic"
	Role     string     `json:"role"`
	ClinicID *uuid.UUID `json:"clinic_id,omitempty"`
	Email    string     `json:"email"`
	Name     string     `json:"name,omitempty"`
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}
