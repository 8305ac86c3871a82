package user

import (
	"testing"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/platform/auth"
)

func strPtr(s string) *string { return &s }

func validDoctor() *User {
	cid := uuid.New()
	return &User{
		Name:           "Dr. Ada",
		Email:          "ada@clinic.com",
		Role:           auth.RoleDoctor,
		ClinicID:       &cid,
		Specialization: strPtr("cardiology"),
		LicenseNumber:  strPtr("MD-1234"),
	}
}

func TestValidateDoctor(t *testing.T) {
	if err := validDoctor().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateMissingName(t *testing.T) {
	u := validDoctor()
	u.Name = "  "
	if err := u.Validate(); err == nil {
		t.Fatal("expected error for blank name")
	}
}

func TestValidateInvalidRole(t *testing.T) {
	u := validDoctor()
	u.Role = "janitor"
	if err := u.Validate(); err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestValidateClinicRequired(t *testing.T) {
	u := validDoctor()
	u.ClinicID = nil
	if err := u.Validate(); err == nil {
		t.Fatal("expected error for missing clinic")
	}
}

func TestValidateClinicOptionalForPatient(t *testing.T) {
	u := &User{Name: "Pat", Email: "pat@x.com", Role: auth.RolePatient}
	if err := u.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateClinicOptionalForSuperMasterAdmin(t *testing.T) {
	u := &User{Name: "Root", Email: "root@x.com", Role: auth.RoleSuperMasterAdmin}
	if err := u.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateLicenseRequiredForDoctorAndNurse(t *testing.T) {
	for _, role := range []string{auth.RoleDoctor, auth.RoleNurse} {
		u := validDoctor()
		u.Role = role
		u.LicenseNumber = nil
		if err := u.Validate(); err == nil {
			t.Errorf("%s: expected error for missing license", role)
		}
		u = validDoctor()
		u.Role = role
		u.Specialization = strPtr("")
		if err := u.Validate(); err == nil {
			t.Errorf("%s: expected error for blank specialization", role)
		}
	}
}

func TestValidateLicenseNotRequiredForBillingStaff(t *testing.T) {
	u := validDoctor()
	u.Role = auth.RoleBillingStaff
	u.LicenseNumber = nil
	u.Specialization = nil
	if err := u.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Ada@Clinic.COM "); got != "ada@clinic.com" {
		t.Fatalf("NormalizeEmail = %q", got)
	}
}
