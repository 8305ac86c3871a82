package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func doRequest(t *testing.T, p *Principal, mw echo.MiddlewareFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if p != nil {
		req = req.WithContext(WithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return rec, handler(c)
}

func TestRequireRole_Allowed(t *testing.T) {
	p := &Principal{ID: uuid.New(), Type: "user", Role: RoleDoctor}
	_, err := doRequest(t, p, RequireRole(RoleDoctor, RoleNurse))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	p := &Principal{ID: uuid.New(), Type: "user", Role: RolePatient}
	_, err := doRequest(t, p, RequireRole(RoleDoctor, RoleNurse))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestRequireRole_NoSuperAdminBypass(t *testing.T) {
	// Role checks are strict membership; even the platform owner must be
	// named in the allowed list.
	p := &Principal{ID: uuid.New(), Type: "user", Role: RoleSuperMasterAdmin}
	_, err := doRequest(t, p, RequireRole(RoleDoctor))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestRequireRole_MissingPrincipal(t *testing.T) {
	_, err := doRequest(t, nil, RequireRole(RoleDoctor))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestCheckClinicScope_SuperMasterAdmin(t *testing.T) {
	p := &Principal{ID: uuid.New(), Type: "user", Role: RoleSuperMasterAdmin}

	// Global scope: allowed for any clinic id, including ones that don't exist.
	if err := CheckClinicScope(p, uuid.New()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := CheckClinicScope(p, uuid.Nil); err != nil {
		t.Errorf("unexpected error for nil clinic id: %v", err)
	}
}

func TestCheckClinicScope_SuperAdmin(t *testing.T) {
	clinicA := uuid.New()
	clinicB := uuid.New()
	p := &Principal{ID: uuid.New(), Type: "user", Role: RoleSuperAdmin, ClinicID: &clinicA}

	if err := CheckClinicScope(p, clinicA); err != nil {
		t.Errorf("expected own clinic to be allowed: %v", err)
	}
	err := CheckClinicScope(p, clinicB)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign clinic, got %v", err)
	}
}

func TestCheckClinicScope_ClinicAdmin(t *testing.T) {
	clinicID := uuid.New()
	p := &Principal{ID: clinicID, Type: "clinic", Role: RoleClinicAdmin, ClinicID: &clinicID}

	if err := CheckClinicScope(p, clinicID); err != nil {
		t.Errorf("expected own clinic to be allowed: %v", err)
	}
	if err := CheckClinicScope(p, uuid.New()); err == nil {
		t.Error("expected foreign clinic to be denied")
	}
}

func TestCheckClinicScope_OtherRolesPass(t *testing.T) {
	clinicA := uuid.New()
	for _, role := range []string{RoleDoctor, RoleNurse, RoleBillingStaff, RolePharmacyStaff, RolePatient} {
		p := &Principal{ID: uuid.New(), Type: "user", Role: role, ClinicID: &clinicA}
		// Scoping for these roles happens by filtering query results, not by
		// rejecting the request.
		if err := CheckClinicScope(p, uuid.New()); err != nil {
			t.Errorf("%s: unexpected error: %v", role, err)
		}
	}
}

func TestScopedClinicID(t *testing.T) {
	clinicA := uuid.New()

	global := &Principal{Role: RoleSuperMasterAdmin, ClinicID: &clinicA}
	if ScopedClinicID(global) != nil {
		t.Error("expected nil scope for super_master_admin")
	}

	doctor := &Principal{Role: RoleDoctor, ClinicID: &clinicA}
	if got := ScopedClinicID(doctor); got == nil || *got != clinicA {
		t.Errorf("expected clinic scope %s, got %v", clinicA, got)
	}
}

func TestRequireClinicScope_ComposedAfterRole(t *testing.T) {
	clinicA := uuid.New()
	clinicB := uuid.New()
	p := &Principal{ID: uuid.New(), Type: "user", Role: RoleSuperAdmin, ClinicID: &clinicA}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("clinic_id")
	c.SetParamValues(clinicB.String())

	mw := RequireClinicScope(ClinicIDFromParam("clinic_id"))
	err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestRoleHelpers(t *testing.T) {
	if !RequiresClinic(RoleDoctor) || !RequiresClinic(RoleSuperAdmin) {
		t.Error("staff roles must require a clinic")
	}
	if RequiresClinic(RoleSuperMasterAdmin) || RequiresClinic(RolePatient) {
		t.Error("super_master_admin and patient must not require a clinic")
	}
	if !RequiresLicense(RoleDoctor) || !RequiresLicense(RoleNurse) {
		t.Error("doctor and nurse must require a license")
	}
	if RequiresLicense(RoleBillingStaff) {
		t.Error("billing staff must not require a license")
	}
	if ValidUserRole("clinic_admin") {
		t.Error("clinic_admin is synthesized, never a stored user role")
	}
}
