// Package staff is the clinic-side directory of employed users: admins
// create doctor, nurse, billing and pharmacy accounts for their clinic and
// manage their lifecycle. Credential flows stay in the identity package;
// this one only shapes the roster.
package staff

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicore/clinicore/internal/domain/user"
	"github.com/clinicore/clinicore/internal/platform/auth"
)

var ErrEmailTaken = fmt.Errorf("email already registered")

type Service struct {
	users      user.Repository
	bcryptCost int
}

func NewService(users user.Repository, bcryptCost int) *Service {
	return &Service{users: users, bcryptCost: bcryptCost}
}

func staffRole(role string) bool {
	for _, r := range auth.StaffRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Create provisions a staff account. The clinic is always the caller's for
// clinic-bound admins, and the account is born verified so the employee can
// log in with the issued password straight away.
func (s *Service) Create(ctx context.Context, caller *auth.Principal, u *user.User, password string) error {
	if !staffRole(u.Role) {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%q is not a staff role", u.Role))
	}
	if scoped := auth.ScopedClinicID(caller); scoped != nil {
		u.ClinicID = scoped
	}
	u.Email = user.NormalizeEmail(u.Email)
	if err := u.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}
	if _, err := s.users.GetByEmail(ctx, u.Email); err == nil {
		return ErrEmailTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.IsActive = true
	u.IsVerified = true
	return s.users.Create(ctx, u)
}

func (s *Service) Get(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*user.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !staffRole(u.Role) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "staff member not found")
	}
	if err := s.checkScope(caller, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Update edits directory fields. Clinic affiliation, email, credentials and
// verification state never change through this path.
func (s *Service) Update(ctx context.Context, caller *auth.Principal, u *user.User) error {
	existing, err := s.Get(ctx, caller, u.ID)
	if err != nil {
		return err
	}
	if u.Role != existing.Role && !staffRole(u.Role) {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%q is not a staff role", u.Role))
	}
	u.ClinicID = existing.ClinicID
	u.Email = existing.Email
	u.PasswordHash = existing.PasswordHash
	u.IsVerified = existing.IsVerified
	if err := u.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return s.users.Update(ctx, u)
}

// Deactivate disables the account. The next token resolution for this user
// fails, so revocation takes effect on their next request.
func (s *Service) Deactivate(ctx context.Context, caller *auth.Principal, id uuid.UUID) error {
	u, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	u.IsActive = false
	return s.users.Update(ctx, u)
}

func (s *Service) Delete(ctx context.Context, caller *auth.Principal, id uuid.UUID) error {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return err
	}
	return s.users.Delete(ctx, id)
}

// ResetPassword lets an admin issue a replacement password without the OTP
// flow.
func (s *Service) ResetPassword(ctx context.Context, caller *auth.Principal, id uuid.UUID, password string) error {
	u, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	if len(password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, u.ID, string(hash))
}

// List returns the roster visible to the caller. Clinic-bound callers are
// always filtered to their own clinic.
func (s *Service) List(ctx context.Context, caller *auth.Principal, f user.ListFilter, limit, offset int) ([]*user.User, int, error) {
	if f.Role != "" && !staffRole(f.Role) {
		return nil, 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%q is not a staff role", f.Role))
	}
	if scoped := auth.ScopedClinicID(caller); scoped != nil {
		f.ClinicID = scoped
	}
	f.StaffOnly = true
	return s.users.List(ctx, f, limit, offset)
}

func (s *Service) checkScope(caller *auth.Principal, u *user.User) error {
	if caller.Role == auth.RoleSuperMasterAdmin {
		return nil
	}
	if caller.ClinicID == nil || u.ClinicID == nil || *caller.ClinicID != *u.ClinicID {
		return echo.NewHTTPError(http.StatusForbidden, "access restricted to your own clinic")
	}
	return nil
}
