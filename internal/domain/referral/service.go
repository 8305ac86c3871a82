package referral

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create opens a referral. The sender is always the calling doctor; the
// originating clinic is taken from the caller, not the request body.
func (s *Service) Create(ctx context.Context, caller *auth.Principal, r *Referral) error {
	if caller.Role != auth.RoleDoctor {
		return echo.NewHTTPError(http.StatusForbidden, "only doctors can refer patients")
	}
	r.FromDoctorID = caller.ID
	if caller.ClinicID != nil {
		r.FromClinicID = *caller.ClinicID
	}
	if err := r.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.Status = StatusPending
	r.ResolvedAt = nil
	return s.repo.Create(ctx, r)
}

func (s *Service) Get(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*Referral, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(caller, r) {
		return nil, echo.NewHTTPError(http.StatusForbidden, "access denied")
	}
	return r, nil
}

// Resolve accepts or declines a pending referral. Only staff of the
// receiving clinic may resolve it; accepting may name the doctor who
// takes the patient over.
func (s *Service) Resolve(ctx context.Context, caller *auth.Principal, id uuid.UUID, status string, toDoctorID *uuid.UUID) (*Referral, error) {
	if status != StatusAccepted && status != StatusDeclined {
		return nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown resolution %q", status))
	}
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if scoped := auth.ScopedClinicID(caller); scoped != nil && *scoped != r.ToClinicID {
		return nil, echo.NewHTTPError(http.StatusForbidden,
			"only the receiving clinic can resolve a referral")
	}
	if r.Status != StatusPending {
		return nil, echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("referral already %s", r.Status))
	}
	r.Status = status
	if status == StatusAccepted && toDoctorID != nil {
		r.ToDoctorID = toDoctorID
	}
	now := s.now()
	r.ResolvedAt = &now
	if err := s.repo.UpdateStatus(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// List shows a clinic-bound caller the referrals their clinic sent or
// received. Platform admins see everything.
func (s *Service) List(ctx context.Context, caller *auth.Principal, f ListFilter, limit, offset int) ([]*Referral, int, error) {
	if scoped := auth.ScopedClinicID(caller); scoped != nil {
		f.ClinicID = scoped
		f.FromClinicID = nil
		f.ToClinicID = nil
	}
	if caller.Role == auth.RolePatient {
		id := caller.ID
		f.PatientID = &id
	}
	return s.repo.List(ctx, f, limit, offset)
}

func visible(p *auth.Principal, r *Referral) bool {
	if p.Role == auth.RoleSuperMasterAdmin {
		return true
	}
	if p.Role == auth.RolePatient {
		return r.PatientID == p.ID
	}
	if p.ClinicID != nil {
		return r.FromClinicID == *p.ClinicID || r.ToClinicID == *p.ClinicID
	}
	return false
}
