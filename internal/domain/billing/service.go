package billing

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
)

const defaultCurrency = "USD"

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create issues a new invoice. The total is always recomputed from the
// line items; a client-supplied total is ignored.
func (s *Service) Create(ctx context.Context, caller *auth.Principal, inv *Invoice) error {
	if scoped := auth.ScopedClinicID(caller); scoped != nil {
		inv.ClinicID = *scoped
	}
	if err := inv.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	inv.Status = StatusPending
	inv.TotalCents = inv.ComputeTotal()
	if inv.Currency == "" {
		inv.Currency = defaultCurrency
	}
	inv.IssuedAt = s.now()
	inv.PaidAt = nil
	return s.repo.Create(ctx, inv)
}

func (s *Service) Get(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckClinicScope(caller, inv.ClinicID); err != nil {
		return nil, err
	}
	if caller.Role == auth.RolePatient && inv.PatientID != caller.ID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "access denied")
	}
	return inv, nil
}

// SetStatus moves an invoice through pending -> paid/cancelled. Paid and
// cancelled are terminal.
func (s *Service) SetStatus(ctx context.Context, caller *auth.Principal, id uuid.UUID, status string) (*Invoice, error) {
	if !validStatuses[status] {
		return nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
	}
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckClinicScope(caller, inv.ClinicID); err != nil {
		return nil, err
	}
	if inv.Status != StatusPending {
		return nil, echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("invoice already %s", inv.Status))
	}
	inv.Status = status
	if status == StatusPaid {
		now := s.now()
		inv.PaidAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) List(ctx context.Context, caller *auth.Principal, f ListFilter, limit, offset int) ([]*Invoice, int, error) {
	if scoped := auth.ScopedClinicID(caller); scoped != nil {
		f.ClinicID = scoped
	}
	if caller.Role == auth.RolePatient {
		id := caller.ID
		f.PatientID = &id
	}
	return s.repo.List(ctx, f, limit, offset)
}
