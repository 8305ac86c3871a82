package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/platform/auth"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.Active = true
	return s.repo.Create(ctx, p)
}

// Get loads a patient and enforces clinic scope against the caller.
func (s *Service) Get(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckClinicScope(caller, p.ClinicID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, caller *auth.Principal, p *Patient) error {
	existing, err := s.Get(ctx, caller, p.ID)
	if err != nil {
		return err
	}
	p.ClinicID = existing.ClinicID
	p.PatientNumber = existing.PatientNumber
	if err := p.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, caller *auth.Principal, id uuid.UUID) error {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// List returns patients visible to the caller. Clinic-bound principals are
// always filtered to their own clinic regardless of the requested filter.
func (s *Service) List(ctx context.Context, caller *auth.Principal, requested *uuid.UUID, search string, limit, offset int) ([]*Patient, int, error) {
	clinicID := requested
	if scoped := auth.ScopedClinicID(caller); scoped != nil {
		clinicID = scoped
	}
	return s.repo.List(ctx, clinicID, search, limit, offset)
}

// AddCaseEntry appends to the patient's case history. Only doctors write
// case entries, and only for patients in their scope.
func (s *Service) AddCaseEntry(ctx context.Context, caller *auth.Principal, e *CaseEntry) error {
	if caller.Role != auth.RoleDoctor {
		return fmt.Errorf("only doctors may add case entries")
	}
	e.DoctorID = caller.ID
	if err := e.Validate(); err != nil {
		return err
	}
	if _, err := s.Get(ctx, caller, e.PatientID); err != nil {
		return err
	}
	return s.repo.AddCaseEntry(ctx, e)
}

func (s *Service) CaseHistory(ctx context.Context, caller *auth.Principal, patientID uuid.UUID, limit, offset int) ([]*CaseEntry, int, error) {
	if _, err := s.Get(ctx, caller, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListCaseHistory(ctx, patientID, limit, offset)
}
