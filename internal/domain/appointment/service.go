package appointment

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

func (s *Service) Create(ctx context.Context, a *Appointment) error {
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if a.DurationMinutes <= 0 {
		a.DurationMinutes = 30
	}
	if err := a.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, a)
}

func (s *Service) Get(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckClinicScope(caller, a.ClinicID); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Update(ctx context.Context, caller *auth.Principal, a *Appointment) error {
	existing, err := s.Get(ctx, caller, a.ID)
	if err != nil {
		return err
	}
	a.ClinicID = existing.ClinicID
	a.PatientID = existing.PatientID
	if err := a.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, a)
}

// SetStatus moves the appointment through its lifecycle. Completed and
// cancelled are terminal.
func (s *Service) SetStatus(ctx context.Context, caller *auth.Principal, id uuid.UUID, status string) (*Appointment, error) {
	if !validStatuses[status] {
		return nil, fmt.Errorf("invalid status: %s", status)
	}
	a, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusScheduled && a.Status != status {
		return nil, fmt.Errorf("appointment already %s", a.Status)
	}
	a.Status = status
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Delete(ctx context.Context, caller *auth.Principal, id uuid.UUID) error {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, caller *auth.Principal, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	if scoped := auth.ScopedClinicID(caller); scoped != nil {
		f.ClinicID = scoped
	}
	// patients only ever see their own appointments
	if caller.Role == auth.RolePatient {
		id := caller.ID
		f.PatientID = &id
	}
	return s.repo.List(ctx, f, limit, offset)
}

// RecordConsultation attaches the visit outcome to a completed-or-ongoing
// appointment. Doctors only; the appointment moves to completed.
func (s *Service) RecordConsultation(ctx context.Context, caller *auth.Principal, cons *Consultation) error {
	if caller.Role != auth.RoleDoctor {
		return fmt.Errorf("only doctors may record consultations")
	}
	cons.DoctorID = caller.ID
	if err := cons.Validate(); err != nil {
		return err
	}
	a, err := s.Get(ctx, caller, cons.AppointmentID)
	if err != nil {
		return err
	}
	if a.Status == StatusCancelled {
		return fmt.Errorf("cannot record a consultation on a cancelled appointment")
	}
	if _, err := s.repo.GetConsultation(ctx, cons.AppointmentID); err == nil {
		return fmt.Errorf("appointment already has a consultation")
	}
	if err := s.repo.AddConsultation(ctx, cons); err != nil {
		return err
	}
	if a.Status != StatusCompleted {
		a.Status = StatusCompleted
		if err := s.repo.Update(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) Consultation(ctx context.Context, caller *auth.Principal, appointmentID uuid.UUID) (*Consultation, error) {
	if _, err := s.Get(ctx, caller, appointmentID); err != nil {
		return nil, err
	}
	return s.repo.GetConsultation(ctx, appointmentID)
}
