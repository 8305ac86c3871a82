package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows appointment queries.
type ListFilter struct {
	ClinicID  *uuid.UUID
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    string
	From      *time.Time
	To        *time.Time
}

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error)

	AddConsultation(ctx context.Context, c *Consultation) error
	GetConsultation(ctx context.Context, appointmentID uuid.UUID) (*Consultation, error)
}
