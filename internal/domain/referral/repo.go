package referral

import (
	"context"

	"github.com/google/uuid"
)

type ListFilter struct {
	PatientID    *uuid.UUID
	FromClinicID *uuid.UUID
	ToClinicID   *uuid.UUID
	// ClinicID matches referrals the clinic sent or received.
	ClinicID *uuid.UUID
	Status   string
}

type Repository interface {
	Create(ctx context.Context, r *Referral) error
	GetByID(ctx context.Context, id uuid.UUID) (*Referral, error)
	// UpdateStatus moves the lifecycle and stamps resolved_at on accept
	// or decline.
	UpdateStatus(ctx context.Context, r *Referral) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Referral, int, error)
}
