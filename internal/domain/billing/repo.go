package billing

import (
	"context"

	"github.com/google/uuid"
)

type ListFilter struct {
	ClinicID  *uuid.UUID
	PatientID *uuid.UUID
	Status    string
}

type Repository interface {
	// Create inserts the invoice and its items.
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// UpdateStatus moves the lifecycle and stamps paid_at when paying.
	UpdateStatus(ctx context.Context, inv *Invoice) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Invoice, int, error)
}
