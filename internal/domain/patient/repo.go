package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List filters by clinic when clinicID is non-nil; search matches
	// name or patient number.
	List(ctx context.Context, clinicID *uuid.UUID, search string, limit, offset int) ([]*Patient, int, error)

	AddCaseEntry(ctx context.Context, e *CaseEntry) error
	ListCaseHistory(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*CaseEntry, int, error)
}
