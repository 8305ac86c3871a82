package clinic

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts the clinic row and its validity period. Callers that
	// need atomicity run it inside db.RunInTx.
	Create(ctx context.Context, c *Clinic) error
	GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error)
	GetByAdminEmail(ctx context.Context, email string) (*Clinic, error)
	Update(ctx context.Context, c *Clinic) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Clinic, int, error)

	UpdateValidity(ctx context.Context, v *ValidityPeriod) error
	AddRenewal(ctx context.Context, r *Renewal) error

	AddAdditionalUser(ctx context.Context, au *AdditionalUser) error
	RemoveAdditionalUser(ctx context.Context, clinicID, id uuid.UUID) error

	SetResetOTP(ctx context.Context, id uuid.UUID, code *string, expires *time.Time) error
	SetAdminPassword(ctx context.Context, id uuid.UUID, hash string) error
}
