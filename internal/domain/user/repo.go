package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows List queries. A nil ClinicID means no clinic filter.
type ListFilter struct {
	ClinicID *uuid.UUID
	Role     string
	// StaffOnly restricts the result to clinic-employed roles.
	StaffOnly  bool
	ActiveOnly bool
}

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*User, int, error)

	// Targeted writes used by the auth flows.
	SetOTP(ctx context.Context, id uuid.UUID, code *string, expires *time.Time) error
	SetResetOTP(ctx context.Context, id uuid.UUID, code *string, expires *time.Time) error
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
	StampLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}
