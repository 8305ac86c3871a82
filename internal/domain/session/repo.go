package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	AddLoginEntry(ctx context.Context, e *LoginEntry) error
	// CloseLatestEntry backfills the logout time on the newest open entry.
	CloseLatestEntry(ctx context.Context, userID uuid.UUID, at time.Time) error
	ListLoginHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*LoginEntry, int, error)

	AddActivity(ctx context.Context, a *Activity) error
	ListActivity(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Activity, int, error)

	GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error)
	UpsertStats(ctx context.Context, s *Stats) error
}
