package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// LoginInfo is the request metadata captured with a login.
type LoginInfo struct {
	IPAddress string
	UserAgent string
	Device    *string
	Method    string
}

// Tracker records session lifecycle events. Every Record method swallows
// storage errors after logging them; a broken tracker must never block
// authentication.
type Tracker struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewTracker(repo Repository, logger zerolog.Logger) *Tracker {
	return &Tracker{
		repo:   repo,
		logger: logger.With().Str("component", "session-tracker").Logger(),
		now:    time.Now,
	}
}

// RecordLogin appends a history entry and advances the counters.
func (t *Tracker) RecordLogin(ctx context.Context, userID uuid.UUID, info LoginInfo) {
	now := t.now().UTC()
	if !ValidMethod(info.Method) {
		info.Method = MethodPassword
	}

	entry := &LoginEntry{
		UserID:    userID,
		LoginTime: now,
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
		Device:    info.Device,
		Method:    info.Method,
	}
	if err := t.repo.AddLoginEntry(ctx, entry); err != nil {
		t.logger.Warn().Err(err).Stringer("user_id", userID).Msg("record login entry failed")
	}

	stats, err := t.repo.GetStats(ctx, userID)
	if err != nil {
		if err != pgx.ErrNoRows {
			t.logger.Warn().Err(err).Stringer("user_id", userID).Msg("load session stats failed")
			return
		}
		stats = &Stats{UserID: userID}
	}

	stats.LoginStreak = NextStreak(stats.LoginStreak, stats.LastLoginAt, now)
	stats.TotalLogins++
	stats.SessionCount++
	stats.LastLoginAt = &now

	if err := t.repo.UpsertStats(ctx, stats); err != nil {
		t.logger.Warn().Err(err).Stringer("user_id", userID).Msg("update session stats failed")
	}
}

// RecordLogout backfills the newest open history entry and accrues the
// supplied session duration.
func (t *Tracker) RecordLogout(ctx context.Context, userID uuid.UUID, duration time.Duration) {
	now := t.now().UTC()
	if err := t.repo.CloseLatestEntry(ctx, userID, now); err != nil {
		t.logger.Warn().Err(err).Stringer("user_id", userID).Msg("close login entry failed")
	}
	if duration <= 0 {
		return
	}

	stats, err := t.repo.GetStats(ctx, userID)
	if err != nil {
		if err != pgx.ErrNoRows {
			t.logger.Warn().Err(err).Stringer("user_id", userID).Msg("load session stats failed")
			return
		}
		stats = &Stats{UserID: userID}
	}
	stats.TotalSessionMinutes += int(duration / time.Minute)
	if err := t.repo.UpsertStats(ctx, stats); err != nil {
		t.logger.Warn().Err(err).Stringer("user_id", userID).Msg("update session stats failed")
	}
}

// RecordActivity appends a free-form action to the activity log.
func (t *Tracker) RecordActivity(ctx context.Context, userID uuid.UUID, action string, detail *string) {
	if action == "" {
		return
	}
	a := &Activity{UserID: userID, Action: action, Detail: detail}
	if err := t.repo.AddActivity(ctx, a); err != nil {
		t.logger.Warn().Err(err).Stringer("user_id", userID).Msg("record activity failed")
	}
}

// History returns the login history page for a user.
func (t *Tracker) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*LoginEntry, int, error) {
	return t.repo.ListLoginHistory(ctx, userID, limit, offset)
}

// ActivityLog returns the activity page for a user.
func (t *Tracker) ActivityLog(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Activity, int, error) {
	return t.repo.ListActivity(ctx, userID, limit, offset)
}

// Stats returns the counters for a user, zeroed when none exist yet.
func (t *Tracker) Stats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	s, err := t.repo.GetStats(ctx, userID)
	if err == pgx.ErrNoRows {
		return &Stats{UserID: userID}, nil
	}
	return s, err
}
