package clinic

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/notification"
)

const (
	// DefaultReminderWindowDays is how far ahead of expiry admins start
	// hearing about it.
	DefaultReminderWindowDays = 30
	defaultReminderInterval   = 24 * time.Hour
	reminderPageSize          = 100
)

// Reminder periodically mails clinic admins whose subscription ends within
// the window. One sweep per interval; a clinic inside the window gets one
// mail per sweep until it renews or lapses.
type Reminder struct {
	svc        *Service
	mailer     *notification.Mailer
	logger     zerolog.Logger
	windowDays int
	interval   time.Duration
	now        func() time.Time
}

func NewReminder(svc *Service, mailer *notification.Mailer, logger zerolog.Logger) *Reminder {
	return &Reminder{
		svc:        svc,
		mailer:     mailer,
		logger:     logger.With().Str("component", "renewal-reminder").Logger(),
		windowDays: DefaultReminderWindowDays,
		interval:   defaultReminderInterval,
		now:        time.Now,
	}
}

// Run sweeps until ctx is cancelled. Call it from a goroutine.
func (r *Reminder) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep mails every active clinic expiring within the window. Failures are
// logged and never interrupt the sweep.
func (r *Reminder) Sweep(ctx context.Context) {
	now := r.now()
	offset := 0
	sent := 0
	for {
		clinics, total, err := r.svc.List(ctx, true, reminderPageSize, offset)
		if err != nil {
			r.logger.Error().Err(err).Msg("list clinics failed")
			return
		}
		for _, c := range clinics {
			if c.Validity == nil || c.Validity.Expired(now) {
				continue
			}
			days := c.Validity.DaysUntilExpiry(now)
			if days > r.windowDays {
				continue
			}
			if err := r.mailer.SendRenewalReminder(ctx, c.AdminEmail, c.AdminName,
				c.Name, c.Validity.EndDate.Format("2006-01-02"), days); err != nil {
				r.logger.Warn().Err(err).Stringer("clinic_id", c.ID).Msg("reminder mail failed")
				continue
			}
			sent++
		}
		offset += len(clinics)
		if offset >= total || len(clinics) == 0 {
			break
		}
	}
	if sent > 0 {
		r.logger.Info().Int("sent", sent).Msg("renewal reminders sent")
	}
}
