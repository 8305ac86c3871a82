package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *repoPG) AddLoginEntry(ctx context.Context, e *LoginEntry) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO login_history (id, user_id, login_time, ip_address, user_agent, device, method)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.UserID, e.LoginTime, e.IPAddress, e.UserAgent, e.Device, e.Method,
	)
	return err
}

func (r *repoPG) CloseLatestEntry(ctx context.Context, userID uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE login_history SET logout_time = $2
		WHERE id = (
			SELECT id FROM login_history
			WHERE user_id = $1 AND logout_time IS NULL
			ORDER BY login_time DESC LIMIT 1
		)`, userID, at)
	return err
}

func (r *repoPG) ListLoginHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*LoginEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM login_history WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, user_id, login_time, logout_time, ip_address, user_agent, device, method
		FROM login_history WHERE user_id = $1
		ORDER BY login_time DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*LoginEntry
	for rows.Next() {
		var e LoginEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.LoginTime, &e.LogoutTime,
			&e.IPAddress, &e.UserAgent, &e.Device, &e.Method); err != nil {
			return nil, 0, err
		}
		entries = append(entries, &e)
	}
	return entries, total, nil
}

func (r *repoPG) AddActivity(ctx context.Context, a *Activity) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO activity_log (id, user_id, action, detail)
		VALUES ($1,$2,$3,$4)`,
		a.ID, a.UserID, a.Action, a.Detail,
	)
	return err
}

func (r *repoPG) ListActivity(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Activity, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM activity_log WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, user_id, action, detail, created_at
		FROM activity_log WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var acts []*Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.Detail, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		acts = append(acts, &a)
	}
	return acts, total, nil
}

func (r *repoPG) GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	var s Stats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT user_id, total_logins, session_count, login_streak, total_session_minutes, last_login_at, updated_at
		FROM session_stats WHERE user_id = $1`, userID).Scan(
		&s.UserID, &s.TotalLogins, &s.SessionCount, &s.LoginStreak,
		&s.TotalSessionMinutes, &s.LastLoginAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) UpsertStats(ctx context.Context, s *Stats) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO session_stats (user_id, total_logins, session_count, login_streak, total_session_minutes, last_login_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			total_logins = EXCLUDED.total_logins,
			session_count = EXCLUDED.session_count,
			login_streak = EXCLUDED.login_streak,
			total_session_minutes = EXCLUDED.total_session_minutes,
			last_login_at = EXCLUDED.last_login_at,
			updated_at = NOW()`,
		s.UserID, s.TotalLogins, s.SessionCount, s.LoginStreak,
		s.TotalSessionMinutes, s.LastLoginAt,
	)
	return err
}
