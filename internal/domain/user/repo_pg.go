package user

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/auth"
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

const userCols = `id, name, email, phone, password_hash, role, clinic_id,
	specialization, license_number, is_active, is_verified,
	otp_code, otp_expires, reset_otp_code, reset_otp_expires,
	last_login, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	u.Email = NormalizeEmail(u.Email)
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO app_user (
			id, name, email, phone, password_hash, role, clinic_id,
			specialization, license_number, is_active, is_verified,
			otp_code, otp_expires
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, u.Role, u.ClinicID,
		u.Specialization, u.LicenseNumber, u.IsActive, u.IsVerified,
		u.OTPCode, u.OTPExpires,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM app_user WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM app_user WHERE email = $1`, NormalizeEmail(email)))
}

func (r *repoPG) Update(ctx context.Context, u *User) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE app_user SET
			name=$2, phone=$3, role=$4, clinic_id=$5,
			specialization=$6, license_number=$7, is_active=$8, is_verified=$9,
			updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.Name, u.Phone, u.Role, u.ClinicID,
		u.Specialization, u.LicenseNumber, u.IsActive, u.IsVerified,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM app_user WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*User, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if f.ClinicID != nil {
		args = append(args, *f.ClinicID)
		where += fmt.Sprintf(" AND clinic_id = $%d", len(args))
	}
	if f.Role != "" {
		args = append(args, f.Role)
		where += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if f.StaffOnly {
		args = append(args, auth.StaffRoles)
		where += fmt.Sprintf(" AND role = ANY($%d)", len(args))
	}
	if f.ActiveOnly {
		where += " AND is_active"
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM app_user `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM app_user %s ORDER BY name LIMIT $%d OFFSET $%d`,
		userCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectUsers(rows, total)
}

func (r *repoPG) SetOTP(ctx context.Context, id uuid.UUID, code *string, expires *time.Time) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE app_user SET otp_code=$2, otp_expires=$3, updated_at=NOW() WHERE id = $1`,
		id, code, expires)
	return err
}

func (r *repoPG) SetResetOTP(ctx context.Context, id uuid.UUID, code *string, expires *time.Time) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE app_user SET reset_otp_code=$2, reset_otp_expires=$3, updated_at=NOW() WHERE id = $1`,
		id, code, expires)
	return err
}

func (r *repoPG) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE app_user SET password_hash=$2, updated_at=NOW() WHERE id = $1`, id, hash)
	return err
}

func (r *repoPG) MarkVerified(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE app_user SET is_verified=TRUE, otp_code=NULL, otp_expires=NULL, updated_at=NOW() WHERE id = $1`, id)
	return err
}

func (r *repoPG) StampLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE app_user SET last_login=$2, updated_at=NOW() WHERE id = $1`, id, at)
	return err
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.ClinicID,
		&u.Specialization, &u.LicenseNumber, &u.IsActive, &u.IsVerified,
		&u.OTPCode, &u.OTPExpires, &u.ResetOTPCode, &u.ResetOTPExpires,
		&u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func collectUsers(rows pgx.Rows, total int) ([]*User, int, error) {
	var users []*User
	for rows.Next() {
		var u User
		err := rows.Scan(
			&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.ClinicID,
			&u.Specialization, &u.LicenseNumber, &u.IsActive, &u.IsVerified,
			&u.OTPCode, &u.OTPExpires, &u.ResetOTPCode, &u.ResetOTPExpires,
			&u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, &u)
	}
	return users, total, nil
}
