package clinic

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

const clinicCols = `id, name, address, phone, admin_name, admin_email, admin_username,
	admin_password_hash, is_active, reset_otp_code, reset_otp_expires, created_at, updated_at`

const validityCols = `id, clinic_id, start_date, end_date, duration_months, is_expired, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, c *Clinic) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinic (
			id, name, address, phone, admin_name, admin_email, admin_username,
			admin_password_hash, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.Name, c.Address, c.Phone, c.AdminName, c.AdminEmail, c.AdminUsername,
		c.AdminPasswordHash, c.IsActive,
	)
	if err != nil {
		return err
	}
	if c.Validity != nil {
		v := c.Validity
		v.ID = uuid.New()
		v.ClinicID = c.ID
		_, err = r.conn(ctx).Exec(ctx, `
			INSERT INTO clinic_validity (id, clinic_id, start_date, end_date, duration_months, is_expired)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			v.ID, v.ClinicID, v.StartDate, v.EndDate, v.DurationMonths, v.IsExpired,
		)
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	c, err := scanClinic(r.conn(ctx).QueryRow(ctx, `SELECT `+clinicCols+` FROM clinic WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return r.loadChildren(ctx, c)
}

func (r *repoPG) GetByAdminEmail(ctx context.Context, email string) (*Clinic, error) {
	c, err := scanClinic(r.conn(ctx).QueryRow(ctx,
		`SELECT `+clinicCols+` FROM clinic WHERE admin_email = $1`, email))
	if err != nil {
		return nil, err
	}
	return r.loadChildren(ctx, c)
}

func (r *repoPG) loadChildren(ctx context.Context, c *Clinic) (*Clinic, error) {
	v, err := scanValidity(r.conn(ctx).QueryRow(ctx,
		`SELECT `+validityCols+` FROM clinic_validity WHERE clinic_id = $1`, c.ID))
	if err == nil {
		c.Validity = v
		if err := r.loadRenewals(ctx, v); err != nil {
			return nil, err
		}
	} else if err != pgx.ErrNoRows {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, clinic_id, name, email, role, created_at
		FROM clinic_additional_user WHERE clinic_id = $1 ORDER BY created_at`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var au AdditionalUser
		if err := rows.Scan(&au.ID, &au.ClinicID, &au.Name, &au.Email, &au.Role, &au.CreatedAt); err != nil {
			return nil, err
		}
		c.AdditionalUsers = append(c.AdditionalUsers, au)
	}
	return c, nil
}

func (r *repoPG) loadRenewals(ctx context.Context, v *ValidityPeriod) error {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, validity_id, previous_end_date, new_end_date, renewed_by, renewal_date, reason
		FROM clinic_renewal WHERE validity_id = $1 ORDER BY renewal_date`, v.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var rn Renewal
		if err := rows.Scan(&rn.ID, &rn.ValidityID, &rn.PreviousEndDate, &rn.NewEndDate,
			&rn.RenewedBy, &rn.RenewalDate, &rn.Reason); err != nil {
			return err
		}
		v.RenewalHistory = append(v.RenewalHistory, rn)
	}
	return nil
}

func (r *repoPG) Update(ctx context.Context, c *Clinic) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinic SET
			name=$2, address=$3, phone=$4, admin_name=$5, admin_username=$6,
			is_active=$7, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Name, c.Address, c.Phone, c.AdminName, c.AdminUsername, c.IsActive,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM clinic WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Clinic, int, error) {
	where := ""
	if activeOnly {
		where = "WHERE is_active"
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinic `+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+clinicCols+` FROM clinic `+where+` ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var clinics []*Clinic
	for rows.Next() {
		c, err := scanClinicRows(rows)
		if err != nil {
			return nil, 0, err
		}
		clinics = append(clinics, c)
	}
	rows.Close()

	// validity is attached for list views; histories are not
	for _, c := range clinics {
		v, err := scanValidity(r.conn(ctx).QueryRow(ctx,
			`SELECT `+validityCols+` FROM clinic_validity WHERE clinic_id = $1`, c.ID))
		if err == nil {
			c.Validity = v
		} else if err != pgx.ErrNoRows {
			return nil, 0, err
		}
	}
	return clinics, total, nil
}

func (r *repoPG) UpdateValidity(ctx context.Context, v *ValidityPeriod) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinic_validity SET
			end_date=$2, duration_months=$3, is_expired=$4, updated_at=NOW()
		WHERE id = $1`,
		v.ID, v.EndDate, v.DurationMonths, v.IsExpired,
	)
	return err
}

func (r *repoPG) AddRenewal(ctx context.Context, rn *Renewal) error {
	rn.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinic_renewal (id, validity_id, previous_end_date, new_end_date, renewed_by, renewal_date, reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rn.ID, rn.ValidityID, rn.PreviousEndDate, rn.NewEndDate, rn.RenewedBy, rn.RenewalDate, rn.Reason,
	)
	return err
}

func (r *repoPG) AddAdditionalUser(ctx context.Context, au *AdditionalUser) error {
	au.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinic_additional_user (id, clinic_id, name, email, role)
		VALUES ($1,$2,$3,$4,$5)`,
		au.ID, au.ClinicID, au.Name, au.Email, au.Role,
	)
	return err
}

func (r *repoPG) RemoveAdditionalUser(ctx context.Context, clinicID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM clinic_additional_user WHERE id = $1 AND clinic_id = $2`, id, clinicID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repoPG) SetResetOTP(ctx context.Context, id uuid.UUID, code *string, expires *time.Time) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE clinic SET reset_otp_code=$2, reset_otp_expires=$3, updated_at=NOW() WHERE id = $1`,
		id, code, expires)
	return err
}

func (r *repoPG) SetAdminPassword(ctx context.Context, id uuid.UUID, hash string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE clinic SET admin_password_hash=$2, updated_at=NOW() WHERE id = $1`, id, hash)
	return err
}

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic
	err := row.Scan(
		&c.ID, &c.Name, &c.Address, &c.Phone, &c.AdminName, &c.AdminEmail, &c.AdminUsername,
		&c.AdminPasswordHash, &c.IsActive, &c.ResetOTPCode, &c.ResetOTPExpires, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanClinicRows(rows pgx.Rows) (*Clinic, error) {
	var c Clinic
	err := rows.Scan(
		&c.ID, &c.Name, &c.Address, &c.Phone, &c.AdminName, &c.AdminEmail, &c.AdminUsername,
		&c.AdminPasswordHash, &c.IsActive, &c.ResetOTPCode, &c.ResetOTPExpires, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanValidity(row pgx.Row) (*ValidityPeriod, error) {
	var v ValidityPeriod
	err := row.Scan(
		&v.ID, &v.ClinicID, &v.StartDate, &v.EndDate, &v.DurationMonths, &v.IsExpired,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
