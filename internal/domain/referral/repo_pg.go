package referral

import (
	"context"
	"fmt"

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

const referralCols = `id, patient_id, from_clinic_id, from_doctor_id, to_clinic_id,
	to_doctor_id, reason, notes, status, resolved_at, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, ref *Referral) error {
	ref.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO referral (id, patient_id, from_clinic_id, from_doctor_id, to_clinic_id,
			to_doctor_id, reason, notes, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		ref.ID, ref.PatientID, ref.FromClinicID, ref.FromDoctorID, ref.ToClinicID,
		ref.ToDoctorID, ref.Reason, ref.Notes, ref.Status,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Referral, error) {
	return scanReferral(r.conn(ctx).QueryRow(ctx,
		`SELECT `+referralCols+` FROM referral WHERE id = $1`, id))
}

func (r *repoPG) UpdateStatus(ctx context.Context, ref *Referral) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE referral SET to_doctor_id=$2, status=$3, resolved_at=$4, updated_at=NOW()
		WHERE id = $1`,
		ref.ID, ref.ToDoctorID, ref.Status, ref.ResolvedAt)
	return err
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Referral, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		where += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	if f.FromClinicID != nil {
		args = append(args, *f.FromClinicID)
		where += fmt.Sprintf(" AND from_clinic_id = $%d", len(args))
	}
	if f.ToClinicID != nil {
		args = append(args, *f.ToClinicID)
		where += fmt.Sprintf(" AND to_clinic_id = $%d", len(args))
	}
	if f.ClinicID != nil {
		args = append(args, *f.ClinicID)
		where += fmt.Sprintf(" AND (from_clinic_id = $%d OR to_clinic_id = $%d)", len(args), len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM referral `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM referral %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		referralCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var refs []*Referral
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, 0, err
		}
		refs = append(refs, ref)
	}
	return refs, total, nil
}

func scanReferral(row pgx.Row) (*Referral, error) {
	var ref Referral
	err := row.Scan(&ref.ID, &ref.PatientID, &ref.FromClinicID, &ref.FromDoctorID,
		&ref.ToClinicID, &ref.ToDoctorID, &ref.Reason, &ref.Notes, &ref.Status,
		&ref.ResolvedAt, &ref.CreatedAt, &ref.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}
