package appointment

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

const apptCols = `id, clinic_id, patient_id, doctor_id, scheduled_at, duration_minutes,
	status, reason, notes, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (
			id, clinic_id, patient_id, doctor_id, scheduled_at, duration_minutes,
			status, reason, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.ClinicID, a.PatientID, a.DoctorID, a.ScheduledAt, a.DurationMinutes,
		a.Status, a.Reason, a.Notes,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppt(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET
			doctor_id=$2, scheduled_at=$3, duration_minutes=$4,
			status=$5, reason=$6, notes=$7, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.DoctorID, a.ScheduledAt, a.DurationMinutes,
		a.Status, a.Reason, a.Notes,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	add := func(clause string, v interface{}) {
		args = append(args, v)
		where += fmt.Sprintf(" AND "+clause, len(args))
	}
	if f.ClinicID != nil {
		add("clinic_id = $%d", *f.ClinicID)
	}
	if f.PatientID != nil {
		add("patient_id = $%d", *f.PatientID)
	}
	if f.DoctorID != nil {
		add("doctor_id = $%d", *f.DoctorID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.From != nil {
		add("scheduled_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("scheduled_at < $%d", *f.To)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM appointment %s ORDER BY scheduled_at DESC LIMIT $%d OFFSET $%d`,
		apptCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var appts []*Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.ClinicID, &a.PatientID, &a.DoctorID, &a.ScheduledAt,
			&a.DurationMinutes, &a.Status, &a.Reason, &a.Notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, err
		}
		appts = append(appts, &a)
	}
	return appts, total, nil
}

func (r *repoPG) AddConsultation(ctx context.Context, c *Consultation) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO consultation (id, appointment_id, doctor_id, diagnosis, prescription, notes)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID, c.AppointmentID, c.DoctorID, c.Diagnosis, c.Prescription, c.Notes,
	)
	return err
}

func (r *repoPG) GetConsultation(ctx context.Context, appointmentID uuid.UUID) (*Consultation, error) {
	var c Consultation
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, appointment_id, doctor_id, diagnosis, prescription, notes, created_at
		FROM consultation WHERE appointment_id = $1`, appointmentID).Scan(
		&c.ID, &c.AppointmentID, &c.DoctorID, &c.Diagnosis, &c.Prescription, &c.Notes, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.ClinicID, &a.PatientID, &a.DoctorID, &a.ScheduledAt,
		&a.DurationMinutes, &a.Status, &a.Reason, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
