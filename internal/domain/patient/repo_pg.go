package patient

import (
	"context"
	"fmt"
	"strings"

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

const patientCols = `id, clinic_id, patient_number, first_name, last_name, birth_date, gender,
	phone, email, address_line1, city, state, postal_code, country,
	blood_group, allergies, active, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	if p.PatientNumber == "" {
		p.PatientNumber = "PAT-" + strings.ToUpper(p.ID.String()[:8])
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (
			id, clinic_id, patient_number, first_name, last_name, birth_date, gender,
			phone, email, address_line1, city, state, postal_code, country,
			blood_group, allergies, active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		p.ID, p.ClinicID, p.PatientNumber, p.FirstName, p.LastName, p.BirthDate, p.Gender,
		p.Phone, p.Email, p.AddressLine1, p.City, p.State, p.PostalCode, p.Country,
		p.BloodGroup, p.Allergies, p.Active,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET
			first_name=$2, last_name=$3, birth_date=$4, gender=$5,
			phone=$6, email=$7, address_line1=$8, city=$9, state=$10,
			postal_code=$11, country=$12, blood_group=$13, allergies=$14,
			active=$15, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.BirthDate, p.Gender,
		p.Phone, p.Email, p.AddressLine1, p.City, p.State,
		p.PostalCode, p.Country, p.BloodGroup, p.Allergies, p.Active,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, clinicID *uuid.UUID, search string, limit, offset int) ([]*Patient, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if clinicID != nil {
		args = append(args, *clinicID)
		where += fmt.Sprintf(" AND clinic_id = $%d", len(args))
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		where += fmt.Sprintf(" AND (first_name ILIKE $%d OR last_name ILIKE $%d OR patient_number ILIKE $%d)",
			len(args), len(args), len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM patient %s ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`,
		patientCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatientRows(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, nil
}

func (r *repoPG) AddCaseEntry(ctx context.Context, e *CaseEntry) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO case_history (id, patient_id, doctor_id, title, notes)
		VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.PatientID, e.DoctorID, e.Title, e.Notes,
	)
	return err
}

func (r *repoPG) ListCaseHistory(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*CaseEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM case_history WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, doctor_id, title, notes, created_at
		FROM case_history WHERE patient_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*CaseEntry
	for rows.Next() {
		var e CaseEntry
		if err := rows.Scan(&e.ID, &e.PatientID, &e.DoctorID, &e.Title, &e.Notes, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, &e)
	}
	return entries, total, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.ClinicID, &p.PatientNumber, &p.FirstName, &p.LastName, &p.BirthDate, &p.Gender,
		&p.Phone, &p.Email, &p.AddressLine1, &p.City, &p.State, &p.PostalCode, &p.Country,
		&p.BloodGroup, &p.Allergies, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPatientRows(rows pgx.Rows) (*Patient, error) {
	var p Patient
	err := rows.Scan(
		&p.ID, &p.ClinicID, &p.PatientNumber, &p.FirstName, &p.LastName, &p.BirthDate, &p.Gender,
		&p.Phone, &p.Email, &p.AddressLine1, &p.City, &p.State, &p.PostalCode, &p.Country,
		&p.BloodGroup, &p.Allergies, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
