package billing

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

const invoiceCols = `id, clinic_id, patient_id, invoice_number, status, total_cents,
	currency, issued_at, paid_at, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	if inv.InvoiceNumber == "" {
		inv.InvoiceNumber = "INV-" + strings.ToUpper(inv.ID.String()[:8])
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO invoice (id, clinic_id, patient_id, invoice_number, status, total_cents, currency, issued_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		inv.ID, inv.ClinicID, inv.PatientID, inv.InvoiceNumber, inv.Status,
		inv.TotalCents, inv.Currency, inv.IssuedAt,
	)
	if err != nil {
		return err
	}
	for i := range inv.Items {
		it := &inv.Items[i]
		it.ID = uuid.New()
		it.InvoiceID = inv.ID
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO invoice_item (id, invoice_id, description, quantity, unit_price_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			it.ID, it.InvoiceID, it.Description, it.Quantity, it.UnitPriceCents,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := scanInvoice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoice WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit_price_cents
		FROM invoice_item WHERE invoice_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity, &it.UnitPriceCents); err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, it)
	}
	return inv, nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, inv *Invoice) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE invoice SET status=$2, paid_at=$3, updated_at=NOW() WHERE id = $1`,
		inv.ID, inv.Status, inv.PaidAt)
	return err
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Invoice, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if f.ClinicID != nil {
		args = append(args, *f.ClinicID)
		where += fmt.Sprintf(" AND clinic_id = $%d", len(args))
	}
	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		where += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM invoice `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM invoice %s ORDER BY issued_at DESC LIMIT $%d OFFSET $%d`,
		invoiceCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []*Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.ClinicID, &inv.PatientID, &inv.InvoiceNumber, &inv.Status,
			&inv.TotalCents, &inv.Currency, &inv.IssuedAt, &inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, &inv)
	}
	return invoices, total, nil
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.ClinicID, &inv.PatientID, &inv.InvoiceNumber, &inv.Status,
		&inv.TotalCents, &inv.Currency, &inv.IssuedAt, &inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
