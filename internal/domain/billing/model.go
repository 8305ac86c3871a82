// Package billing manages patient invoices: line items, totals and the
// pending/paid/cancelled lifecycle.
package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

var validStatuses = map[string]bool{
	StatusPending:   true,
	StatusPaid:      true,
	StatusCancelled: true,
}

// Invoice maps to the invoice table. Amounts are integer cents; the total
// is derived from the items and never accepted from a client.
type Invoice struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	ClinicID      uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	InvoiceNumber string     `db:"invoice_number" json:"invoice_number"`
	Status        string     `db:"status" json:"status"`
	TotalCents    int64      `db:"total_cents" json:"total_cents"`
	Currency      string     `db:"currency" json:"currency"`
	IssuedAt      time.Time  `db:"issued_at" json:"issued_at"`
	PaidAt        *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	Items         []Item     `db:"-" json:"items,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Item is one invoice line.
type Item struct {
	ID             uuid.UUID `db:"id" json:"id"`
	InvoiceID      uuid.UUID `db:"invoice_id" json:"invoice_id"`
	Description    string    `db:"description" json:"description"`
	Quantity       int       `db:"quantity" json:"quantity"`
	UnitPriceCents int64     `db:"unit_price_cents" json:"unit_price_cents"`
}

func (i *Invoice) Validate() error {
	if i.ClinicID == uuid.Nil {
		return fmt.Errorf("clinic_id is required")
	}
	if i.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if len(i.Items) == 0 {
		return fmt.Errorf("at least one item is required")
	}
	for n, it := range i.Items {
		if it.Description == "" {
			return fmt.Errorf("item %d: description is required", n)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("item %d: quantity must be positive", n)
		}
		if it.UnitPriceCents < 0 {
			return fmt.Errorf("item %d: unit price cannot be negative", n)
		}
	}
	return nil
}

// ComputeTotal sums the line items.
func (i *Invoice) ComputeTotal() int64 {
	var total int64
	for _, it := range i.Items {
		total += int64(it.Quantity) * it.UnitPriceCents
	}
	return total
}
