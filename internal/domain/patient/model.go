// Package patient manages per-clinic patient records and their append-only
// case history.
package patient

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table. PatientNumber is the human-facing
// record number, unique within a clinic.
type Patient struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	ClinicID      uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	PatientNumber string     `db:"patient_number" json:"patient_number"`
	FirstName     string     `db:"first_name" json:"first_name"`
	LastName      string     `db:"last_name" json:"last_name"`
	BirthDate     *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Gender        *string    `db:"gender" json:"gender,omitempty"`
	Phone         *string    `db:"phone" json:"phone,omitempty"`
	Email         *string    `db:"email" json:"email,omitempty"`
	AddressLine1  *string    `db:"address_line1" json:"address_line1,omitempty"`
	City          *string    `db:"city" json:"city,omitempty"`
	State         *string    `db:"state" json:"state,omitempty"`
	PostalCode    *string    `db:"postal_code" json:"postal_code,omitempty"`
	Country       *string    `db:"country" json:"country,omitempty"`
	BloodGroup    *string    `db:"blood_group" json:"blood_group,omitempty"`
	Allergies     *string    `db:"allergies" json:"allergies,omitempty"`
	Active        bool       `db:"active" json:"active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

func (p *Patient) Validate() error {
	if p.ClinicID == uuid.Nil {
		return fmt.Errorf("clinic_id is required")
	}
	if strings.TrimSpace(p.FirstName) == "" {
		return fmt.Errorf("first_name is required")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("last_name is required")
	}
	return nil
}

// CaseEntry maps to the case_history table. Entries are append-only; there
// is no update or delete path.
type CaseEntry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Title     string    `db:"title" json:"title"`
	Notes     string    `db:"notes" json:"notes"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (e *CaseEntry) Validate() error {
	if e.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if e.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}
