// Package appointment manages scheduled visits and the consultations
// recorded against them.
package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var validStatuses = map[string]bool{
	StatusScheduled: true,
	StatusCompleted: true,
	StatusCancelled: true,
}

// Appointment maps to the appointment table.
type Appointment struct {
	ID              uuid.UUID `db:"id" json:"id"`
	ClinicID        uuid.UUID `db:"clinic_id" json:"clinic_id"`
	PatientID       uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID `db:"doctor_id" json:"doctor_id"`
	ScheduledAt     time.Time `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Status          string    `db:"status" json:"status"`
	Reason          *string   `db:"reason" json:"reason,omitempty"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

func (a *Appointment) Validate() error {
	if a.ClinicID == uuid.Nil {
		return fmt.Errorf("clinic_id is required")
	}
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if a.ScheduledAt.IsZero() {
		return fmt.Errorf("scheduled_at is required")
	}
	if a.Status != "" && !validStatuses[a.Status] {
		return fmt.Errorf("invalid status: %s", a.Status)
	}
	return nil
}

// Consultation maps to the consultation table. One appointment can carry at
// most one consultation record.
type Consultation struct {
	ID            uuid.UUID `db:"id" json:"id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	DoctorID      uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Diagnosis     string    `db:"diagnosis" json:"diagnosis"`
	Prescription  *string   `db:"prescription" json:"prescription,omitempty"`
	Notes         *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

func (c *Consultation) Validate() error {
	if c.AppointmentID == uuid.Nil {
		return fmt.Errorf("appointment_id is required")
	}
	if c.Diagnosis == "" {
		return fmt.Errorf("diagnosis is required")
	}
	return nil
}
