// Package referral moves a patient's care from one clinic or doctor to
// another and tracks whether the receiving side accepted it.
package referral

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
)

var validStatuses = map[string]bool{
	StatusPending:  true,
	StatusAccepted: true,
	StatusDeclined: true,
}

// Referral maps to the referral table.
type Referral struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	FromClinicID uuid.UUID  `db:"from_clinic_id" json:"from_clinic_id"`
	FromDoctorID uuid.UUID  `db:"from_doctor_id" json:"from_doctor_id"`
	ToClinicID   uuid.UUID  `db:"to_clinic_id" json:"to_clinic_id"`
	ToDoctorID   *uuid.UUID `db:"to_doctor_id" json:"to_doctor_id,omitempty"`
	Reason       string     `db:"reason" json:"reason"`
	Notes        *string    `db:"notes" json:"notes,omitempty"`
	Status       string     `db:"status" json:"status"`
	ResolvedAt   *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

func (r *Referral) Validate() error {
	if r.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if r.ToClinicID == uuid.Nil {
		return fmt.Errorf("to_clinic_id is required")
	}
	if r.FromClinicID == r.ToClinicID && r.ToDoctorID == nil {
		return fmt.Errorf("a referral within the same clinic must name a receiving doctor")
	}
	if r.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	return nil
}
