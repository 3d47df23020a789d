package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses.
const (
	StatusBooked    = "Booked"
	StatusCheckedIn = "CheckedIn"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
	StatusNoShow    = "NoShow"
)

// Appointment is a booked consultation slot for a patient with a doctor.
type Appointment struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patientId" validate:"required"`
	DoctorID  uuid.UUID `json:"doctorId" validate:"required"`
	StartsAt  time.Time `json:"startsAt" validate:"required"`
	EndsAt    time.Time `json:"endsAt" validate:"required"`
	Reason    *string   `json:"reason,omitempty"`
	Status    string    `json:"status"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Joined for read views.
	PatientName string `json:"patientName,omitempty"`
	DoctorName  string `json:"doctorName,omitempty"`
}

// RescheduleInput carries the new slot for an existing appointment.
type RescheduleInput struct {
	StartsAt time.Time `json:"startsAt" validate:"required"`
	EndsAt   time.Time `json:"endsAt" validate:"required"`
}

// SearchParams filters appointment listings.
type SearchParams struct {
	DoctorID  string
	PatientID string
	Status    string
	Date      string
}
