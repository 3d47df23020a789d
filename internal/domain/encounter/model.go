package encounter

import (
	"time"

	"github.com/google/uuid"
)

// Encounter types.
const (
	TypeOPD       = "OPD"
	TypeIPD       = "IPD"
	TypeEmergency = "Emergency"
)

// Encounter statuses.
const (
	StatusScheduled  = "Scheduled"
	StatusInProgress = "InProgress"
	StatusCompleted  = "Completed"
	StatusCancelled  = "Cancelled"
)

// Encounter is a single patient visit. Clinical documentation (chief
// complaint, diagnoses, treatment plan) lives on the encounter row.
type Encounter struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patientId" validate:"required"`
	DoctorID       uuid.UUID  `json:"doctorId" validate:"required"`
	Type           string     `json:"type" validate:"required,oneof=OPD IPD Emergency"`
	Status         string     `json:"status"`
	ChiefComplaint *string    `json:"chiefComplaint,omitempty"`
	Diagnosis      []string   `json:"diagnosis,omitempty"`
	TreatmentPlan  *string    `json:"treatmentPlan,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	AdmittedAt     time.Time  `json:"admittedAt"`
	DischargedAt   *time.Time `json:"dischargedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`

	// Joined display fields.
	PatientName string `json:"patientName,omitempty"`
	DoctorName  string `json:"doctorName,omitempty"`
}
