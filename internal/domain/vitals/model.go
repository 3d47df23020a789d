package vitals

import (
	"time"

	"github.com/google/uuid"
)

// VitalSigns is one set of bedside measurements for a patient. Every
// measurement is optional; only the recorded ones are flagged. BMI is
// derived from weight and height and never accepted from the client.
type VitalSigns struct {
	ID          uuid.UUID  `json:"id"`
	PatientID   uuid.UUID  `json:"patientId" validate:"required"`
	EncounterID *uuid.UUID `json:"encounterId,omitempty"`

	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gt=0"`
	Pulse       *float64 `json:"pulse,omitempty" validate:"omitempty,gt=0"`
	RespRate    *float64 `json:"respRate,omitempty" validate:"omitempty,gt=0"`
	Systolic    *float64 `json:"systolic,omitempty" validate:"omitempty,gt=0"`
	Diastolic   *float64 `json:"diastolic,omitempty" validate:"omitempty,gt=0"`
	SpO2        *float64 `json:"spo2,omitempty" validate:"omitempty,gt=0,lte=100"`
	WeightKg    *float64 `json:"weightKg,omitempty" validate:"omitempty,gt=0"`
	HeightCm    *float64 `json:"heightCm,omitempty" validate:"omitempty,gt=0"`
	BMI         *float64 `json:"bmi,omitempty"`

	// Flags holds the assessment per measurement, keyed by field name.
	Flags      map[string]string `json:"flags,omitempty"`
	IsAbnormal bool              `json:"isAbnormal"`

	RecordedBy string    `json:"recordedBy,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
	CreatedAt  time.Time `json:"createdAt"`
}
