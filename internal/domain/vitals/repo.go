package vitals

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists vital sign sets.
type Repository interface {
	Create(ctx context.Context, v *VitalSigns) error
	GetByID(ctx context.Context, id uuid.UUID) (*VitalSigns, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*VitalSigns, int, error)
	ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*VitalSigns, error)
	Latest(ctx context.Context, patientID uuid.UUID) (*VitalSigns, error)
}
