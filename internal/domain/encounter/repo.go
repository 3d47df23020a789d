package encounter

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists encounters.
type Repository interface {
	Create(ctx context.Context, e *Encounter) error
	GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error)
	Update(ctx context.Context, e *Encounter) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Encounter, int, error)
}
