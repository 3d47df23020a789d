package patient

import (
	"context"

	"github.com/google/uuid"
)

// PatientRepository persists patients.
type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByMRN(ctx context.Context, mrn string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error)
	NextMRN(ctx context.Context) (string, error)
}

// DoctorRepository persists doctors.
type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error)
}
