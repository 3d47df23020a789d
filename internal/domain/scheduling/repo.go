package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists appointments.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	// CountOverlapping reports how many non-cancelled appointments for the
	// doctor intersect the [start, end) window, excluding the given id.
	CountOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time, exclude uuid.UUID) (int, error)
	ListByDoctorDay(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]*Appointment, error)
	Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Appointment, int, error)
}
