package vitals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record flags and stores one set of measurements. At least one
// measurement must be present.
func (s *Service) Record(ctx context.Context, v *VitalSigns, recordedBy string) error {
	if v.Temperature == nil && v.Pulse == nil && v.RespRate == nil &&
		v.Systolic == nil && v.Diastolic == nil && v.SpO2 == nil &&
		v.WeightKg == nil && v.HeightCm == nil {
		return fmt.Errorf("at least one measurement is required")
	}
	Assess(v)
	v.RecordedBy = recordedBy
	if v.RecordedAt.IsZero() {
		v.RecordedAt = time.Now().UTC()
	}
	return s.repo.Create(ctx, v)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*VitalSigns, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*VitalSigns, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*VitalSigns, error) {
	return s.repo.ListByEncounter(ctx, encounterID)
}

func (s *Service) Latest(ctx context.Context, patientID uuid.UUID) (*VitalSigns, error) {
	return s.repo.Latest(ctx, patientID)
}
