package encounter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// statusTransitions defines valid encounter status transitions. Completed and
// Cancelled are terminal.
var statusTransitions = map[string][]string{
	StatusScheduled:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// ValidateTransition checks whether an encounter may move between statuses.
func ValidateTransition(from, to string) error {
	allowed, ok := statusTransitions[from]
	if !ok {
		return fmt.Errorf("unknown encounter status: %s", from)
	}
	for _, st := range allowed {
		if st == to {
			return nil
		}
	}
	return fmt.Errorf("invalid encounter status transition from %s to %s", from, to)
}

var validTypes = map[string]bool{
	TypeOPD: true, TypeIPD: true, TypeEmergency: true,
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, e *Encounter) error {
	if e.PatientID == uuid.Nil {
		return fmt.Errorf("patientId is required")
	}
	if e.DoctorID == uuid.Nil {
		return fmt.Errorf("doctorId is required")
	}
	if e.Type == "" {
		e.Type = TypeOPD
	}
	if !validTypes[e.Type] {
		return fmt.Errorf("invalid encounter type: %s", e.Type)
	}
	if e.Status == "" {
		e.Status = StatusScheduled
	}
	if _, ok := statusTransitions[e.Status]; !ok {
		return fmt.Errorf("invalid status: %s", e.Status)
	}
	return s.repo.Create(ctx, e)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateDocumentation replaces the clinical notes on an encounter without
// touching its status.
func (s *Service) UpdateDocumentation(ctx context.Context, e *Encounter) error {
	existing, err := s.repo.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	existing.ChiefComplaint = e.ChiefComplaint
	existing.Diagnosis = e.Diagnosis
	existing.TreatmentPlan = e.TreatmentPlan
	existing.Notes = e.Notes
	*e = *existing
	return s.repo.Update(ctx, existing)
}

// UpdateStatus moves an encounter through its workflow. Completing an
// encounter stamps the discharge time.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to string) (*Encounter, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(e.Status, to); err != nil {
		return nil, err
	}
	e.Status = to
	if to == StatusCompleted {
		now := time.Now()
		e.DischargedAt = &now
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}
