package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	patients PatientRepository
	doctors  DoctorRepository
}

func NewService(patients PatientRepository, doctors DoctorRepository) *Service {
	return &Service{patients: patients, doctors: doctors}
}

// -- Patients --

// RegisterPatient creates a patient and assigns a medical record number.
func (s *Service) RegisterPatient(ctx context.Context, p *Patient) error {
	if p.FirstName == "" {
		return fmt.Errorf("firstName is required")
	}
	if p.LastName == "" {
		return fmt.Errorf("lastName is required")
	}
	mrn, err := s.patients.NextMRN(ctx)
	if err != nil {
		return err
	}
	p.MRN = mrn
	p.Active = true
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetPatientByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return s.patients.GetByMRN(ctx, mrn)
}

// UpdatePatient applies demographic changes. The MRN is immutable.
func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	existing, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	p.MRN = existing.MRN
	return s.patients.Update(ctx, p)
}

func (s *Service) DeactivatePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Deactivate(ctx, id)
}

func (s *Service) SearchPatients(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.Search(ctx, params, limit, offset)
}

// -- Doctors --

func (s *Service) RegisterDoctor(ctx context.Context, d *Doctor) error {
	if d.FirstName == "" || d.LastName == "" {
		return fmt.Errorf("firstName and lastName are required")
	}
	if d.Specialization == "" {
		return fmt.Errorf("specialization is required")
	}
	if d.LicenceNumber == "" {
		return fmt.Errorf("licenceNumber is required")
	}
	if d.ConsultationFee < 0 {
		return fmt.Errorf("consultationFee must not be negative")
	}
	d.Active = true
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	if d.ConsultationFee < 0 {
		return fmt.Errorf("consultationFee must not be negative")
	}
	return s.doctors.Update(ctx, d)
}

func (s *Service) DeactivateDoctor(ctx context.Context, id uuid.UUID) error {
	return s.doctors.Deactivate(ctx, id)
}

func (s *Service) SearchDoctors(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.Search(ctx, params, limit, offset)
}

// -- Directory --
// Existence checks used by other domains to validate references before
// writing. Inactive records still exist.

func (s *Service) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.doctors.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
