package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table.
type Patient struct {
	ID               uuid.UUID  `json:"id"`
	MRN              string     `json:"mrn"`
	FirstName        string     `json:"firstName" validate:"required"`
	LastName         string     `json:"lastName" validate:"required"`
	BirthDate        *time.Time `json:"birthDate,omitempty"`
	Gender           *string    `json:"gender,omitempty" validate:"omitempty,oneof=male female other unknown"`
	BloodGroup       *string    `json:"bloodGroup,omitempty" validate:"omitempty,blood_group"`
	Phone            *string    `json:"phone,omitempty" validate:"omitempty,phone"`
	Email            *string    `json:"email,omitempty" validate:"omitempty,email"`
	AddressLine1     *string    `json:"addressLine1,omitempty"`
	AddressLine2     *string    `json:"addressLine2,omitempty"`
	City             *string    `json:"city,omitempty"`
	State            *string    `json:"state,omitempty"`
	PostalCode       *string    `json:"postalCode,omitempty"`
	Country          *string    `json:"country,omitempty"`
	Allergies        []string   `json:"allergies,omitempty"`
	ChronicDiseases  []string   `json:"chronicDiseases,omitempty"`
	EmergencyContact *string    `json:"emergencyContact,omitempty"`
	EmergencyPhone   *string    `json:"emergencyPhone,omitempty" validate:"omitempty,phone"`
	Active           bool       `json:"active"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// FullName returns the display name used in queues and reports.
func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Age returns the patient's age in whole years, or -1 when the birth date is
// unknown.
func (p *Patient) Age(now time.Time) int {
	if p.BirthDate == nil {
		return -1
	}
	years := now.Year() - p.BirthDate.Year()
	anniversary := p.BirthDate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

// Doctor maps to the doctors table.
type Doctor struct {
	ID              uuid.UUID `json:"id"`
	FirstName       string    `json:"firstName" validate:"required"`
	LastName        string    `json:"lastName" validate:"required"`
	Specialization  string    `json:"specialization" validate:"required"`
	LicenceNumber   string    `json:"licenceNumber" validate:"required,medical_licence"`
	Phone           *string   `json:"phone,omitempty" validate:"omitempty,phone"`
	Email           *string   `json:"email,omitempty" validate:"omitempty,email"`
	Department      *string   `json:"department,omitempty"`
	ConsultationFee float64   `json:"consultationFee" validate:"gte=0"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// FullName returns the doctor's display name.
func (d *Doctor) FullName() string {
	return d.FirstName + " " + d.LastName
}
