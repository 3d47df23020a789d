package lab

import (
	"time"

	"github.com/google/uuid"
)

// Order priorities.
const (
	PriorityRoutine = "Routine"
	PriorityUrgent  = "Urgent"
	PrioritySTAT    = "STAT"
)

// Order statuses. An order's status is derived from the statuses of its
// ordered tests and only ever moves forward.
const (
	OrderPending    = "Pending"
	OrderInProgress = "InProgress"
	OrderCompleted  = "Completed"
	OrderCancelled  = "Cancelled"
)

// Per-test workflow statuses.
const (
	TestOrdered    = "Ordered"
	TestCollected  = "Collected"
	TestInProgress = "InProgress"
	TestCompleted  = "Completed"
	TestCancelled  = "Cancelled"
)

// Result statuses.
const (
	ResultPending   = "Pending"
	ResultCompleted = "Completed"
	ResultReviewed  = "Reviewed"
	ResultAmended   = "Amended"
	ResultCancelled = "Cancelled"
)

// Result flags.
const (
	FlagNormal   = "Normal"
	FlagHigh     = "High"
	FlagLow      = "Low"
	FlagCritical = "Critical"
	FlagAbnormal = "Abnormal"
)

// Report statuses.
const (
	ReportDraft       = "Draft"
	ReportPreliminary = "Preliminary"
	ReportFinal       = "Final"
	ReportReviewed    = "Reviewed"
	ReportAmended     = "Amended"
)

// LabTest is a catalog entry describing an orderable test.
type LabTest struct {
	ID              uuid.UUID `json:"id"`
	Code            string    `json:"code" validate:"required"`
	Name            string    `json:"name" validate:"required"`
	Category        string    `json:"category" validate:"required"`
	Description     *string   `json:"description,omitempty"`
	Price           float64   `json:"price" validate:"gte=0"`
	Unit            *string   `json:"unit,omitempty"`
	NormalRange     *string   `json:"normalRange,omitempty"`
	SpecimenType    *string   `json:"specimenType,omitempty"`
	TurnaroundHours *int      `json:"turnaroundHours,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// LabOrder is a doctor's request for one or more catalog tests on a patient.
type LabOrder struct {
	ID            uuid.UUID  `json:"id"`
	OrderNumber   string     `json:"orderNumber"`
	PatientID     uuid.UUID  `json:"patientId"`
	DoctorID      uuid.UUID  `json:"doctorId"`
	EncounterID   *uuid.UUID `json:"encounterId,omitempty"`
	Priority      string     `json:"priority"`
	ClinicalNotes *string    `json:"clinicalNotes,omitempty"`
	Status        string     `json:"status"`
	TotalAmount   float64    `json:"totalAmount"`
	Version       int        `json:"version"`
	OrderedAt     time.Time  `json:"orderedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`

	// Joined display fields, populated by queue and detail queries.
	PatientName string `json:"patientName,omitempty"`
	DoctorName  string `json:"doctorName,omitempty"`

	Tests []*OrderedTest `json:"tests,omitempty"`
}

// OrderedTest is a single line of a LabOrder. Name, price, unit and normal
// range are snapshotted from the catalog at ordering time so later catalog
// edits never change an existing order.
type OrderedTest struct {
	ID              uuid.UUID `json:"id"`
	OrderID         uuid.UUID `json:"orderId"`
	TestID          uuid.UUID `json:"testId"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	Price           float64   `json:"price"`
	Unit            *string   `json:"unit,omitempty"`
	NormalRange     *string   `json:"normalRange,omitempty"`
	Status          string    `json:"status"`
	StatusUpdatedAt time.Time `json:"statusUpdatedAt"`
}

// LabResult holds the outcome for one ordered test. A placeholder Pending
// result is created with the order and completed when a value is entered.
type LabResult struct {
	ID             uuid.UUID  `json:"id"`
	OrderID        uuid.UUID  `json:"orderId"`
	OrderedTestID  uuid.UUID  `json:"orderedTestId"`
	TestName       string     `json:"testName"`
	Value          *string    `json:"value,omitempty"`
	Unit           *string    `json:"unit,omitempty"`
	Flag           string     `json:"flag"`
	IsAbnormal     bool       `json:"isAbnormal"`
	ReferenceRange *string    `json:"referenceRange,omitempty"`
	Method         *string    `json:"method,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	PerformedBy    *string    `json:"performedBy,omitempty"`
	ReviewedBy     *string    `json:"reviewedBy,omitempty"`
	Status         string     `json:"status"`
	ResultedAt     *time.Time `json:"resultedAt,omitempty"`
	ReviewedAt     *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// LabReport is the synthesized summary for a completed order. At most one
// report exists per order; regeneration overwrites it in place.
type LabReport struct {
	ID               uuid.UUID `json:"id"`
	OrderID          uuid.UUID `json:"orderId"`
	ReportNumber     string    `json:"reportNumber"`
	Status           string    `json:"status"`
	TotalTests       int       `json:"totalTests"`
	CompletedTests   int       `json:"completedTests"`
	AbnormalCount    int       `json:"abnormalCount"`
	AbnormalFindings []string  `json:"abnormalFindings"`
	ClinicalSummary  string    `json:"clinicalSummary"`
	GeneratedAt      time.Time `json:"generatedAt"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// CreateOrderInput is the request payload for placing an order.
type CreateOrderInput struct {
	PatientID     uuid.UUID   `json:"patientId" validate:"required"`
	DoctorID      uuid.UUID   `json:"doctorId" validate:"required"`
	EncounterID   *uuid.UUID  `json:"encounterId,omitempty"`
	TestIDs       []uuid.UUID `json:"testIds" validate:"required,min=1"`
	Priority      string      `json:"priority" validate:"omitempty,oneof=Routine Urgent STAT"`
	ClinicalNotes *string     `json:"clinicalNotes,omitempty"`
}

// EnterResultInput is the request payload for recording a result value
// against an ordered test.
type EnterResultInput struct {
	Value  string  `json:"value" validate:"required"`
	Unit   *string `json:"unit,omitempty"`
	Flag   *string `json:"flag,omitempty" validate:"omitempty,oneof=Normal High Low Critical Abnormal"`
	Method *string `json:"method,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

// QueueParams filters the lab work queue.
type QueueParams struct {
	OrderStatus string
	TestStatus  string
	Priority    string
	Category    string
	PatientID   string
	Query       string
}
