package lab

import (
	"context"

	"github.com/google/uuid"
)

// TestRepository persists catalog entries.
type TestRepository interface {
	Create(ctx context.Context, t *LabTest) error
	GetByID(ctx context.Context, id uuid.UUID) (*LabTest, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*LabTest, error)
	Update(ctx context.Context, t *LabTest) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*LabTest, int, error)
}

// OrderRepository persists orders and their test lines.
type OrderRepository interface {
	Create(ctx context.Context, o *LabOrder) error
	CreateLine(ctx context.Context, line *OrderedTest) error
	GetByID(ctx context.Context, id uuid.UUID) (*LabOrder, error)
	ListLines(ctx context.Context, orderID uuid.UUID) ([]*OrderedTest, error)
	GetLine(ctx context.Context, lineID uuid.UUID) (*OrderedTest, error)
	UpdateLineStatus(ctx context.Context, lineID uuid.UUID, status string) error
	// UpdateStatus bumps the order row guarded by its version column and
	// reports whether the guarded update matched a row.
	UpdateStatus(ctx context.Context, o *LabOrder) (bool, error)
	NextOrderNumber(ctx context.Context) (string, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*LabOrder, int, error)
	Queue(ctx context.Context, params QueueParams, limit, offset int) ([]*LabOrder, int, error)
}

// ResultRepository persists results.
type ResultRepository interface {
	Create(ctx context.Context, r *LabResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*LabResult, error)
	GetByLine(ctx context.Context, lineID uuid.UUID) (*LabResult, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*LabResult, error)
	Update(ctx context.Context, r *LabResult) error
}

// ReportRepository persists synthesized reports, one per order.
type ReportRepository interface {
	Upsert(ctx context.Context, r *LabReport) error
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*LabReport, error)
	NextReportNumber(ctx context.Context) (string, error)
}
