package billing

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists invoices and their line items.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	CreateLineItem(ctx context.Context, item *LineItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetByLabOrder(ctx context.Context, orderID uuid.UUID) (*Invoice, error)
	ListItems(ctx context.Context, invoiceID uuid.UUID) ([]*LineItem, error)
	Update(ctx context.Context, inv *Invoice) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Invoice, int, error)
	NextInvoiceNumber(ctx context.Context) (string, error)
}
