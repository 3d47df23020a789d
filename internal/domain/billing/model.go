package billing

import (
	"time"

	"github.com/google/uuid"
)

// Invoice statuses.
const (
	StatusPending   = "Pending"
	StatusPaid      = "Paid"
	StatusCancelled = "Cancelled"
	StatusRefunded  = "Refunded"
)

// Payment methods.
const (
	MethodCash      = "Cash"
	MethodCard      = "Card"
	MethodUPI       = "UPI"
	MethodInsurance = "Insurance"
)

// Invoice maps to the invoices table.
type Invoice struct {
	ID            uuid.UUID  `json:"id"`
	InvoiceNumber string     `json:"invoiceNumber"`
	PatientID     uuid.UUID  `json:"patientId" validate:"required"`
	LabOrderID    *uuid.UUID `json:"labOrderId,omitempty"`
	Subtotal      float64    `json:"subtotal"`
	Tax           float64    `json:"tax"`
	Total         float64    `json:"total"`
	Status        string     `json:"status"`
	PaymentMethod *string    `json:"paymentMethod,omitempty"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`

	LineItems []*LineItem `json:"lineItems,omitempty"`
}

// LineItem maps to the invoice_line_items table.
type LineItem struct {
	ID          uuid.UUID `json:"id"`
	InvoiceID   uuid.UUID `json:"invoiceId"`
	Description string    `json:"description" validate:"required"`
	Quantity    int       `json:"quantity" validate:"gte=1"`
	UnitPrice   float64   `json:"unitPrice" validate:"gte=0"`
	Amount      float64   `json:"amount"`
}
