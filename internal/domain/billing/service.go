package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hms/hms/internal/domain/lab"
	"github.com/hms/hms/internal/platform/db"
)

var ErrNotPayable = errors.New("only pending invoices can be paid")

type Service struct {
	repo    Repository
	tx      db.TxRunner
	taxRate float64
}

func NewService(repo Repository, tx db.TxRunner) *Service {
	return &Service{repo: repo, tx: tx}
}

// SetTaxRate sets the fraction of the subtotal charged as tax.
func (s *Service) SetTaxRate(rate float64) {
	if rate >= 0 {
		s.taxRate = rate
	}
}

// CreateInvoice writes an invoice and its line items in one transaction.
// Subtotal, tax and total are always recomputed from the line items.
func (s *Service) CreateInvoice(ctx context.Context, inv *Invoice) error {
	if inv.PatientID == uuid.Nil {
		return fmt.Errorf("patientId is required")
	}
	if len(inv.LineItems) == 0 {
		return fmt.Errorf("at least one line item is required")
	}
	for _, it := range inv.LineItems {
		if it.Description == "" {
			return fmt.Errorf("line item description is required")
		}
		if it.Quantity < 1 {
			return fmt.Errorf("line item quantity must be at least 1")
		}
		if it.UnitPrice < 0 {
			return fmt.Errorf("line item unit price must not be negative")
		}
		it.Amount = float64(it.Quantity) * it.UnitPrice
	}

	var subtotal float64
	for _, it := range inv.LineItems {
		subtotal += it.Amount
	}
	inv.Subtotal = subtotal
	inv.Tax = subtotal * s.taxRate
	inv.Total = inv.Subtotal + inv.Tax
	inv.Status = StatusPending

	return s.tx(ctx, func(ctx context.Context) error {
		number, err := s.repo.NextInvoiceNumber(ctx)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number
		if err := s.repo.Create(ctx, inv); err != nil {
			return err
		}
		for _, it := range inv.LineItems {
			it.InvoiceID = inv.ID
			if err := s.repo.CreateLineItem(ctx, it); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateForLabOrder raises a pending invoice for a lab order, one line item
// per ordered test. Implements the lab service's billing seam.
func (s *Service) CreateForLabOrder(ctx context.Context, o *lab.LabOrder) error {
	inv := &Invoice{
		PatientID:  o.PatientID,
		LabOrderID: &o.ID,
	}
	for _, line := range o.Tests {
		inv.LineItems = append(inv.LineItems, &LineItem{
			Description: "Lab: " + line.Name,
			Quantity:    1,
			UnitPrice:   line.Price,
		})
	}
	return s.CreateInvoice(ctx, inv)
}

// CancelForLabOrder voids the invoice raised for a lab order, provided it has
// not been paid. Paid invoices are left for a manual refund.
func (s *Service) CancelForLabOrder(ctx context.Context, orderID uuid.UUID) error {
	inv, err := s.repo.GetByLabOrder(ctx, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if inv.Status != StatusPending {
		return nil
	}
	inv.Status = StatusCancelled
	return s.repo.Update(ctx, inv)
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.LineItems = items
	return inv, nil
}

var validMethods = map[string]bool{
	MethodCash: true, MethodCard: true, MethodUPI: true, MethodInsurance: true,
}

// RecordPayment settles a pending invoice.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, method string) (*Invoice, error) {
	if !validMethods[method] {
		return nil, fmt.Errorf("invalid payment method: %s", method)
	}
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusPending {
		return nil, ErrNotPayable
	}
	now := time.Now()
	inv.Status = StatusPaid
	inv.PaymentMethod = &method
	inv.PaidAt = &now
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// CancelInvoice voids a pending invoice.
func (s *Service) CancelInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusPending {
		return nil, fmt.Errorf("only pending invoices can be cancelled")
	}
	inv.Status = StatusCancelled
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// RefundInvoice marks a paid invoice as refunded.
func (s *Service) RefundInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusPaid {
		return nil, fmt.Errorf("only paid invoices can be refunded")
	}
	inv.Status = StatusRefunded
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Invoice, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}
