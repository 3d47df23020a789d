package lab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hms/hms/internal/platform/cache"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/ws"
)

var (
	ErrInvalidTests    = errors.New("some tests are invalid or inactive")
	ErrVersionConflict = errors.New("order was updated concurrently, retry")
	ErrResultNotReady  = errors.New("test must be collected or in progress before a result can be entered")
	ErrNoReport        = errors.New("no report exists for this order")
)

// InvoiceCreator raises an invoice for a newly placed order and voids it if
// the whole order is cancelled before payment. Wired to the billing service
// in production; optional so the lab workflow can run without billing.
type InvoiceCreator interface {
	CreateForLabOrder(ctx context.Context, o *LabOrder) error
	CancelForLabOrder(ctx context.Context, orderID uuid.UUID) error
}

// PatientDirectory answers whether the referenced patient and doctor exist.
// Wired to the patient service in production; optional, the database foreign
// keys remain the backstop.
type PatientDirectory interface {
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	tests   TestRepository
	orders  OrderRepository
	results ResultRepository
	reports ReportRepository
	tx      db.TxRunner

	invoices  InvoiceCreator
	directory PatientDirectory
	events    ws.EventPublisher
	cache     cache.Cache
}

func NewService(tests TestRepository, orders OrderRepository, results ResultRepository, reports ReportRepository, tx db.TxRunner) *Service {
	return &Service{
		tests:   tests,
		orders:  orders,
		results: results,
		reports: reports,
		tx:      tx,
		cache:   cache.NewNoop(),
	}
}

// SetInvoiceCreator attaches the billing integration (may be nil).
func (s *Service) SetInvoiceCreator(ic InvoiceCreator) { s.invoices = ic }

// SetDirectory attaches the patient/doctor existence check (may be nil).
func (s *Service) SetDirectory(d PatientDirectory) { s.directory = d }

// SetEventPublisher attaches the realtime event publisher (may be nil).
func (s *Service) SetEventPublisher(ep ws.EventPublisher) { s.events = ep }

// SetCache attaches a cache for catalog reads.
func (s *Service) SetCache(c cache.Cache) {
	if c != nil {
		s.cache = c
	}
}

// -- Workflow State Machine --

// testStatusTransitions defines valid per-line status transitions.
// Completed and Cancelled are terminal.
var testStatusTransitions = map[string][]string{
	TestOrdered:    {TestCollected, TestInProgress, TestCancelled},
	TestCollected:  {TestInProgress, TestCompleted, TestCancelled},
	TestInProgress: {TestCompleted, TestCancelled},
	TestCompleted:  {},
	TestCancelled:  {},
}

// ValidateTestTransition checks whether an ordered test may move between the
// two statuses.
func ValidateTestTransition(from, to string) error {
	allowed, ok := testStatusTransitions[from]
	if !ok {
		return fmt.Errorf("unknown test status: %s", from)
	}
	for _, st := range allowed {
		if st == to {
			return nil
		}
	}
	return fmt.Errorf("invalid test status transition from %s to %s", from, to)
}

// orderRank orders the order statuses so derivation never moves backwards.
var orderRank = map[string]int{
	OrderPending:    0,
	OrderInProgress: 1,
	OrderCompleted:  2,
	OrderCancelled:  2,
}

// deriveOrderStatus computes an order's status from its lines.
func deriveOrderStatus(current string, lines []*OrderedTest) string {
	terminal, completed, cancelled, touched := 0, 0, 0, 0
	for _, l := range lines {
		switch l.Status {
		case TestCompleted:
			terminal++
			completed++
		case TestCancelled:
			terminal++
			cancelled++
		case TestOrdered:
		default:
			touched++
		}
	}

	var derived string
	switch {
	case len(lines) > 0 && cancelled == len(lines):
		derived = OrderCancelled
	case len(lines) > 0 && terminal == len(lines) && completed > 0:
		derived = OrderCompleted
	case touched > 0 || terminal > 0:
		derived = OrderInProgress
	default:
		derived = OrderPending
	}

	if orderRank[derived] <= orderRank[current] {
		return current
	}
	return derived
}

// -- Catalog --

const testCacheTTL = 10 * time.Minute

// Matches the catalog column default.
const defaultTurnaroundHours = 24

func testCacheKey(id uuid.UUID) string { return "lab:test:" + id.String() }

func (s *Service) CreateTest(ctx context.Context, t *LabTest) error {
	if t.Code == "" {
		return fmt.Errorf("code is required")
	}
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if t.Category == "" {
		return fmt.Errorf("category is required")
	}
	if t.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if t.TurnaroundHours == nil {
		h := defaultTurnaroundHours
		t.TurnaroundHours = &h
	}
	t.Active = true
	return s.tests.Create(ctx, t)
}

func (s *Service) GetTest(ctx context.Context, id uuid.UUID) (*LabTest, error) {
	var cached LabTest
	if hit, err := s.cache.Get(ctx, testCacheKey(id), &cached); err == nil && hit {
		return &cached, nil
	}
	t, err := s.tests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, testCacheKey(id), t, testCacheTTL)
	return t, nil
}

func (s *Service) UpdateTest(ctx context.Context, t *LabTest) error {
	if t.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if err := s.tests.Update(ctx, t); err != nil {
		return err
	}
	return s.cache.Delete(ctx, testCacheKey(t.ID))
}

func (s *Service) DeactivateTest(ctx context.Context, id uuid.UUID) error {
	if err := s.tests.Deactivate(ctx, id); err != nil {
		return err
	}
	return s.cache.Delete(ctx, testCacheKey(id))
}

func (s *Service) SearchTests(ctx context.Context, params map[string]string, limit, offset int) ([]*LabTest, int, error) {
	return s.tests.Search(ctx, params, limit, offset)
}

// -- Orders --

var validPriorities = map[string]bool{
	PriorityRoutine: true, PriorityUrgent: true, PrioritySTAT: true,
}

// CreateOrder places a lab order. All requested tests must exist and be
// active, otherwise nothing is written. The order, its lines, a placeholder
// result per line and the invoice are created in a single transaction.
func (s *Service) CreateOrder(ctx context.Context, in *CreateOrderInput) (*LabOrder, error) {
	if in.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patientId is required")
	}
	if in.DoctorID == uuid.Nil {
		return nil, fmt.Errorf("doctorId is required")
	}
	if len(in.TestIDs) == 0 {
		return nil, fmt.Errorf("testIds is required")
	}
	if in.Priority == "" {
		in.Priority = PriorityRoutine
	}
	if !validPriorities[in.Priority] {
		return nil, fmt.Errorf("invalid priority: %s", in.Priority)
	}

	if s.directory != nil {
		ok, err := s.directory.PatientExists(ctx, in.PatientID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("patient not found")
		}
		ok, err = s.directory.DoctorExists(ctx, in.DoctorID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("doctor not found")
		}
	}

	tests, err := s.tests.GetByIDs(ctx, in.TestIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*LabTest, len(tests))
	for _, t := range tests {
		if t.Active {
			byID[t.ID] = t
		}
	}
	var total float64
	for _, id := range in.TestIDs {
		t, ok := byID[id]
		if !ok {
			return nil, ErrInvalidTests
		}
		total += t.Price
	}

	order := &LabOrder{
		PatientID:     in.PatientID,
		DoctorID:      in.DoctorID,
		EncounterID:   in.EncounterID,
		Priority:      in.Priority,
		ClinicalNotes: in.ClinicalNotes,
		Status:        OrderPending,
		TotalAmount:   total,
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		number, err := s.orders.NextOrderNumber(ctx)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}
		for _, id := range in.TestIDs {
			t := byID[id]
			line := &OrderedTest{
				OrderID:     order.ID,
				TestID:      t.ID,
				Code:        t.Code,
				Name:        t.Name,
				Category:    t.Category,
				Price:       t.Price,
				Unit:        t.Unit,
				NormalRange: t.NormalRange,
				Status:      TestOrdered,
			}
			if err := s.orders.CreateLine(ctx, line); err != nil {
				return err
			}
			order.Tests = append(order.Tests, line)

			placeholder := &LabResult{
				OrderID:        order.ID,
				OrderedTestID:  line.ID,
				TestName:       line.Name,
				Unit:           line.Unit,
				Flag:           FlagNormal,
				ReferenceRange: line.NormalRange,
				Status:         ResultPending,
			}
			if err := s.results.Create(ctx, placeholder); err != nil {
				return err
			}
		}
		if s.invoices != nil {
			return s.invoices.CreateForLabOrder(ctx, order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "order.created", ws.TopicLabOrders, order.ID, order)
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*LabOrder, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.orders.ListLines(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Tests = lines
	return order, nil
}

// OrderDetail is the full view of an order: its lines, every result entered
// so far, and the report once one has been synthesized.
type OrderDetail struct {
	*LabOrder
	Results []*LabResult `json:"results"`
	Report  *LabReport   `json:"report,omitempty"`
}

func (s *Service) GetOrderDetail(ctx context.Context, id uuid.UUID) (*OrderDetail, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	results, err := s.results.ListByOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	report, err := s.reports.GetByOrder(ctx, id)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		report = nil
	}
	return &OrderDetail{LabOrder: order, Results: results, Report: report}, nil
}

func (s *Service) ListOrdersByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*LabOrder, int, error) {
	return s.orders.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) Queue(ctx context.Context, params QueueParams, limit, offset int) ([]*LabOrder, int, error) {
	return s.orders.Queue(ctx, params, limit, offset)
}

func (s *Service) ListOrderResults(ctx context.Context, orderID uuid.UUID) ([]*LabResult, error) {
	return s.results.ListByOrder(ctx, orderID)
}

// UpdateTestStatus moves an ordered test through the workflow, cancelling its
// placeholder result when the line is cancelled, and re-derives the order
// status.
func (s *Service) UpdateTestStatus(ctx context.Context, orderID, lineID uuid.UUID, to string) (*LabOrder, error) {
	var order *LabOrder
	err := s.tx(ctx, func(ctx context.Context) error {
		line, err := s.orders.GetLine(ctx, lineID)
		if err != nil {
			return err
		}
		if line.OrderID != orderID {
			return fmt.Errorf("test does not belong to order")
		}
		if err := ValidateTestTransition(line.Status, to); err != nil {
			return err
		}
		if err := s.orders.UpdateLineStatus(ctx, lineID, to); err != nil {
			return err
		}
		if to == TestCancelled {
			res, err := s.results.GetByLine(ctx, lineID)
			if err != nil {
				return err
			}
			if res.Status == ResultPending {
				res.Status = ResultCancelled
				if err := s.results.Update(ctx, res); err != nil {
					return err
				}
			}
		}
		order, err = s.rollup(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if order.Status == OrderCompleted {
		s.publish(ctx, "order.completed", ws.TopicLabOrders, order.ID, order)
	}
	return order, nil
}

// EnterResult records a value for an ordered test. The line must be Collected
// or InProgress. The placeholder result is completed, the line moves to
// Completed and the order status is re-derived, all in one transaction.
func (s *Service) EnterResult(ctx context.Context, orderID, lineID uuid.UUID, in *EnterResultInput, performedBy string) (*LabResult, error) {
	if in.Value == "" {
		return nil, fmt.Errorf("value is required")
	}

	var (
		result *LabResult
		order  *LabOrder
	)
	err := s.tx(ctx, func(ctx context.Context) error {
		line, err := s.orders.GetLine(ctx, lineID)
		if err != nil {
			return err
		}
		if line.OrderID != orderID {
			return fmt.Errorf("test does not belong to order")
		}
		if line.Status != TestCollected && line.Status != TestInProgress {
			return ErrResultNotReady
		}

		flag := DetermineFlag(in.Value, line.NormalRange)
		if in.Flag != nil && *in.Flag != "" {
			flag = *in.Flag
		}

		result, err = s.results.GetByLine(ctx, lineID)
		if err != nil {
			return err
		}
		now := time.Now()
		result.Value = &in.Value
		result.Unit = line.Unit
		if in.Unit != nil {
			result.Unit = in.Unit
		}
		result.Flag = flag
		result.IsAbnormal = flag != FlagNormal
		result.ReferenceRange = line.NormalRange
		result.Method = in.Method
		result.Notes = in.Notes
		if performedBy != "" {
			result.PerformedBy = &performedBy
		}
		result.Status = ResultCompleted
		result.ResultedAt = &now
		if err := s.results.Update(ctx, result); err != nil {
			return err
		}

		if err := s.orders.UpdateLineStatus(ctx, lineID, TestCompleted); err != nil {
			return err
		}
		order, err = s.rollup(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "result.entered", ws.TopicLabResults, result.ID, result)
	if order.Status == OrderCompleted {
		s.publish(ctx, "order.completed", ws.TopicLabOrders, order.ID, order)
	}
	return result, nil
}

// ReviewResult marks a completed result as reviewed by a clinician.
func (s *Service) ReviewResult(ctx context.Context, resultID uuid.UUID, reviewedBy string) (*LabResult, error) {
	result, err := s.results.GetByID(ctx, resultID)
	if err != nil {
		return nil, err
	}
	if result.Status != ResultCompleted {
		return nil, fmt.Errorf("only completed results can be reviewed")
	}
	now := time.Now()
	result.Status = ResultReviewed
	result.ReviewedBy = &reviewedBy
	result.ReviewedAt = &now
	if err := s.results.Update(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AmendResult corrects an already completed or reviewed result and
// regenerates the order's report.
func (s *Service) AmendResult(ctx context.Context, resultID uuid.UUID, in *EnterResultInput, amendedBy string) (*LabResult, error) {
	if in.Value == "" {
		return nil, fmt.Errorf("value is required")
	}

	var result *LabResult
	err := s.tx(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.results.GetByID(ctx, resultID)
		if err != nil {
			return err
		}
		if result.Status != ResultCompleted && result.Status != ResultReviewed {
			return fmt.Errorf("only completed or reviewed results can be amended")
		}

		flag := DetermineFlag(in.Value, result.ReferenceRange)
		if in.Flag != nil && *in.Flag != "" {
			flag = *in.Flag
		}
		now := time.Now()
		result.Value = &in.Value
		if in.Unit != nil {
			result.Unit = in.Unit
		}
		result.Flag = flag
		result.IsAbnormal = flag != FlagNormal
		result.Method = in.Method
		result.Notes = in.Notes
		if amendedBy != "" {
			result.PerformedBy = &amendedBy
		}
		result.Status = ResultAmended
		result.ResultedAt = &now
		if err := s.results.Update(ctx, result); err != nil {
			return err
		}

		if _, err := s.reports.GetByOrder(ctx, result.OrderID); err == nil {
			_, err = s.generateReport(ctx, result.OrderID, true)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// rollup re-derives the order status from its lines inside the current
// transaction. The update is guarded by the order's version column; a
// concurrent writer surfaces as ErrVersionConflict. Completing the order
// also synthesizes its report.
func (s *Service) rollup(ctx context.Context, orderID uuid.UUID) (*LabOrder, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	lines, err := s.orders.ListLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Tests = lines

	derived := deriveOrderStatus(order.Status, lines)
	if derived == order.Status {
		return order, nil
	}

	order.Status = derived
	if derived == OrderCompleted {
		now := time.Now()
		order.CompletedAt = &now
	}
	ok, err := s.orders.UpdateStatus(ctx, order)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVersionConflict
	}

	switch derived {
	case OrderCompleted:
		if _, err := s.generateReport(ctx, orderID, false); err != nil {
			return nil, err
		}
	case OrderCancelled:
		if s.invoices != nil {
			if err := s.invoices.CancelForLabOrder(ctx, orderID); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

func (s *Service) publish(ctx context.Context, eventType, topic string, resourceID uuid.UUID, data any) {
	if s.events == nil {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	_ = s.events.Publish(ctx, ws.Event{
		Type:       eventType,
		Topic:      topic,
		Resource:   "lab",
		ResourceID: resourceID.String(),
		Timestamp:  time.Now(),
		Data:       payload,
	})
}
