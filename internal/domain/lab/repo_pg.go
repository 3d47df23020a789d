package lab

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// -- LabTest --

type PgTestRepository struct {
	pool *pgxpool.Pool
}

func NewPgTestRepository(pool *pgxpool.Pool) *PgTestRepository {
	return &PgTestRepository{pool: pool}
}

func (r *PgTestRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const testCols = `id, code, name, category, description, price, unit, normal_range,
	specimen_type, turnaround_hours, active, created_at, updated_at`

func scanTest(row pgx.Row) (*LabTest, error) {
	var t LabTest
	err := row.Scan(&t.ID, &t.Code, &t.Name, &t.Category, &t.Description, &t.Price,
		&t.Unit, &t.NormalRange, &t.SpecimenType, &t.TurnaroundHours, &t.Active,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PgTestRepository) Create(ctx context.Context, t *LabTest) error {
	t.ID = uuid.New()
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_tests (id, code, name, category, description, price, unit,
			normal_range, specimen_type, turnaround_hours, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.Code, t.Name, t.Category, t.Description, t.Price, t.Unit,
		t.NormalRange, t.SpecimenType, t.TurnaroundHours, t.Active, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *PgTestRepository) GetByID(ctx context.Context, id uuid.UUID) (*LabTest, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+testCols+` FROM lab_tests WHERE id = $1`, id)
	return scanTest(row)
}

func (r *PgTestRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*LabTest, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+testCols+` FROM lab_tests WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []*LabTest
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

func (r *PgTestRepository) Update(ctx context.Context, t *LabTest) error {
	t.UpdatedAt = time.Now()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_tests SET code = $2, name = $3, category = $4, description = $5,
			price = $6, unit = $7, normal_range = $8, specimen_type = $9,
			turnaround_hours = $10, active = $11, updated_at = $12
		WHERE id = $1`,
		t.ID, t.Code, t.Name, t.Category, t.Description, t.Price, t.Unit,
		t.NormalRange, t.SpecimenType, t.TurnaroundHours, t.Active, t.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgTestRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE lab_tests SET active = false, updated_at = $2 WHERE id = $1`, id, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgTestRepository) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*LabTest, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	idx := 1

	if v, ok := params["category"]; ok && v != "" {
		where += fmt.Sprintf(` AND category = $%d`, idx)
		args = append(args, v)
		idx++
	}
	if v, ok := params["active"]; ok && v != "" {
		where += fmt.Sprintf(` AND active = $%d`, idx)
		args = append(args, v == "true")
		idx++
	}
	if v, ok := params["q"]; ok && v != "" {
		where += fmt.Sprintf(` AND (name ILIKE $%d OR code ILIKE $%d)`, idx, idx)
		args = append(args, "%"+v+"%")
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM lab_tests`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + testCols + ` FROM lab_tests` + where +
		fmt.Sprintf(` ORDER BY category, name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tests []*LabTest
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, 0, err
		}
		tests = append(tests, t)
	}
	return tests, total, rows.Err()
}

// -- LabOrder --

type PgOrderRepository struct {
	pool *pgxpool.Pool
}

func NewPgOrderRepository(pool *pgxpool.Pool) *PgOrderRepository {
	return &PgOrderRepository{pool: pool}
}

func (r *PgOrderRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const orderCols = `o.id, o.order_number, o.patient_id, o.doctor_id, o.encounter_id,
	o.priority, o.clinical_notes, o.status, o.total_amount, o.version,
	o.ordered_at, o.completed_at, o.created_at, o.updated_at`

const lineCols = `id, order_id, test_id, code, name, category, price, unit,
	normal_range, status, status_updated_at`

func scanOrder(row pgx.Row) (*LabOrder, error) {
	var o LabOrder
	err := row.Scan(&o.ID, &o.OrderNumber, &o.PatientID, &o.DoctorID, &o.EncounterID,
		&o.Priority, &o.ClinicalNotes, &o.Status, &o.TotalAmount, &o.Version,
		&o.OrderedAt, &o.CompletedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func scanLine(row pgx.Row) (*OrderedTest, error) {
	var l OrderedTest
	err := row.Scan(&l.ID, &l.OrderID, &l.TestID, &l.Code, &l.Name, &l.Category,
		&l.Price, &l.Unit, &l.NormalRange, &l.Status, &l.StatusUpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PgOrderRepository) Create(ctx context.Context, o *LabOrder) error {
	o.ID = uuid.New()
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	if o.OrderedAt.IsZero() {
		o.OrderedAt = now
	}
	o.Version = 1
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_orders (id, order_number, patient_id, doctor_id, encounter_id,
			priority, clinical_notes, status, total_amount, version, ordered_at,
			completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		o.ID, o.OrderNumber, o.PatientID, o.DoctorID, o.EncounterID,
		o.Priority, o.ClinicalNotes, o.Status, o.TotalAmount, o.Version, o.OrderedAt,
		o.CompletedAt, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *PgOrderRepository) CreateLine(ctx context.Context, line *OrderedTest) error {
	line.ID = uuid.New()
	if line.StatusUpdatedAt.IsZero() {
		line.StatusUpdatedAt = time.Now()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ordered_tests (id, order_id, test_id, code, name, category,
			price, unit, normal_range, status, status_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		line.ID, line.OrderID, line.TestID, line.Code, line.Name, line.Category,
		line.Price, line.Unit, line.NormalRange, line.Status, line.StatusUpdatedAt)
	return err
}

func (r *PgOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*LabOrder, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT `+orderCols+`,
			p.first_name || ' ' || p.last_name,
			d.first_name || ' ' || d.last_name
		FROM lab_orders o
		JOIN patients p ON p.id = o.patient_id
		JOIN doctors d ON d.id = o.doctor_id
		WHERE o.id = $1`, id)

	var o LabOrder
	err := row.Scan(&o.ID, &o.OrderNumber, &o.PatientID, &o.DoctorID, &o.EncounterID,
		&o.Priority, &o.ClinicalNotes, &o.Status, &o.TotalAmount, &o.Version,
		&o.OrderedAt, &o.CompletedAt, &o.CreatedAt, &o.UpdatedAt,
		&o.PatientName, &o.DoctorName)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PgOrderRepository) ListLines(ctx context.Context, orderID uuid.UUID) ([]*OrderedTest, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+lineCols+` FROM ordered_tests WHERE order_id = $1 ORDER BY name`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*OrderedTest
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *PgOrderRepository) GetLine(ctx context.Context, lineID uuid.UUID) (*OrderedTest, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+lineCols+` FROM ordered_tests WHERE id = $1`, lineID)
	return scanLine(row)
}

func (r *PgOrderRepository) UpdateLineStatus(ctx context.Context, lineID uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE ordered_tests SET status = $2, status_updated_at = $3 WHERE id = $1`,
		lineID, status, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgOrderRepository) UpdateStatus(ctx context.Context, o *LabOrder) (bool, error) {
	o.UpdatedAt = time.Now()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_orders SET status = $2, completed_at = $3, version = version + 1,
			updated_at = $4
		WHERE id = $1 AND version = $5`,
		o.ID, o.Status, o.CompletedAt, o.UpdatedAt, o.Version)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	o.Version++
	return true, nil
}

func (r *PgOrderRepository) NextOrderNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT nextval('lab_order_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%06d", n), nil
}

func (r *PgOrderRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*LabOrder, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM lab_orders WHERE patient_id = $1`, patientID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+orderCols+` FROM lab_orders o
		WHERE o.patient_id = $1
		ORDER BY o.ordered_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []*LabOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

// Queue lists orders for the lab work queue, joining patient and doctor names.
// A test_status or category filter matches orders with at least one such line.
func (r *PgOrderRepository) Queue(ctx context.Context, params QueueParams, limit, offset int) ([]*LabOrder, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	idx := 1

	if params.OrderStatus != "" {
		where += fmt.Sprintf(` AND o.status = $%d`, idx)
		args = append(args, params.OrderStatus)
		idx++
	}
	if params.TestStatus != "" {
		where += fmt.Sprintf(` AND EXISTS (SELECT 1 FROM ordered_tests t WHERE t.order_id = o.id AND t.status = $%d)`, idx)
		args = append(args, params.TestStatus)
		idx++
	}
	if params.Priority != "" {
		where += fmt.Sprintf(` AND o.priority = $%d`, idx)
		args = append(args, params.Priority)
		idx++
	}
	if params.Category != "" {
		where += fmt.Sprintf(` AND EXISTS (SELECT 1 FROM ordered_tests t WHERE t.order_id = o.id AND t.category = $%d)`, idx)
		args = append(args, params.Category)
		idx++
	}
	if params.PatientID != "" {
		where += fmt.Sprintf(` AND o.patient_id = $%d`, idx)
		args = append(args, params.PatientID)
		idx++
	}
	if params.Query != "" {
		where += fmt.Sprintf(` AND (o.order_number ILIKE $%d OR p.first_name || ' ' || p.last_name ILIKE $%d)`, idx, idx)
		args = append(args, "%"+params.Query+"%")
		idx++
	}

	base := ` FROM lab_orders o
		JOIN patients p ON p.id = o.patient_id
		JOIN doctors d ON d.id = o.doctor_id` + where

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// STAT before Urgent before Routine, oldest first within a priority.
	query := `SELECT ` + orderCols + `,
			p.first_name || ' ' || p.last_name,
			d.first_name || ' ' || d.last_name` + base +
		fmt.Sprintf(` ORDER BY CASE o.priority WHEN 'STAT' THEN 0 WHEN 'Urgent' THEN 1 ELSE 2 END,
			o.ordered_at ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []*LabOrder
	for rows.Next() {
		var o LabOrder
		err := rows.Scan(&o.ID, &o.OrderNumber, &o.PatientID, &o.DoctorID, &o.EncounterID,
			&o.Priority, &o.ClinicalNotes, &o.Status, &o.TotalAmount, &o.Version,
			&o.OrderedAt, &o.CompletedAt, &o.CreatedAt, &o.UpdatedAt,
			&o.PatientName, &o.DoctorName)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, &o)
	}
	return orders, total, rows.Err()
}

// -- LabResult --

type PgResultRepository struct {
	pool *pgxpool.Pool
}

func NewPgResultRepository(pool *pgxpool.Pool) *PgResultRepository {
	return &PgResultRepository{pool: pool}
}

func (r *PgResultRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const resultCols = `id, order_id, ordered_test_id, test_name, value, unit, flag,
	is_abnormal, reference_range, method, notes, performed_by, reviewed_by,
	status, resulted_at, reviewed_at, created_at, updated_at`

func scanResult(row pgx.Row) (*LabResult, error) {
	var lr LabResult
	err := row.Scan(&lr.ID, &lr.OrderID, &lr.OrderedTestID, &lr.TestName, &lr.Value,
		&lr.Unit, &lr.Flag, &lr.IsAbnormal, &lr.ReferenceRange, &lr.Method, &lr.Notes,
		&lr.PerformedBy, &lr.ReviewedBy, &lr.Status, &lr.ResultedAt, &lr.ReviewedAt,
		&lr.CreatedAt, &lr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &lr, nil
}

func (r *PgResultRepository) Create(ctx context.Context, lr *LabResult) error {
	lr.ID = uuid.New()
	now := time.Now()
	lr.CreatedAt = now
	lr.UpdatedAt = now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_results (id, order_id, ordered_test_id, test_name, value, unit,
			flag, is_abnormal, reference_range, method, notes, performed_by, reviewed_by,
			status, resulted_at, reviewed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		lr.ID, lr.OrderID, lr.OrderedTestID, lr.TestName, lr.Value, lr.Unit,
		lr.Flag, lr.IsAbnormal, lr.ReferenceRange, lr.Method, lr.Notes, lr.PerformedBy,
		lr.ReviewedBy, lr.Status, lr.ResultedAt, lr.ReviewedAt, lr.CreatedAt, lr.UpdatedAt)
	return err
}

func (r *PgResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*LabResult, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+resultCols+` FROM lab_results WHERE id = $1`, id)
	return scanResult(row)
}

func (r *PgResultRepository) GetByLine(ctx context.Context, lineID uuid.UUID) (*LabResult, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+resultCols+` FROM lab_results WHERE ordered_test_id = $1`, lineID)
	return scanResult(row)
}

func (r *PgResultRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*LabResult, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+resultCols+` FROM lab_results WHERE order_id = $1 ORDER BY test_name`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*LabResult
	for rows.Next() {
		lr, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, lr)
	}
	return results, rows.Err()
}

func (r *PgResultRepository) Update(ctx context.Context, lr *LabResult) error {
	lr.UpdatedAt = time.Now()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_results SET value = $2, unit = $3, flag = $4, is_abnormal = $5,
			reference_range = $6, method = $7, notes = $8, performed_by = $9,
			reviewed_by = $10, status = $11, resulted_at = $12, reviewed_at = $13,
			updated_at = $14
		WHERE id = $1`,
		lr.ID, lr.Value, lr.Unit, lr.Flag, lr.IsAbnormal, lr.ReferenceRange,
		lr.Method, lr.Notes, lr.PerformedBy, lr.ReviewedBy, lr.Status,
		lr.ResultedAt, lr.ReviewedAt, lr.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// -- LabReport --

type PgReportRepository struct {
	pool *pgxpool.Pool
}

func NewPgReportRepository(pool *pgxpool.Pool) *PgReportRepository {
	return &PgReportRepository{pool: pool}
}

func (r *PgReportRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const reportCols = `id, order_id, report_number, status, total_tests, completed_tests,
	abnormal_count, abnormal_findings, clinical_summary, generated_at, created_at, updated_at`

func scanReport(row pgx.Row) (*LabReport, error) {
	var rp LabReport
	err := row.Scan(&rp.ID, &rp.OrderID, &rp.ReportNumber, &rp.Status, &rp.TotalTests,
		&rp.CompletedTests, &rp.AbnormalCount, &rp.AbnormalFindings, &rp.ClinicalSummary,
		&rp.GeneratedAt, &rp.CreatedAt, &rp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rp, nil
}

// Upsert inserts the report or, when one already exists for the order,
// overwrites its content while keeping the original id and report number.
func (r *PgReportRepository) Upsert(ctx context.Context, rp *LabReport) error {
	if rp.ID == uuid.Nil {
		rp.ID = uuid.New()
	}
	now := time.Now()
	rp.CreatedAt = now
	rp.UpdatedAt = now
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO lab_reports (id, order_id, report_number, status, total_tests,
			completed_tests, abnormal_count, abnormal_findings, clinical_summary,
			generated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (order_id) DO UPDATE SET
			status = EXCLUDED.status,
			total_tests = EXCLUDED.total_tests,
			completed_tests = EXCLUDED.completed_tests,
			abnormal_count = EXCLUDED.abnormal_count,
			abnormal_findings = EXCLUDED.abnormal_findings,
			clinical_summary = EXCLUDED.clinical_summary,
			generated_at = EXCLUDED.generated_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id, report_number, created_at`,
		rp.ID, rp.OrderID, rp.ReportNumber, rp.Status, rp.TotalTests,
		rp.CompletedTests, rp.AbnormalCount, rp.AbnormalFindings, rp.ClinicalSummary,
		rp.GeneratedAt, rp.CreatedAt, rp.UpdatedAt)
	return row.Scan(&rp.ID, &rp.ReportNumber, &rp.CreatedAt)
}

func (r *PgReportRepository) GetByOrder(ctx context.Context, orderID uuid.UUID) (*LabReport, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+reportCols+` FROM lab_reports WHERE order_id = $1`, orderID)
	return scanReport(row)
}

func (r *PgReportRepository) NextReportNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT nextval('lab_report_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("RPT-%06d", n), nil
}
