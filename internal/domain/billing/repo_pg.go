package billing

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

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const invCols = `id, invoice_number, patient_id, lab_order_id, subtotal, tax, total,
	status, payment_method, paid_at, notes, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.PatientID, &inv.LabOrderID,
		&inv.Subtotal, &inv.Tax, &inv.Total, &inv.Status, &inv.PaymentMethod,
		&inv.PaidAt, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *PgRepository) Create(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	now := time.Now()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO invoices (id, invoice_number, patient_id, lab_order_id, subtotal,
			tax, total, status, payment_method, paid_at, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		inv.ID, inv.InvoiceNumber, inv.PatientID, inv.LabOrderID, inv.Subtotal,
		inv.Tax, inv.Total, inv.Status, inv.PaymentMethod, inv.PaidAt, inv.Notes,
		inv.CreatedAt, inv.UpdatedAt)
	return err
}

func (r *PgRepository) CreateLineItem(ctx context.Context, item *LineItem) error {
	item.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO invoice_line_items (id, invoice_id, description, quantity, unit_price, amount)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, item.InvoiceID, item.Description, item.Quantity, item.UnitPrice, item.Amount)
	return err
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+invCols+` FROM invoices WHERE id = $1`, id)
	return scanInvoice(row)
}

func (r *PgRepository) GetByLabOrder(ctx context.Context, orderID uuid.UUID) (*Invoice, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+invCols+` FROM invoices WHERE lab_order_id = $1`, orderID)
	return scanInvoice(row)
}

func (r *PgRepository) ListItems(ctx context.Context, invoiceID uuid.UUID) ([]*LineItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit_price, amount
		FROM invoice_line_items WHERE invoice_id = $1 ORDER BY description`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*LineItem
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity,
			&it.UnitPrice, &it.Amount); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

func (r *PgRepository) Update(ctx context.Context, inv *Invoice) error {
	inv.UpdatedAt = time.Now()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE invoices SET status = $2, payment_method = $3, paid_at = $4,
			notes = $5, updated_at = $6
		WHERE id = $1`,
		inv.ID, inv.Status, inv.PaymentMethod, inv.PaidAt, inv.Notes, inv.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices WHERE patient_id = $1`, patientID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+invCols+` FROM invoices WHERE patient_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

func (r *PgRepository) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Invoice, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	idx := 1

	if v, ok := params["status"]; ok && v != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, v)
		idx++
	}
	if v, ok := params["patient_id"]; ok && v != "" {
		where += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, v)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM invoices`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + invCols + ` FROM invoices` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

func (r *PgRepository) NextInvoiceNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%06d", n), nil
}
