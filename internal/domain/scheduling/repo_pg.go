package scheduling

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

// PgRepository is the Postgres-backed appointment store.
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

const apptCols = `a.id, a.patient_id, a.doctor_id, a.starts_at, a.ends_at,
	a.reason, a.status, a.notes, a.created_at, a.updated_at,
	p.first_name || ' ' || p.last_name,
	d.first_name || ' ' || d.last_name`

const apptJoin = ` FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN doctors d ON d.id = a.doctor_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.StartsAt, &a.EndsAt,
		&a.Reason, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
		&a.PatientName, &a.DoctorName)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PgRepository) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, starts_at, ends_at,
			reason, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.PatientID, a.DoctorID, a.StartsAt, a.EndsAt,
		a.Reason, a.Status, a.Notes, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+apptJoin+` WHERE a.id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) Update(ctx context.Context, a *Appointment) error {
	a.UpdatedAt = time.Now().UTC()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments
		SET starts_at = $2, ends_at = $3, reason = $4, status = $5,
			notes = $6, updated_at = $7
		WHERE id = $1`,
		a.ID, a.StartsAt, a.EndsAt, a.Reason, a.Status, a.Notes, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgRepository) CountOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time, exclude uuid.UUID) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE doctor_id = $1
		  AND status NOT IN ($2, $3)
		  AND starts_at < $4 AND ends_at > $5
		  AND id <> $6`,
		doctorID, StatusCancelled, StatusNoShow, end, start, exclude).Scan(&count)
	return count, err
}

func (r *PgRepository) ListByDoctorDay(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]*Appointment, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptCols+apptJoin+`
		WHERE a.doctor_id = $1 AND a.starts_at >= $2 AND a.starts_at < $3
		ORDER BY a.starts_at`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PgRepository) Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Appointment, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	idx := 1

	if params.DoctorID != "" {
		where += fmt.Sprintf(" AND a.doctor_id = $%d", idx)
		args = append(args, params.DoctorID)
		idx++
	}
	if params.PatientID != "" {
		where += fmt.Sprintf(" AND a.patient_id = $%d", idx)
		args = append(args, params.PatientID)
		idx++
	}
	if params.Status != "" {
		where += fmt.Sprintf(" AND a.status = $%d", idx)
		args = append(args, params.Status)
		idx++
	}
	if params.Date != "" {
		where += fmt.Sprintf(" AND a.starts_at::date = $%d", idx)
		args = append(args, params.Date)
		idx++
	}

	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments a`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + apptCols + apptJoin + where +
		fmt.Sprintf(" ORDER BY a.starts_at LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}
