package encounter

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

const encCols = `e.id, e.patient_id, e.doctor_id, e.type, e.status, e.chief_complaint,
	e.diagnosis, e.treatment_plan, e.notes, e.admitted_at, e.discharged_at,
	e.created_at, e.updated_at`

func scanEncounter(row pgx.Row) (*Encounter, error) {
	var e Encounter
	err := row.Scan(&e.ID, &e.PatientID, &e.DoctorID, &e.Type, &e.Status,
		&e.ChiefComplaint, &e.Diagnosis, &e.TreatmentPlan, &e.Notes,
		&e.AdmittedAt, &e.DischargedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PgRepository) Create(ctx context.Context, e *Encounter) error {
	e.ID = uuid.New()
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.AdmittedAt.IsZero() {
		e.AdmittedAt = now
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO encounters (id, patient_id, doctor_id, type, status, chief_complaint,
			diagnosis, treatment_plan, notes, admitted_at, discharged_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.PatientID, e.DoctorID, e.Type, e.Status, e.ChiefComplaint,
		e.Diagnosis, e.TreatmentPlan, e.Notes, e.AdmittedAt, e.DischargedAt,
		e.CreatedAt, e.UpdatedAt)
	return err
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT `+encCols+`,
			p.first_name || ' ' || p.last_name,
			d.first_name || ' ' || d.last_name
		FROM encounters e
		JOIN patients p ON p.id = e.patient_id
		JOIN doctors d ON d.id = e.doctor_id
		WHERE e.id = $1`, id)

	var e Encounter
	err := row.Scan(&e.ID, &e.PatientID, &e.DoctorID, &e.Type, &e.Status,
		&e.ChiefComplaint, &e.Diagnosis, &e.TreatmentPlan, &e.Notes,
		&e.AdmittedAt, &e.DischargedAt, &e.CreatedAt, &e.UpdatedAt,
		&e.PatientName, &e.DoctorName)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PgRepository) Update(ctx context.Context, e *Encounter) error {
	e.UpdatedAt = time.Now()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE encounters SET status = $2, chief_complaint = $3, diagnosis = $4,
			treatment_plan = $5, notes = $6, discharged_at = $7, updated_at = $8
		WHERE id = $1`,
		e.ID, e.Status, e.ChiefComplaint, e.Diagnosis, e.TreatmentPlan,
		e.Notes, e.DischargedAt, e.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM encounters WHERE patient_id = $1`, patientID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+encCols+` FROM encounters e
		WHERE e.patient_id = $1
		ORDER BY e.admitted_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var encounters []*Encounter
	for rows.Next() {
		e, err := scanEncounter(rows)
		if err != nil {
			return nil, 0, err
		}
		encounters = append(encounters, e)
	}
	return encounters, total, rows.Err()
}

func (r *PgRepository) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Encounter, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	idx := 1

	if v, ok := params["status"]; ok && v != "" {
		where += fmt.Sprintf(` AND e.status = $%d`, idx)
		args = append(args, v)
		idx++
	}
	if v, ok := params["type"]; ok && v != "" {
		where += fmt.Sprintf(` AND e.type = $%d`, idx)
		args = append(args, v)
		idx++
	}
	if v, ok := params["doctor_id"]; ok && v != "" {
		where += fmt.Sprintf(` AND e.doctor_id = $%d`, idx)
		args = append(args, v)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM encounters e`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + encCols + `,
			p.first_name || ' ' || p.last_name,
			d.first_name || ' ' || d.last_name
		FROM encounters e
		JOIN patients p ON p.id = e.patient_id
		JOIN doctors d ON d.id = e.doctor_id` + where +
		fmt.Sprintf(` ORDER BY e.admitted_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var encounters []*Encounter
	for rows.Next() {
		var e Encounter
		err := rows.Scan(&e.ID, &e.PatientID, &e.DoctorID, &e.Type, &e.Status,
			&e.ChiefComplaint, &e.Diagnosis, &e.TreatmentPlan, &e.Notes,
			&e.AdmittedAt, &e.DischargedAt, &e.CreatedAt, &e.UpdatedAt,
			&e.PatientName, &e.DoctorName)
		if err != nil {
			return nil, 0, err
		}
		encounters = append(encounters, &e)
	}
	return encounters, total, rows.Err()
}
