package vitals

import (
	"context"
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

// PgRepository is the Postgres-backed vital signs store.
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

const vitalCols = `id, patient_id, encounter_id, temperature, pulse, resp_rate,
	systolic, diastolic, spo2, weight_kg, height_cm, bmi, flags, is_abnormal,
	recorded_by, recorded_at, created_at`

func scanVitals(row pgx.Row) (*VitalSigns, error) {
	var v VitalSigns
	err := row.Scan(&v.ID, &v.PatientID, &v.EncounterID, &v.Temperature,
		&v.Pulse, &v.RespRate, &v.Systolic, &v.Diastolic, &v.SpO2,
		&v.WeightKg, &v.HeightCm, &v.BMI, &v.Flags, &v.IsAbnormal,
		&v.RecordedBy, &v.RecordedAt, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *PgRepository) Create(ctx context.Context, v *VitalSigns) error {
	v.ID = uuid.New()
	v.CreatedAt = time.Now().UTC()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO vital_signs (id, patient_id, encounter_id, temperature,
			pulse, resp_rate, systolic, diastolic, spo2, weight_kg, height_cm,
			bmi, flags, is_abnormal, recorded_by, recorded_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17)`,
		v.ID, v.PatientID, v.EncounterID, v.Temperature, v.Pulse, v.RespRate,
		v.Systolic, v.Diastolic, v.SpO2, v.WeightKg, v.HeightCm, v.BMI,
		v.Flags, v.IsAbnormal, v.RecordedBy, v.RecordedAt, v.CreatedAt)
	return err
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*VitalSigns, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+vitalCols+` FROM vital_signs WHERE id = $1`, id)
	return scanVitals(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*VitalSigns, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM vital_signs WHERE patient_id = $1`, patientID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+vitalCols+` FROM vital_signs
		WHERE patient_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*VitalSigns
	for rows.Next() {
		v, err := scanVitals(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

func (r *PgRepository) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*VitalSigns, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+vitalCols+` FROM vital_signs
		WHERE encounter_id = $1
		ORDER BY recorded_at DESC`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*VitalSigns
	for rows.Next() {
		v, err := scanVitals(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PgRepository) Latest(ctx context.Context, patientID uuid.UUID) (*VitalSigns, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+vitalCols+` FROM vital_signs
		WHERE patient_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1`, patientID)
	return scanVitals(row)
}
