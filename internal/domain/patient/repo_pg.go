package patient

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

type PgPatientRepository struct {
	pool *pgxpool.Pool
}

func NewPgPatientRepository(pool *pgxpool.Pool) *PgPatientRepository {
	return &PgPatientRepository{pool: pool}
}

func (r *PgPatientRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, mrn, first_name, last_name, birth_date, gender, blood_group,
	phone, email, address_line1, address_line2, city, state, postal_code, country,
	allergies, chronic_diseases, emergency_contact, emergency_phone, active,
	created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.MRN, &p.FirstName, &p.LastName, &p.BirthDate, &p.Gender,
		&p.BloodGroup, &p.Phone, &p.Email, &p.AddressLine1, &p.AddressLine2, &p.City,
		&p.State, &p.PostalCode, &p.Country, &p.Allergies, &p.ChronicDiseases,
		&p.EmergencyContact, &p.EmergencyPhone, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PgPatientRepository) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, mrn, first_name, last_name, birth_date, gender,
			blood_group, phone, email, address_line1, address_line2, city, state,
			postal_code, country, allergies, chronic_diseases, emergency_contact,
			emergency_phone, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22)`,
		p.ID, p.MRN, p.FirstName, p.LastName, p.BirthDate, p.Gender, p.BloodGroup,
		p.Phone, p.Email, p.AddressLine1, p.AddressLine2, p.City, p.State,
		p.PostalCode, p.Country, p.Allergies, p.ChronicDiseases, p.EmergencyContact,
		p.EmergencyPhone, p.Active, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *PgPatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

func (r *PgPatientRepository) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE mrn = $1`, mrn)
	return scanPatient(row)
}

func (r *PgPatientRepository) Update(ctx context.Context, p *Patient) error {
	p.UpdatedAt = time.Now()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET first_name = $2, last_name = $3, birth_date = $4,
			gender = $5, blood_group = $6, phone = $7, email = $8,
			address_line1 = $9, address_line2 = $10, city = $11, state = $12,
			postal_code = $13, country = $14, allergies = $15, chronic_diseases = $16,
			emergency_contact = $17, emergency_phone = $18, active = $19, updated_at = $20
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.BirthDate, p.Gender, p.BloodGroup,
		p.Phone, p.Email, p.AddressLine1, p.AddressLine2, p.City, p.State,
		p.PostalCode, p.Country, p.Allergies, p.ChronicDiseases, p.EmergencyContact,
		p.EmergencyPhone, p.Active, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgPatientRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET active = false, updated_at = $2 WHERE id = $1`, id, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgPatientRepository) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	idx := 1

	if v, ok := params["q"]; ok && v != "" {
		where += fmt.Sprintf(` AND (first_name || ' ' || last_name ILIKE $%d OR mrn ILIKE $%d OR phone ILIKE $%d)`, idx, idx, idx)
		args = append(args, "%"+v+"%")
		idx++
	}
	if v, ok := params["gender"]; ok && v != "" {
		where += fmt.Sprintf(` AND gender = $%d`, idx)
		args = append(args, v)
		idx++
	}
	if v, ok := params["blood_group"]; ok && v != "" {
		where += fmt.Sprintf(` AND blood_group = $%d`, idx)
		args = append(args, v)
		idx++
	}
	if v, ok := params["active"]; ok && v != "" {
		where += fmt.Sprintf(` AND active = $%d`, idx)
		args = append(args, v == "true")
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + patientCols + ` FROM patients` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *PgPatientRepository) NextMRN(ctx context.Context) (string, error) {
	var n int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT nextval('patient_mrn_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("PAT-%06d", n), nil
}

type PgDoctorRepository struct {
	pool *pgxpool.Pool
}

func NewPgDoctorRepository(pool *pgxpool.Pool) *PgDoctorRepository {
	return &PgDoctorRepository{pool: pool}
}

func (r *PgDoctorRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const doctorCols = `id, first_name, last_name, specialization, licence_number, phone,
	email, department, consultation_fee, active, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Specialization, &d.LicenceNumber,
		&d.Phone, &d.Email, &d.Department, &d.ConsultationFee, &d.Active,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PgDoctorRepository) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctors (id, first_name, last_name, specialization, licence_number,
			phone, email, department, consultation_fee, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		d.ID, d.FirstName, d.LastName, d.Specialization, d.LicenceNumber,
		d.Phone, d.Email, d.Department, d.ConsultationFee, d.Active, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r *PgDoctorRepository) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id)
	return scanDoctor(row)
}

func (r *PgDoctorRepository) Update(ctx context.Context, d *Doctor) error {
	d.UpdatedAt = time.Now()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET first_name = $2, last_name = $3, specialization = $4,
			licence_number = $5, phone = $6, email = $7, department = $8,
			consultation_fee = $9, active = $10, updated_at = $11
		WHERE id = $1`,
		d.ID, d.FirstName, d.LastName, d.Specialization, d.LicenceNumber,
		d.Phone, d.Email, d.Department, d.ConsultationFee, d.Active, d.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgDoctorRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctors SET active = false, updated_at = $2 WHERE id = $1`, id, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgDoctorRepository) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	idx := 1

	if v, ok := params["q"]; ok && v != "" {
		where += fmt.Sprintf(` AND first_name || ' ' || last_name ILIKE $%d`, idx)
		args = append(args, "%"+v+"%")
		idx++
	}
	if v, ok := params["specialization"]; ok && v != "" {
		where += fmt.Sprintf(` AND specialization = $%d`, idx)
		args = append(args, v)
		idx++
	}
	if v, ok := params["department"]; ok && v != "" {
		where += fmt.Sprintf(` AND department = $%d`, idx)
		args = append(args, v)
		idx++
	}
	if v, ok := params["active"]; ok && v != "" {
		where += fmt.Sprintf(` AND active = $%d`, idx)
		args = append(args, v == "true")
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + doctorCols + ` FROM doctors` + where +
		fmt.Sprintf(` ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var doctors []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		doctors = append(doctors, d)
	}
	return doctors, total, rows.Err()
}
