package chat

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

// PgRepository is the Postgres-backed FAQ store.
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

const faqCols = `id, question, answer, keywords, category, created_at`

func scanFAQ(row pgx.Row) (*FAQ, error) {
	var f FAQ
	err := row.Scan(&f.ID, &f.Question, &f.Answer, &f.Keywords, &f.Category, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *PgRepository) Create(ctx context.Context, f *FAQ) error {
	f.ID = uuid.New()
	f.CreatedAt = time.Now().UTC()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO chat_faqs (id, question, answer, keywords, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.Question, f.Answer, f.Keywords, f.Category, f.CreatedAt)
	return err
}

func (r *PgRepository) List(ctx context.Context, category string) ([]*FAQ, error) {
	query := `SELECT ` + faqCols + ` FROM chat_faqs`
	args := []any{}
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY category, question`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*FAQ
	for rows.Next() {
		f, err := scanFAQ(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM chat_faqs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM chat_faqs`).Scan(&count)
	return count, err
}
