package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const txKey contextKey = "db_tx"

// Querier is the subset of pgx operations repositories need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so a repository can run against the
// pool directly or inside a transaction placed in the context by WithTx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// WithTx runs fn inside a database transaction. The transaction is stored in
// the context passed to fn; repositories pick it up via TxFromContext. If the
// context already carries a transaction, fn joins it instead of opening a
// nested one.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	ctx = context.WithValue(ctx, txKey, tx)
	if err := fn(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// TxRunner is the transaction boundary a service depends on. Production code
// uses PoolRunner; tests substitute a pass-through.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PoolRunner returns a TxRunner backed by WithTx on the given pool.
func PoolRunner(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return WithTx(ctx, pool, fn)
	}
}

// TxFromContext retrieves the active transaction from context, or nil.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey).(pgx.Tx)
	return tx
}
