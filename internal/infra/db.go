// README: Postgres connection pool initialization and the transactional boundary shared by stores.
package infra

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE codes the stores map to domain errors.
const (
	PgUniqueViolation     = "23505"
	PgForeignKeyViolation = "23503"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx so a store can run either
// standalone or inside a caller's transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner starts a transaction. *pgxpool.Pool implements it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Pool is what services hold: direct reads plus transactions.
type Pool interface {
	DBTX
	TxBeginner
}

func NewDB(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

// WithTx runs fn inside a transaction and commits only when fn returns nil.
func WithTx(ctx context.Context, db TxBeginner, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == PgUniqueViolation
}

// UniqueViolationConstraint returns the violated constraint name, or "".
func UniqueViolationConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == PgUniqueViolation {
		return pgErr.ConstraintName
	}
	return ""
}

// ForeignKeyViolationConstraint returns the violated foreign key name, or "".
func ForeignKeyViolationConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == PgForeignKeyViolation {
		return pgErr.ConstraintName
	}
	return ""
}
