package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/iho/hoaledger/internal/usecase"
)

// beginner is the part of a pool TxManager needs.
type beginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TxManager implements usecase.TransactionManager. Transactions default to
// SERIALIZABLE; conflicting writers fail with 40001, which the Retrier retries.
type TxManager struct {
	pool beginner
	opts pgx.TxOptions
}

// TxManagerOption configures a TxManager.
type TxManagerOption func(*TxManager)

// WithIsoLevel overrides the isolation level of new transactions.
func WithIsoLevel(level pgx.TxIsoLevel) TxManagerOption {
	return func(m *TxManager) { m.opts.IsoLevel = level }
}

// NewTxManager creates a new TxManager over a pgxpool.Pool or any other
// connection source that can begin transactions.
func NewTxManager(pool beginner, opts ...TxManagerOption) *TxManager {
	m := &TxManager{
		pool: pool,
		opts: pgx.TxOptions{IsoLevel: pgx.Serializable},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Tx, error) {
	tx, err := m.pool.BeginTx(ctx, m.opts)
	if err != nil {
		return nil, fmt.Errorf("begin %s transaction: %w", m.opts.IsoLevel, err)
	}

	return &Tx{tx: tx}, nil
}

// Tx wraps a pgx transaction so repositories can recover it from usecase.Tx.
type Tx struct {
	tx pgx.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback rolls back the transaction. After Commit it is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// PgxTx returns the underlying pgx.Tx.
func (t *Tx) PgxTx() pgx.Tx {
	return t.tx
}
