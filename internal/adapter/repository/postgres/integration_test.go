package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/hoaledger/internal/adapter/repository/postgres"
	"github.com/iho/hoaledger/internal/domain"
	infrapg "github.com/iho/hoaledger/internal/infrastructure/postgres"
	"github.com/iho/hoaledger/internal/testutil"
	"github.com/iho/hoaledger/internal/usecase"
)

// newIntegrationPool connects to DATABASE_URL and applies the schema. Each
// test works in a fresh tenant because the ledger tables cannot be truncated.
func newIntegrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	require.NoError(t, infrapg.NewMigrator(dbURL, "../../../infrastructure/postgres/migrations", zerolog.Nop()).Up())

	pool, err := infrapg.NewPool(ctx, dbURL, 4, 1)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func seedFund(t *testing.T, pool *pgxpool.Pool, tenantID, fundID string) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO funds (id, tenant_id, property_id, name, fund_type)
		VALUES ($1, $2, 'prop-1', $1, 'operating')`, fundID, tenantID)
	require.NoError(t, err)
}

func TestIntegration_PostTransactionRoundTrip(t *testing.T) {
	pool := newIntegrationPool(t)
	ctx := context.Background()
	tenant := uuid.NewString()
	seedFund(t, pool, tenant, "operating")
	seedFund(t, pool, tenant, "cash")

	txnRepo := postgres.NewTransactionRepository(pool)
	entryRepo := postgres.NewEntryRepository(pool)
	fundRepo := postgres.NewFundRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)

	integrity := usecase.NewIntegrityUseCase(
		postgres.NewTxManager(pool), txnRepo, entryRepo, fundRepo, auditRepo, outboxRepo,
		postgres.NewRetrier(postgres.DefaultRetryConfig, zerolog.Nop()), nil,
		postgres.NewULIDGenerator(), testutil.FixedClock{}, nil, zerolog.Nop(),
	)

	txn := testutil.Txn("", domain.TransactionTypeDuesPayment, "2024-03-01", "250.00", testutil.InTenant(tenant))
	entries := []*domain.LedgerEntry{
		testutil.Entry("", "", "cash", "2024-03-01", "250.00", true, testutil.EntryInTenant(tenant)),
		testutil.Entry("", "", "operating", "2024-03-01", "250.00", false, testutil.EntryInTenant(tenant)),
	}

	posted, err := integrity.PostTransaction(ctx, tenant, usecase.PostTransactionInput{Transaction: txn, Entries: entries})
	require.NoError(t, err)
	require.NotEmpty(t, posted.ID)

	stored, err := txnRepo.GetByID(ctx, tenant, posted.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(testutil.Money("250.00")))
	assert.Equal(t, testutil.Date("2024-03-01"), stored.TransactionDate)

	require.NoError(t, integrity.CheckTransaction(ctx, tenant, posted.ID))

	report, err := integrity.CheckLedger(ctx, tenant)
	require.NoError(t, err)
	assert.True(t, report.Consistent, "failures: %+v", report.Failures)
	assert.Equal(t, 2, report.EntriesChecked)

	recon := usecase.NewReconstructionUseCase(txnRepo, entryRepo, fundRepo, postgres.NewMemberRepository(pool),
		nil, 0, nil, zerolog.Nop())
	snap, err := recon.FundBalance(ctx, tenant, "operating", testutil.Date("2024-03-31"))
	require.NoError(t, err)
	assert.True(t, snap.CurrentBalance.Equal(testutil.Money("250.00")))

	before, err := recon.FundBalance(ctx, tenant, "operating", testutil.Date("2024-02-29"))
	require.NoError(t, err)
	assert.True(t, before.CurrentBalance.IsZero())

	trail, err := auditRepo.QueryByEntity(ctx, tenant, domain.EntityKindTransaction, posted.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, domain.AuditTransactionPosted, trail[0].EventType)

	events, err := outboxRepo.GetUnpublished(ctx, 1000)
	require.NoError(t, err)
	var found bool
	for _, e := range events {
		if e.AggregateID == posted.ID {
			found = true
			assert.Equal(t, domain.EventTypeTransactionPosted, e.EventType)
		}
	}
	assert.True(t, found, "expected a transaction.posted outbox event")
}

func TestIntegration_LedgerIsAppendOnly(t *testing.T) {
	pool := newIntegrationPool(t)
	ctx := context.Background()
	tenant := uuid.NewString()

	txManager := postgres.NewTxManager(pool)
	txnRepo := postgres.NewTransactionRepository(pool)
	entryRepo := postgres.NewEntryRepository(pool)

	txn := testutil.Txn("txn-1", domain.TransactionTypeDuesPayment, "2024-03-01", "100.00", testutil.InTenant(tenant))
	entry := testutil.Entry("e-1", "txn-1", "operating", "2024-03-01", "100.00", false, testutil.EntryInTenant(tenant))

	tx, err := txManager.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txnRepo.Create(ctx, tx, txn))
	require.NoError(t, entryRepo.Append(ctx, tx, entry))
	require.NoError(t, tx.Commit(ctx))

	_, err = pool.Exec(ctx, `UPDATE ledger_entries SET amount = 1 WHERE tenant_id = $1 AND id = 'e-1'`, tenant)
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr), "expected a postgres error, got %v", err)
	assert.Equal(t, "P0001", pgErr.Code)

	_, err = pool.Exec(ctx, `DELETE FROM ledger_entries WHERE tenant_id = $1`, tenant)
	require.Error(t, err)

	tx, err = txManager.Begin(ctx)
	require.NoError(t, err)
	err = entryRepo.Append(ctx, tx, entry)
	_ = tx.Rollback(ctx)
	assert.ErrorIs(t, err, domain.ErrDuplicateRecord)

	got, err := entryRepo.GetByID(ctx, tenant, "e-1")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(testutil.Money("100.00")))
}

func TestIntegration_TenantScoping(t *testing.T) {
	pool := newIntegrationPool(t)
	ctx := context.Background()
	tenantA, tenantB := uuid.NewString(), uuid.NewString()
	seedFund(t, pool, tenantA, "operating")

	fundRepo := postgres.NewFundRepository(pool)

	_, err := fundRepo.GetByID(ctx, tenantB, "operating")
	assert.ErrorIs(t, err, domain.ErrFundNotFound)

	funds, err := fundRepo.ListByTenant(ctx, tenantB)
	require.NoError(t, err)
	assert.Empty(t, funds)
}
