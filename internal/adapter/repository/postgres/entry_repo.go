package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/hoaledger/internal/domain"
	"github.com/iho/hoaledger/internal/usecase"
)

const entryColumns = `id, tenant_id, transaction_id, fund_id, property_id, entry_date, amount, is_debit,
	account_code, account_name, description, is_reversing, reverses_entry_id, created_at, updated_at`

// EntryRepository implements usecase.EntryRepository. The ledger_entries
// table rejects UPDATE and DELETE, so Append is the only write.
type EntryRepository struct {
	db DBTX
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db DBTX) *EntryRepository {
	return &EntryRepository{db: db}
}

// Append inserts entry within tx.
func (r *EntryRepository) Append(ctx context.Context, tx usecase.Tx, entry *domain.LedgerEntry) error {
	pgxTx, err := pgxTxFrom(tx)
	if err != nil {
		return err
	}

	_, err = pgxTx.Exec(ctx, `
		INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		entry.ID,
		entry.TenantID,
		entry.TransactionID,
		entry.FundID,
		entry.PropertyID,
		dateToPg(entry.EntryDate),
		decimalToNumeric(entry.Amount),
		entry.IsDebit,
		entry.AccountCode,
		entry.AccountName,
		entry.Description,
		entry.IsReversing,
		optionalText(entry.ReversesEntryID),
		timeToPgTimestamptz(entry.CreatedAt),
		timeToPgTimestamptz(entry.UpdatedAt),
	)

	return translateWriteError(err)
}

// GetByID retrieves one entry of the tenant.
func (r *EntryRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.LedgerEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return nil, err
	}

	entry, err := pgx.CollectExactlyOneRow(rows, scanEntry)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}

	return entry, nil
}

// ListByTenant retrieves the tenant's entries dated on or before until.
func (r *EntryRepository) ListByTenant(ctx context.Context, tenantID string, until domain.Date) ([]*domain.LedgerEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+entryColumns+` FROM ledger_entries
		WHERE tenant_id = $1 AND ($2::date IS NULL OR entry_date <= $2::date)
		ORDER BY entry_date, created_at, id`,
		tenantID, dateToPg(until))
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanEntry)
}

// ListByFund retrieves the fund's entries dated on or before until.
func (r *EntryRepository) ListByFund(ctx context.Context, tenantID, fundID string, until domain.Date) ([]*domain.LedgerEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+entryColumns+` FROM ledger_entries
		WHERE tenant_id = $1 AND fund_id = $2 AND ($3::date IS NULL OR entry_date <= $3::date)
		ORDER BY entry_date, created_at, id`,
		tenantID, fundID, dateToPg(until))
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanEntry)
}

// ListByTransaction retrieves every entry realizing one transaction.
func (r *EntryRepository) ListByTransaction(ctx context.Context, tenantID, transactionID string) ([]*domain.LedgerEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+entryColumns+` FROM ledger_entries
		WHERE tenant_id = $1 AND transaction_id = $2
		ORDER BY created_at, id`,
		tenantID, transactionID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanEntry)
}

func scanEntry(row pgx.CollectableRow) (*domain.LedgerEntry, error) {
	var (
		e                    domain.LedgerEntry
		entryDate            pgtype.Date
		amount               pgtype.Numeric
		reverses             pgtype.Text
		createdAt, updatedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&e.ID,
		&e.TenantID,
		&e.TransactionID,
		&e.FundID,
		&e.PropertyID,
		&entryDate,
		&amount,
		&e.IsDebit,
		&e.AccountCode,
		&e.AccountName,
		&e.Description,
		&e.IsReversing,
		&reverses,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.EntryDate = pgToDate(entryDate)
	e.Amount = numericToMoney(amount)
	e.ReversesEntryID = pgToOptionalString(reverses)
	e.CreatedAt = pgToTime(createdAt)
	e.UpdatedAt = pgToTime(updatedAt)

	return &e, nil
}
