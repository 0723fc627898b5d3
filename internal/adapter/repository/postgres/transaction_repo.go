package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/hoaledger/internal/domain"
	"github.com/iho/hoaledger/internal/usecase"
)

const transactionColumns = `id, tenant_id, property_id, transaction_type, description, transaction_date,
	posted_date, amount, is_posted, is_void, member_id, unit_id, fund_id,
	check_number, bank_reference, notes, created_at`

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts txn within tx.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Tx, txn *domain.Transaction) error {
	pgxTx, err := pgxTxFrom(tx)
	if err != nil {
		return err
	}

	_, err = pgxTx.Exec(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		txn.ID,
		txn.TenantID,
		txn.PropertyID,
		string(txn.Type),
		txn.Description,
		dateToPg(txn.TransactionDate),
		optionalDate(txn.PostedDate),
		decimalToNumeric(txn.Amount),
		txn.IsPosted,
		txn.IsVoid,
		optionalText(txn.MemberID),
		optionalText(txn.UnitID),
		optionalText(txn.FundID),
		txn.CheckNumber,
		txn.BankReference,
		txn.Notes,
		timeToPgTimestamptz(txn.CreatedAt),
	)

	return translateWriteError(err)
}

// GetByID retrieves one transaction of the tenant.
func (r *TransactionRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return nil, err
	}

	txn, err := pgx.CollectExactlyOneRow(rows, scanTransaction)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}

	return txn, nil
}

// ListByTenant retrieves the tenant's transactions dated on or before until.
func (r *TransactionRepository) ListByTenant(ctx context.Context, tenantID string, until domain.Date) ([]*domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE tenant_id = $1 AND ($2::date IS NULL OR transaction_date <= $2::date)
		ORDER BY transaction_date, created_at, id`,
		tenantID, dateToPg(until))
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanTransaction)
}

// ListByMember retrieves the member's transactions dated on or before until.
func (r *TransactionRepository) ListByMember(ctx context.Context, tenantID, memberID string, until domain.Date) ([]*domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE tenant_id = $1 AND member_id = $2 AND ($3::date IS NULL OR transaction_date <= $3::date)
		ORDER BY transaction_date, created_at, id`,
		tenantID, memberID, dateToPg(until))
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanTransaction)
}

func scanTransaction(row pgx.CollectableRow) (*domain.Transaction, error) {
	var (
		txn                      domain.Transaction
		typ                      string
		txnDate, postedDate      pgtype.Date
		amount                   pgtype.Numeric
		memberID, unitID, fundID pgtype.Text
		createdAt                pgtype.Timestamptz
	)

	err := row.Scan(
		&txn.ID,
		&txn.TenantID,
		&txn.PropertyID,
		&typ,
		&txn.Description,
		&txnDate,
		&postedDate,
		&amount,
		&txn.IsPosted,
		&txn.IsVoid,
		&memberID,
		&unitID,
		&fundID,
		&txn.CheckNumber,
		&txn.BankReference,
		&txn.Notes,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Type = domain.TransactionType(typ)
	txn.TransactionDate = pgToDate(txnDate)
	txn.PostedDate = pgToOptionalDate(postedDate)
	txn.Amount = numericToMoney(amount)
	txn.MemberID = pgToOptionalString(memberID)
	txn.UnitID = pgToOptionalString(unitID)
	txn.FundID = pgToOptionalString(fundID)
	txn.CreatedAt = pgToTime(createdAt)

	return &txn, nil
}
