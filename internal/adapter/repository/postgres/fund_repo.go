package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/hoaledger/internal/domain"
)

const fundColumns = `id, tenant_id, property_id, name, fund_type, current_balance, minimum_balance,
	target_balance, allow_negative_balance, is_active`

// FundRepository implements usecase.FundRepository.
type FundRepository struct {
	db DBTX
}

// NewFundRepository creates a new FundRepository.
func NewFundRepository(db DBTX) *FundRepository {
	return &FundRepository{db: db}
}

// GetByID retrieves one fund of the tenant.
func (r *FundRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Fund, error) {
	rows, err := r.db.Query(ctx, `SELECT `+fundColumns+` FROM funds WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return nil, err
	}

	fund, err := pgx.CollectExactlyOneRow(rows, scanFund)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFundNotFound
		}
		return nil, err
	}

	return fund, nil
}

// ListByTenant retrieves every fund of the tenant.
func (r *FundRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Fund, error) {
	rows, err := r.db.Query(ctx, `SELECT `+fundColumns+` FROM funds WHERE tenant_id = $1 ORDER BY id`, tenantID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanFund)
}

// ListByProperty retrieves the funds of one property.
func (r *FundRepository) ListByProperty(ctx context.Context, tenantID, propertyID string) ([]*domain.Fund, error) {
	rows, err := r.db.Query(ctx, `SELECT `+fundColumns+` FROM funds WHERE tenant_id = $1 AND property_id = $2 ORDER BY id`,
		tenantID, propertyID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanFund)
}

func scanFund(row pgx.CollectableRow) (*domain.Fund, error) {
	var (
		f                        domain.Fund
		typ                      string
		current, minimum, target pgtype.Numeric
	)

	err := row.Scan(
		&f.ID,
		&f.TenantID,
		&f.PropertyID,
		&f.Name,
		&typ,
		&current,
		&minimum,
		&target,
		&f.AllowNegativeBalance,
		&f.IsActive,
	)
	if err != nil {
		return nil, err
	}

	f.Type = domain.FundType(typ)
	f.CurrentBalance = numericToMoney(current)
	f.MinimumBalance = numericToMoney(minimum)
	if target.Valid {
		t := numericToMoney(target)
		f.TargetBalance = &t
	}

	return &f, nil
}
