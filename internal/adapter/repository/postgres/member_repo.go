package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/hoaledger/internal/domain"
)

const memberColumns = `id, tenant_id, property_id, unit_id, first_name, last_name, email, member_type,
	is_active, current_balance, total_paid, total_owed`

// MemberRepository implements usecase.MemberRepository.
type MemberRepository struct {
	db DBTX
}

// NewMemberRepository creates a new MemberRepository.
func NewMemberRepository(db DBTX) *MemberRepository {
	return &MemberRepository{db: db}
}

// GetByID retrieves one member of the tenant.
func (r *MemberRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Member, error) {
	rows, err := r.db.Query(ctx, `SELECT `+memberColumns+` FROM members WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return nil, err
	}

	member, err := pgx.CollectExactlyOneRow(rows, scanMember)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}

	return member, nil
}

// ListByTenant retrieves every member of the tenant.
func (r *MemberRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Member, error) {
	rows, err := r.db.Query(ctx, `SELECT `+memberColumns+` FROM members WHERE tenant_id = $1 ORDER BY id`, tenantID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanMember)
}

// ListByProperty retrieves the members of one property.
func (r *MemberRepository) ListByProperty(ctx context.Context, tenantID, propertyID string) ([]*domain.Member, error) {
	rows, err := r.db.Query(ctx, `SELECT `+memberColumns+` FROM members WHERE tenant_id = $1 AND property_id = $2 ORDER BY id`,
		tenantID, propertyID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanMember)
}

func scanMember(row pgx.CollectableRow) (*domain.Member, error) {
	var (
		m                   domain.Member
		typ                 string
		current, paid, owed pgtype.Numeric
	)

	err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.PropertyID,
		&m.UnitID,
		&m.FirstName,
		&m.LastName,
		&m.Email,
		&typ,
		&m.IsActive,
		&current,
		&paid,
		&owed,
	)
	if err != nil {
		return nil, err
	}

	m.Type = domain.MemberType(typ)
	m.CurrentBalance = numericToMoney(current)
	m.TotalPaid = numericToMoney(paid)
	m.TotalOwed = numericToMoney(owed)

	return &m, nil
}
