package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/hoaledger/internal/domain"
	"github.com/iho/hoaledger/internal/usecase"
)

const auditColumns = `id, tenant_id, event_type, entity_kind, entity_id, user_id, occurred_at,
	before_state, after_state, change_reason, ip_address, user_agent`

// AuditRepository implements usecase.AuditStore over the INSERT-only
// audit_log table.
type AuditRepository struct {
	db DBTX
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts entry outside any transaction.
func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	return r.insert(ctx, r.db, entry)
}

// AppendTx inserts entry within tx.
func (r *AuditRepository) AppendTx(ctx context.Context, tx usecase.Tx, entry *domain.AuditEntry) error {
	pgxTx, err := pgxTxFrom(tx)
	if err != nil {
		return err
	}
	return r.insert(ctx, pgxTx, entry)
}

func (r *AuditRepository) insert(ctx context.Context, db DBTX, entry *domain.AuditEntry) error {
	var beforeStateJSON, afterStateJSON []byte
	var err error

	if entry.BeforeState != nil {
		beforeStateJSON, err = json.Marshal(entry.BeforeState)
		if err != nil {
			return err
		}
	}

	if entry.AfterState != nil {
		afterStateJSON, err = json.Marshal(entry.AfterState)
		if err != nil {
			return err
		}
	}

	_, err = db.Exec(ctx, `
		INSERT INTO audit_log (`+auditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		entry.ID,
		entry.TenantID,
		string(entry.EventType),
		string(entry.EntityKind),
		entry.EntityID,
		entry.UserID,
		timeToPgTimestamptz(entry.Timestamp),
		beforeStateJSON,
		afterStateJSON,
		entry.ChangeReason,
		entry.IPAddress,
		entry.UserAgent,
	)

	return translateWriteError(err)
}

// QueryByEntity returns the trail of one entity, oldest first.
func (r *AuditRepository) QueryByEntity(ctx context.Context, tenantID string, kind domain.EntityKind, entityID string) ([]*domain.AuditEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+auditColumns+` FROM audit_log
		WHERE tenant_id = $1 AND entity_kind = $2 AND entity_id = $3
		ORDER BY occurred_at, id`,
		tenantID, string(kind), entityID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanAuditEntry)
}

// QueryByTenant returns a page of the tenant's trail, newest first.
func (r *AuditRepository) QueryByTenant(ctx context.Context, tenantID string, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_log WHERE tenant_id = $1`
	args := []any{tenantID}

	add := func(clause string, arg any) {
		args = append(args, arg)
		query += fmt.Sprintf(clause, len(args))
	}

	if filter.EventType != "" {
		add(` AND event_type = $%d`, string(filter.EventType))
	}
	if filter.EntityKind != "" {
		add(` AND entity_kind = $%d`, string(filter.EntityKind))
	}
	if filter.StartTime != nil {
		add(` AND occurred_at >= $%d`, *filter.StartTime)
	}
	if filter.EndTime != nil {
		add(` AND occurred_at <= $%d`, *filter.EndTime)
	}

	query += ` ORDER BY occurred_at DESC, id DESC`

	if filter.Limit > 0 {
		add(` LIMIT $%d`, filter.Limit)
	}
	if filter.Offset > 0 {
		add(` OFFSET $%d`, filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanAuditEntry)
}

func scanAuditEntry(row pgx.CollectableRow) (*domain.AuditEntry, error) {
	var (
		a                       domain.AuditEntry
		eventType, kind         string
		occurredAt              pgtype.Timestamptz
		beforeState, afterState []byte
	)

	err := row.Scan(
		&a.ID,
		&a.TenantID,
		&eventType,
		&kind,
		&a.EntityID,
		&a.UserID,
		&occurredAt,
		&beforeState,
		&afterState,
		&a.ChangeReason,
		&a.IPAddress,
		&a.UserAgent,
	)
	if err != nil {
		return nil, err
	}

	a.EventType = domain.AuditEventType(eventType)
	a.EntityKind = domain.EntityKind(kind)
	a.Timestamp = pgToTime(occurredAt)

	if beforeState != nil {
		if err := json.Unmarshal(beforeState, &a.BeforeState); err != nil {
			return nil, err
		}
	}
	if afterState != nil {
		if err := json.Unmarshal(afterState, &a.AfterState); err != nil {
			return nil, err
		}
	}

	return &a, nil
}
