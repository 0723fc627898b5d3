package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/iho/hoaledger/internal/domain"
)

// complianceReport lets a generated report be audited like any other entity.
type complianceReport struct {
	id       string
	tenantID string
	body     any
}

func (r complianceReport) EntityID() string              { return r.id }
func (r complianceReport) EntityTenant() string          { return r.tenantID }
func (r complianceReport) EntityKind() domain.EntityKind { return domain.EntityKindReport }
func (r complianceReport) MarshalJSON() ([]byte, error)  { return json.Marshal(r.body) }

// finding is an audit entry plus an optional outbox event, written atomically.
type finding struct {
	audit *domain.AuditEntry
	event *domain.OutboxEvent
}

func newOutboxEvent(id, aggregateType, aggregateID, eventType string, payload any, at time.Time) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:            id,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       domain.MarshalState(payload),
		CreatedAt:     at,
	}
}

// recordFinding appends f inside one database transaction.
func recordFinding(ctx context.Context, txManager TransactionManager, audit AuditStore, outbox OutboxRepository, f finding) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := audit.AppendTx(txCtx, tx, f.audit); err != nil {
		return err
	}

	if f.event != nil {
		if err := outbox.Create(txCtx, tx, f.event); err != nil {
			return err
		}
	}

	return tx.Commit(txCtx)
}
