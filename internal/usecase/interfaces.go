package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/hoaledger/internal/domain"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// TransactionRepository defines data access for business transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx Tx, txn *domain.Transaction) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Transaction, error)
	// ListByTenant returns every transaction dated on or before until. A zero
	// until returns all of them.
	ListByTenant(ctx context.Context, tenantID string, until domain.Date) ([]*domain.Transaction, error)
	ListByMember(ctx context.Context, tenantID, memberID string, until domain.Date) ([]*domain.Transaction, error)
}

// EntryRepository defines append-only data access for ledger entries.
type EntryRepository interface {
	Append(ctx context.Context, tx Tx, entry *domain.LedgerEntry) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.LedgerEntry, error)
	// ListByTenant returns every entry dated on or before until. A zero until
	// returns the whole ledger.
	ListByTenant(ctx context.Context, tenantID string, until domain.Date) ([]*domain.LedgerEntry, error)
	ListByFund(ctx context.Context, tenantID, fundID string, until domain.Date) ([]*domain.LedgerEntry, error)
	ListByTransaction(ctx context.Context, tenantID, transactionID string) ([]*domain.LedgerEntry, error)
}

// FundRepository defines data access for funds.
type FundRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.Fund, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Fund, error)
	ListByProperty(ctx context.Context, tenantID, propertyID string) ([]*domain.Fund, error)
}

// MemberRepository defines data access for members.
type MemberRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.Member, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Member, error)
	ListByProperty(ctx context.Context, tenantID, propertyID string) ([]*domain.Member, error)
}

// AuditStore is the append-only audit trail.
type AuditStore interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	AppendTx(ctx context.Context, tx Tx, entry *domain.AuditEntry) error
	QueryByEntity(ctx context.Context, tenantID string, kind domain.EntityKind, entityID string) ([]*domain.AuditEntry, error)
	QueryByTenant(ctx context.Context, tenantID string, filter domain.AuditFilter) ([]*domain.AuditEntry, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Tx, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Tx represents a database transaction.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Tx, error)
}

// Retrier re-runs an operation on transient storage failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache stores serialized snapshots.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SnapshotInvalidator drops a tenant's cached snapshots after its ledger changes.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, tenantID string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claim so a failed request can be retried.
	Release(ctx context.Context, key string) error
}
