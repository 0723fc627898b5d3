package domain

// EntityKind tags the concrete record type behind an Entity.
type EntityKind string

const (
	EntityKindTransaction EntityKind = "transaction"
	EntityKindLedgerEntry EntityKind = "ledger_entry"
	EntityKindMember      EntityKind = "member"
	EntityKindFund        EntityKind = "fund"
	EntityKindReport      EntityKind = "compliance_report"
)

// Entity is implemented by every tenant-owned record.
type Entity interface {
	EntityID() string
	EntityTenant() string
	EntityKind() EntityKind
}

var (
	_ Entity = (*Transaction)(nil)
	_ Entity = (*LedgerEntry)(nil)
	_ Entity = (*Member)(nil)
	_ Entity = (*Fund)(nil)
)
