package domain

import "time"

// Event types
const (
	EventTypeTransactionPosted     = "transaction.posted"
	EventTypeAccuracyFailed        = "compliance.accuracy_failed"
	EventTypeImmutabilityViolation = "compliance.immutability_violation"
	EventTypeLedgerTampered        = "compliance.ledger_tampered"
)

// Aggregate types
const (
	AggregateTypeTransaction = "transaction"
	AggregateTypeTenant      = "tenant"
	AggregateTypeLedgerEntry = "ledger_entry"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// TransactionPostedEvent payload
type TransactionPostedEvent struct {
	TenantID      string `json:"tenant_id"`
	TransactionID string `json:"transaction_id"`
	Type          string `json:"transaction_type"`
	Amount        string `json:"amount"`
	EntryCount    int    `json:"entry_count"`
	PostedAt      string `json:"posted_at"`
}

// AccuracyFailedEvent payload
type AccuracyFailedEvent struct {
	TenantID        string `json:"tenant_id"`
	AsOfDate        string `json:"as_of_date"`
	TotalEntities   int    `json:"total_entities"`
	CriticalCount   int    `json:"critical_count"`
	MajorCount      int    `json:"major_count"`
	AverageAccuracy string `json:"average_accuracy"`
}

// ImmutabilityViolationEvent payload
type ImmutabilityViolationEvent struct {
	TenantID          string   `json:"tenant_id"`
	EntriesWithUpdate int      `json:"entries_with_updates"`
	EntriesDeleted    int      `json:"entries_deleted"`
	Violations        []string `json:"violations"`
}

// LedgerTamperedEvent payload
type LedgerTamperedEvent struct {
	TenantID string `json:"tenant_id"`
	EntryID  string `json:"entry_id"`
	Field    string `json:"field"`
	Original string `json:"original"`
	Current  string `json:"current"`
}
