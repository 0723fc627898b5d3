package domain

import (
	"encoding/json"
	"time"
)

// AuditEntry is one append-only audit trail record.
type AuditEntry struct {
	ID           string         `json:"id"`
	TenantID     string         `json:"tenant_id"`
	EventType    AuditEventType `json:"event_type"`
	EntityKind   EntityKind     `json:"entity_kind"`
	EntityID     string         `json:"entity_id"`
	UserID       string         `json:"user_id,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	BeforeState  JSON           `json:"before_state,omitempty"`
	AfterState   JSON           `json:"after_state,omitempty"`
	ChangeReason string         `json:"change_reason,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
}

// JSON is a free-form state snapshot.
type JSON map[string]any

// AuditEventType is what happened to the audited entity.
type AuditEventType string

const (
	// Transaction events
	AuditTransactionCreated AuditEventType = "transaction_created"
	AuditTransactionPosted  AuditEventType = "transaction_posted"
	AuditTransactionVoided  AuditEventType = "transaction_voided"

	// Ledger events
	AuditLedgerEntryCreated  AuditEventType = "ledger_entry_created"
	AuditLedgerEntryReversed AuditEventType = "ledger_entry_reversed"

	// Member and fund events
	AuditMemberCreated AuditEventType = "member_created"
	AuditMemberUpdated AuditEventType = "member_updated"
	AuditFundCreated   AuditEventType = "fund_created"
	AuditFundUpdated   AuditEventType = "fund_updated"

	// Compliance events
	AuditReportGenerated   AuditEventType = "report_generated"
	AuditTamperingDetected AuditEventType = "tampering_detected"
)

// AuditOption sets optional AuditEntry fields.
type AuditOption func(*AuditEntry)

func WithUser(userID string) AuditOption {
	return func(a *AuditEntry) { a.UserID = userID }
}

func WithBefore(v any) AuditOption {
	return func(a *AuditEntry) { a.BeforeState = MarshalState(v) }
}

func WithReason(reason string) AuditOption {
	return func(a *AuditEntry) { a.ChangeReason = reason }
}

func WithClient(ip, userAgent string) AuditOption {
	return func(a *AuditEntry) {
		a.IPAddress = ip
		a.UserAgent = userAgent
	}
}

// NewAuditEntry records eventType against entity. The entity itself becomes
// the after-state.
func NewAuditEntry(id string, eventType AuditEventType, entity Entity, at time.Time, opts ...AuditOption) *AuditEntry {
	entry := &AuditEntry{
		ID:         id,
		TenantID:   entity.EntityTenant(),
		EventType:  eventType,
		EntityKind: entity.EntityKind(),
		EntityID:   entity.EntityID(),
		Timestamp:  at.UTC(),
		AfterState: MarshalState(entity),
	}
	for _, opt := range opts {
		opt(entry)
	}
	return entry
}

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter narrows a tenant trail query.
type AuditFilter struct {
	EventType  AuditEventType
	EntityKind EntityKind
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int
	Offset     int
}

// Matches reports whether a passes the non-paging parts of the filter.
func (f AuditFilter) Matches(a *AuditEntry) bool {
	if f.EventType != "" && a.EventType != f.EventType {
		return false
	}
	if f.EntityKind != "" && a.EntityKind != f.EntityKind {
		return false
	}
	if f.StartTime != nil && a.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && a.Timestamp.After(*f.EndTime) {
		return false
	}
	return true
}
