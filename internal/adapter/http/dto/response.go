package dto

import (
	"github.com/iho/hoaledger/internal/domain"
)

// TransactionHistoryResponse is a member's transactions over a range.
type TransactionHistoryResponse struct {
	TenantID     string                `json:"tenant_id"`
	MemberID     string                `json:"member_id"`
	StartDate    domain.Date           `json:"start_date"`
	EndDate      domain.Date           `json:"end_date"`
	Transactions []*domain.Transaction `json:"transactions"`
}

// AuditTrailResponse is one page of audit entries.
type AuditTrailResponse struct {
	Entries []*domain.AuditEntry `json:"entries"`
	Limit   int                  `json:"limit,omitempty"`
	Offset  int                  `json:"offset,omitempty"`
}

// VerifyEntryResponse reports whether a stored entry still matches its
// original form.
type VerifyEntryResponse struct {
	EntryID   string `json:"entry_id"`
	Unchanged bool   `json:"unchanged"`
	Field     string `json:"field,omitempty"`
	Original  string `json:"original,omitempty"`
	Current   string `json:"current,omitempty"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
