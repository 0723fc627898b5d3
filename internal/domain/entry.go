package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry sides.
const (
	SideDebit  = "debit"
	SideCredit = "credit"
)

// LedgerEntry is a single immutable debit or credit. Amount is always positive;
// IsDebit carries the direction. Zero timestamps mean the store does not
// track them.
type LedgerEntry struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	TransactionID   string          `json:"transaction_id"`
	FundID          string          `json:"fund_id"`
	PropertyID      string          `json:"property_id,omitempty"`
	EntryDate       Date            `json:"entry_date"`
	Amount          decimal.Decimal `json:"amount"`
	IsDebit         bool            `json:"is_debit"`
	AccountCode     string          `json:"account_code"`
	AccountName     string          `json:"account_name"`
	Description     string          `json:"description,omitempty"`
	IsReversing     bool            `json:"is_reversing"`
	ReversesEntryID *string         `json:"reverses_entry_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DebitAmount returns Amount for debits and 0.00 otherwise.
func (e *LedgerEntry) DebitAmount() decimal.Decimal {
	if e.IsDebit {
		return Money(e.Amount)
	}
	return ZeroMoney
}

// CreditAmount returns Amount for credits and 0.00 otherwise.
func (e *LedgerEntry) CreditAmount() decimal.Decimal {
	if e.IsDebit {
		return ZeroMoney
	}
	return Money(e.Amount)
}

func (e *LedgerEntry) Side() string {
	if e.IsDebit {
		return SideDebit
	}
	return SideCredit
}

// Reverses reports whether e is a reversing entry pointing at id.
func (e *LedgerEntry) Reverses(id string) bool {
	return e.IsReversing && e.ReversesEntryID != nil && *e.ReversesEntryID == id
}

// Reversal builds the entry that cancels e. The result is a new record; e is untouched.
func (e *LedgerEntry) Reversal(id string, date Date, createdAt time.Time) *LedgerEntry {
	original := e.ID
	return &LedgerEntry{
		ID:              id,
		TenantID:        e.TenantID,
		TransactionID:   e.TransactionID,
		FundID:          e.FundID,
		PropertyID:      e.PropertyID,
		EntryDate:       date,
		Amount:          e.Amount,
		IsDebit:         !e.IsDebit,
		AccountCode:     e.AccountCode,
		AccountName:     e.AccountName,
		Description:     "Reversal of " + e.ID,
		IsReversing:     true,
		ReversesEntryID: &original,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

func (e *LedgerEntry) EntityID() string       { return e.ID }
func (e *LedgerEntry) EntityTenant() string   { return e.TenantID }
func (e *LedgerEntry) EntityKind() EntityKind { return EntityKindLedgerEntry }

// TotalDebits sums the debit side of entries.
func TotalDebits(entries []*LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.DebitAmount())
	}
	return Money(total)
}

// TotalCredits sums the credit side of entries.
func TotalCredits(entries []*LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.CreditAmount())
	}
	return Money(total)
}
