package dto

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/hoaledger/internal/domain"
	"github.com/iho/hoaledger/internal/usecase"
)

// PostTransactionRequest is a transaction together with its ledger entries.
// Amounts are decimal strings; dates are YYYY-MM-DD.
type PostTransactionRequest struct {
	ID              string         `json:"id,omitempty"`
	PropertyID      string         `json:"property_id"`
	Type            string         `json:"transaction_type"`
	Description     string         `json:"description"`
	TransactionDate string         `json:"transaction_date"`
	PostedDate      *string        `json:"posted_date,omitempty"`
	Amount          string         `json:"amount"`
	IsPosted        bool           `json:"is_posted"`
	MemberID        *string        `json:"member_id,omitempty"`
	UnitID          *string        `json:"unit_id,omitempty"`
	FundID          *string        `json:"fund_id,omitempty"`
	CheckNumber     string         `json:"check_number,omitempty"`
	BankReference   string         `json:"bank_reference,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	Entries         []EntryRequest `json:"entries"`
}

// EntryRequest is one side of a posted transaction.
type EntryRequest struct {
	ID              string  `json:"id,omitempty"`
	FundID          string  `json:"fund_id"`
	PropertyID      string  `json:"property_id,omitempty"`
	EntryDate       string  `json:"entry_date,omitempty"`
	Amount          string  `json:"amount"`
	Side            string  `json:"side"`
	AccountCode     string  `json:"account_code"`
	AccountName     string  `json:"account_name"`
	Description     string  `json:"description,omitempty"`
	IsReversing     bool    `json:"is_reversing,omitempty"`
	ReversesEntryID *string `json:"reverses_entry_id,omitempty"`
}

// ToUseCaseInput parses the request into domain records owned by tenantID.
func (r *PostTransactionRequest) ToUseCaseInput(tenantID string) (usecase.PostTransactionInput, error) {
	typ, err := domain.ParseTransactionType(r.Type)
	if err != nil {
		return usecase.PostTransactionInput{}, err
	}

	txnDate, err := domain.ParseDate(r.TransactionDate)
	if err != nil {
		return usecase.PostTransactionInput{}, fmt.Errorf("transaction_date: %w", err)
	}

	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return usecase.PostTransactionInput{}, fmt.Errorf("amount: %w", err)
	}

	txn := &domain.Transaction{
		ID:              r.ID,
		TenantID:        tenantID,
		PropertyID:      r.PropertyID,
		Type:            typ,
		Description:     r.Description,
		TransactionDate: txnDate,
		Amount:          amount,
		IsPosted:        r.IsPosted,
		MemberID:        r.MemberID,
		UnitID:          r.UnitID,
		FundID:          r.FundID,
		CheckNumber:     r.CheckNumber,
		BankReference:   r.BankReference,
		Notes:           r.Notes,
	}

	if r.PostedDate != nil {
		posted, err := domain.ParseDate(*r.PostedDate)
		if err != nil {
			return usecase.PostTransactionInput{}, fmt.Errorf("posted_date: %w", err)
		}
		txn.PostedDate = &posted
	}

	entries := make([]*domain.LedgerEntry, len(r.Entries))
	for i, e := range r.Entries {
		entry, err := e.toDomain(tenantID)
		if err != nil {
			return usecase.PostTransactionInput{}, fmt.Errorf("entries[%d]: %w", i, err)
		}
		entries[i] = entry
	}

	return usecase.PostTransactionInput{Transaction: txn, Entries: entries}, nil
}

func (e EntryRequest) toDomain(tenantID string) (*domain.LedgerEntry, error) {
	amount, err := decimal.NewFromString(e.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}

	var isDebit bool
	switch e.Side {
	case domain.SideDebit:
		isDebit = true
	case domain.SideCredit:
	default:
		return nil, fmt.Errorf("%w: side must be %q or %q", domain.ErrWrongEntrySide, domain.SideDebit, domain.SideCredit)
	}

	entry := &domain.LedgerEntry{
		ID:              e.ID,
		TenantID:        tenantID,
		FundID:          e.FundID,
		PropertyID:      e.PropertyID,
		Amount:          amount,
		IsDebit:         isDebit,
		AccountCode:     e.AccountCode,
		AccountName:     e.AccountName,
		Description:     e.Description,
		IsReversing:     e.IsReversing,
		ReversesEntryID: e.ReversesEntryID,
	}

	if e.EntryDate != "" {
		if entry.EntryDate, err = domain.ParseDate(e.EntryDate); err != nil {
			return nil, fmt.Errorf("entry_date: %w", err)
		}
	}

	return entry, nil
}

// VerifyImmutabilityRequest lists the entry ids the caller expects to exist.
type VerifyImmutabilityRequest struct {
	ExpectedEntryIDs []string `json:"expected_entry_ids"`
}

// VerifyEntryRequest carries the originally recorded form of an entry.
type VerifyEntryRequest struct {
	Original domain.LedgerEntry `json:"original"`
}
