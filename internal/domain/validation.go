package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrAmountTooLarge      = errors.New("amount exceeds maximum allowed")
	ErrAmountTooSmall      = errors.New("amount below minimum allowed")
	ErrInvalidAccountCode  = errors.New("invalid account code")
	ErrInvalidDescription  = errors.New("invalid description")
	ErrInvalidIDFormat     = errors.New("invalid ID format")
	ErrInvalidLedgerEntry  = errors.New("invalid ledger entry")
	ErrMissingFundID       = errors.New("ledger entry has no fund")
	ErrMissingTransaction  = errors.New("transaction is required")
	ErrReversalWithoutLink = errors.New("reversing entry does not reference an entry")
)

// Validation constants
const (
	MaxAccountCodeLength = 50
	MaxDescriptionLength = 500
	MaxAmount            = "1000000000000" // 1 trillion
	MinAmount            = "0.01"
)

// ValidateAmount validates a transaction or entry amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if !IsMoneyPrecision(amount) {
		return fmt.Errorf("%w: %s", ErrInvalidPrecision, amount)
	}

	minAmount, _ := decimal.NewFromString(MinAmount)
	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: minimum amount is %s", ErrAmountTooSmall, MinAmount)
	}

	maxAmount, _ := decimal.NewFromString(MaxAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxAmount)
	}

	return nil
}

// ValidateAccountCode validates a chart-of-accounts code.
func ValidateAccountCode(code string) error {
	code = strings.TrimSpace(code)

	if code == "" {
		return fmt.Errorf("%w: code cannot be empty", ErrInvalidAccountCode)
	}

	if len(code) > MaxAccountCodeLength {
		return fmt.Errorf("%w: code exceeds %d characters", ErrInvalidAccountCode, MaxAccountCodeLength)
	}

	return nil
}

// ValidateDescription validates free-text descriptions.
func ValidateDescription(description string) error {
	description = strings.TrimSpace(description)

	if description == "" {
		return fmt.Errorf("%w: description cannot be empty", ErrInvalidDescription)
	}

	if len(description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidDescription, MaxDescriptionLength)
	}

	return nil
}

// ValidateLedgerEntry checks the shape of a single entry before it is appended.
func ValidateLedgerEntry(e *LedgerEntry) error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidLedgerEntry, ErrInvalidIDFormat)
	}

	if e.FundID == "" {
		return fmt.Errorf("%w: entry %s: %w", ErrInvalidLedgerEntry, e.ID, ErrMissingFundID)
	}

	if err := ValidateAmount(e.Amount); err != nil {
		return fmt.Errorf("%w: entry %s: %w", ErrInvalidLedgerEntry, e.ID, err)
	}

	if err := ValidateAccountCode(e.AccountCode); err != nil {
		return fmt.Errorf("%w: entry %s: %w", ErrInvalidLedgerEntry, e.ID, err)
	}

	if e.IsReversing && (e.ReversesEntryID == nil || *e.ReversesEntryID == "") {
		return fmt.Errorf("%w: entry %s: %w", ErrInvalidLedgerEntry, e.ID, ErrReversalWithoutLink)
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
