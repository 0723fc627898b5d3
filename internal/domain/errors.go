package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Double-entry errors
	ErrNoEntries          = errors.New("no ledger entries to validate")
	ErrUnbalancedEntries  = errors.New("ledger entries are not balanced")
	ErrMissingDebit       = errors.New("transaction has no debit entries")
	ErrMissingCredit      = errors.New("transaction has no credit entries")
	ErrWrongEntrySide     = errors.New("entry has wrong debit/credit designation")
	ErrAmountMismatch     = errors.New("entry amounts do not match")
	ErrCrossTransaction   = errors.New("entry references a different transaction")
	ErrCrossTenant        = errors.New("records belong to different tenants")
	ErrAccountingEquation = errors.New("accounting equation violated")
	ErrBalanceMismatch    = errors.New("balance does not match ledger")

	// Fund errors
	ErrFundBelowMinimum = errors.New("fund balance below minimum")
	ErrFundNotFound     = errors.New("fund not found")

	// Transaction errors
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidPrecision       = errors.New("amount must have exactly two decimal places")
	ErrMissingPostedDate      = errors.New("posted transaction has no posted date")
	ErrVoidAndPosted          = errors.New("transaction is both void and posted")
	ErrFutureTransactionDate  = errors.New("transaction date is in the future")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrTransactionNotFound    = errors.New("transaction not found")

	// Entry errors
	ErrEntryNotFound  = errors.New("ledger entry not found")
	ErrEntryMismatch  = errors.New("comparing different ledger entries")
	ErrLedgerTampered = errors.New("ledger entry was modified")

	// Member errors
	ErrMemberNotFound = errors.New("member not found")

	// Tenant errors
	ErrTenantIsolation = errors.New("tenant isolation violated")
	ErrInvalidTenantID = errors.New("invalid tenant id")

	// Date errors
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidRange = errors.New("start date is after end date")

	// Storage errors
	ErrDuplicateRecord = errors.New("record already exists")
	ErrAppendOnly      = errors.New("ledger records are append-only")
)

// InvariantError reports a failed numeric invariant together with the two
// compared values and their signed difference (Left - Right).
type InvariantError struct {
	Err        error
	Subject    string
	LeftLabel  string
	Left       decimal.Decimal
	RightLabel string
	Right      decimal.Decimal
	Difference decimal.Decimal
}

func newInvariantError(err error, subject, leftLabel string, left decimal.Decimal, rightLabel string, right decimal.Decimal) *InvariantError {
	return &InvariantError{
		Err:        err,
		Subject:    subject,
		LeftLabel:  leftLabel,
		Left:       Money(left),
		RightLabel: rightLabel,
		Right:      Money(right),
		Difference: Money(left.Sub(right)),
	}
}

func (e *InvariantError) Error() string {
	msg := e.Err.Error()
	if e.Subject != "" {
		msg = e.Subject + ": " + msg
	}
	return fmt.Sprintf("%s: %s=%s %s=%s difference=%s",
		msg,
		e.LeftLabel, e.Left.StringFixed(MoneyPlaces),
		e.RightLabel, e.Right.StringFixed(MoneyPlaces),
		e.Difference.Abs().StringFixed(MoneyPlaces),
	)
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}

// ReferenceError reports a record whose reference field disagrees with what the
// check expected (transaction id, tenant id, debit/credit side).
type ReferenceError struct {
	Err      error
	RecordID string
	Field    string
	Expected string
	Actual   string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s: entry %s %s expected %q, got %q", e.Err, e.RecordID, e.Field, e.Expected, e.Actual)
}

func (e *ReferenceError) Unwrap() error {
	return e.Err
}
