package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidateBalancedEntries fails unless total debits equal total credits
// exactly. An empty set is rejected.
func ValidateBalancedEntries(entries []*LedgerEntry) error {
	if len(entries) == 0 {
		return ErrNoEntries
	}

	debits := TotalDebits(entries)
	credits := TotalCredits(entries)
	if !debits.Equal(credits) {
		return newInvariantError(ErrUnbalancedEntries, "", "debits", debits, "credits", credits)
	}

	return nil
}

// ValidateTransactionEntries checks that entries all reference txn, include
// both sides and balance.
func ValidateTransactionEntries(txn *Transaction, entries []*LedgerEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("transaction %s: %w", txn.ID, ErrNoEntries)
	}

	hasDebit, hasCredit := false, false
	for _, e := range entries {
		if e.TransactionID != txn.ID {
			return &ReferenceError{
				Err:      ErrCrossTransaction,
				RecordID: e.ID,
				Field:    "transaction_id",
				Expected: txn.ID,
				Actual:   e.TransactionID,
			}
		}
		if e.IsDebit {
			hasDebit = true
		} else {
			hasCredit = true
		}
	}

	if !hasDebit {
		return fmt.Errorf("transaction %s: %w", txn.ID, ErrMissingDebit)
	}
	if !hasCredit {
		return fmt.Errorf("transaction %s: %w", txn.ID, ErrMissingCredit)
	}

	debits := TotalDebits(entries)
	credits := TotalCredits(entries)
	if !debits.Equal(credits) {
		return newInvariantError(ErrUnbalancedEntries, "transaction "+txn.ID, "debits", debits, "credits", credits)
	}

	return nil
}

// ValidateEntryPair checks the common one-debit one-credit case.
func ValidateEntryPair(debit, credit *LedgerEntry) error {
	if !debit.IsDebit {
		return &ReferenceError{Err: ErrWrongEntrySide, RecordID: debit.ID, Field: "side", Expected: SideDebit, Actual: debit.Side()}
	}
	if credit.IsDebit {
		return &ReferenceError{Err: ErrWrongEntrySide, RecordID: credit.ID, Field: "side", Expected: SideCredit, Actual: credit.Side()}
	}

	if !debit.Amount.Equal(credit.Amount) {
		return newInvariantError(ErrAmountMismatch, "entry pair", "debit", debit.Amount, "credit", credit.Amount)
	}

	if debit.TransactionID != credit.TransactionID {
		return &ReferenceError{
			Err:      ErrCrossTransaction,
			RecordID: credit.ID,
			Field:    "transaction_id",
			Expected: debit.TransactionID,
			Actual:   credit.TransactionID,
		}
	}

	if debit.TenantID != credit.TenantID {
		return &ReferenceError{
			Err:      ErrCrossTenant,
			RecordID: credit.ID,
			Field:    "tenant_id",
			Expected: debit.TenantID,
			Actual:   credit.TenantID,
		}
	}

	return nil
}

// ValidateFundBalance checks the minimum balance rule and, when entries is
// non-empty, that the stored balance equals net debits minus credits of the
// entries posted to this fund.
func ValidateFundBalance(fund *Fund, entries []*LedgerEntry) error {
	subject := fmt.Sprintf("fund %s (%s)", fund.ID, fund.Name)

	if fund.IsBelowMinimum() {
		return newInvariantError(ErrFundBelowMinimum, subject, "current", fund.CurrentBalance, "minimum", fund.MinimumBalance)
	}

	if len(entries) == 0 {
		return nil
	}

	net := decimal.Zero
	for _, e := range entries {
		if e.FundID != fund.ID {
			continue
		}
		net = net.Add(e.DebitAmount()).Sub(e.CreditAmount())
	}

	if !Money(net).Equal(Money(fund.CurrentBalance)) {
		return newInvariantError(ErrBalanceMismatch, subject, "calculated", net, "stored", fund.CurrentBalance)
	}

	return nil
}

// ValidateAccountingEquation fails unless assets == liabilities + equity.
func ValidateAccountingEquation(assets, liabilities, equity decimal.Decimal) error {
	right := liabilities.Add(equity)
	if !assets.Equal(right) {
		return newInvariantError(ErrAccountingEquation, "", "assets", assets, "liabilities+equity", right)
	}
	return nil
}

// ReconcileAccountBalance compares net debits minus credits against expected.
func ReconcileAccountBalance(entries []*LedgerEntry, expected decimal.Decimal) error {
	calculated := TotalDebits(entries).Sub(TotalCredits(entries))
	if !calculated.Equal(Money(expected)) {
		return newInvariantError(ErrBalanceMismatch, "account", "calculated", calculated, "expected", expected)
	}
	return nil
}

// ValidatePaymentEffect checks that a payment raised the member balance by its amount.
func ValidatePaymentEffect(txn *Transaction, before, after decimal.Decimal) error {
	expected := before.Add(txn.Amount)
	if !after.Equal(expected) {
		return newInvariantError(ErrBalanceMismatch, "payment "+txn.ID, "actual", after, "expected", expected)
	}
	return nil
}

// ValidateRefundEffect checks that a refund lowered the member balance by its amount.
func ValidateRefundEffect(txn *Transaction, before, after decimal.Decimal) error {
	expected := before.Sub(txn.Amount)
	if !after.Equal(expected) {
		return newInvariantError(ErrBalanceMismatch, "refund "+txn.ID, "actual", after, "expected", expected)
	}
	return nil
}
