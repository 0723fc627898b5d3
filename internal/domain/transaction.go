package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the business kind of a transaction.
type TransactionType string

const (
	// Income
	TransactionTypeDuesPayment       TransactionType = "dues_payment"
	TransactionTypeAssessmentPayment TransactionType = "assessment_payment"
	TransactionTypeLateFee           TransactionType = "late_fee"
	TransactionTypeTransferFee       TransactionType = "transfer_fee"
	TransactionTypeOtherIncome       TransactionType = "other_income"

	// Expenses
	TransactionTypeVendorPayment TransactionType = "vendor_payment"
	TransactionTypeUtility       TransactionType = "utility"
	TransactionTypeMaintenance   TransactionType = "maintenance"
	TransactionTypeInsurance     TransactionType = "insurance"
	TransactionTypeManagementFee TransactionType = "management_fee"
	TransactionTypeOtherExpense  TransactionType = "other_expense"
	TransactionTypeBankFee       TransactionType = "bank_fee"

	// Adjustments
	TransactionTypeRefund       TransactionType = "refund"
	TransactionTypeAdjustment   TransactionType = "adjustment"
	TransactionTypeFundTransfer TransactionType = "fund_transfer"
)

// Category groups transaction types for summaries.
type Category string

const (
	CategoryIncome     Category = "income"
	CategoryExpense    Category = "expense"
	CategoryAdjustment Category = "adjustment"
)

// MemberEffect is how a transaction moves a member's running balance.
type MemberEffect int

const (
	MemberEffectNone MemberEffect = iota
	// MemberEffectPaid increases total paid.
	MemberEffectPaid
	// MemberEffectOwed increases total owed.
	MemberEffectOwed
	// MemberEffectRefund decreases total paid.
	MemberEffectRefund
)

type transactionTypeInfo struct {
	category Category
	effect   MemberEffect
}

var transactionTypes = map[TransactionType]transactionTypeInfo{
	TransactionTypeDuesPayment:       {CategoryIncome, MemberEffectPaid},
	TransactionTypeAssessmentPayment: {CategoryIncome, MemberEffectPaid},
	TransactionTypeLateFee:           {CategoryIncome, MemberEffectOwed},
	TransactionTypeTransferFee:       {CategoryIncome, MemberEffectOwed},
	TransactionTypeOtherIncome:       {CategoryIncome, MemberEffectOwed},
	TransactionTypeVendorPayment:     {CategoryExpense, MemberEffectNone},
	TransactionTypeUtility:           {CategoryExpense, MemberEffectNone},
	TransactionTypeMaintenance:       {CategoryExpense, MemberEffectNone},
	TransactionTypeInsurance:         {CategoryExpense, MemberEffectNone},
	TransactionTypeManagementFee:     {CategoryExpense, MemberEffectNone},
	TransactionTypeOtherExpense:      {CategoryExpense, MemberEffectNone},
	TransactionTypeBankFee:           {CategoryExpense, MemberEffectNone},
	TransactionTypeRefund:            {CategoryAdjustment, MemberEffectRefund},
	TransactionTypeAdjustment:        {CategoryAdjustment, MemberEffectOwed},
	TransactionTypeFundTransfer:      {CategoryAdjustment, MemberEffectNone},
}

// ParseTransactionType validates s against the known types.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTransactionType, s)
	}
	return t, nil
}

func (t TransactionType) Valid() bool {
	_, ok := transactionTypes[t]
	return ok
}

func (t TransactionType) Category() Category {
	return transactionTypes[t].category
}

func (t TransactionType) MemberEffect() MemberEffect {
	return transactionTypes[t].effect
}

// Transaction is a business event that produces one or more balanced ledger entries.
type Transaction struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	PropertyID      string          `json:"property_id"`
	Type            TransactionType `json:"transaction_type"`
	Description     string          `json:"description"`
	TransactionDate Date            `json:"transaction_date"`
	PostedDate      *Date           `json:"posted_date,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	IsPosted        bool            `json:"is_posted"`
	IsVoid          bool            `json:"is_void"`
	MemberID        *string         `json:"member_id,omitempty"`
	UnitID          *string         `json:"unit_id,omitempty"`
	FundID          *string         `json:"fund_id,omitempty"`
	CheckNumber     string          `json:"check_number,omitempty"`
	BankReference   string          `json:"bank_reference,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// MarshalJSON renders the amount with exactly two fractional digits.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type plain Transaction
	return json.Marshal(struct {
		plain
		Amount FixedMoney `json:"amount"`
	}{plain(t), FixedMoney(t.Amount)})
}

// Validate checks the transaction against its own invariants. today is the
// caller's notion of the current date.
func (t *Transaction) Validate(today Date) error {
	if !t.Type.Valid() {
		return fmt.Errorf("transaction %s: %w: %q", t.ID, ErrInvalidTransactionType, t.Type)
	}

	if !t.Amount.IsPositive() {
		return fmt.Errorf("transaction %s: %w: %s", t.ID, ErrInvalidAmount, t.Amount)
	}

	if !IsMoneyPrecision(t.Amount) {
		return fmt.Errorf("transaction %s: %w: %s", t.ID, ErrInvalidPrecision, t.Amount)
	}

	if t.IsPosted && t.PostedDate == nil {
		return fmt.Errorf("transaction %s: %w", t.ID, ErrMissingPostedDate)
	}

	if t.IsVoid && t.IsPosted {
		return fmt.Errorf("transaction %s: %w", t.ID, ErrVoidAndPosted)
	}

	if t.TransactionDate.After(today) {
		return fmt.Errorf("transaction %s: %w: %s", t.ID, ErrFutureTransactionDate, t.TransactionDate)
	}

	return nil
}

// BelongsToMember reports whether the transaction references memberID.
func (t *Transaction) BelongsToMember(memberID string) bool {
	return t.MemberID != nil && *t.MemberID == memberID
}

func (t *Transaction) EntityID() string       { return t.ID }
func (t *Transaction) EntityTenant() string   { return t.TenantID }
func (t *Transaction) EntityKind() EntityKind { return EntityKindTransaction }
