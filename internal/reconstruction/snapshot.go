// Package reconstruction rebuilds member and fund state as of a calendar date
// from caller-supplied transactions and ledger entries. Every function is pure:
// no clock reads, no I/O, inputs are never modified.
package reconstruction

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/iho/hoaledger/internal/domain"
)

// MemberBalanceSnapshot is a member's balance as of a date.
type MemberBalanceSnapshot struct {
	TenantID        string          `json:"tenant_id"`
	MemberID        string          `json:"member_id"`
	AsOfDate        domain.Date     `json:"as_of_date"`
	TotalOwed       decimal.Decimal `json:"total_owed"`
	TotalPaid       decimal.Decimal `json:"total_paid"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	NumTransactions int             `json:"num_transactions"`
}

// FundBalanceSnapshot is a fund's balance as of a date. Credits increase the
// balance, debits decrease it.
type FundBalanceSnapshot struct {
	TenantID         string          `json:"tenant_id"`
	FundID           string          `json:"fund_id"`
	AsOfDate         domain.Date     `json:"as_of_date"`
	TotalDebits      decimal.Decimal `json:"total_debits"`
	TotalCredits     decimal.Decimal `json:"total_credits"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	NumDebitEntries  int             `json:"num_debit_entries"`
	NumCreditEntries int             `json:"num_credit_entries"`
}

// BalancePoint is the balance right after all entries dated Date are applied.
type BalancePoint struct {
	Date    domain.Date     `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceHistory is a fund's balance over an inclusive date range.
type BalanceHistory struct {
	TenantID        string          `json:"tenant_id"`
	FundID          string          `json:"fund_id"`
	StartDate       domain.Date     `json:"start_date"`
	EndDate         domain.Date     `json:"end_date"`
	Points          []BalancePoint  `json:"balance_points"`
	OpeningBalance  decimal.Decimal `json:"opening_balance"`
	ClosingBalance  decimal.Decimal `json:"closing_balance"`
	NetChange       decimal.Decimal `json:"net_change"`
	NumTransactions int             `json:"num_transactions"`
}

// TransactionSummary totals income and expense activity over a range.
type TransactionSummary struct {
	TenantID          string          `json:"tenant_id"`
	StartDate         domain.Date     `json:"start_date"`
	EndDate           domain.Date     `json:"end_date"`
	TotalTransactions int             `json:"total_transactions"`
	NumIncome         int             `json:"num_income"`
	NumExpenses       int             `json:"num_expenses"`
	TotalIncome       decimal.Decimal `json:"total_income"`
	TotalExpenses     decimal.Decimal `json:"total_expenses"`
	NetIncome         decimal.Decimal `json:"net_income"`
}

// FundBalance is one fund's line in a property snapshot.
type FundBalance struct {
	FundID  string          `json:"fund_id"`
	Balance decimal.Decimal `json:"balance"`
}

// MemberBalance is one member's line in a property snapshot.
type MemberBalance struct {
	MemberID string          `json:"member_id"`
	Balance  decimal.Decimal `json:"balance"`
}

// PropertyFinancialSnapshot aggregates every fund and member of a property.
// Balance lines keep the order of the requested ids.
type PropertyFinancialSnapshot struct {
	TenantID               string          `json:"tenant_id"`
	PropertyID             string          `json:"property_id"`
	AsOfDate               domain.Date     `json:"as_of_date"`
	FundBalances           []FundBalance   `json:"fund_balances"`
	TotalFundBalance       decimal.Decimal `json:"total_fund_balance"`
	MemberBalances         []MemberBalance `json:"member_balances"`
	TotalMemberReceivables decimal.Decimal `json:"total_member_receivables"`
	NumActiveMembers       int             `json:"num_active_members"`
	NumFunds               int             `json:"num_funds"`
}

// The MarshalJSON methods below render money with exactly two fractional
// digits. Decoding uses the default field mapping.

func (s MemberBalanceSnapshot) MarshalJSON() ([]byte, error) {
	type plain MemberBalanceSnapshot
	return json.Marshal(struct {
		plain
		TotalOwed      domain.FixedMoney `json:"total_owed"`
		TotalPaid      domain.FixedMoney `json:"total_paid"`
		CurrentBalance domain.FixedMoney `json:"current_balance"`
	}{plain(s), domain.FixedMoney(s.TotalOwed), domain.FixedMoney(s.TotalPaid), domain.FixedMoney(s.CurrentBalance)})
}

func (s FundBalanceSnapshot) MarshalJSON() ([]byte, error) {
	type plain FundBalanceSnapshot
	return json.Marshal(struct {
		plain
		TotalDebits    domain.FixedMoney `json:"total_debits"`
		TotalCredits   domain.FixedMoney `json:"total_credits"`
		CurrentBalance domain.FixedMoney `json:"current_balance"`
	}{plain(s), domain.FixedMoney(s.TotalDebits), domain.FixedMoney(s.TotalCredits), domain.FixedMoney(s.CurrentBalance)})
}

func (p BalancePoint) MarshalJSON() ([]byte, error) {
	type plain BalancePoint
	return json.Marshal(struct {
		plain
		Balance domain.FixedMoney `json:"balance"`
	}{plain(p), domain.FixedMoney(p.Balance)})
}

func (h BalanceHistory) MarshalJSON() ([]byte, error) {
	type plain BalanceHistory
	return json.Marshal(struct {
		plain
		OpeningBalance domain.FixedMoney `json:"opening_balance"`
		ClosingBalance domain.FixedMoney `json:"closing_balance"`
		NetChange      domain.FixedMoney `json:"net_change"`
	}{plain(h), domain.FixedMoney(h.OpeningBalance), domain.FixedMoney(h.ClosingBalance), domain.FixedMoney(h.NetChange)})
}

func (s TransactionSummary) MarshalJSON() ([]byte, error) {
	type plain TransactionSummary
	return json.Marshal(struct {
		plain
		TotalIncome   domain.FixedMoney `json:"total_income"`
		TotalExpenses domain.FixedMoney `json:"total_expenses"`
		NetIncome     domain.FixedMoney `json:"net_income"`
	}{plain(s), domain.FixedMoney(s.TotalIncome), domain.FixedMoney(s.TotalExpenses), domain.FixedMoney(s.NetIncome)})
}

func (b FundBalance) MarshalJSON() ([]byte, error) {
	type plain FundBalance
	return json.Marshal(struct {
		plain
		Balance domain.FixedMoney `json:"balance"`
	}{plain(b), domain.FixedMoney(b.Balance)})
}

func (b MemberBalance) MarshalJSON() ([]byte, error) {
	type plain MemberBalance
	return json.Marshal(struct {
		plain
		Balance domain.FixedMoney `json:"balance"`
	}{plain(b), domain.FixedMoney(b.Balance)})
}

func (s PropertyFinancialSnapshot) MarshalJSON() ([]byte, error) {
	type plain PropertyFinancialSnapshot
	return json.Marshal(struct {
		plain
		TotalFundBalance       domain.FixedMoney `json:"total_fund_balance"`
		TotalMemberReceivables domain.FixedMoney `json:"total_member_receivables"`
	}{plain(s), domain.FixedMoney(s.TotalFundBalance), domain.FixedMoney(s.TotalMemberReceivables)})
}

// Normalize re-quantizes money fields, e.g. after a JSON round trip dropped
// trailing zeros.
func (s *MemberBalanceSnapshot) Normalize() {
	s.TotalOwed = domain.Money(s.TotalOwed)
	s.TotalPaid = domain.Money(s.TotalPaid)
	s.CurrentBalance = domain.Money(s.CurrentBalance)
}

func (s *FundBalanceSnapshot) Normalize() {
	s.TotalDebits = domain.Money(s.TotalDebits)
	s.TotalCredits = domain.Money(s.TotalCredits)
	s.CurrentBalance = domain.Money(s.CurrentBalance)
}

func (h *BalanceHistory) Normalize() {
	for i := range h.Points {
		h.Points[i].Balance = domain.Money(h.Points[i].Balance)
	}
	h.OpeningBalance = domain.Money(h.OpeningBalance)
	h.ClosingBalance = domain.Money(h.ClosingBalance)
	h.NetChange = domain.Money(h.NetChange)
}

func (s *TransactionSummary) Normalize() {
	s.TotalIncome = domain.Money(s.TotalIncome)
	s.TotalExpenses = domain.Money(s.TotalExpenses)
	s.NetIncome = domain.Money(s.NetIncome)
}

func (s *PropertyFinancialSnapshot) Normalize() {
	for i := range s.FundBalances {
		s.FundBalances[i].Balance = domain.Money(s.FundBalances[i].Balance)
	}
	for i := range s.MemberBalances {
		s.MemberBalances[i].Balance = domain.Money(s.MemberBalances[i].Balance)
	}
	s.TotalFundBalance = domain.Money(s.TotalFundBalance)
	s.TotalMemberReceivables = domain.Money(s.TotalMemberReceivables)
}
