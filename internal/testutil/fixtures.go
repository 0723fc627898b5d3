// Package testutil builds domain fixtures for package tests.
package testutil

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/hoaledger/internal/domain"
)

// Tenants used across tests.
const (
	TenantA = "6f1c2a7e-3b4d-4e5f-8a9b-0c1d2e3f4a5b"
	TenantB = "9a8b7c6d-5e4f-4a3b-9c2d-1e0f9a8b7c6d"
)

// Date parses YYYY-MM-DD or panics.
func Date(s string) domain.Date {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Money parses a cent-precision amount or panics.
func Money(s string) decimal.Decimal {
	return domain.MustMoney(s)
}

// TxnOption customizes a transaction fixture.
type TxnOption func(*domain.Transaction)

func ForMember(memberID string) TxnOption {
	return func(t *domain.Transaction) { t.MemberID = &memberID }
}

func ForFund(fundID string) TxnOption {
	return func(t *domain.Transaction) { t.FundID = &fundID }
}

func InTenant(tenantID string) TxnOption {
	return func(t *domain.Transaction) { t.TenantID = tenantID }
}

func Void() TxnOption {
	return func(t *domain.Transaction) {
		t.IsVoid = true
		t.IsPosted = false
		t.PostedDate = nil
	}
}

func Unposted() TxnOption {
	return func(t *domain.Transaction) {
		t.IsPosted = false
		t.PostedDate = nil
	}
}

// Txn builds a posted TenantA transaction on property "prop-1".
func Txn(id string, typ domain.TransactionType, date, amount string, opts ...TxnOption) *domain.Transaction {
	d := Date(date)
	t := &domain.Transaction{
		ID:              id,
		TenantID:        TenantA,
		PropertyID:      "prop-1",
		Type:            typ,
		Description:     string(typ),
		TransactionDate: d,
		PostedDate:      &d,
		Amount:          Money(amount),
		IsPosted:        true,
		CreatedAt:       d.Time(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// EntryOption customizes a ledger entry fixture.
type EntryOption func(*domain.LedgerEntry)

func EntryInTenant(tenantID string) EntryOption {
	return func(e *domain.LedgerEntry) { e.TenantID = tenantID }
}

func Account(code, name string) EntryOption {
	return func(e *domain.LedgerEntry) {
		e.AccountCode = code
		e.AccountName = name
	}
}

// Entry builds a TenantA ledger entry created at midnight of its entry date.
func Entry(id, txnID, fundID, date, amount string, debit bool, opts ...EntryOption) *domain.LedgerEntry {
	d := Date(date)
	e := &domain.LedgerEntry{
		ID:            id,
		TenantID:      TenantA,
		TransactionID: txnID,
		FundID:        fundID,
		PropertyID:    "prop-1",
		EntryDate:     d,
		Amount:        Money(amount),
		IsDebit:       debit,
		AccountCode:   "1000",
		AccountName:   "Operating Cash",
		CreatedAt:     d.Time(),
		UpdatedAt:     d.Time(),
	}
	if !debit {
		e.AccountCode = "4000"
		e.AccountName = "Assessment Revenue"
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Pair builds a balanced debit/credit pair for txnID, ids suffixed -d and -c.
func Pair(txnID, debitFund, creditFund, date, amount string) []*domain.LedgerEntry {
	return []*domain.LedgerEntry{
		Entry(txnID+"-d", txnID, debitFund, date, amount, true),
		Entry(txnID+"-c", txnID, creditFund, date, amount, false),
	}
}

// Member builds an active TenantA member whose stored totals match balance.
func Member(id, balance string) *domain.Member {
	b := Money(balance)
	m := &domain.Member{
		ID:             id,
		TenantID:       TenantA,
		PropertyID:     "prop-1",
		FirstName:      "Member",
		LastName:       id,
		Type:           domain.MemberTypeOwner,
		IsActive:       true,
		CurrentBalance: b,
		TotalPaid:      domain.ZeroMoney,
		TotalOwed:      domain.ZeroMoney,
	}
	if b.IsNegative() {
		m.TotalOwed = b.Abs()
	} else {
		m.TotalPaid = b
	}
	return m
}

// Fund builds an active TenantA operating fund.
func Fund(id, balance string) *domain.Fund {
	return &domain.Fund{
		ID:             id,
		TenantID:       TenantA,
		PropertyID:     "prop-1",
		Name:           "Fund " + id,
		Type:           domain.FundTypeOperating,
		CurrentBalance: Money(balance),
		MinimumBalance: domain.ZeroMoney,
		IsActive:       true,
	}
}

// SeqIDs hands out predictable ids: <prefix>-1, <prefix>-2, ...
type SeqIDs struct {
	mu     sync.Mutex
	Prefix string
	n      int
}

func (s *SeqIDs) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.Prefix, s.n)
}

// FixedNow is the wall time used by FixedClock.
var FixedNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

// FixedClock always returns FixedNow.
type FixedClock struct{}

func (FixedClock) Now() time.Time { return FixedNow }
