package reconstruction

import (
	"github.com/shopspring/decimal"

	"github.com/iho/hoaledger/internal/domain"
)

// ReconstructPropertySnapshot reconstructs every listed fund and member as of
// asOf. Receivables sum only what members owe; overpayments do not offset them.
func ReconstructPropertySnapshot(
	tenantID, propertyID string,
	asOf domain.Date,
	txns []*domain.Transaction,
	entries []*domain.LedgerEntry,
	memberIDs, fundIDs []string,
) (PropertyFinancialSnapshot, error) {
	if err := domain.TransactionsInTenant(tenantID, txns); err != nil {
		return PropertyFinancialSnapshot{}, err
	}
	if err := domain.EntriesInTenant(tenantID, entries); err != nil {
		return PropertyFinancialSnapshot{}, err
	}

	funds := make([]FundBalance, 0, len(fundIDs))
	totalFunds := decimal.Zero
	for _, id := range fundIDs {
		snap := fundBalance(tenantID, id, asOf, entries)
		funds = append(funds, FundBalance{FundID: id, Balance: snap.CurrentBalance})
		totalFunds = totalFunds.Add(snap.CurrentBalance)
	}

	members := make([]MemberBalance, 0, len(memberIDs))
	receivables := decimal.Zero
	for _, id := range memberIDs {
		snap := memberBalance(tenantID, id, asOf, txns)
		members = append(members, MemberBalance{MemberID: id, Balance: snap.CurrentBalance})
		if snap.CurrentBalance.IsNegative() {
			receivables = receivables.Add(snap.CurrentBalance.Abs())
		}
	}

	return PropertyFinancialSnapshot{
		TenantID:               tenantID,
		PropertyID:             propertyID,
		AsOfDate:               asOf,
		FundBalances:           funds,
		TotalFundBalance:       domain.Money(totalFunds),
		MemberBalances:         members,
		TotalMemberReceivables: domain.Money(receivables),
		NumActiveMembers:       len(memberIDs),
		NumFunds:               len(fundIDs),
	}, nil
}

// Summarize totals non-void income and expense transactions dated within
// [start, end]. Adjustment-category transactions are counted in
// TotalTransactions but in neither total.
func Summarize(tenantID string, start, end domain.Date, txns []*domain.Transaction) (TransactionSummary, error) {
	if err := domain.ValidateRange(start, end); err != nil {
		return TransactionSummary{}, err
	}
	if err := domain.TransactionsInTenant(tenantID, txns); err != nil {
		return TransactionSummary{}, err
	}

	income := decimal.Zero
	expenses := decimal.Zero
	total, numIncome, numExpenses := 0, 0, 0

	for _, t := range txns {
		if t.IsVoid || !t.TransactionDate.InRange(start, end) {
			continue
		}
		total++

		switch t.Type.Category() {
		case domain.CategoryIncome:
			income = income.Add(t.Amount)
			numIncome++
		case domain.CategoryExpense:
			expenses = expenses.Add(t.Amount)
			numExpenses++
		}
	}

	income = domain.Money(income)
	expenses = domain.Money(expenses)

	return TransactionSummary{
		TenantID:          tenantID,
		StartDate:         start,
		EndDate:           end,
		TotalTransactions: total,
		NumIncome:         numIncome,
		NumExpenses:       numExpenses,
		TotalIncome:       income,
		TotalExpenses:     expenses,
		NetIncome:         domain.Money(income.Sub(expenses)),
	}, nil
}
