package reconstruction

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/iho/hoaledger/internal/domain"
)

// ReconstructMemberBalance sums a member's non-void transactions dated on or
// before asOf. Payments raise total paid, fees and adjustments raise total
// owed, refunds lower total paid. Other types count toward NumTransactions only.
func ReconstructMemberBalance(tenantID, memberID string, asOf domain.Date, txns []*domain.Transaction) (MemberBalanceSnapshot, error) {
	if err := domain.TransactionsInTenant(tenantID, txns); err != nil {
		return MemberBalanceSnapshot{}, err
	}

	return memberBalance(tenantID, memberID, asOf, txns), nil
}

func memberBalance(tenantID, memberID string, asOf domain.Date, txns []*domain.Transaction) MemberBalanceSnapshot {
	owed := decimal.Zero
	paid := decimal.Zero
	count := 0

	for _, t := range txns {
		if !t.BelongsToMember(memberID) || t.TransactionDate.After(asOf) || t.IsVoid {
			continue
		}
		count++

		switch t.Type.MemberEffect() {
		case domain.MemberEffectPaid:
			paid = paid.Add(t.Amount)
		case domain.MemberEffectOwed:
			owed = owed.Add(t.Amount)
		case domain.MemberEffectRefund:
			paid = paid.Sub(t.Amount)
		}
	}

	owed = domain.Money(owed)
	paid = domain.Money(paid)

	return MemberBalanceSnapshot{
		TenantID:        tenantID,
		MemberID:        memberID,
		AsOfDate:        asOf,
		TotalOwed:       owed,
		TotalPaid:       paid,
		CurrentBalance:  domain.Money(paid.Sub(owed)),
		NumTransactions: count,
	}
}

// TransactionHistory returns a member's non-void transactions dated within
// [start, end], oldest first. Transactions on the same date keep input order.
func TransactionHistory(tenantID, memberID string, start, end domain.Date, txns []*domain.Transaction) ([]*domain.Transaction, error) {
	if err := domain.ValidateRange(start, end); err != nil {
		return nil, err
	}
	if err := domain.TransactionsInTenant(tenantID, txns); err != nil {
		return nil, err
	}

	history := make([]*domain.Transaction, 0)
	for _, t := range txns {
		if t.BelongsToMember(memberID) && t.TransactionDate.InRange(start, end) && !t.IsVoid {
			history = append(history, t)
		}
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].TransactionDate.Before(history[j].TransactionDate)
	})

	return history, nil
}
