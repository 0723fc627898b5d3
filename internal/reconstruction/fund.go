package reconstruction

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/iho/hoaledger/internal/domain"
)

// ReconstructFundBalance sums a fund's entries dated on or before asOf.
// Reversing entries are summed like any other entry.
func ReconstructFundBalance(tenantID, fundID string, asOf domain.Date, entries []*domain.LedgerEntry) (FundBalanceSnapshot, error) {
	if err := domain.EntriesInTenant(tenantID, entries); err != nil {
		return FundBalanceSnapshot{}, err
	}

	return fundBalance(tenantID, fundID, asOf, entries), nil
}

func fundBalance(tenantID, fundID string, asOf domain.Date, entries []*domain.LedgerEntry) FundBalanceSnapshot {
	debits := decimal.Zero
	credits := decimal.Zero
	numDebits, numCredits := 0, 0

	for _, e := range entries {
		if e.FundID != fundID || e.EntryDate.After(asOf) {
			continue
		}
		if e.IsDebit {
			debits = debits.Add(e.Amount)
			numDebits++
		} else {
			credits = credits.Add(e.Amount)
			numCredits++
		}
	}

	return FundBalanceSnapshot{
		TenantID:         tenantID,
		FundID:           fundID,
		AsOfDate:         asOf,
		TotalDebits:      domain.Money(debits),
		TotalCredits:     domain.Money(credits),
		CurrentBalance:   domain.Money(credits.Sub(debits)),
		NumDebitEntries:  numDebits,
		NumCreditEntries: numCredits,
	}
}

// signed is the entry's effect on a credit-normal fund balance.
func signed(e *domain.LedgerEntry) decimal.Decimal {
	if e.IsDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// FundBalanceHistory walks a fund's entries in [start, end] and records the
// balance after each distinct entry date. The opening balance covers every
// entry strictly before start.
func FundBalanceHistory(tenantID, fundID string, start, end domain.Date, entries []*domain.LedgerEntry) (BalanceHistory, error) {
	if err := domain.ValidateRange(start, end); err != nil {
		return BalanceHistory{}, err
	}
	if err := domain.EntriesInTenant(tenantID, entries); err != nil {
		return BalanceHistory{}, err
	}

	opening := decimal.Zero
	inRange := make([]*domain.LedgerEntry, 0)
	for _, e := range entries {
		if e.FundID != fundID {
			continue
		}
		switch {
		case e.EntryDate.Before(start):
			opening = opening.Add(signed(e))
		case !e.EntryDate.After(end):
			inRange = append(inRange, e)
		}
	}

	sort.SliceStable(inRange, func(i, j int) bool {
		return inRange[i].EntryDate.Before(inRange[j].EntryDate)
	})

	points := make([]BalancePoint, 0)
	running := opening
	for i, e := range inRange {
		running = running.Add(signed(e))
		last := i == len(inRange)-1
		if last || !inRange[i+1].EntryDate.Equal(e.EntryDate) {
			points = append(points, BalancePoint{Date: e.EntryDate, Balance: domain.Money(running)})
		}
	}

	opening = domain.Money(opening)
	closing := domain.Money(running)

	return BalanceHistory{
		TenantID:        tenantID,
		FundID:          fundID,
		StartDate:       start,
		EndDate:         end,
		Points:          points,
		OpeningBalance:  opening,
		ClosingBalance:  closing,
		NetChange:       domain.Money(closing.Sub(opening)),
		NumTransactions: len(inRange),
	}, nil
}
