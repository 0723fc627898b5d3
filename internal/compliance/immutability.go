package compliance

import (
	"fmt"
	"sort"
	"time"

	"github.com/iho/hoaledger/internal/domain"
)

// EntryState is the observed lifecycle state of a ledger entry. Posted is
// terminal; Tampered is only ever a detection result.
type EntryState string

const (
	EntryStatePosted   EntryState = "posted"
	EntryStateTampered EntryState = "tampered"
)

// TamperError names the first field found to differ between a captured entry
// and its stored form.
type TamperError struct {
	EntryID  string
	Field    string
	Original string
	Current  string
}

func (e *TamperError) Error() string {
	return fmt.Sprintf("%s: entry %s field %s changed from %q to %q", domain.ErrLedgerTampered, e.EntryID, e.Field, e.Original, e.Current)
}

func (e *TamperError) Unwrap() error {
	return domain.ErrLedgerTampered
}

// wasUpdated reports a modification timestamp strictly after creation. Entries
// without both timestamps are not judged.
func wasUpdated(e *domain.LedgerEntry) bool {
	if e.CreatedAt.IsZero() || e.UpdatedAt.IsZero() {
		return false
	}
	return e.UpdatedAt.After(e.CreatedAt)
}

// VerifyNoUpdates is false if any entry was modified after it was created.
func VerifyNoUpdates(entries []*domain.LedgerEntry) bool {
	for _, e := range entries {
		if wasUpdated(e) {
			return false
		}
	}
	return true
}

func missingIDs(expectedIDs []string, entries []*domain.LedgerEntry) []string {
	present := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		present[e.ID] = struct{}{}
	}

	missing := make([]string, 0)
	seen := make(map[string]struct{}, len(expectedIDs))
	for _, id := range expectedIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// VerifyNoDeletes is false if any expected id is absent from entries.
func VerifyNoDeletes(expectedIDs []string, entries []*domain.LedgerEntry) bool {
	return len(missingIDs(expectedIDs, entries)) == 0
}

// correctionProblem describes why reversal does not cleanly reverse original,
// or returns "" when it does.
func correctionProblem(original, reversal *domain.LedgerEntry) string {
	switch {
	case !reversal.Amount.Equal(original.Amount):
		return fmt.Sprintf("amount %s does not match original %s", reversal.Amount.StringFixed(domain.MoneyPlaces), original.Amount.StringFixed(domain.MoneyPlaces))
	case reversal.IsDebit == original.IsDebit:
		return fmt.Sprintf("side %s is not opposite of original", reversal.Side())
	case reversal.FundID != original.FundID:
		return fmt.Sprintf("fund %s does not match original fund %s", reversal.FundID, original.FundID)
	}
	return ""
}

// VerifyCorrectionPattern is true only when corrections hold exactly one
// reversing entry pointing at original, and it mirrors original's amount with
// the opposite side in the same fund.
func VerifyCorrectionPattern(original *domain.LedgerEntry, corrections []*domain.LedgerEntry) bool {
	var reversal *domain.LedgerEntry
	for _, e := range corrections {
		if !e.Reverses(original.ID) {
			continue
		}
		if reversal != nil {
			return false
		}
		reversal = e
	}
	if reversal == nil {
		return false
	}
	return correctionProblem(original, reversal) == ""
}

// ImmutabilityReport aggregates every append-only violation found in one pass.
type ImmutabilityReport struct {
	TenantID           string     `json:"tenant_id"`
	GeneratedAt        time.Time  `json:"generated_at"`
	TotalEntries       int        `json:"total_entries"`
	EntriesWithUpdates int        `json:"entries_with_updates"`
	EntriesDeleted     int        `json:"entries_deleted"`
	ReversingEntries   int        `json:"reversing_entries"`
	IsImmutable        bool       `json:"is_immutable"`
	Violations         []string   `json:"violations"`
	OldestEntry        *time.Time `json:"oldest_entry,omitempty"`
	NewestEntry        *time.Time `json:"newest_entry,omitempty"`
}

// observedAt is the entry's creation time, falling back to its entry date.
func observedAt(e *domain.LedgerEntry) time.Time {
	if !e.CreatedAt.IsZero() {
		return e.CreatedAt.UTC()
	}
	return e.EntryDate.Time()
}

// GenerateImmutabilityReport checks entries for updates, deletions against
// expectedIDs (skipped when nil) and malformed reversals. Finding violations
// is not an error; only entries from another tenant are.
func GenerateImmutabilityReport(tenantID string, entries []*domain.LedgerEntry, expectedIDs []string) (ImmutabilityReport, error) {
	if err := domain.EntriesInTenant(tenantID, entries); err != nil {
		return ImmutabilityReport{}, err
	}

	report := ImmutabilityReport{
		TenantID:     tenantID,
		TotalEntries: len(entries),
		Violations:   make([]string, 0),
	}

	byID := make(map[string]*domain.LedgerEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	for _, e := range entries {
		if wasUpdated(e) {
			report.EntriesWithUpdates++
			report.Violations = append(report.Violations, fmt.Sprintf(
				"ledger entry %s was updated at %s after creation at %s",
				e.ID, e.UpdatedAt.UTC().Format(time.RFC3339), e.CreatedAt.UTC().Format(time.RFC3339)))
		}
	}

	if expectedIDs != nil {
		missing := missingIDs(expectedIDs, entries)
		sort.Strings(missing)
		report.EntriesDeleted = len(missing)
		for _, id := range missing {
			report.Violations = append(report.Violations, fmt.Sprintf("ledger entry %s has been deleted", id))
		}
	}

	reversalsOf := make(map[string]int)
	for _, e := range entries {
		if !e.IsReversing {
			continue
		}
		report.ReversingEntries++

		if e.ReversesEntryID == nil || *e.ReversesEntryID == "" {
			report.Violations = append(report.Violations, fmt.Sprintf("reversing entry %s does not reference an entry", e.ID))
			continue
		}
		target := *e.ReversesEntryID
		reversalsOf[target]++

		original, ok := byID[target]
		if !ok {
			report.Violations = append(report.Violations, fmt.Sprintf("reversing entry %s references unknown entry %s", e.ID, target))
			continue
		}
		if problem := correctionProblem(original, e); problem != "" {
			report.Violations = append(report.Violations, fmt.Sprintf("reversing entry %s is malformed: %s", e.ID, problem))
		}
	}

	reversed := make([]string, 0, len(reversalsOf))
	for id, n := range reversalsOf {
		if n > 1 {
			reversed = append(reversed, id)
		}
	}
	sort.Strings(reversed)
	for _, id := range reversed {
		report.Violations = append(report.Violations, fmt.Sprintf("ledger entry %s is reversed %d times", id, reversalsOf[id]))
	}

	for _, e := range entries {
		at := observedAt(e)
		if report.OldestEntry == nil || at.Before(*report.OldestEntry) {
			oldest := at
			report.OldestEntry = &oldest
		}
		if report.NewestEntry == nil || at.After(*report.NewestEntry) {
			newest := at
			report.NewestEntry = &newest
		}
	}

	report.IsImmutable = len(report.Violations) == 0
	return report, nil
}

// ValidateLedgerImmutability compares a captured entry with its current stored
// form and fails on the first changed field.
func ValidateLedgerImmutability(original, current *domain.LedgerEntry) error {
	if original.ID != current.ID {
		return fmt.Errorf("%w: %s vs %s", domain.ErrEntryMismatch, original.ID, current.ID)
	}

	checks := []struct {
		field    string
		original string
		current  string
		changed  bool
	}{
		{"amount", original.Amount.StringFixed(domain.MoneyPlaces), current.Amount.StringFixed(domain.MoneyPlaces), !original.Amount.Equal(current.Amount)},
		{"is_debit", original.Side(), current.Side(), original.IsDebit != current.IsDebit},
		{"account_code", original.AccountCode, current.AccountCode, original.AccountCode != current.AccountCode},
		{"fund_id", original.FundID, current.FundID, original.FundID != current.FundID},
		{"transaction_id", original.TransactionID, current.TransactionID, original.TransactionID != current.TransactionID},
		{"entry_date", original.EntryDate.String(), current.EntryDate.String(), !original.EntryDate.Equal(current.EntryDate)},
	}

	for _, c := range checks {
		if c.changed {
			return &TamperError{EntryID: original.ID, Field: c.field, Original: c.original, Current: c.current}
		}
	}

	return nil
}

// ClassifyEntry maps a tamper check onto the entry lifecycle.
func ClassifyEntry(original, current *domain.LedgerEntry) EntryState {
	if ValidateLedgerImmutability(original, current) != nil {
		return EntryStateTampered
	}
	return EntryStatePosted
}
