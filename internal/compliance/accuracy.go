// Package compliance grades reconstructed balances against stored ones and
// checks the ledger for updates, deletions and malformed corrections.
package compliance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/hoaledger/internal/domain"
)

// Severity grades a variance between an expected and an actual balance.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// Entity types a variance can describe.
const (
	EntityMember   = "member"
	EntityFund     = "fund"
	EntityProperty = "property"
)

// PercentPlaces is the precision percentages are rounded to before they are
// compared with severity thresholds.
const PercentPlaces = 4

var (
	hundred = decimal.NewFromInt(100)

	noneThreshold     = decimal.RequireFromString("0.01")
	minorThreshold    = decimal.NewFromInt(1)
	moderateThreshold = decimal.NewFromInt(5)
	majorThreshold    = decimal.NewFromInt(10)

	// AccuracyThreshold is the minimum average accuracy, in percent, a report must reach.
	AccuracyThreshold = decimal.NewFromInt(99)
	// DefaultTolerance is the default MatchesWithinTolerance slack.
	DefaultTolerance = decimal.RequireFromString("0.01")
)

// VariancePercentage is |actual - expected| / |expected| * 100 rounded to
// PercentPlaces. A zero expected value yields 0 when actual is also zero and
// 100 otherwise.
func VariancePercentage(expected, actual decimal.Decimal) decimal.Decimal {
	if expected.IsZero() {
		if actual.IsZero() {
			return decimal.Zero.Round(PercentPlaces)
		}
		return hundred.Round(PercentPlaces)
	}
	return actual.Sub(expected).Abs().Div(expected.Abs()).Mul(hundred).Round(PercentPlaces)
}

// ClassifySeverity grades the gap between expected and actual. Any non-zero
// actual against a zero expectation is critical.
func ClassifySeverity(expected, actual decimal.Decimal) Severity {
	if expected.IsZero() {
		if actual.IsZero() {
			return SeverityNone
		}
		return SeverityCritical
	}

	pct := VariancePercentage(expected, actual)
	switch {
	case pct.LessThan(noneThreshold):
		return SeverityNone
	case pct.LessThan(minorThreshold):
		return SeverityMinor
	case pct.LessThan(moderateThreshold):
		return SeverityModerate
	case pct.LessThan(majorThreshold):
		return SeverityMajor
	default:
		return SeverityCritical
	}
}

// BalanceVariance is one expected-vs-actual comparison.
type BalanceVariance struct {
	EntityType         string          `json:"entity_type"`
	EntityID           string          `json:"entity_id"`
	EntityName         string          `json:"entity_name,omitempty"`
	AsOfDate           domain.Date     `json:"as_of_date"`
	ExpectedBalance    decimal.Decimal `json:"expected_balance"`
	ActualBalance      decimal.Decimal `json:"actual_balance"`
	VarianceAmount     decimal.Decimal `json:"variance_amount"`
	VariancePercentage decimal.Decimal `json:"variance_percentage"`
	Severity           Severity        `json:"severity"`
	Notes              string          `json:"notes,omitempty"`
}

// VarianceOption sets optional BalanceVariance fields.
type VarianceOption func(*BalanceVariance)

func WithEntityName(name string) VarianceOption {
	return func(v *BalanceVariance) { v.EntityName = name }
}

func WithNotes(notes string) VarianceOption {
	return func(v *BalanceVariance) { v.Notes = notes }
}

// NewBalanceVariance compares expected with actual. VarianceAmount is
// actual - expected.
func NewBalanceVariance(entityType, entityID string, asOf domain.Date, expected, actual decimal.Decimal, opts ...VarianceOption) BalanceVariance {
	v := BalanceVariance{
		EntityType:         entityType,
		EntityID:           entityID,
		AsOfDate:           asOf,
		ExpectedBalance:    domain.Money(expected),
		ActualBalance:      domain.Money(actual),
		VarianceAmount:     domain.Money(actual.Sub(expected)),
		VariancePercentage: VariancePercentage(expected, actual),
		Severity:           ClassifySeverity(expected, actual),
	}
	for _, opt := range opts {
		opt(&v)
	}
	return v
}

// AccuracyReport aggregates variances for one tenant and date.
type AccuracyReport struct {
	TenantID              string            `json:"tenant_id"`
	AsOfDate              domain.Date       `json:"as_of_date"`
	GeneratedAt           time.Time         `json:"generated_at"`
	TotalEntitiesChecked  int               `json:"total_entities_checked"`
	EntitiesWithVariances int               `json:"entities_with_variances"`
	EntitiesAccurate      int               `json:"entities_accurate"`
	CriticalVariances     int               `json:"critical_variances"`
	MajorVariances        int               `json:"major_variances"`
	ModerateVariances     int               `json:"moderate_variances"`
	MinorVariances        int               `json:"minor_variances"`
	Variances             []BalanceVariance `json:"variances"`
	TotalExpected         decimal.Decimal   `json:"total_expected"`
	TotalActual           decimal.Decimal   `json:"total_actual"`
	TotalVariance         decimal.Decimal   `json:"total_variance"`
	AverageAccuracy       decimal.Decimal   `json:"average_accuracy"`
	IsAccurate            bool              `json:"is_accurate"`
	AccuracyThresholdMet  bool              `json:"accuracy_threshold_met"`
}

// GenerateAccuracyReport summarizes variances. Average accuracy is the share
// of entities graded none or minor; an empty set is 100% accurate. The report
// is not stamped with GeneratedAt, that is the caller's clock.
func GenerateAccuracyReport(tenantID string, asOf domain.Date, variances []BalanceVariance) AccuracyReport {
	report := AccuracyReport{
		TenantID:             tenantID,
		AsOfDate:             asOf,
		TotalEntitiesChecked: len(variances),
		Variances:            append([]BalanceVariance(nil), variances...),
	}

	expected := decimal.Zero
	actual := decimal.Zero
	accurate := 0

	for _, v := range variances {
		expected = expected.Add(v.ExpectedBalance)
		actual = actual.Add(v.ActualBalance)

		switch v.Severity {
		case SeverityNone:
			accurate++
		case SeverityMinor:
			report.MinorVariances++
			accurate++
		case SeverityModerate:
			report.ModerateVariances++
		case SeverityMajor:
			report.MajorVariances++
		case SeverityCritical:
			report.CriticalVariances++
		}
	}

	report.EntitiesWithVariances = report.MinorVariances + report.ModerateVariances + report.MajorVariances + report.CriticalVariances
	report.EntitiesAccurate = report.TotalEntitiesChecked - report.EntitiesWithVariances
	report.TotalExpected = domain.Money(expected)
	report.TotalActual = domain.Money(actual)
	report.TotalVariance = domain.Money(actual.Sub(expected))

	if len(variances) == 0 {
		report.AverageAccuracy = hundred.Round(PercentPlaces)
	} else {
		report.AverageAccuracy = decimal.NewFromInt(int64(accurate)).
			Div(decimal.NewFromInt(int64(len(variances)))).
			Mul(hundred).
			Round(PercentPlaces)
	}

	report.IsAccurate = report.CriticalVariances == 0 && report.MajorVariances == 0
	report.AccuracyThresholdMet = report.AverageAccuracy.GreaterThanOrEqual(AccuracyThreshold)

	return report
}

// MatchesWithinTolerance reports whether |actual - expected| <= tolerance.
func MatchesWithinTolerance(expected, actual, tolerance decimal.Decimal) bool {
	return actual.Sub(expected).Abs().LessThanOrEqual(tolerance)
}

// AccuracyPercentage is 100 minus the variance percentage, clamped to [0, 100].
func AccuracyPercentage(expected, actual decimal.Decimal) decimal.Decimal {
	acc := hundred.Sub(VariancePercentage(expected, actual))
	if acc.IsNegative() {
		return decimal.Zero.Round(PercentPlaces)
	}
	return acc.Round(PercentPlaces)
}

// MemberBalanceComparison compares running totals field by field. Variances
// are actual - expected.
type MemberBalanceComparison struct {
	TenantID          string          `json:"tenant_id"`
	MemberID          string          `json:"member_id"`
	AsOfDate          domain.Date     `json:"as_of_date"`
	ExpectedTotalOwed decimal.Decimal `json:"expected_total_owed"`
	ExpectedTotalPaid decimal.Decimal `json:"expected_total_paid"`
	ExpectedBalance   decimal.Decimal `json:"expected_balance"`
	ActualTotalOwed   decimal.Decimal `json:"actual_total_owed"`
	ActualTotalPaid   decimal.Decimal `json:"actual_total_paid"`
	ActualBalance     decimal.Decimal `json:"actual_balance"`
	OwedVariance      decimal.Decimal `json:"owed_variance"`
	PaidVariance      decimal.Decimal `json:"paid_variance"`
	BalanceVariance   decimal.Decimal `json:"balance_variance"`
}

// CompareMemberBalance compares expected and actual paid/owed totals; balances
// are paid - owed.
func CompareMemberBalance(tenantID, memberID string, asOf domain.Date, expectedOwed, expectedPaid, actualOwed, actualPaid decimal.Decimal) MemberBalanceComparison {
	expectedBalance := domain.Money(expectedPaid.Sub(expectedOwed))
	actualBalance := domain.Money(actualPaid.Sub(actualOwed))

	return MemberBalanceComparison{
		TenantID:          tenantID,
		MemberID:          memberID,
		AsOfDate:          asOf,
		ExpectedTotalOwed: domain.Money(expectedOwed),
		ExpectedTotalPaid: domain.Money(expectedPaid),
		ExpectedBalance:   expectedBalance,
		ActualTotalOwed:   domain.Money(actualOwed),
		ActualTotalPaid:   domain.Money(actualPaid),
		ActualBalance:     actualBalance,
		OwedVariance:      domain.Money(actualOwed.Sub(expectedOwed)),
		PaidVariance:      domain.Money(actualPaid.Sub(expectedPaid)),
		BalanceVariance:   domain.Money(actualBalance.Sub(expectedBalance)),
	}
}

// FundBalanceComparison compares debit/credit totals field by field. Variances
// are actual - expected.
type FundBalanceComparison struct {
	TenantID        string          `json:"tenant_id"`
	FundID          string          `json:"fund_id"`
	AsOfDate        domain.Date     `json:"as_of_date"`
	ExpectedDebits  decimal.Decimal `json:"expected_debits"`
	ExpectedCredits decimal.Decimal `json:"expected_credits"`
	ExpectedBalance decimal.Decimal `json:"expected_balance"`
	ActualDebits    decimal.Decimal `json:"actual_debits"`
	ActualCredits   decimal.Decimal `json:"actual_credits"`
	ActualBalance   decimal.Decimal `json:"actual_balance"`
	DebitVariance   decimal.Decimal `json:"debit_variance"`
	CreditVariance  decimal.Decimal `json:"credit_variance"`
	BalanceVariance decimal.Decimal `json:"balance_variance"`
}

// CompareFundBalance compares expected and actual debit/credit totals; balances
// here are debits - credits, the reconciliation convention.
func CompareFundBalance(tenantID, fundID string, asOf domain.Date, expectedDebits, expectedCredits, actualDebits, actualCredits decimal.Decimal) FundBalanceComparison {
	expectedBalance := domain.Money(expectedDebits.Sub(expectedCredits))
	actualBalance := domain.Money(actualDebits.Sub(actualCredits))

	return FundBalanceComparison{
		TenantID:        tenantID,
		FundID:          fundID,
		AsOfDate:        asOf,
		ExpectedDebits:  domain.Money(expectedDebits),
		ExpectedCredits: domain.Money(expectedCredits),
		ExpectedBalance: expectedBalance,
		ActualDebits:    domain.Money(actualDebits),
		ActualCredits:   domain.Money(actualCredits),
		ActualBalance:   actualBalance,
		DebitVariance:   domain.Money(actualDebits.Sub(expectedDebits)),
		CreditVariance:  domain.Money(actualCredits.Sub(expectedCredits)),
		BalanceVariance: domain.Money(actualBalance.Sub(expectedBalance)),
	}
}
