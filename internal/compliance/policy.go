package compliance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Fact names a value derived from a compliance report.
type Fact string

const (
	FactIsAccurate           Fact = "is_accurate"
	FactAccuracyThresholdMet Fact = "accuracy_threshold_met"
	FactAverageAccuracy      Fact = "average_accuracy"
	FactCriticalVariances    Fact = "critical_variances"
	FactMajorVariances       Fact = "major_variances"
	FactIsImmutable          Fact = "is_immutable"
	FactEntriesWithUpdates   Fact = "entries_with_updates"
	FactEntriesDeleted       Fact = "entries_deleted"
	FactReversingEntries     Fact = "reversing_entries"
)

// Facts holds numeric and boolean facts. The zero value is empty and usable.
type Facts struct {
	numbers map[Fact]decimal.Decimal
	flags   map[Fact]bool
}

func (f *Facts) SetNumber(name Fact, v decimal.Decimal) {
	if f.numbers == nil {
		f.numbers = make(map[Fact]decimal.Decimal)
	}
	f.numbers[name] = v
}

func (f *Facts) SetFlag(name Fact, v bool) {
	if f.flags == nil {
		f.flags = make(map[Fact]bool)
	}
	f.flags[name] = v
}

func (f Facts) Number(name Fact) (decimal.Decimal, bool) {
	v, ok := f.numbers[name]
	return v, ok
}

func (f Facts) Flag(name Fact) (bool, bool) {
	v, ok := f.flags[name]
	return v, ok
}

func (f Facts) Has(name Fact) bool {
	_, num := f.numbers[name]
	_, flag := f.flags[name]
	return num || flag
}

// Merge returns a new Facts with other's values taking precedence.
func (f Facts) Merge(other Facts) Facts {
	var out Facts
	for k, v := range f.numbers {
		out.SetNumber(k, v)
	}
	for k, v := range f.flags {
		out.SetFlag(k, v)
	}
	for k, v := range other.numbers {
		out.SetNumber(k, v)
	}
	for k, v := range other.flags {
		out.SetFlag(k, v)
	}
	return out
}

// FactsFromAccuracy extracts policy facts from an accuracy report.
func FactsFromAccuracy(r AccuracyReport) Facts {
	var f Facts
	f.SetFlag(FactIsAccurate, r.IsAccurate)
	f.SetFlag(FactAccuracyThresholdMet, r.AccuracyThresholdMet)
	f.SetNumber(FactAverageAccuracy, r.AverageAccuracy)
	f.SetNumber(FactCriticalVariances, decimal.NewFromInt(int64(r.CriticalVariances)))
	f.SetNumber(FactMajorVariances, decimal.NewFromInt(int64(r.MajorVariances)))
	return f
}

// FactsFromImmutability extracts policy facts from an immutability report.
func FactsFromImmutability(r ImmutabilityReport) Facts {
	var f Facts
	f.SetFlag(FactIsImmutable, r.IsImmutable)
	f.SetNumber(FactEntriesWithUpdates, decimal.NewFromInt(int64(r.EntriesWithUpdates)))
	f.SetNumber(FactEntriesDeleted, decimal.NewFromInt(int64(r.EntriesDeleted)))
	f.SetNumber(FactReversingEntries, decimal.NewFromInt(int64(r.ReversingEntries)))
	return f
}

// PolicyLevel is how serious a failed rule is.
type PolicyLevel string

const (
	PolicyLevelInfo     PolicyLevel = "info"
	PolicyLevelWarning  PolicyLevel = "warning"
	PolicyLevelError    PolicyLevel = "error"
	PolicyLevelCritical PolicyLevel = "critical"
)

// PolicyResult is the outcome of one rule.
type PolicyResult struct {
	Rule    string      `json:"rule"`
	Level   PolicyLevel `json:"level"`
	Passed  bool        `json:"passed"`
	Message string      `json:"message,omitempty"`
}

// Rule is one of ThresholdRule, EqualityRule or RequiredFactRule.
type Rule interface {
	evaluate(Facts) PolicyResult
}

// Comparison is the operator of a ThresholdRule.
type Comparison string

const (
	LessThan           Comparison = "<"
	LessThanOrEqual    Comparison = "<="
	GreaterThan        Comparison = ">"
	GreaterThanOrEqual Comparison = ">="
	Equal              Comparison = "=="
	NotEqual           Comparison = "!="
)

// ThresholdRule passes when the numeric fact compares true against Value.
type ThresholdRule struct {
	Name  string
	Level PolicyLevel
	Fact  Fact
	Op    Comparison
	Value decimal.Decimal
}

func (r ThresholdRule) evaluate(f Facts) PolicyResult {
	res := PolicyResult{Rule: r.Name, Level: r.Level}

	got, ok := f.Number(r.Fact)
	if !ok {
		res.Message = fmt.Sprintf("fact %s is missing", r.Fact)
		return res
	}

	cmp := got.Cmp(r.Value)
	switch r.Op {
	case LessThan:
		res.Passed = cmp < 0
	case LessThanOrEqual:
		res.Passed = cmp <= 0
	case GreaterThan:
		res.Passed = cmp > 0
	case GreaterThanOrEqual:
		res.Passed = cmp >= 0
	case Equal:
		res.Passed = cmp == 0
	case NotEqual:
		res.Passed = cmp != 0
	default:
		res.Message = fmt.Sprintf("unknown comparison %q", r.Op)
		return res
	}

	if !res.Passed {
		res.Message = fmt.Sprintf("%s is %s, want %s %s", r.Fact, got, r.Op, r.Value)
	}
	return res
}

// EqualityRule passes when the boolean fact equals Want.
type EqualityRule struct {
	Name  string
	Level PolicyLevel
	Fact  Fact
	Want  bool
}

func (r EqualityRule) evaluate(f Facts) PolicyResult {
	res := PolicyResult{Rule: r.Name, Level: r.Level}

	got, ok := f.Flag(r.Fact)
	if !ok {
		res.Message = fmt.Sprintf("fact %s is missing", r.Fact)
		return res
	}

	res.Passed = got == r.Want
	if !res.Passed {
		res.Message = fmt.Sprintf("%s is %t, want %t", r.Fact, got, r.Want)
	}
	return res
}

// RequiredFactRule passes when the fact is present.
type RequiredFactRule struct {
	Name  string
	Level PolicyLevel
	Fact  Fact
}

func (r RequiredFactRule) evaluate(f Facts) PolicyResult {
	res := PolicyResult{Rule: r.Name, Level: r.Level, Passed: f.Has(r.Fact)}
	if !res.Passed {
		res.Message = fmt.Sprintf("fact %s is missing", r.Fact)
	}
	return res
}

// Evaluate runs every rule against facts, in order.
func Evaluate(rules []Rule, facts Facts) []PolicyResult {
	results := make([]PolicyResult, 0, len(rules))
	for _, r := range rules {
		results = append(results, r.evaluate(facts))
	}
	return results
}

// Passed reports whether every result passed.
func Passed(results []PolicyResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// DefaultCompliancePolicy requires no critical variance, at least 99% average
// accuracy and an immutable ledger.
func DefaultCompliancePolicy() []Rule {
	return []Rule{
		ThresholdRule{Name: "no-critical-variances", Level: PolicyLevelCritical, Fact: FactCriticalVariances, Op: Equal, Value: decimal.Zero},
		ThresholdRule{Name: "average-accuracy", Level: PolicyLevelError, Fact: FactAverageAccuracy, Op: GreaterThanOrEqual, Value: AccuracyThreshold},
		EqualityRule{Name: "ledger-immutable", Level: PolicyLevelCritical, Fact: FactIsImmutable, Want: true},
		RequiredFactRule{Name: "reversals-counted", Level: PolicyLevelInfo, Fact: FactReversingEntries},
	}
}
