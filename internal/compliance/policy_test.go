package compliance_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/hoaledger/internal/compliance"
	"github.com/iho/hoaledger/internal/domain"
)

func TestEvaluate_DefaultPolicy(t *testing.T) {
	t.Parallel()

	asOf := domain.NewDate(2024, 6, 30)
	accuracy := compliance.GenerateAccuracyReport("tenant-a", asOf, []compliance.BalanceVariance{
		compliance.NewBalanceVariance(compliance.EntityMember, "m1", asOf, money("100.00"), money("100.00")),
	})
	immutability, err := compliance.GenerateImmutabilityReport("tenant-a", nil, nil)
	require.NoError(t, err)

	facts := compliance.FactsFromAccuracy(accuracy).Merge(compliance.FactsFromImmutability(immutability))
	results := compliance.Evaluate(compliance.DefaultCompliancePolicy(), facts)

	require.Len(t, results, 4)
	assert.True(t, compliance.Passed(results), "%+v", results)
}

func TestEvaluate_FailuresAndMissingFacts(t *testing.T) {
	t.Parallel()

	var facts compliance.Facts
	facts.SetNumber(compliance.FactCriticalVariances, decimal.NewFromInt(2))
	facts.SetFlag(compliance.FactIsImmutable, false)

	results := compliance.Evaluate(compliance.DefaultCompliancePolicy(), facts)
	require.Len(t, results, 4)

	assert.False(t, results[0].Passed)
	assert.Equal(t, compliance.PolicyLevelCritical, results[0].Level)
	assert.Contains(t, results[0].Message, "critical_variances is 2")

	assert.False(t, results[1].Passed)
	assert.Contains(t, results[1].Message, "missing")

	assert.False(t, results[2].Passed)
	assert.False(t, results[3].Passed)
	assert.False(t, compliance.Passed(results))
}

func TestThresholdRule_Operators(t *testing.T) {
	t.Parallel()

	var facts compliance.Facts
	facts.SetNumber(compliance.FactAverageAccuracy, decimal.NewFromInt(99))

	tests := []struct {
		op   compliance.Comparison
		want bool
	}{
		{compliance.LessThan, false},
		{compliance.LessThanOrEqual, true},
		{compliance.GreaterThan, false},
		{compliance.GreaterThanOrEqual, true},
		{compliance.Equal, true},
		{compliance.NotEqual, false},
		{compliance.Comparison("~"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			rule := compliance.ThresholdRule{Name: "r", Fact: compliance.FactAverageAccuracy, Op: tt.op, Value: decimal.NewFromInt(99)}
			res := compliance.Evaluate([]compliance.Rule{rule}, facts)
			assert.Equal(t, tt.want, res[0].Passed)
		})
	}
}
