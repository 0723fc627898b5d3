package domain

import (
	"github.com/shopspring/decimal"
)

// FundType classifies a fund.
type FundType string

const (
	FundTypeOperating          FundType = "operating"
	FundTypeReserve            FundType = "reserve"
	FundTypeSpecialAssessment  FundType = "special_assessment"
	FundTypeCapitalImprovement FundType = "capital_improvement"
	FundTypeContingency        FundType = "contingency"
)

// Fund is a named pool of money with a running balance.
type Fund struct {
	ID                   string           `json:"id"`
	TenantID             string           `json:"tenant_id"`
	PropertyID           string           `json:"property_id"`
	Name                 string           `json:"name"`
	Type                 FundType         `json:"fund_type"`
	CurrentBalance       decimal.Decimal  `json:"current_balance"`
	MinimumBalance       decimal.Decimal  `json:"minimum_balance"`
	TargetBalance        *decimal.Decimal `json:"target_balance,omitempty"`
	AllowNegativeBalance bool             `json:"allow_negative_balance"`
	IsActive             bool             `json:"is_active"`
}

// IsBelowMinimum reports a breach of the minimum balance, ignoring funds that
// permit negative balances.
func (f *Fund) IsBelowMinimum() bool {
	if f.AllowNegativeBalance {
		return false
	}
	return f.CurrentBalance.LessThan(f.MinimumBalance)
}

// IsUnderfunded reports whether the fund is short of its target.
func (f *Fund) IsUnderfunded() bool {
	if f.TargetBalance == nil {
		return false
	}
	return f.CurrentBalance.LessThan(*f.TargetBalance)
}

// FundingPercentage is current/target*100, or nil without a positive target.
func (f *Fund) FundingPercentage() *decimal.Decimal {
	if f.TargetBalance == nil || !f.TargetBalance.IsPositive() {
		return nil
	}
	pct := f.CurrentBalance.Div(*f.TargetBalance).Mul(decimal.NewFromInt(100)).Round(MoneyPlaces)
	return &pct
}

func (f *Fund) EntityID() string       { return f.ID }
func (f *Fund) EntityTenant() string   { return f.TenantID }
func (f *Fund) EntityKind() EntityKind { return EntityKindFund }
