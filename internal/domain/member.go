package domain

import (
	"github.com/shopspring/decimal"
)

// MemberType is the role of a member in the association.
type MemberType string

const (
	MemberTypeOwner       MemberType = "owner"
	MemberTypeTenant      MemberType = "tenant"
	MemberTypeBoardMember MemberType = "board_member"
)

// Member carries a running balance of total paid minus total owed.
type Member struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenant_id"`
	PropertyID     string          `json:"property_id"`
	UnitID         string          `json:"unit_id,omitempty"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Email          string          `json:"email,omitempty"`
	Type           MemberType      `json:"member_type"`
	IsActive       bool            `json:"is_active"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	TotalOwed      decimal.Decimal `json:"total_owed"`
}

func (m *Member) FullName() string {
	return m.FirstName + " " + m.LastName
}

// ComputedBalance derives the balance from the running totals.
func (m *Member) ComputedBalance() decimal.Decimal {
	return Money(m.TotalPaid.Sub(m.TotalOwed))
}

// IsDelinquent reports whether the member owes money.
func (m *Member) IsDelinquent() bool {
	return m.CurrentBalance.IsNegative()
}

func (m *Member) EntityID() string       { return m.ID }
func (m *Member) EntityTenant() string   { return m.TenantID }
func (m *Member) EntityKind() EntityKind { return EntityKindMember }
