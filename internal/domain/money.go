package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits every monetary value carries.
const MoneyPlaces = 2

// ZeroMoney is 0.00 with the money exponent.
var ZeroMoney = Money(decimal.Zero)

// Money quantizes d to cents, rounding half away from zero.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// MoneyFromString parses a monetary amount. Amounts with more than two
// significant fractional digits are rejected rather than rounded.
func MoneyFromString(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a decimal amount", ErrInvalidAmount, s)
	}
	if !IsMoneyPrecision(d) {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrInvalidPrecision, s)
	}
	return Money(d), nil
}

// MustMoney is MoneyFromString for constants and fixtures.
func MustMoney(s string) decimal.Decimal {
	d, err := MoneyFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsMoneyPrecision reports whether d is representable in whole cents.
func IsMoneyPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyPlaces))
}

// SumMoney adds amounts and quantizes the total.
func SumMoney(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return Money(total)
}

// FixedMoney marshals as a JSON string with exactly MoneyPlaces fractional
// digits, so 300 renders as "300.00". It decodes into a plain decimal.Decimal.
type FixedMoney decimal.Decimal

func (m FixedMoney) MarshalJSON() ([]byte, error) {
	return []byte(`"` + decimal.Decimal(m).StringFixed(MoneyPlaces) + `"`), nil
}
