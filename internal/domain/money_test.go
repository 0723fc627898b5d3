package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoney_ExactAddition(t *testing.T) {
	t.Parallel()

	sum := SumMoney(MustMoney("0.10"), MustMoney("0.20"))
	if !sum.Equal(MustMoney("0.30")) {
		t.Fatalf("expected 0.30, got %s", sum)
	}
	if got := sum.StringFixed(MoneyPlaces); got != "0.30" {
		t.Fatalf("unexpected rendering %q", got)
	}
	if sum.Exponent() != -MoneyPlaces {
		t.Fatalf("expected exponent -2, got %d", sum.Exponent())
	}
}

func TestMoney_RoundsHalfUp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1.00"},
		{"-1.005", "-1.01"},
		{"2.675", "2.68"},
		{"7", "7.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Money(decimal.RequireFromString(tt.in)).StringFixed(MoneyPlaces)
			if got != tt.want {
				t.Fatalf("Money(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestTransaction_MarshalJSONKeepsCents(t *testing.T) {
	t.Parallel()

	txn := &Transaction{ID: "t1", Type: TransactionTypeDuesPayment, Amount: MustMoney("300.00")}
	data, err := json.Marshal(txn)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"amount":"300.00"`) {
		t.Fatalf("expected amount 300.00, got %s", data)
	}

	var back Transaction
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Amount.Equal(txn.Amount) || back.ID != "t1" {
		t.Fatalf("round trip changed the transaction: %+v", back)
	}
}

func TestMoneyFromString(t *testing.T) {
	t.Parallel()

	if _, err := MoneyFromString("12.345"); !errors.Is(err, ErrInvalidPrecision) {
		t.Fatalf("expected ErrInvalidPrecision, got %v", err)
	}

	if _, err := MoneyFromString("abc"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	d, err := MoneyFromString("12.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.StringFixed(MoneyPlaces) != "12.50" || d.Exponent() != -2 {
		t.Fatalf("expected 12.50 quantized, got %s (exp %d)", d, d.Exponent())
	}
}

func TestDate(t *testing.T) {
	t.Parallel()

	d, err := ParseDate("2024-02-28")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if next := d.AddDays(1); next.String() != "2024-02-29" {
		t.Fatalf("expected leap day, got %s", next)
	}

	if !d.InRange(NewDate(2024, 2, 1), NewDate(2024, 2, 28)) {
		t.Fatal("expected inclusive range to contain its end date")
	}

	if _, err := ParseDate("2024-13-01"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}

	if err := ValidateRange(NewDate(2024, 3, 1), NewDate(2024, 1, 1)); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}

	var round Date
	text, _ := d.MarshalText()
	if err := round.UnmarshalText(text); err != nil || !round.Equal(d) {
		t.Fatalf("text round trip lost the date: %v %s", err, round)
	}
}
