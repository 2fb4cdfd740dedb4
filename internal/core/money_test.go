package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"1200.00", 120000, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"1e3", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyFormatting(t *testing.T) {
	if got := (Money{Cents: 120450}).String(); got != "1204.50" {
		t.Fatalf("String() = %q, want 1204.50", got)
	}
	if got := (Money{Cents: 5}).String(); got != "0.05" {
		t.Fatalf("String() = %q, want 0.05", got)
	}
	if got := MoneyFromDecimal(decimal.RequireFromString("4.505")); got.Cents != 451 {
		t.Fatalf("MoneyFromDecimal = %d, want 451", got.Cents)
	}
	if !(Money{Cents: 450}).Decimal().Equal(decimal.RequireFromString("4.5")) {
		t.Fatalf("Decimal() mismatch")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 0}).Validate(); err != nil {
		t.Fatalf("expected zero to be valid, got %v", err)
	}
	if err := (Money{Cents: -1}).Validate(); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}
