package core

import "testing"

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
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.001", 0, false},
		{"1e3", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"10000000000", 1_000_000_000_000, true},
		{"10000000000.01", 0, false},
		{"50000000000000000", 0, false},
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
	cases := []struct {
		m     Money
		str   string
		units float64
	}{
		{Money{Cents: 50000}, "500.00", 500},
		{Money{Cents: 1250}, "12.50", 12.5},
		{Money{Cents: 1}, "0.01", 0.01},
	}
	for _, tc := range cases {
		if got := tc.m.String(); got != tc.str {
			t.Errorf("Money{%d}.String() = %q, want %q", tc.m.Cents, got, tc.str)
		}
		if got := tc.m.Units(); got != tc.units {
			t.Errorf("Money{%d}.Units() = %v, want %v", tc.m.Cents, got, tc.units)
		}
	}
}

func TestMoneyFromUnits(t *testing.T) {
	if got := MoneyFromUnits(12.5); got.Cents != 1250 {
		t.Fatalf("MoneyFromUnits(12.5) = %d cents, want 1250", got.Cents)
	}
	if got := MoneyFromUnits(100); got.Cents != 10000 {
		t.Fatalf("MoneyFromUnits(100) = %d cents, want 10000", got.Cents)
	}
}

func TestMoneyValidateCeiling(t *testing.T) {
	for _, tc := range []struct {
		cents int64
		ok    bool
	}{
		{1, true},
		{MaxAmountCents, true},
		{MaxAmountCents + 1, false},
		{0, false},
	} {
		err := Money{Cents: tc.cents}.Validate()
		if (err == nil) != tc.ok {
			t.Errorf("Money{%d}.Validate() = %v, want ok=%t", tc.cents, err, tc.ok)
		}
	}
}
