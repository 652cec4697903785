package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
	}{
		{"1500", 150000},
		{"1500.50", 150050},
		{"1500,50", 150050},
		{"1.234,50", 123450},
		{"0.01", 1},
		{" 2.50 ", 250},
		{"", 0},
		{"not-a-number", 0},
		{"-80", 0}, // negative input coerces to zero
		{"1.2.3", 0},
	}
	for _, tc := range cases {
		if got := ParseAmount(tc.in); got.Cents != tc.cents {
			t.Fatalf("%q expected %d cents, got %d", tc.in, tc.cents, got.Cents)
		}
	}
}

func TestMoneyFromFloat(t *testing.T) {
	cases := []struct {
		in    float64
		cents int64
	}{
		{1234.5, 123450},
		{0.005, 1}, // half-up
		{0, 0},
		{-80, 0},
	}
	for _, tc := range cases {
		if got := MoneyFromFloat(tc.in); got.Cents != tc.cents {
			t.Fatalf("%v expected %d cents, got %d", tc.in, tc.cents, got.Cents)
		}
	}
}

func TestFormatBRL(t *testing.T) {
	cases := []struct {
		cents int64
		out   string
	}{
		{123450, "R$ 1.234,50"},
		{150000, "R$ 1.500,00"},
		{183000, "R$ 1.830,00"},
		{100000000, "R$ 1.000.000,00"},
		{50, "R$ 0,50"},
		{0, "R$ 0,00"},
		{-8000, "R$ -80,00"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).FormatBRL(); got != tc.out {
			t.Fatalf("%d cents expected %q, got %q", tc.cents, tc.out, got)
		}
	}
}

func TestFormatBRLCoercedInput(t *testing.T) {
	// A bad amount formats as the zero amount, never an error.
	if got := ParseAmount("not-a-number").FormatBRL(); got != "R$ 0,00" {
		t.Fatalf("expected zero formatting, got %q", got)
	}
}
