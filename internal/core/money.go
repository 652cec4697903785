// Package core holds the billing domain: properties, configurations,
// monthly ledger records and the statement arithmetic derived from them.
//
// This file contains money parsing and the fixed locale formatting used on
// statements: two decimals, comma as decimal separator, period as thousands
// separator, literal "R$" prefix.
package core

import (
	"math"
	"strconv"
	"strings"
)

// Money is an amount in cents. Charge amounts are always non-negative;
// computed totals may go negative when discounts exceed the subtotal.
type Money struct {
	Cents int64
}

// ParseAmount converts free-form user input to Money. Both comma and dot
// decimal separators are accepted. Anything that does not parse as a number,
// and any negative value, coerces silently to zero: data entry must never
// fail on a bad amount.
func ParseAmount(s string) Money {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}
	}
	// "1.234,50" style input: strip thousands dots before normalizing the comma
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Money{}
	}
	return MoneyFromFloat(v)
}

// MoneyFromFloat converts a currency value in whole units to cents with
// half-up rounding. Negative and non-finite values coerce to zero.
func MoneyFromFloat(v float64) Money {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return Money{}
	}
	return Money{Cents: int64(math.Round(v * 100))}
}

// Float returns the value in whole currency units, for JSON responses.
// Use cents for arithmetic.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// FormatBRL renders the amount as "R$ 1.234,50". Negative amounts keep the
// sign after the prefix, matching how totals are shown on the statement.
func (m Money) FormatBRL() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100

	digits := strconv.FormatInt(whole, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return "R$ " + sign + b.String() + "," + pad2(frac)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
