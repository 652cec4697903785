package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Month tokens are stored as "YYYY-MM" and displayed as "MM/YYYY". The two
// display converters are deliberately lenient: a malformed token is returned
// unchanged so that rendering never fails on historical data. Write paths go
// through NormalizeMonth instead, which does validate.

// MonthToDisplay converts "2026-02" to "02/2026".
func MonthToDisplay(month string) string {
	y, m, ok := splitMonth(month, "-", 0, 1)
	if !ok {
		return month
	}
	return fmt.Sprintf("%02d/%04d", m, y)
}

// DisplayToMonth converts "02/2026" to "2026-02".
func DisplayToMonth(display string) string {
	y, m, ok := splitMonth(display, "/", 1, 0)
	if !ok {
		return display
	}
	return fmt.Sprintf("%04d-%02d", y, m)
}

// NormalizeMonth accepts a token in either stored ("2026-02") or display
// ("02/2026") form and returns the canonical zero-padded stored form.
// Returns ErrInvalidMonth for anything unparseable or a month outside 1..12.
func NormalizeMonth(s string) (string, error) {
	s = strings.TrimSpace(s)
	var y, m int
	var ok bool
	switch {
	case strings.Contains(s, "-"):
		y, m, ok = splitMonth(s, "-", 0, 1)
	case strings.Contains(s, "/"):
		y, m, ok = splitMonth(s, "/", 1, 0)
	}
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	if m < 1 || m > 12 || y < 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return fmt.Sprintf("%04d-%02d", y, m), nil
}

// splitMonth splits s on sep and reads the year and month from the given
// positions. ok is false when s is not two integer parts.
func splitMonth(s, sep string, yearIdx, monthIdx int) (year, month int, ok bool) {
	parts := strings.Split(s, sep)
	if len(parts) != 2 {
		return 0, 0, false
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[yearIdx]))
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[monthIdx]))
	if err != nil {
		return 0, 0, false
	}
	return y, m, true
}
