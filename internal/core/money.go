// Package core provides money parsing and handling utilities.
//
// Amounts are whole won. There is no fractional subunit, so parsing rejects
// decimal points instead of rounding them away.
package core

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// ParseWon converts a user-entered amount to whole won.
//
// Thousands separators, surrounding spaces and a trailing "원" are accepted.
// Signs, decimal points and zero are rejected.
//
// Examples:
//
//	ParseWon("15000")    -> 15000, nil
//	ParseWon("15,000원") -> 15000, nil
//	ParseWon("1.5")      -> 0, ErrInvalidAmount
func ParseWon(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "원")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatWon renders an amount with thousands separators, e.g. "15,000원".
func FormatWon(won int64) string {
	return humanize.Comma(won) + "원"
}

// String implements fmt.Stringer.
func (m Money) String() string {
	return FormatWon(m.Won)
}
