package utils

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a price as typed in the shop UI: thousands separators
// (",", "٬", "،"), spaces and Persian digits are accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := strings.Map(func(r rune) rune {
		switch {
		case r == ',' || r == '٬' || r == '،' || r == '_':
			return -1
		case r == '٫':
			return '.'
		case unicode.IsSpace(r):
			return -1
		}
		return r
	}, FoldDigits(s))

	if raw == "" {
		return decimal.Zero, &ParseError{Kind: "amount", Input: s, Reason: "empty"}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &ParseError{Kind: "amount", Input: s, Reason: "not a number"}
	}
	return d, nil
}

// AmountOrZero is ParseAmount with malformed input counted as zero.
func AmountOrZero(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
