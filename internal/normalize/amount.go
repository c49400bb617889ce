// Package normalize holds the pure text and amount normalization helpers
// shared by extraction, filtering, and rule matching.
package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencyTokens = []string{"U$S", "US$", "AR$", "ARS", "USD", "$"}

// ParseAmount parses a localized numeric string into a decimal amount.
// When both "." and "," are present, "." is assumed to be the thousands
// separator and "," the decimal separator (Latin-American convention). A
// lone "," is treated as the decimal separator. Ambiguous inputs like
// "1,234" are therefore read as decimals. Returns nil when the input does
// not parse.
func ParseAmount(raw string) *decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	upper := strings.ToUpper(s)
	for _, tok := range currencyTokens {
		upper = strings.ReplaceAll(upper, tok, "")
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', ' ':
			return -1
		}
		return r
	}, upper)

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")
	switch {
	case hasDot && hasComma:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	d = d.Round(2)
	return &d
}
