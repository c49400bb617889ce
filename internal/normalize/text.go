package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Boundary markers that terminate the merchant portion of an alert body.
// Issuer templates append card, country, and legal metadata after the
// merchant name.
var merchantBoundaries = []string{
	"país:",
	"pais:",
	"tarjeta:",
	"fecha:",
	"hora:",
	"cuotas:",
	"importante:",
	"si no reconoc",
	"si desconoc",
	"este es un mensaje",
	"el presente correo",
}

// Boilerplate phrases that disqualify a cleaned merchant outright. A match
// means the pattern captured footer text, not a merchant.
var merchantBoilerplate = []string{
	"mensaje automatico",
	"no responder",
	"no responda este",
	"todos los derechos",
	"terminos y condiciones",
	"atencion al cliente",
}

const (
	merchantMaxLen    = 80
	merchantSoftBreak = 40
)

var stripMarks = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// ForMatch folds a string for "contains" comparisons: lowercase, diacritics
// stripped, whitespace collapsed to single spaces.
func ForMatch(s string) string {
	lowered := strings.ToLower(s)
	if folded, _, err := transform.String(stripMarks, lowered); err == nil {
		lowered = folded
	}
	return strings.Join(strings.Fields(lowered), " ")
}

// CleanMerchant truncates raw merchant text at the first boundary marker,
// trims trailing punctuation, and caps the length. Returns "" when the
// result is empty or looks like footer boilerplate.
func CleanMerchant(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return ""
	}

	// Lowercasing keeps byte offsets aligned with s, unlike diacritic
	// stripping, so the boundary list carries both accented and plain
	// spellings.
	lowered := strings.ToLower(s)
	cut := len(s)
	for _, marker := range merchantBoundaries {
		if idx := strings.Index(lowered, marker); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	if cut < len(s) {
		s = s[:cut]
	}

	s = strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})

	// The cap counts runes, not bytes; a byte slice could split a
	// multibyte character.
	if r := []rune(s); len(r) > merchantMaxLen {
		truncated := r[:merchantMaxLen]
		end := len(truncated)
		for i := len(truncated) - 1; i > merchantSoftBreak; i-- {
			if truncated[i] == ' ' {
				end = i
				break
			}
		}
		s = strings.TrimRightFunc(string(truncated[:end]), func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSpace(r)
		})
	}

	if s == "" {
		return ""
	}

	foldedOut := ForMatch(s)
	for _, phrase := range merchantBoilerplate {
		if strings.Contains(foldedOut, phrase) {
			return ""
		}
	}

	return s
}
