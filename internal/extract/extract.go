// Package extract pulls structured transaction fields out of card-issuer
// alert subjects and bodies.
package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/flujo/flujo/internal/normalize"
)

// Result carries the fields recovered from one message. Merchant, Amount,
// and Currency must all be present for the result to be usable; Last4 is
// best-effort.
type Result struct {
	Amount   *decimal.Decimal
	Merchant string
	Currency string
	Last4    string
	Matcher  string
}

// Usable reports whether the result is complete enough to promote.
func (r Result) Usable() bool {
	return r.Merchant != "" && r.Amount != nil && r.Currency != ""
}

// matcher pairs a compiled pattern with a name for diagnostics. Field
// recovery goes through named capture groups (merchant, currency, amount,
// last4), so the chain stays data plus one evaluation loop.
type matcher struct {
	re   *regexp.Regexp
	name string
}

// subjectMatchers run against the subject line only. Issuer alert subjects
// follow a fixed template.
var subjectMatchers = []matcher{
	{
		name: "subject-combined",
		re:   regexp.MustCompile(`(?i)compra\s+(?:aprobada|autorizada|realizada)\s+en\s+(?P<merchant>.+?)\s+por\s+(?P<currency>U\$S|US\$|AR\$|[A-Z]{3}|\$)\s*(?P<amount>[\d.,]+)(?:\s+con\s+(?:tu\s+)?tarjeta\s+(?:terminada\s+en\s+)?\*{0,4}(?P<last4>\d{4}))?`),
	},
}

// bodyMatchers run against the combined plain-text body, strictest first.
var bodyMatchers = []matcher{
	{
		name: "body-consumo",
		re:   regexp.MustCompile(`(?i)se\s+(?:realiz[oó]|registr[oó]|aprob[oó])\s+(?:una\s+compra|un\s+consumo|un\s+pago)\s+por\s+(?P<currency>U\$S|US\$|AR\$|[A-Z]{3}|\$)\s*(?P<amount>[\d.,]+)\s+en\s+(?P<merchant>[^\n.]+?)\s+con\s+(?:la\s+|tu\s+)?tarjeta\s+(?:terminada\s+en\s+)?\*{0,4}(?P<last4>\d{4})`),
	},
	{
		name: "body-autorizado",
		re:   regexp.MustCompile(`(?i)(?:compra|consumo|pago)\s+autorizad[oa][\s\S]{0,160}?(?P<currency>U\$S|US\$|AR\$|ARS|USD|\$)\s*(?P<amount>[\d.,]+)[\s\S]{0,120}?\ben\s+(?P<merchant>[^\n.]+)`),
	},
	{
		name: "body-minimal",
		re:   regexp.MustCompile(`(?i)\ben\s+(?P<merchant>[^\n.]{3,}?)\s+por\s+(?:un\s+(?:total|importe)\s+de\s+)?(?P<currency>U\$S|US\$|AR\$|ARS|USD|\$)?\s*(?P<amount>\d[\d.,]*)`),
	},
}

// last4Pattern recovers a card tail anywhere in the body when the winning
// matcher did not capture one.
var last4Pattern = regexp.MustCompile(`(?i)(?:tarjeta|term(?:inada)?\s+en|\*{2,})\D{0,12}?(\d{4})\b`)

// Engine evaluates the matcher chain with a configured default currency.
type Engine struct {
	defaultCurrency string
}

// NewEngine creates an extraction engine. defaultCurrency fills in when a
// matcher finds no currency token (e.g. a bare "$").
func NewEngine(defaultCurrency string) *Engine {
	return &Engine{defaultCurrency: defaultCurrency}
}

// FromSubject runs only the subject chain.
func (e *Engine) FromSubject(subject string) Result {
	for _, m := range subjectMatchers {
		if r, ok := e.eval(m, subject); ok {
			return r
		}
	}
	return Result{}
}

// FromMessage runs the full chain: subject template first, then the body
// patterns in order. The first matcher yielding a usable result wins; field
// sets are never merged across matchers, so a currency from one template
// cannot contaminate an amount from another.
func (e *Engine) FromMessage(subject, body string) Result {
	if r := e.FromSubject(subject); r.Usable() {
		if r.Last4 == "" {
			r.Last4 = findLast4(body)
		}
		return r
	}
	for _, m := range bodyMatchers {
		if r, ok := e.eval(m, body); ok {
			if r.Last4 == "" {
				r.Last4 = findLast4(body)
			}
			return r
		}
	}
	return Result{}
}

func (e *Engine) eval(m matcher, text string) (Result, bool) {
	groups := m.re.FindStringSubmatch(text)
	if groups == nil {
		return Result{}, false
	}

	r := Result{Matcher: m.name}
	for i, name := range m.re.SubexpNames() {
		if i == 0 || i >= len(groups) {
			continue
		}
		switch name {
		case "merchant":
			r.Merchant = normalize.CleanMerchant(groups[i])
		case "currency":
			r.Currency = e.normalizeCurrency(groups[i])
		case "amount":
			r.Amount = normalize.ParseAmount(groups[i])
		case "last4":
			r.Last4 = groups[i]
		}
	}
	if r.Currency == "" {
		r.Currency = e.defaultCurrency
	}
	if !r.Usable() {
		return Result{}, false
	}
	return r, true
}

func (e *Engine) normalizeCurrency(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "":
		return ""
	case "$", "AR$", "ARS":
		if e.defaultCurrency != "" && strings.TrimSpace(raw) == "$" {
			return e.defaultCurrency
		}
		return "ARS"
	case "U$S", "US$", "USD":
		return "USD"
	default:
		return strings.ToUpper(strings.TrimSpace(raw))
	}
}

func findLast4(body string) string {
	if groups := last4Pattern.FindStringSubmatch(body); groups != nil {
		return groups[1]
	}
	return ""
}
