// Package rules evaluates user-defined merchant rules against promoted
// transactions.
package rules

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/flujo/flujo/internal/model"
	"github.com/flujo/flujo/internal/normalize"
)

// Matcher evaluates merchant rules in deterministic order: ascending
// priority, then rule ID as the tiebreak.
type Matcher struct {
	compiled map[int64]*regexp.Regexp
	rules    []model.MerchantRule
}

// NewMatcher creates a matcher over the given rules. Regex patterns are
// pre-compiled; a malformed pattern disables its rule rather than failing
// the batch.
func NewMatcher(ruleList []model.MerchantRule) *Matcher {
	m := &Matcher{
		rules:    make([]model.MerchantRule, len(ruleList)),
		compiled: make(map[int64]*regexp.Regexp),
	}
	copy(m.rules, ruleList)

	sort.SliceStable(m.rules, func(i, j int) bool {
		if m.rules[i].Priority != m.rules[j].Priority {
			return m.rules[i].Priority < m.rules[j].Priority
		}
		return m.rules[i].ID < m.rules[j].ID
	})

	for _, rule := range m.rules {
		if rule.IsRegex && rule.Pattern != "" {
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				slog.Warn("Skipping merchant rule with invalid regex",
					"rule_id", rule.ID,
					"pattern", rule.Pattern,
					"error", err)
				continue
			}
			m.compiled[rule.ID] = re
		}
	}

	return m
}

// Match returns the first active rule whose pattern matches the merchant, or
// nil when no rule applies. Substring rules compare on normalized text;
// regex rules run against the merchant as stored.
func (m *Matcher) Match(merchant string) *model.MerchantRule {
	if merchant == "" {
		return nil
	}
	folded := normalize.ForMatch(merchant)

	for i := range m.rules {
		rule := &m.rules[i]
		if !rule.IsActive || rule.Pattern == "" {
			continue
		}

		if rule.IsRegex {
			re, ok := m.compiled[rule.ID]
			if !ok {
				continue
			}
			if re.MatchString(merchant) {
				return rule
			}
			continue
		}

		if strings.Contains(folded, normalize.ForMatch(rule.Pattern)) {
			return rule
		}
	}

	return nil
}
