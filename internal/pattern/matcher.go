// Package pattern matches statement merchants against category rules. Rules
// categorize imported entries the model could not place, and recognize
// transfers that are not spending at all.
package pattern

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// Amount conditions a rule can put on an entry.
const (
	AmountAny   = "any"
	AmountLT    = "lt"
	AmountLE    = "le"
	AmountEQ    = "eq"
	AmountGE    = "ge"
	AmountGT    = "gt"
	AmountRange = "range"
)

// Rule assigns a category to merchants matching MerchantPattern. A rule with
// Skip set marks matching entries as transfers to leave out of the ledger.
type Rule struct {
	AmountValue     *float64       `mapstructure:"amount_value"`
	AmountMin       *float64       `mapstructure:"amount_min"`
	AmountMax       *float64       `mapstructure:"amount_max"`
	Name            string         `mapstructure:"name"`
	MerchantPattern string         `mapstructure:"merchant"`
	AmountCondition string         `mapstructure:"amount"`
	Category        model.Category `mapstructure:"category"`
	Priority        int            `mapstructure:"priority"`
	Confidence      float64        `mapstructure:"confidence"`
	IsRegex         bool           `mapstructure:"regex"`
	Skip            bool           `mapstructure:"skip"`
}

// Validate checks the rule can be compiled and points somewhere.
func (r Rule) Validate() error {
	if r.MerchantPattern == "" {
		return fmt.Errorf("rule %q: merchant pattern is required", r.Name)
	}
	if r.IsRegex {
		if _, err := regexp.Compile(r.MerchantPattern); err != nil {
			return fmt.Errorf("rule %q: invalid regex: %w", r.Name, err)
		}
	}
	if !r.Skip {
		if _, ok := model.ParseCategory(string(r.Category)); !ok {
			return fmt.Errorf("rule %q: unknown category %q", r.Name, r.Category)
		}
	}
	switch r.AmountCondition {
	case "", AmountAny, AmountRange:
	case AmountLT, AmountLE, AmountEQ, AmountGE, AmountGT:
		if r.AmountValue == nil {
			return fmt.Errorf("rule %q: amount condition %s needs a value", r.Name, r.AmountCondition)
		}
	default:
		return fmt.Errorf("rule %q: unknown amount condition %q", r.Name, r.AmountCondition)
	}
	return nil
}

// Matcher evaluates merchants against a fixed rule set.
type Matcher struct {
	compiled map[int]*regexp.Regexp
	rules    []Rule
}

// NewMatcher compiles rules and orders them by priority, highest first. Rules
// that fail Validate are returned as an error.
func NewMatcher(rules []Rule) (*Matcher, error) {
	m := &Matcher{
		rules:    make([]Rule, len(rules)),
		compiled: make(map[int]*regexp.Regexp),
	}
	copy(m.rules, rules)
	sort.SliceStable(m.rules, func(i, j int) bool {
		return m.rules[i].Priority > m.rules[j].Priority
	})

	for i, rule := range m.rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		if rule.IsRegex {
			m.compiled[i] = regexp.MustCompile("(?i)" + rule.MerchantPattern)
		}
		if !rule.Skip {
			m.rules[i].Category, _ = model.ParseCategory(string(rule.Category))
		}
	}

	return m, nil
}

// Match returns the highest priority rule for merchant and amount.
func (m *Matcher) Match(merchant string, amount float64) (Rule, bool) {
	merchant = strings.TrimSpace(merchant)
	if merchant == "" {
		return Rule{}, false
	}

	for i, rule := range m.rules {
		if m.matchesMerchant(i, rule, merchant) && matchesAmount(rule, amount) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Rules returns the rules in evaluation order.
func (m *Matcher) Rules() []Rule {
	out := make([]Rule, len(m.rules))
	copy(out, m.rules)
	return out
}

func (m *Matcher) matchesMerchant(i int, rule Rule, merchant string) bool {
	if rule.IsRegex {
		return m.compiled[i].MatchString(merchant)
	}
	return strings.EqualFold(rule.MerchantPattern, merchant)
}

func matchesAmount(rule Rule, amount float64) bool {
	switch rule.AmountCondition {
	case "", AmountAny:
		return true
	case AmountLT:
		return amount < *rule.AmountValue
	case AmountLE:
		return amount <= *rule.AmountValue
	case AmountEQ:
		return amount == *rule.AmountValue
	case AmountGE:
		return amount >= *rule.AmountValue
	case AmountGT:
		return amount > *rule.AmountValue
	case AmountRange:
		if rule.AmountMin != nil && amount < *rule.AmountMin {
			return false
		}
		if rule.AmountMax != nil && amount > *rule.AmountMax {
			return false
		}
		return true
	}
	return false
}
