package pattern

import (
	"testing"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Match(t *testing.T) {
	floatPtr := func(f float64) *float64 { return &f }

	tests := []struct {
		name     string
		merchant string
		wantRule string
		rules    []Rule
		amount   float64
		wantOK   bool
	}{
		{
			name:     "exact merchant match is case insensitive",
			rules:    []Rule{{Name: "amazon", MerchantPattern: "amazon", Category: model.CategoryShopping}},
			merchant: "AMAZON",
			amount:   50,
			wantRule: "amazon",
			wantOK:   true,
		},
		{
			name:     "exact match does not match substrings",
			rules:    []Rule{{Name: "amazon", MerchantPattern: "amazon", Category: model.CategoryShopping}},
			merchant: "Amazon Prime",
			amount:   50,
		},
		{
			name:     "regex match",
			rules:    []Rule{{Name: "coffee", MerchantPattern: `coffee`, IsRegex: true, Category: model.CategoryFood}},
			merchant: "Blue Bottle Coffee",
			amount:   5,
			wantRule: "coffee",
			wantOK:   true,
		},
		{
			name: "amount less than",
			rules: []Rule{{
				Name: "small", MerchantPattern: "shell", Category: model.CategoryTransport,
				AmountCondition: AmountLT, AmountValue: floatPtr(10),
			}},
			merchant: "Shell",
			amount:   60,
		},
		{
			name: "amount range",
			rules: []Rule{{
				Name: "fill-up", MerchantPattern: "shell", Category: model.CategoryTransport,
				AmountCondition: AmountRange, AmountMin: floatPtr(20), AmountMax: floatPtr(100),
			}},
			merchant: "Shell",
			amount:   60,
			wantRule: "fill-up",
			wantOK:   true,
		},
		{
			name: "higher priority wins",
			rules: []Rule{
				{Name: "low", MerchantPattern: "uber", IsRegex: true, Category: model.CategoryTransport, Priority: 10},
				{Name: "high", MerchantPattern: `uber\s*eats`, IsRegex: true, Category: model.CategoryFood, Priority: 20},
			},
			merchant: "UBER EATS",
			amount:   25,
			wantRule: "high",
			wantOK:   true,
		},
		{
			name:     "empty merchant never matches",
			rules:    []Rule{{Name: "all", MerchantPattern: ".*", IsRegex: true, Category: model.CategoryOther}},
			merchant: "  ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMatcher(tt.rules)
			require.NoError(t, err)

			rule, ok := m.Match(tt.merchant, tt.amount)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantRule, rule.Name)
		})
	}
}

func TestNewMatcher_NormalizesCategory(t *testing.T) {
	m, err := NewMatcher([]Rule{{Name: "gym", MerchantPattern: "gym", Category: "health"}})
	require.NoError(t, err)

	rule, ok := m.Match("GYM", 30)
	require.True(t, ok)
	assert.Equal(t, model.CategoryHealth, rule.Category)
}

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{name: "valid", rule: Rule{Name: "a", MerchantPattern: "a", Category: model.CategoryFood}},
		{name: "skip needs no category", rule: Rule{Name: "a", MerchantPattern: "a", Skip: true}},
		{name: "missing pattern", rule: Rule{Name: "a", Category: model.CategoryFood}, wantErr: true},
		{name: "bad regex", rule: Rule{Name: "a", MerchantPattern: "(", IsRegex: true, Category: model.CategoryFood}, wantErr: true},
		{name: "unknown category", rule: Rule{Name: "a", MerchantPattern: "a", Category: "Yachts"}, wantErr: true},
		{name: "condition without value", rule: Rule{Name: "a", MerchantPattern: "a", Category: model.CategoryFood, AmountCondition: AmountGT}, wantErr: true},
		{name: "unknown condition", rule: Rule{Name: "a", MerchantPattern: "a", Category: model.CategoryFood, AmountCondition: "between"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := NewMatcher([]Rule{{Name: "broken", MerchantPattern: "(", IsRegex: true, Category: model.CategoryFood}})
	assert.Error(t, err)
}

func TestDefaultRules(t *testing.T) {
	m, err := NewMatcher(DefaultRules())
	require.NoError(t, err)

	tests := []struct {
		merchant string
		category model.Category
		skip     bool
	}{
		{merchant: "UBER TRIP 8JQ2", category: model.CategoryTransport},
		{merchant: "UBER EATS", category: model.CategoryFood},
		{merchant: "Starbucks Store 1234", category: model.CategoryFood},
		{merchant: "NETFLIX.COM", category: model.CategoryEntertainment},
		{merchant: "CVS/PHARMACY #123", category: model.CategoryHealth},
		{merchant: "AMZN Mktp US", category: model.CategoryShopping},
		{merchant: "COMCAST CABLE", category: model.CategoryUtilities},
		{merchant: "ONLINE TRANSFER TO CHK", skip: true},
		{merchant: "CHASE CREDIT CARD PAYMENT", skip: true},
	}

	for _, tt := range tests {
		t.Run(tt.merchant, func(t *testing.T) {
			rule, ok := m.Match(tt.merchant, 20)
			require.True(t, ok)
			assert.Equal(t, tt.skip, rule.Skip)
			if !tt.skip {
				assert.Equal(t, tt.category, rule.Category)
			}
		})
	}

	_, ok := m.Match("Luigi's", 20)
	assert.False(t, ok)
}
