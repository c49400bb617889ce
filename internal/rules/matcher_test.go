package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flujo/flujo/internal/model"
)

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name     string
		merchant string
		rules    []model.MerchantRule
		wantID   int64
		wantNil  bool
	}{
		{
			name:     "lowest priority wins",
			merchant: "RAPPI SA",
			rules: []model.MerchantRule{
				{ID: 1, Pattern: "rappi", Priority: 1, IsActive: true},
				{ID: 2, Pattern: ".*", Priority: 2, IsRegex: true, IsActive: true},
			},
			wantID: 1,
		},
		{
			name:     "substring match is case insensitive contains",
			merchant: "MERPAGO*CAFE MARTINEZ",
			rules: []model.MerchantRule{
				{ID: 1, Pattern: "cafe martinez", Priority: 5, IsActive: true},
			},
			wantID: 1,
		},
		{
			name:     "substring match folds diacritics",
			merchant: "CAFÉ MARTÍNEZ",
			rules: []model.MerchantRule{
				{ID: 1, Pattern: "cafe martinez", Priority: 5, IsActive: true},
			},
			wantID: 1,
		},
		{
			name:     "regex match uses stored pattern",
			merchant: "UBER *TRIP 1234",
			rules: []model.MerchantRule{
				{ID: 1, Pattern: `^UBER\s`, Priority: 1, IsRegex: true, IsActive: true},
			},
			wantID: 1,
		},
		{
			name:     "inactive rules are skipped",
			merchant: "RAPPI SA",
			rules: []model.MerchantRule{
				{ID: 1, Pattern: "rappi", Priority: 1, IsActive: false},
				{ID: 2, Pattern: "rappi", Priority: 9, IsActive: true},
			},
			wantID: 2,
		},
		{
			name:     "malformed regex is non-matching not fatal",
			merchant: "RAPPI SA",
			rules: []model.MerchantRule{
				{ID: 1, Pattern: "[invalid", Priority: 1, IsRegex: true, IsActive: true},
				{ID: 2, Pattern: "rappi", Priority: 2, IsActive: true},
			},
			wantID: 2,
		},
		{
			name:     "equal priority breaks on id",
			merchant: "RAPPI SA",
			rules: []model.MerchantRule{
				{ID: 7, Pattern: "rappi", Priority: 3, IsActive: true},
				{ID: 3, Pattern: "rappi", Priority: 3, IsActive: true},
			},
			wantID: 3,
		},
		{
			name:     "no match leaves merchant uncategorized",
			merchant: "FARMACITY",
			rules: []model.MerchantRule{
				{ID: 1, Pattern: "rappi", Priority: 1, IsActive: true},
			},
			wantNil: true,
		},
		{
			name:     "empty merchant never matches",
			merchant: "",
			rules: []model.MerchantRule{
				{ID: 1, Pattern: ".*", Priority: 1, IsRegex: true, IsActive: true},
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched := NewMatcher(tt.rules).Match(tt.merchant)
			if tt.wantNil {
				assert.Nil(t, matched)
				return
			}
			require.NotNil(t, matched)
			assert.Equal(t, tt.wantID, matched.ID)
		})
	}
}

func TestMatcher_Deterministic(t *testing.T) {
	ruleList := []model.MerchantRule{
		{ID: 2, Pattern: ".*", Priority: 10, IsRegex: true, IsActive: true},
		{ID: 1, Pattern: "rappi", Priority: 1, IsActive: true},
	}

	for i := 0; i < 5; i++ {
		matched := NewMatcher(ruleList).Match("RAPPI SA")
		require.NotNil(t, matched)
		assert.Equal(t, int64(1), matched.ID)
	}
}
