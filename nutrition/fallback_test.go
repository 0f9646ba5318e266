package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glpcoach"
)

func newTestMatcher() *Matcher {
	return NewMatcher(DefaultFoodTable(), glpcoach.DefaultThresholds())
}

func TestMatcherQuantityScaling(t *testing.T) {
	m := newTestMatcher()

	// Base pizza entry is 107 g / 266 kcal per slice; five slices scale every
	// numeric field by 5 and leave the name unqualified.
	items := m.Match("5 slices pizza")
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "pizza", item.Name)
	assert.Equal(t, 535.0, item.Qty)
	assert.Equal(t, "g", item.Unit)
	assert.Equal(t, 1330, item.Kcal)
	assert.Equal(t, 55.0, item.ProteinG)
	assert.Equal(t, 165.0, item.CarbsG)
	assert.Equal(t, 50.0, item.FatG)
}

func TestMatcherSizeQualifier(t *testing.T) {
	m := newTestMatcher()

	tests := []struct {
		name     string
		text     string
		wantName string
		wantKcal int
	}{
		{
			name:     "large adds qualifier and scales",
			text:     "a large pizza",
			wantName: "pizza (large)",
			wantKcal: 372, // 266 * 1.4
		},
		{
			name:     "small adds qualifier and scales",
			text:     "small pizza",
			wantName: "pizza (small)",
			wantKcal: 186, // 266 * 0.7
		},
		{
			name:     "plain quantity leaves name alone",
			text:     "2 slices pizza",
			wantName: "pizza",
			wantKcal: 532,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := m.Match(tt.text)
			require.Len(t, items, 1)
			assert.Equal(t, tt.wantName, items[0].Name)
			assert.Equal(t, tt.wantKcal, items[0].Kcal)
		})
	}
}

func TestMatcherSynonymsAndPlurals(t *testing.T) {
	m := newTestMatcher()

	tests := []struct {
		text     string
		wantName string
	}{
		{"chips and a soda", "fries"},
		{"bananas for a snack", "banana"},
		{"had some porridge", "oatmeal"},
		{"two scrambled eggs", "egg"},
	}

	for _, tt := range tests {
		items := m.Match(tt.text)
		require.Len(t, items, 1)
		assert.Equal(t, tt.wantName, items[0].Name, "text %q", tt.text)
	}
}

func TestMatcherSentinel(t *testing.T) {
	m := newTestMatcher()

	// The sentinel ignores multipliers entirely: same result regardless of
	// quantity language in the text.
	for _, text := range []string{"xqzwv glorp", "5 servings of xqzwv glorp"} {
		items := m.Match(text)
		require.Len(t, items, 1, "text %q", text)

		item := items[0]
		assert.Equal(t, SentinelUnrecognized, item.Name)
		assert.Equal(t, 1.0, item.Qty)
		assert.Equal(t, "serving", item.Unit)
		assert.Zero(t, item.Kcal)
		assert.Zero(t, item.ProteinG)
		assert.Zero(t, item.CarbsG)
		assert.Zero(t, item.FatG)
		assert.True(t, IsSentinel(items))
	}

	assert.False(t, IsSentinel(m.Match("pizza")))
}
