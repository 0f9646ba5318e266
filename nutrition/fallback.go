package nutrition

import (
	"math"
	"strings"

	"glpcoach"
)

// SentinelUnrecognized names the placeholder item the matcher returns when no
// food in the table matches. Callers detect it by name and treat the parse as
// very low confidence instead of an error.
const SentinelUnrecognized = "unrecognized food"

// Matcher is the deterministic fallback used when the model-backed parser
// fails or is unavailable. It returns at most one real item: multi-item
// extraction is deliberately reserved for the model path, and the fallback is
// a degraded single-guess mode.
type Matcher struct {
	table      *FoodTable
	normalizer *Normalizer
	th         glpcoach.Thresholds
}

func NewMatcher(table *FoodTable, th glpcoach.Thresholds) *Matcher {
	return &Matcher{
		table:      table,
		normalizer: NewNormalizer(th),
		th:         th,
	}
}

// Match scans text for the first known food by case-insensitive containment,
// simple pluralization, and synonyms, then scales the standard serving by the
// normalizer's combined multiplier. On no match it returns the zero-nutrition
// sentinel item; it never fails.
func (m *Matcher) Match(text string) []glpcoach.MealItem {
	lower := strings.ToLower(text)

	food, ok := m.lookup(lower)
	if !ok {
		return []glpcoach.MealItem{{
			Name: SentinelUnrecognized,
			Qty:  1,
			Unit: "serving",
		}}
	}

	q := m.normalizer.Normalize(text)
	factor := q.Combined()

	// Only a strong size deviation earns a qualifier; plain quantity
	// multipliers ("5 slices") leave the name alone.
	name := food.Name
	if q.SizeFactor > m.th.LargeLabelAbove {
		name += " (large)"
	} else if q.SizeFactor < m.th.SmallLabelBelow {
		name += " (small)"
	}

	return []glpcoach.MealItem{{
		Name:     name,
		Qty:      round1(food.Qty * factor),
		Unit:     food.Unit,
		Kcal:     int(math.Round(float64(food.Kcal) * factor)),
		ProteinG: round1(food.ProteinG * factor),
		CarbsG:   round1(food.CarbsG * factor),
		FatG:     round1(food.FatG * factor),
	}}
}

// IsSentinel reports whether the items are the no-match placeholder.
func IsSentinel(items []glpcoach.MealItem) bool {
	return len(items) == 1 && items[0].Name == SentinelUnrecognized
}

func (m *Matcher) lookup(lower string) (Food, bool) {
	for _, f := range m.table.Foods() {
		if matchesName(lower, f.Name) {
			return f, true
		}
		for _, syn := range f.Synonyms {
			if matchesName(lower, syn) {
				return f, true
			}
		}
	}
	return Food{}, false
}

func matchesName(text, name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(text, name) || strings.Contains(text, name+"s")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
