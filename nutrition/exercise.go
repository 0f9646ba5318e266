package nutrition

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"glpcoach"
)

const defaultBodyWeightKg = 70.0

// metEntry holds MET values per intensity for one activity.
type metEntry struct {
	name     string
	category glpcoach.ExerciseCategory
	low      float64
	moderate float64
	high     float64
	aliases  []string
}

var metTable = []metEntry{
	{name: "walking", category: glpcoach.CategoryCardio, low: 2.5, moderate: 3.5, high: 5.0, aliases: []string{"walk", "walked"}},
	{name: "running", category: glpcoach.CategoryCardio, low: 6.0, moderate: 8.5, high: 11.0, aliases: []string{"run", "ran", "jog", "jogging"}},
	{name: "cycling", category: glpcoach.CategoryCardio, low: 4.0, moderate: 6.5, high: 10.0, aliases: []string{"bike", "biking", "cycled"}},
	{name: "swimming", category: glpcoach.CategoryCardio, low: 5.0, moderate: 7.0, high: 10.0, aliases: []string{"swim", "swam"}},
	{name: "elliptical", category: glpcoach.CategoryCardio, low: 4.5, moderate: 6.5, high: 8.5},
	{name: "strength training", category: glpcoach.CategoryStrength, low: 3.0, moderate: 5.0, high: 8.0, aliases: []string{"weights", "weight lifting", "lifting", "gym"}},
	{name: "yoga", category: glpcoach.CategoryFlexibility, low: 2.0, moderate: 3.0, high: 4.0},
	{name: "stretching", category: glpcoach.CategoryFlexibility, low: 2.0, moderate: 2.5, high: 3.0},
	{name: "tennis", category: glpcoach.CategorySport, low: 5.0, moderate: 7.0, high: 8.5},
	{name: "soccer", category: glpcoach.CategorySport, low: 5.5, moderate: 7.5, high: 10.0, aliases: []string{"football"}},
	{name: "basketball", category: glpcoach.CategorySport, low: 4.5, moderate: 6.5, high: 8.5},
}

var durationRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:minutes?|mins?|m\b)`)
var hourRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:hours?|hrs?|h\b)`)

// Estimator is the deterministic exercise fallback: MET-based calorie
// estimates keyed by activity and intensity, kcal = MET x weight(kg) x hours.
type Estimator struct{}

func NewEstimator() *Estimator { return &Estimator{} }

// Estimate returns the calorie burn for a known activity name. Unknown names
// fall back to a generic moderate 4.0 MET.
func (e *Estimator) Estimate(activity string, intensity glpcoach.Intensity, durationMin, weightKg float64) int {
	met := 4.0
	if entry, ok := lookupMET(strings.ToLower(activity)); ok {
		switch intensity {
		case glpcoach.IntensityLow:
			met = entry.low
		case glpcoach.IntensityHigh:
			met = entry.high
		default:
			met = entry.moderate
		}
	}
	if weightKg <= 0 {
		weightKg = defaultBodyWeightKg
	}
	return int(math.Round(met * weightKg * durationMin / 60))
}

// FromText builds a single best-guess exercise item out of free text. It
// reports false when neither a known activity nor a duration is present,
// which callers surface as "no exercise detected".
func (e *Estimator) FromText(text string, weightKg float64) (glpcoach.ExerciseItem, bool) {
	lower := strings.ToLower(text)

	var entry metEntry
	found := false
	for _, m := range metTable {
		if strings.Contains(lower, m.name) {
			entry, found = m, true
			break
		}
		for _, alias := range m.aliases {
			if containsWord(lower, alias) {
				entry, found = m, true
				break
			}
		}
		if found {
			break
		}
	}

	duration := extractDurationMin(lower)
	if !found && duration == 0 {
		return glpcoach.ExerciseItem{}, false
	}
	if !found {
		entry = metTable[0] // walking is the conservative default
	}
	if duration == 0 {
		duration = 30
	}

	intensity := glpcoach.IntensityModerate
	if strings.Contains(lower, "easy") || strings.Contains(lower, "light") || strings.Contains(lower, "slow") {
		intensity = glpcoach.IntensityLow
	} else if strings.Contains(lower, "intense") || strings.Contains(lower, "hard") || strings.Contains(lower, "fast") || strings.Contains(lower, "sprint") {
		intensity = glpcoach.IntensityHigh
	}

	return glpcoach.ExerciseItem{
		Name:        entry.name,
		Category:    entry.category,
		DurationMin: duration,
		Intensity:   intensity,
		EstKcal:     e.Estimate(entry.name, intensity, duration, weightKg),
	}, true
}

func lookupMET(activity string) (metEntry, bool) {
	for _, m := range metTable {
		if strings.Contains(activity, m.name) {
			return m, true
		}
		for _, alias := range m.aliases {
			if containsWord(activity, alias) {
				return m, true
			}
		}
	}
	return metEntry{}, false
}

func extractDurationMin(lower string) float64 {
	if m := durationRe.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			return v
		}
	}
	if m := hourRe.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			return v * 60
		}
	}
	return 0
}
