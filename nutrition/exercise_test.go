package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glpcoach"
)

func TestEstimatorEstimate(t *testing.T) {
	e := NewEstimator()

	tests := []struct {
		name      string
		activity  string
		intensity glpcoach.Intensity
		duration  float64
		weight    float64
		wantKcal  int
	}{
		{
			name:      "moderate running",
			activity:  "running",
			intensity: glpcoach.IntensityModerate,
			duration:  30,
			weight:    70,
			wantKcal:  298, // 8.5 x 70 x 0.5
		},
		{
			name:      "low intensity walking",
			activity:  "walking",
			intensity: glpcoach.IntensityLow,
			duration:  60,
			weight:    80,
			wantKcal:  200, // 2.5 x 80 x 1
		},
		{
			name:      "high intensity cycling",
			activity:  "cycling",
			intensity: glpcoach.IntensityHigh,
			duration:  45,
			weight:    70,
			wantKcal:  525, // 10 x 70 x 0.75
		},
		{
			name:      "unknown activity uses generic MET",
			activity:  "underwater basket weaving",
			intensity: glpcoach.IntensityModerate,
			duration:  60,
			weight:    70,
			wantKcal:  280, // 4.0 x 70 x 1
		},
		{
			name:      "zero weight defaults to 70 kg",
			activity:  "running",
			intensity: glpcoach.IntensityModerate,
			duration:  30,
			weight:    0,
			wantKcal:  298,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Estimate(tt.activity, tt.intensity, tt.duration, tt.weight)
			assert.Equal(t, tt.wantKcal, got)
		})
	}
}

func TestEstimatorFromText(t *testing.T) {
	e := NewEstimator()

	t.Run("activity with duration", func(t *testing.T) {
		item, ok := e.FromText("went jogging for 45 minutes", 70)
		require.True(t, ok)
		assert.Equal(t, "running", item.Name)
		assert.Equal(t, glpcoach.CategoryCardio, item.Category)
		assert.Equal(t, 45.0, item.DurationMin)
		assert.Equal(t, glpcoach.IntensityModerate, item.Intensity)
	})

	t.Run("hours convert to minutes", func(t *testing.T) {
		item, ok := e.FromText("cycled for 2 hours", 70)
		require.True(t, ok)
		assert.Equal(t, "cycling", item.Name)
		assert.Equal(t, 120.0, item.DurationMin)
	})

	t.Run("intensity keywords", func(t *testing.T) {
		easy, ok := e.FromText("easy walk for 20 minutes", 70)
		require.True(t, ok)
		assert.Equal(t, glpcoach.IntensityLow, easy.Intensity)

		hard, ok := e.FromText("intense run, 20 minutes", 70)
		require.True(t, ok)
		assert.Equal(t, glpcoach.IntensityHigh, hard.Intensity)
	})

	t.Run("duration only falls back to walking", func(t *testing.T) {
		item, ok := e.FromText("moved around for 30 minutes", 70)
		require.True(t, ok)
		assert.Equal(t, "walking", item.Name)
		assert.Equal(t, 30.0, item.DurationMin)
	})

	t.Run("missing duration defaults to 30 minutes", func(t *testing.T) {
		item, ok := e.FromText("did some yoga", 70)
		require.True(t, ok)
		assert.Equal(t, "yoga", item.Name)
		assert.Equal(t, glpcoach.CategoryFlexibility, item.Category)
		assert.Equal(t, 30.0, item.DurationMin)
	})

	t.Run("no activity and no duration", func(t *testing.T) {
		_, ok := e.FromText("what a lovely day", 70)
		assert.False(t, ok)
	})

	t.Run("strength aliases", func(t *testing.T) {
		item, ok := e.FromText("hit the gym for 50 minutes", 80)
		require.True(t, ok)
		assert.Equal(t, "strength training", item.Name)
		assert.Equal(t, glpcoach.CategoryStrength, item.Category)
	})
}
