package glpcoach

import (
	"context"
	"net/http"
	"time"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Transcriber is the speech-to-text boundary.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, languageHint string) (string, error)
}

// MacroTotals aggregates calories and macros across all items in a parse.
// Totals are always recomputed from the items, never trusted from the model.
type MacroTotals struct {
	Kcal     int     `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// MealItem is one parsed food. All numeric fields are totals for the stated
// quantity, not per-unit values.
type MealItem struct {
	Name     string  `json:"name"`
	Qty      float64 `json:"qty"`
	Unit     string  `json:"unit"`
	Kcal     int     `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// ParseResult is the outcome of a meal parse. It is a pure value: built per
// request, never mutated after construction, persisted only by the caller.
type ParseResult struct {
	Items         []MealItem  `json:"items"`
	Totals        MacroTotals `json:"totals"`
	Confidence    float64     `json:"confidence"`
	Questions     []string    `json:"questions,omitempty"`
	LowConfidence bool        `json:"low_confidence"`
}

// SumTotals recomputes the elementwise totals from an item list.
func SumTotals(items []MealItem) MacroTotals {
	var t MacroTotals
	for _, it := range items {
		t.Kcal += it.Kcal
		t.ProteinG += it.ProteinG
		t.CarbsG += it.CarbsG
		t.FatG += it.FatG
	}
	return t
}

// IsConsistent checks the invariants every ParseResult must satisfy regardless
// of which path (model, escalated model, fallback) produced it.
func (r *ParseResult) IsConsistent() bool {
	if r.Confidence < 0 || r.Confidence > 1 {
		return false
	}
	if r.LowConfidence != (r.Confidence < 0.6) {
		return false
	}
	if r.Totals != SumTotals(r.Items) {
		return false
	}
	for _, it := range r.Items {
		if it.Qty <= 0 || it.Kcal < 0 || it.ProteinG < 0 || it.CarbsG < 0 || it.FatG < 0 {
			return false
		}
	}
	return true
}

type ExerciseCategory string

const (
	CategoryCardio      ExerciseCategory = "cardio"
	CategoryStrength    ExerciseCategory = "strength"
	CategoryFlexibility ExerciseCategory = "flexibility"
	CategorySport       ExerciseCategory = "sport"
)

type Intensity string

const (
	IntensityLow      Intensity = "low"
	IntensityModerate Intensity = "moderate"
	IntensityHigh     Intensity = "high"
)

// ExerciseItem is one parsed exercise with an estimated calorie burn.
type ExerciseItem struct {
	Name        string           `json:"name"`
	Category    ExerciseCategory `json:"category"`
	DurationMin float64          `json:"duration_min,omitempty"`
	Sets        int              `json:"sets,omitempty"`
	Reps        int              `json:"reps,omitempty"`
	WeightKg    float64          `json:"weight_kg,omitempty"`
	Intensity   Intensity        `json:"intensity"`
	Equipment   string           `json:"equipment,omitempty"`
	EstKcal     int              `json:"est_kcal"`
}

// ExerciseParseResult is the exercise counterpart of ParseResult.
type ExerciseParseResult struct {
	Items            []ExerciseItem `json:"items"`
	TotalDurationMin float64        `json:"total_duration_min"`
	TotalKcal        int            `json:"total_kcal"`
	Confidence       float64        `json:"confidence"`
	Questions        []string       `json:"questions,omitempty"`
	LowConfidence    bool           `json:"low_confidence"`
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// SafetyDecision gates a coaching message before any model-generated reply.
type SafetyDecision struct {
	Allow       bool      `json:"allow"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Disclaimers []string  `json:"disclaimers"`
	Reasoning   string    `json:"reasoning"`
}

// IsValid checks that a blocked decision carries at least one disclaimer and
// that the risk level is one of the known values.
func (d *SafetyDecision) IsValid() bool {
	if !d.Allow && len(d.Disclaimers) == 0 {
		return false
	}
	switch d.RiskLevel {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// LoggedAction summarizes one successful tool invocation performed on the
// user's behalf during a chat turn. Failed invocations produce nothing.
type LoggedAction struct {
	Type    string         `json:"type"`
	ID      string         `json:"id"`
	Summary string         `json:"summary"`
	Detail  map[string]any `json:"detail,omitempty"`
	At      time.Time      `json:"at"`
}

// CoachReply is the full outcome of one coach turn.
type CoachReply struct {
	Answer      string         `json:"answer"`
	Disclaimers []string       `json:"disclaimers"`
	Actions     []LoggedAction `json:"actions"`
	Blocked     bool           `json:"blocked"`
}

// UserContext carries the per-request user profile bits the pipeline needs.
type UserContext struct {
	UserID   string  `json:"user_id"`
	WeightKg float64 `json:"weight_kg,omitempty"`
}
