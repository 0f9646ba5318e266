package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"glpcoach/nutrition"
	"glpcoach/tools/storage"
)

type LogExercise struct {
	parser *nutrition.Parser
	store  storage.RecordStore
}

func NewLogExercise(parser *nutrition.Parser, store storage.RecordStore) *LogExercise {
	return &LogExercise{parser: parser, store: store}
}

func (t *LogExercise) Name() string  { return "log_exercise" }
func (t *LogExercise) Title() string { return "Log Exercise" }
func (t *LogExercise) Description() string {
	return "Parses a free-text exercise description into activities with durations and calorie estimates, then stores it for the user."
}

func (t *LogExercise) InputSchema() *jsonschema.Schema {
	minDur := 0.0
	maxDur := float64(MaxDurationMin)
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"description": {
				Type:        "string",
				Description: "What the user did, in their own words.",
			},
			"duration_min": {
				Type:             "number",
				Description:      "Explicit duration in minutes when the user stated one.",
				ExclusiveMinimum: &minDur,
				Maximum:          &maxDur,
			},
			"weight_kg": {
				Type:        "number",
				Description: "User body weight for calorie estimation.",
			},
			"when": {
				Type: "string",
			},
			"user_id": {
				Type: "string",
			},
		},
		Required: []string{"description"},
	}
}

func (t *LogExercise) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"id":           {Type: "string"},
			"summary":      {Type: "string"},
			"duration_min": {Type: "number"},
			"kcal":         {Type: "integer"},
			"confidence":   {Type: "number"},
		},
		Required: []string{"id", "summary", "duration_min", "kcal", "confidence"},
	}
}

func (t *LogExercise) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	desc, _ := input["description"].(string)
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return nil, fmt.Errorf("description is required")
	}

	if v, ok := numberFrom(input, "duration_min"); ok {
		if v <= 0 || v > MaxDurationMin {
			return nil, fmt.Errorf("duration_min must be in (0, %d], got %v", MaxDurationMin, v)
		}
	}
	weight, _ := numberFrom(input, "weight_kg")
	userID, _ := input["user_id"].(string)

	anchor := anchorFromInput(input)
	when, _ := input["when"].(string)
	at := ResolveWhen(when, anchor)

	result := t.parser.ParseExercise(ctx, desc, weight)
	if explicit, ok := numberFrom(input, "duration_min"); ok && len(result.Items) == 1 && result.Items[0].DurationMin != explicit {
		// A stated duration beats the parsed one.
		est := nutrition.NewEstimator()
		result.Items[0].DurationMin = explicit
		result.Items[0].EstKcal = est.Estimate(result.Items[0].Name, result.Items[0].Intensity, explicit, weight)
		result.TotalDurationMin = explicit
		result.TotalKcal = result.Items[0].EstKcal
	}

	items := make([]map[string]any, 0, len(result.Items))
	for _, it := range result.Items {
		items = append(items, map[string]any{
			"name":         it.Name,
			"category":     string(it.Category),
			"duration_min": it.DurationMin,
			"intensity":    string(it.Intensity),
			"est_kcal":     it.EstKcal,
		})
	}

	rec := storage.Record{
		ID:     uuid.NewString(),
		UserID: userID,
		At:     at,
		Data: map[string]any{
			"description":  desc,
			"items":        items,
			"duration_min": result.TotalDurationMin,
			"est_kcal":     result.TotalKcal,
			"confidence":   result.Confidence,
		},
	}
	if err := t.store.Insert(ctx, "exercises", rec); err != nil {
		return nil, fmt.Errorf("failed to store exercise: %w", err)
	}

	return map[string]any{
		"id":           rec.ID,
		"summary":      fmt.Sprintf("Logged exercise: %.0f min, ~%d kcal", result.TotalDurationMin, result.TotalKcal),
		"duration_min": result.TotalDurationMin,
		"kcal":         result.TotalKcal,
		"confidence":   result.Confidence,
	}, nil
}
