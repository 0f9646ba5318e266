package tools

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"glpcoach/tools/storage"
)

type LogWeight struct {
	store storage.RecordStore
}

func NewLogWeight(store storage.RecordStore) *LogWeight {
	return &LogWeight{store: store}
}

func (t *LogWeight) Name() string  { return "log_weight" }
func (t *LogWeight) Title() string { return "Log Weight" }
func (t *LogWeight) Description() string {
	return "Stores a body weight measurement in kilograms for the user."
}

func (t *LogWeight) InputSchema() *jsonschema.Schema {
	minW := MinWeightKg
	maxW := MaxWeightKg
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"weight_kg": {
				Type:    "number",
				Minimum: &minW,
				Maximum: &maxW,
			},
			"when": {
				Type: "string",
			},
			"user_id": {
				Type: "string",
			},
		},
		Required: []string{"weight_kg"},
	}
}

func (t *LogWeight) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"id":        {Type: "string"},
			"summary":   {Type: "string"},
			"weight_kg": {Type: "number"},
		},
		Required: []string{"id", "summary", "weight_kg"},
	}
}

func (t *LogWeight) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	weight, ok := numberFrom(input, "weight_kg")
	if !ok {
		return nil, fmt.Errorf("weight_kg is required")
	}
	if weight < MinWeightKg || weight > MaxWeightKg {
		return nil, fmt.Errorf("weight_kg must be in [%.0f, %.0f], got %v", MinWeightKg, MaxWeightKg, weight)
	}
	userID, _ := input["user_id"].(string)

	anchor := anchorFromInput(input)
	when, _ := input["when"].(string)
	at := ResolveWhen(when, anchor)

	rec := storage.Record{
		ID:     uuid.NewString(),
		UserID: userID,
		At:     at,
		Data: map[string]any{
			"weight_kg": weight,
		},
	}
	if err := t.store.Insert(ctx, "weights", rec); err != nil {
		return nil, fmt.Errorf("failed to store weight: %w", err)
	}

	return map[string]any{
		"id":        rec.ID,
		"summary":   fmt.Sprintf("Logged weight: %.1f kg", weight),
		"weight_kg": weight,
	}, nil
}
