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

type LogMeal struct {
	parser *nutrition.Parser
	store  storage.RecordStore
}

func NewLogMeal(parser *nutrition.Parser, store storage.RecordStore) *LogMeal {
	return &LogMeal{parser: parser, store: store}
}

func (t *LogMeal) Name() string  { return "log_meal" }
func (t *LogMeal) Title() string { return "Log Meal" }
func (t *LogMeal) Description() string {
	return "Parses a free-text meal description into items with calories and macros, then stores it for the user."
}

func (t *LogMeal) InputSchema() *jsonschema.Schema {
	maxLen := MaxDescriptionLen
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"description": {
				Type:        "string",
				Description: "What the user ate, in their own words.",
				MaxLength:   &maxLen,
			},
			"when": {
				Type:        "string",
				Description: "Optional relative time phrase, e.g. 'this morning' or 'for lunch'.",
			},
			"user_id": {
				Type: "string",
			},
		},
		Required: []string{"description"},
	}
}

func (t *LogMeal) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"id":         {Type: "string"},
			"summary":    {Type: "string"},
			"kcal":       {Type: "integer"},
			"confidence": {Type: "number"},
			"questions":  {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
		Required: []string{"id", "summary", "kcal", "confidence"},
	}
}

func (t *LogMeal) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	desc, _ := input["description"].(string)
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return nil, fmt.Errorf("description is required")
	}
	if len(desc) > MaxDescriptionLen {
		return nil, fmt.Errorf("description exceeds %d characters", MaxDescriptionLen)
	}
	userID, _ := input["user_id"].(string)

	anchor := anchorFromInput(input)
	when, _ := input["when"].(string)
	at := ResolveWhen(when, anchor)

	result := t.parser.ParseText(ctx, desc, "")

	items := make([]map[string]any, 0, len(result.Items))
	for _, it := range result.Items {
		items = append(items, map[string]any{
			"name":      it.Name,
			"qty":       it.Qty,
			"unit":      it.Unit,
			"kcal":      it.Kcal,
			"protein_g": it.ProteinG,
			"carbs_g":   it.CarbsG,
			"fat_g":     it.FatG,
		})
	}

	rec := storage.Record{
		ID:     uuid.NewString(),
		UserID: userID,
		At:     at,
		Data: map[string]any{
			"description": desc,
			"items":       items,
			"kcal":        result.Totals.Kcal,
			"protein_g":   result.Totals.ProteinG,
			"carbs_g":     result.Totals.CarbsG,
			"fat_g":       result.Totals.FatG,
			"confidence":  result.Confidence,
		},
	}
	if err := t.store.Insert(ctx, "meals", rec); err != nil {
		return nil, fmt.Errorf("failed to store meal: %w", err)
	}

	questions := make([]any, 0, len(result.Questions))
	for _, q := range result.Questions {
		questions = append(questions, q)
	}

	return map[string]any{
		"id":         rec.ID,
		"summary":    fmt.Sprintf("Logged meal: %d item(s), %d kcal", len(result.Items), result.Totals.Kcal),
		"kcal":       result.Totals.Kcal,
		"confidence": result.Confidence,
		"questions":  questions,
	}, nil
}
