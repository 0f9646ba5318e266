package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

type Tool interface {
	Name() string
	Title() string
	Description() string
	InputSchema() *jsonschema.Schema
	OutputSchema() *jsonschema.Schema
	Run(ctx context.Context, input map[string]any) (output map[string]any, err error)
}

// Validation limits applied before any tool writes a record.
const (
	MaxDescriptionLen = 2000
	MaxDurationMin    = 1440
	MinWeightKg       = 20.0
	MaxWeightKg       = 300.0
)

// AnchorKey carries the turn's time anchor in tool input. The coordinator
// injects it once per turn so every relative phrase in the same turn resolves
// against the same instant.
const AnchorKey = "_anchor"

// numberFrom reads a numeric input field. Model tool-call inputs arrive
// loosely typed; whole numbers may have been coerced to int on the way in.
func numberFrom(input map[string]any, key string) (float64, bool) {
	switch v := input[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
