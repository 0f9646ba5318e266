package tools

import (
	"fmt"

	"glpcoach/nutrition"
	"glpcoach/tools/storage"
)

// Registry maps tool names to implementations
type Registry map[string]Tool

// NewRegistry creates a new tool registry backed by the given parser and
// record store.
func NewRegistry(parser *nutrition.Parser, store storage.RecordStore) (*Registry, error) {
	tools := map[string]Tool{
		"log_meal":     NewLogMeal(parser, store),
		"log_exercise": NewLogExercise(parser, store),
		"log_weight":   NewLogWeight(store),
	}

	registry := Registry(tools)
	return &registry, nil
}

// GetTools returns all tools in the registry as a slice
func (r *Registry) GetTools() []Tool {
	tools := make([]Tool, 0, len(*r))
	for _, tool := range *r {
		tools = append(tools, tool)
	}
	return tools
}

// GetTool retrieves a tool by name from the registry
func (r Registry) GetTool(name string) (Tool, error) {
	tool, exists := r[name]
	if !exists {
		return nil, fmt.Errorf("tool %q not found in registry", name)
	}
	return tool, nil
}
