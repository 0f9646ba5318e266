package llm

import "github.com/modelcontextprotocol/go-sdk/jsonschema"

// Tier selects the model variant for a call. The parser starts cheap and
// escalates to the capable tier on low confidence; exact model IDs are
// configuration.
type Tier int

const (
	TierCheap Tier = iota
	TierCapable
)

func (t Tier) String() string {
	if t == TierCapable {
		return "capable"
	}
	return "cheap"
}

type Prompt struct {
	System   string    `json:"system,omitempty"`
	Messages []Message `json:"messages"`
	Tools    []Tool    `json:"tools,omitempty"`
}

type Message struct {
	Role    string       `json:"role"`
	Content MessageParts `json:"content"`
}

type MessageParts []MessagePart

type MessagePart struct {
	Type      string         `json:"type"` // text, image, tool_use, tool_result
	Text      string         `json:"text,omitempty"`
	ImageData []byte         `json:"image_data,omitempty"`
	ImageMIME string         `json:"image_mime,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Join concatenates the text parts of a message.
func (mp MessageParts) Join() string {
	var out string
	for _, p := range mp {
		if p.Type == "text" {
			out += p.Text
		}
	}
	return out
}

type Tool struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"input_schema"`
}

type ToolCall struct {
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
}

type ToolResult struct {
	ToolUseID string         `json:"tool_use_id"`
	ToolName  string         `json:"tool_name"`
	Data      map[string]any `json:"data"`
}

type Usage struct {
	InputTokens  int32 `json:"input_tokens"`
	OutputTokens int32 `json:"output_tokens"`
}

type Response struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     Usage      `json:"usage"`
}

// NewTextPrompt builds a single-turn prompt with a system instruction.
func NewTextPrompt(system, user string) Prompt {
	return Prompt{
		System: system,
		Messages: []Message{
			{Role: "user", Content: MessageParts{{Type: "text", Text: user}}},
		},
	}
}

// NewImagePrompt builds a single-turn prompt carrying inline image bytes.
func NewImagePrompt(system, user string, image []byte, mime string) Prompt {
	return Prompt{
		System: system,
		Messages: []Message{
			{Role: "user", Content: MessageParts{
				{Type: "text", Text: user},
				{Type: "image", ImageData: image, ImageMIME: mime},
			}},
		},
	}
}

// NewToolResultMessage packages tool results as the user message the Converse
// API expects after a tool_use turn.
func NewToolResultMessage(results []ToolResult) Message {
	parts := make(MessageParts, 0, len(results))
	for _, r := range results {
		parts = append(parts, MessagePart{
			Type:      "tool_result",
			ToolUseID: r.ToolUseID,
			ToolName:  r.ToolName,
			Data:      r.Data,
		})
	}
	return Message{Role: "user", Content: parts}
}
