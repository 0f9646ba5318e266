package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const (
	// Inference profile IDs, not foundation model IDs.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultCheapModelID   = "us.anthropic.claude-3-5-haiku-20241022-v1:0"
	defaultCapableModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	// 1k tokens is enough for structured parse output; raise for long coaching replies.
	defaultMaxTokens = 1024

	// Low temperature and top_p keep outputs deterministic, which matters for
	// strict-JSON parsing and tool use.
	defaultTemperature = 0.2
	defaultTopP        = 0.9
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type ClientOptions struct {
	CheapModelID   string
	CapableModelID string
	MaxTokens      int32
	Temperature    float32
	TopP           float32
}

// Client is the chat-completion boundary over the Bedrock Converse API.
// It is constructed once at bootstrap and injected into every component that
// talks to a model; there is no package-level instance.
type Client struct {
	brc  bedrockRuntimeClient
	opts ClientOptions
}

func NewClient(brc bedrockRuntimeClient, opts ClientOptions) *Client {
	if opts.CheapModelID == "" {
		opts.CheapModelID = defaultCheapModelID
	}
	if opts.CapableModelID == "" {
		opts.CapableModelID = defaultCapableModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &Client{brc: brc, opts: opts}
}

func (c *Client) modelID(tier Tier) string {
	if tier == TierCapable {
		return c.opts.CapableModelID
	}
	return c.opts.CheapModelID
}

// Invoke sends the prompt to the selected model tier. Upstream failures come
// back wrapped in ErrTransport; callers route them to their fallback paths.
func (c *Client) Invoke(ctx context.Context, tier Tier, prompt Prompt) (Response, error) {
	slog.Info("LLM_CLIENT: Invoked", "tier", tier.String(), "messages_len", len(prompt.Messages))

	var sys []types.SystemContentBlock
	if prompt.System != "" {
		sys = append(sys, &types.SystemContentBlockMemberText{Value: prompt.System})
	}

	var msgs []types.Message
	for _, m := range prompt.Messages {
		if m.Role == "system" {
			sys = append(sys, &types.SystemContentBlockMemberText{Value: m.Content.Join()})
			continue
		}
		msg := types.Message{Role: types.ConversationRole(m.Role)}

		for _, part := range m.Content {
			switch part.Type {
			case "text":
				msg.Content = append(msg.Content, &types.ContentBlockMemberText{Value: part.Text})

			case "image":
				msg.Content = append(msg.Content, &types.ContentBlockMemberImage{
					Value: types.ImageBlock{
						Format: imageFormat(part.ImageMIME),
						Source: &types.ImageSourceMemberBytes{Value: part.ImageData},
					},
				})

			case "tool_use":
				msg.Content = append(msg.Content, &types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String(part.ToolUseID),
						Name:      aws.String(part.ToolName),
						Input:     document.NewLazyDocument(freshMap(part.Data)),
					},
				})

			case "tool_result":
				msg.Content = append(msg.Content, &types.ContentBlockMemberToolResult{
					Value: types.ToolResultBlock{
						ToolUseId: aws.String(part.ToolUseID),
						Status:    types.ToolResultStatusSuccess,
						Content: []types.ToolResultContentBlock{
							&types.ToolResultContentBlockMemberJson{
								Value: document.NewLazyDocument(freshMap(part.Data)),
							},
						},
					},
				})
			}
		}

		msgs = append(msgs, msg)
	}

	in := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(c.modelID(tier)),
		System:   sys,
		Messages: msgs,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(c.opts.MaxTokens),
			Temperature: aws.Float32(c.opts.Temperature),
			TopP:        aws.Float32(c.opts.TopP),
		},
	}

	if len(prompt.Tools) > 0 {
		var toolSpecs []types.Tool
		for _, t := range prompt.Tools {
			spec, err := buildToolSpec(t)
			if err != nil {
				slog.Error("LLM_CLIENT: Failed to build tool spec", "tool", t.Name, "error", err)
				continue
			}
			toolSpecs = append(toolSpecs, &types.ToolMemberToolSpec{Value: spec})
		}
		in.ToolConfig = &types.ToolConfiguration{Tools: toolSpecs, ToolChoice: &types.ToolChoiceMemberAuto{}}
	}

	out, err := c.brc.Converse(ctx, in)
	if err != nil {
		slog.Error("LLM_CLIENT: Converse failed", "tier", tier.String(), "error", err)
		return Response{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	resp := Response{}
	if out.Usage != nil {
		resp.Usage = Usage{
			InputTokens:  aws.ToInt32(out.Usage.InputTokens),
			OutputTokens: aws.ToInt32(out.Usage.OutputTokens),
		}
	}

	slog.Info("LLM_CLIENT: Converse succeeded",
		"stop_reason", out.StopReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)

	switch out.StopReason {
	case types.StopReasonToolUse:
		resp.Content = textFromOutput(out)
		resp.ToolCalls = toolCallsFromOutput(out)
		return resp, nil

	case types.StopReasonEndTurn, types.StopReasonStopSequence:
		resp.Content = textFromOutput(out)
		return resp, nil

	case types.StopReasonMaxTokens:
		return Response{}, fmt.Errorf("%w: model hit max tokens limit", ErrTransport)

	case types.StopReasonContentFiltered, types.StopReasonGuardrailIntervened:
		return Response{}, fmt.Errorf("%w: response blocked by provider filters", ErrTransport)

	default:
		resp.Content = textFromOutput(out)
		resp.ToolCalls = toolCallsFromOutput(out)
		return resp, nil
	}
}

func imageFormat(mime string) types.ImageFormat {
	switch mime {
	case "image/png":
		return types.ImageFormatPng
	case "image/gif":
		return types.ImageFormatGif
	case "image/webp":
		return types.ImageFormatWebp
	default:
		return types.ImageFormatJpeg
	}
}

// freshMap round-trips through JSON so the smithy document layer never sees
// types it cannot serialize.
func freshMap(data map[string]any) map[string]any {
	out := make(map[string]any)
	b, _ := json.Marshal(data)
	if err := json.Unmarshal(b, &out); err != nil {
		for k, v := range data {
			out[k] = v
		}
	}
	return out
}

// buildToolSpec constructs a ToolSpecification for a tool.
func buildToolSpec(t Tool) (types.ToolSpecification, error) {
	schemaJSON, err := json.Marshal(t.InputSchema)
	if err != nil {
		return types.ToolSpecification{}, fmt.Errorf("failed to marshal tool schema for %s: %w", t.Name, err)
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return types.ToolSpecification{}, fmt.Errorf("failed to unmarshal tool schema for %s: %w", t.Name, err)
	}

	return types.ToolSpecification{
		Name:        aws.String(t.Name),
		Description: aws.String(t.Description),
		InputSchema: &types.ToolInputSchemaMemberJson{
			Value: document.NewLazyDocument(schemaMap),
		},
	}, nil
}

func textFromOutput(out *bedrockruntime.ConverseOutput) string {
	if out == nil || out.Output == nil {
		return ""
	}
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || len(msg.Value.Content) == 0 {
		return ""
	}

	var text string
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t.Value != "" {
			if text != "" {
				text += "\n"
			}
			text += t.Value
		}
	}
	return text
}

func toolCallsFromOutput(out *bedrockruntime.ConverseOutput) []ToolCall {
	var calls []ToolCall

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg.Value.Content == nil {
		return calls
	}

	for _, cb := range msg.Value.Content {
		tu, ok := cb.(*types.ContentBlockMemberToolUse)
		if !ok {
			continue
		}

		var input map[string]any
		if err := tu.Value.Input.UnmarshalSmithyDocument(&input); err != nil {
			input = map[string]any{}
		}

		normalized, _ := normalizeInput(input).(map[string]any)
		if normalized == nil {
			normalized = map[string]any{}
		}

		calls = append(calls, ToolCall{
			Name:      aws.ToString(tu.Value.Name),
			Input:     normalized,
			ToolUseID: aws.ToString(tu.Value.ToolUseId),
		})
	}

	return calls
}

// normalizeInput recursively coerces types for safe downstream use.
func normalizeInput(val any) any {
	switch v := val.(type) {
	case float64:
		// Convert whole numbers like 2.0 -> 2
		if v == float64(int(v)) {
			return int(v)
		}
		return v

	case string:
		// Stringified JSON arrays and objects come back as strings sometimes
		var decoded any
		if json.Unmarshal([]byte(v), &decoded) == nil {
			switch decoded.(type) {
			case map[string]any, []any:
				return normalizeInput(decoded)
			}
		}
		return v

	case []any:
		for i := range v {
			v[i] = normalizeInput(v[i])
		}
		return v

	case map[string]any:
		for key, val := range v {
			v[key] = normalizeInput(val)
		}
		return v

	default:
		return v
	}
}
