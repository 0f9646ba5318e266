package coach

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"glpcoach"
	"glpcoach/llm"
	"glpcoach/tools"
)

const coachSystemPrompt = `You are a supportive health coach for users tracking meals, exercise, and weight while on GLP-1 medication. Answer questions about nutrition, exercise, and lifestyle plainly and encouragingly.

When the user describes something they ate, an activity they did, or a weight measurement, call the matching tool (log_meal, log_exercise, log_weight) to record it, then confirm what was logged in your reply. Pass the user's own wording as the description and any relative time phrase (such as "this morning" or "for lunch") in the "when" field.

Never give medical advice about medication dosing, starting or stopping medication, or diagnosing symptoms.`

// ToolProvider hands the coordinator its executable tools.
type ToolProvider interface {
	GetTool(name string) (tools.Tool, error)
	GetTools() []tools.Tool
}

// Coordinator runs one coaching chat turn: safety gate, then a model
// conversation that may call logging tools before producing the final answer.
type Coordinator struct {
	llm           llmClient
	guard         *SafetyGuard
	toolProvider  ToolProvider
	maxIterations int
	runLogger     glpcoach.ToolRunLogger
}

// NewCoordinator initializes a new coordinator.
func NewCoordinator(client llmClient, guard *SafetyGuard, toolProvider ToolProvider, maxIterations int, runLogger glpcoach.ToolRunLogger) *Coordinator {
	if runLogger == nil {
		runLogger = glpcoach.NewNoOpToolRunLogger()
	}
	if maxIterations <= 0 {
		maxIterations = 6
	}
	return &Coordinator{
		llm:           client,
		guard:         guard,
		toolProvider:  toolProvider,
		maxIterations: maxIterations,
		runLogger:     runLogger,
	}
}

// Chat executes one turn. It always returns a complete reply; upstream model
// failures degrade the answer rather than surfacing as errors.
func (c *Coordinator) Chat(ctx context.Context, message string, userCtx glpcoach.UserContext) glpcoach.CoachReply {
	ctx, span := otel.Tracer(glpcoach.TracerNameCoach).Start(ctx, "Coordinator.Chat")
	defer span.End()

	meter := otel.Meter(glpcoach.TracerNameCoach)
	turnsCounter, _ := meter.Int64Counter("coach_turns_total",
		metric.WithDescription("Total number of coaching turns started"))
	blockedCounter, _ := meter.Int64Counter("coach_turns_blocked_total",
		metric.WithDescription("Total number of turns refused by the safety guard"))
	toolCallsCounter, _ := meter.Int64Counter("coach_tool_calls_total",
		metric.WithDescription("Total number of tool calls requested by the model"))
	toolCallsSkippedCounter, _ := meter.Int64Counter("coach_tool_calls_skipped_total",
		metric.WithDescription("Total number of tool calls skipped due to invalid input"))
	modelResponseTimeHist, _ := meter.Float64Histogram("coach_model_response_seconds",
		metric.WithDescription("Time taken to receive a model response in seconds"))

	turnsCounter.Add(ctx, 1)

	// One anchor per turn so every relative time phrase in this turn resolves
	// against the same instant.
	anchor := time.Now()

	slog.Info("COACH: Starting turn", "user_id", userCtx.UserID, "message_length", len(message))

	decision := c.guard.Check(ctx, message, userCtx)
	if !decision.Allow {
		slog.Info("COACH: Message blocked by safety guard", "risk_level", decision.RiskLevel)
		blockedCounter.Add(ctx, 1)
		return glpcoach.CoachReply{
			Answer:      decision.Disclaimers[0],
			Disclaimers: decision.Disclaimers,
			Blocked:     true,
		}
	}

	prompt := llm.NewTextPrompt(coachSystemPrompt, message)
	for _, t := range c.toolProvider.GetTools() {
		prompt.Tools = append(prompt.Tools, llm.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}

	var answer string
	var actions []glpcoach.LoggedAction

	for iter := 0; iter < c.maxIterations; iter++ {
		invokeStart := time.Now()
		res, err := c.llm.Invoke(ctx, llm.TierCapable, prompt)
		modelResponseTimeHist.Record(ctx, time.Since(invokeStart).Seconds())
		if err != nil {
			slog.Error("COACH: Model call failed", "error", err, "iteration", iter+1)
			return glpcoach.CoachReply{
				Answer:      "I couldn't reach the coaching service just now. Your message was not lost; please try again in a moment.",
				Disclaimers: decision.Disclaimers,
				Actions:     actions,
			}
		}

		slog.Info("COACH: Model response received",
			"iteration", iter+1,
			"content_length", len(res.Content),
			"tool_calls", len(res.ToolCalls),
		)

		if len(res.ToolCalls) == 0 {
			answer = res.Content
			break
		}

		assistantMsg := llm.Message{Role: "assistant", Content: llm.MessageParts{}}
		if res.Content != "" {
			assistantMsg.Content = append(assistantMsg.Content, llm.MessagePart{Type: "text", Text: res.Content})
		}
		for _, call := range res.ToolCalls {
			assistantMsg.Content = append(assistantMsg.Content, llm.MessagePart{
				Type:      "tool_use",
				ToolUseID: call.ToolUseID,
				ToolName:  call.Name,
				Data:      call.Input,
			})
		}
		prompt.Messages = append(prompt.Messages, assistantMsg)

		var results []llm.ToolResult
		for _, call := range res.ToolCalls {
			toolCallsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("tool_name", call.Name)))
			result, action, rerr := c.runToolCall(ctx, call, userCtx, anchor)
			if rerr != nil {
				// A bad tool call is skipped, never fatal for the turn.
				slog.Warn("COACH: Tool call skipped", "tool", call.Name, "error", rerr)
				toolCallsSkippedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("tool_name", call.Name)))
				results = append(results, llm.ToolResult{
					ToolUseID: call.ToolUseID,
					ToolName:  call.Name,
					Data:      map[string]any{"error": fmt.Sprintf("this action was skipped: %v", rerr)},
				})
				continue
			}
			actions = append(actions, action)
			results = append(results, llm.ToolResult{
				ToolUseID: call.ToolUseID,
				ToolName:  call.Name,
				Data:      result,
			})
		}
		prompt.Messages = append(prompt.Messages, llm.NewToolResultMessage(results))
	}

	if answer == "" {
		answer = "I logged what I could, but ran out of room to finish a full reply. Ask me again if anything is missing."
	}

	return glpcoach.CoachReply{
		Answer:      answer,
		Disclaimers: decision.Disclaimers,
		Actions:     actions,
	}
}

func (c *Coordinator) runToolCall(ctx context.Context, call llm.ToolCall, userCtx glpcoach.UserContext, anchor time.Time) (map[string]any, glpcoach.LoggedAction, error) {
	tool, err := c.toolProvider.GetTool(call.Name)
	if err != nil {
		return nil, glpcoach.LoggedAction{}, err
	}

	input := make(map[string]any, len(call.Input)+3)
	for k, v := range call.Input {
		input[k] = v
	}
	input[tools.AnchorKey] = anchor.Format(time.RFC3339)
	if _, ok := input["user_id"]; !ok && userCtx.UserID != "" {
		input["user_id"] = userCtx.UserID
	}
	if _, ok := input["weight_kg"]; !ok && call.Name == "log_exercise" && userCtx.WeightKg > 0 {
		input["weight_kg"] = userCtx.WeightKg
	}

	start := time.Now()
	result, err := tool.Run(ctx, input)
	if lerr := c.runLogger.LogRun(glpcoach.ToolRunLog{
		Tool:      call.Name,
		Timestamp: start,
		Input:     input,
		Output:    result,
		LatencyMS: time.Since(start).Milliseconds(),
		Success:   err == nil,
		Error:     errString(err),
	}); lerr != nil {
		slog.Error("COACH: Failed to log tool run", "error", lerr)
	}
	if err != nil {
		return nil, glpcoach.LoggedAction{}, err
	}

	id, _ := result["id"].(string)
	summary, _ := result["summary"].(string)
	return result, glpcoach.LoggedAction{
		Type:    call.Name,
		ID:      id,
		Summary: summary,
		Detail:  result,
		At:      anchor,
	}, nil
}

func errString(err error) string {
	if err != nil {
		return err.Error()
	}
	return ""
}
