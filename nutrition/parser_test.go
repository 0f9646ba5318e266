package nutrition

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glpcoach"
	"glpcoach/llm"
)

// mockLLM implements the llmClient interface for testing, recording the tier
// of every call.
type mockLLM struct {
	responses []llm.Response
	errs      []error
	tiers     []llm.Tier
	callCount int
}

func (m *mockLLM) Invoke(ctx context.Context, tier llm.Tier, prompt llm.Prompt) (llm.Response, error) {
	m.tiers = append(m.tiers, tier)
	i := m.callCount
	m.callCount++
	if i < len(m.errs) && m.errs[i] != nil {
		return llm.Response{}, m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return llm.Response{}, fmt.Errorf("no more responses available")
}

func textResponse(content string) llm.Response {
	return llm.Response{Content: content}
}

func newTestParser(mock *mockLLM) *Parser {
	return NewParser(mock, DefaultFoodTable(), glpcoach.DefaultThresholds(), glpcoach.NewNoOpToolRunLogger())
}

func mealJSON(confidence float64, items ...string) string {
	body := ""
	for i, it := range items {
		if i > 0 {
			body += ","
		}
		body += it
	}
	return fmt.Sprintf(`{"items":[%s],"confidence":%g}`, body, confidence)
}

const eggItem = `{"name":"scrambled eggs","qty":2,"unit":"egg","kcal":182,"protein_g":12.6,"carbs_g":1.2,"fat_g":13.4}`
const toastItem = `{"name":"whole wheat toast","qty":1,"unit":"slice","kcal":75,"protein_g":2.5,"carbs_g":14,"fat_g":1}`

func TestParseTextHighConfidence(t *testing.T) {
	mock := &mockLLM{responses: []llm.Response{textResponse(mealJSON(0.92, eggItem, toastItem))}}
	p := newTestParser(mock)

	result := p.ParseText(context.Background(), "2 scrambled eggs and a slice of toast", "")

	require.Len(t, result.Items, 2)
	assert.Equal(t, "scrambled eggs", result.Items[0].Name)
	assert.Equal(t, 257, result.Totals.Kcal)
	assert.InDelta(t, 15.1, result.Totals.ProteinG, 1e-9)
	assert.Equal(t, 0.92, result.Confidence)
	assert.False(t, result.LowConfidence)
	assert.Empty(t, result.Questions)
	assert.Equal(t, 1, mock.callCount, "high confidence must not escalate")
	assert.True(t, result.IsConsistent())
}

func TestParseTextTotalsRecomputed(t *testing.T) {
	// The model's own totals are never trusted; even a response that only
	// carries items must come back with totals equal to the elementwise sum.
	mock := &mockLLM{responses: []llm.Response{textResponse(mealJSON(0.85, eggItem, toastItem))}}
	p := newTestParser(mock)

	result := p.ParseText(context.Background(), "eggs and toast", "")

	assert.Equal(t, glpcoach.SumTotals(result.Items), result.Totals)
}

func TestParseTextEscalatesExactlyOnce(t *testing.T) {
	mock := &mockLLM{responses: []llm.Response{
		textResponse(mealJSON(0.4, eggItem)),
		textResponse(mealJSON(0.9, eggItem, toastItem)),
	}}
	p := newTestParser(mock)

	result := p.ParseText(context.Background(), "egs and tost", "")

	require.Equal(t, 2, mock.callCount)
	assert.Equal(t, []llm.Tier{llm.TierCheap, llm.TierCapable}, mock.tiers)
	assert.Equal(t, 0.9, result.Confidence)
	require.Len(t, result.Items, 2)
}

func TestParseTextEscalationSupersedesUnconditionally(t *testing.T) {
	// The capable tier's answer wins even when its confidence is lower, and a
	// still-low second result never triggers a third call.
	mock := &mockLLM{responses: []llm.Response{
		textResponse(mealJSON(0.4, eggItem)),
		textResponse(mealJSON(0.3, toastItem)),
	}}
	p := newTestParser(mock)

	result := p.ParseText(context.Background(), "something vague", "")

	assert.Equal(t, 2, mock.callCount, "escalation happens at most once")
	assert.Equal(t, 0.3, result.Confidence)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "whole wheat toast", result.Items[0].Name)
	assert.True(t, result.LowConfidence)
	assert.NotEmpty(t, result.Questions)
}

func TestParseTextEscalationFailureKeepsCheapResult(t *testing.T) {
	mock := &mockLLM{
		responses: []llm.Response{textResponse(mealJSON(0.4, eggItem)), {}},
		errs:      []error{nil, fmt.Errorf("%w: throttled", llm.ErrTransport)},
	}
	p := newTestParser(mock)

	result := p.ParseText(context.Background(), "eggs maybe", "")

	assert.Equal(t, 2, mock.callCount)
	assert.Equal(t, 0.4, result.Confidence)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "scrambled eggs", result.Items[0].Name)
}

func TestParseTextNoFoodDetected(t *testing.T) {
	mock := &mockLLM{responses: []llm.Response{
		textResponse(`{"items":[],"confidence":0}`),
		textResponse(`{"items":[],"confidence":0}`),
	}}
	p := newTestParser(mock)

	result := p.ParseText(context.Background(), "how are you today", "")

	assert.Empty(t, result.Items)
	assert.Equal(t, glpcoach.MacroTotals{}, result.Totals)
	assert.Equal(t, 0.0, result.Confidence)
	assert.True(t, result.LowConfidence)
	assert.NotEmpty(t, result.Questions)
	assert.Equal(t, 2, mock.callCount, "an empty result is low confidence, so it gets one second opinion")
}

func TestParseTextEmptyCheapResultGetsSecondOpinion(t *testing.T) {
	// A cheap-tier misread that finds nothing is exactly the case the capable
	// tier exists for: escalation keys on confidence alone, not item count.
	mock := &mockLLM{responses: []llm.Response{
		textResponse(`{"items":[],"confidence":0}`),
		textResponse(mealJSON(0.85, eggItem)),
	}}
	p := newTestParser(mock)

	result := p.ParseText(context.Background(), "scrmbld egs", "")

	require.Equal(t, 2, mock.callCount)
	assert.Equal(t, []llm.Tier{llm.TierCheap, llm.TierCapable}, mock.tiers)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "scrambled eggs", result.Items[0].Name)
	assert.Equal(t, 0.85, result.Confidence)
}

func TestParseTextTransportFailureFallsBack(t *testing.T) {
	mock := &mockLLM{errs: []error{fmt.Errorf("%w: connection reset", llm.ErrTransport)}}
	p := newTestParser(mock)

	result := p.ParseText(context.Background(), "pizza for lunch", "")

	require.Len(t, result.Items, 1)
	assert.Equal(t, "pizza", result.Items[0].Name)
	assert.Equal(t, 0.45, result.Confidence, "transient failures rank above malformed output")
	assert.True(t, result.LowConfidence)
	assert.NotEmpty(t, result.Questions)
	assert.True(t, result.IsConsistent())
}

func TestParseTextMalformedResponseFallsBack(t *testing.T) {
	mock := &mockLLM{responses: []llm.Response{textResponse("Sure! Here's what I found: lots of pizza.")}}
	p := newTestParser(mock)

	result := p.ParseText(context.Background(), "pizza for lunch", "")

	require.Len(t, result.Items, 1)
	assert.Equal(t, "pizza", result.Items[0].Name)
	assert.Equal(t, 0.1, result.Confidence)
	assert.True(t, result.LowConfidence)
}

func TestParseTextFallbackSentinelForcesLowestConfidence(t *testing.T) {
	// A transport failure normally scores 0.45, but when even the fallback
	// matcher finds nothing the result drops to the malformed class.
	mock := &mockLLM{errs: []error{fmt.Errorf("%w: timeout", llm.ErrTransport)}}
	p := newTestParser(mock)

	result := p.ParseText(context.Background(), "xqzwv glorp", "")

	require.Len(t, result.Items, 1)
	assert.Equal(t, SentinelUnrecognized, result.Items[0].Name)
	assert.Equal(t, 0.1, result.Confidence)
	assert.NotEmpty(t, result.Questions)
}

func TestParseTextQuestionBands(t *testing.T) {
	tests := []struct {
		name         string
		confidence   float64
		wantLow      bool
		wantQuestion string
	}{
		{"very low asks for re-description", 0.1, true, "describe it again"},
		{"low asks to confirm the item", 0.4, true, "Did you mean"},
		{"medium asks completeness", 0.7, false, "complete meal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockLLM{responses: []llm.Response{
				textResponse(mealJSON(tt.confidence, eggItem)),
				textResponse(mealJSON(tt.confidence, eggItem)), // consumed only by escalating cases
			}}
			p := newTestParser(mock)

			result := p.ParseText(context.Background(), "eggs", "")

			assert.Equal(t, tt.wantLow, result.LowConfidence)
			require.NotEmpty(t, result.Questions)
			found := false
			for _, q := range result.Questions {
				if strings.Contains(strings.ToLower(q), strings.ToLower(tt.wantQuestion)) {
					found = true
				}
			}
			assert.True(t, found, "questions %v should mention %q", result.Questions, tt.wantQuestion)
		})
	}
}

func TestParseImageNoFood(t *testing.T) {
	png := base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a})
	mock := &mockLLM{responses: []llm.Response{textResponse(`{"is_food":false,"items":[],"confidence":0.95}`)}}
	p := newTestParser(mock)

	result := p.ParseImage(context.Background(), png, "")

	assert.Empty(t, result.Items)
	assert.Equal(t, glpcoach.MacroTotals{}, result.Totals)
	assert.Equal(t, 0.0, result.Confidence)
	assert.True(t, result.LowConfidence)
	require.Len(t, result.Questions, 1)
	assert.NotEmpty(t, result.Questions[0])
	assert.Equal(t, 1, mock.callCount, "a definitive no-food answer is never escalated")
}

func TestParseImageUndecodableInputShortCircuits(t *testing.T) {
	mock := &mockLLM{}
	p := newTestParser(mock)

	result := p.ParseImage(context.Background(), "https://example.com/meal.jpg", "")

	assert.Zero(t, mock.callCount, "external URLs must not reach the model")
	require.Len(t, result.Items, 1)
	assert.Equal(t, SentinelUnidentifiedPhoto, result.Items[0].Name)
	assert.Equal(t, 0.1, result.Confidence)
	assert.NotEmpty(t, result.Questions)
}

func TestParseImageTransportFailure(t *testing.T) {
	jpeg := base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00})
	mock := &mockLLM{errs: []error{fmt.Errorf("%w: 503", llm.ErrTransport)}}
	p := newTestParser(mock)

	result := p.ParseImage(context.Background(), jpeg, "")

	require.Len(t, result.Items, 1)
	assert.Equal(t, SentinelUnidentifiedPhoto, result.Items[0].Name)
	assert.Equal(t, 0.45, result.Confidence)
	assert.True(t, result.LowConfidence)
}

func TestParseImageSuccess(t *testing.T) {
	jpeg := base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00})
	mock := &mockLLM{responses: []llm.Response{
		textResponse(`{"is_food":true,"items":[` + eggItem + `],"confidence":0.82}`),
	}}
	p := newTestParser(mock)

	result := p.ParseImage(context.Background(), jpeg, "looks like breakfast")

	require.Len(t, result.Items, 1)
	assert.Equal(t, 0.82, result.Confidence)
	assert.False(t, result.LowConfidence)
	assert.Empty(t, result.Questions)
	assert.True(t, result.IsConsistent())
}

func TestParseExerciseSuccess(t *testing.T) {
	mock := &mockLLM{responses: []llm.Response{textResponse(
		`{"items":[{"name":"running","category":"cardio","duration_min":30,"sets":0,"reps":0,"weight_kg":0,"intensity":"moderate","equipment":"","est_kcal":300}],"confidence":0.9}`,
	)}}
	p := newTestParser(mock)

	result := p.ParseExercise(context.Background(), "ran 30 minutes", 70)

	require.Len(t, result.Items, 1)
	assert.Equal(t, "running", result.Items[0].Name)
	assert.Equal(t, glpcoach.CategoryCardio, result.Items[0].Category)
	assert.Equal(t, 30.0, result.TotalDurationMin)
	assert.Equal(t, 300, result.TotalKcal)
	assert.False(t, result.LowConfidence)
	assert.Empty(t, result.Questions)
}

func TestParseExerciseFallbackUsesMETEstimate(t *testing.T) {
	mock := &mockLLM{errs: []error{fmt.Errorf("%w: down", llm.ErrTransport)}}
	p := newTestParser(mock)

	result := p.ParseExercise(context.Background(), "ran for 30 minutes", 70)

	require.Len(t, result.Items, 1)
	assert.Equal(t, "running", result.Items[0].Name)
	// 8.5 MET x 70 kg x 0.5 h
	assert.Equal(t, 298, result.Items[0].EstKcal)
	assert.Equal(t, 0.45, result.Confidence)
	assert.True(t, result.LowConfidence)
	assert.NotEmpty(t, result.Questions)
}

func TestParseExerciseEmptyCheapResultGetsSecondOpinion(t *testing.T) {
	mock := &mockLLM{responses: []llm.Response{
		textResponse(`{"items":[],"confidence":0}`),
		textResponse(`{"items":[{"name":"running","category":"cardio","duration_min":30,"sets":0,"reps":0,"weight_kg":0,"intensity":"moderate","equipment":"","est_kcal":300}],"confidence":0.9}`),
	}}
	p := newTestParser(mock)

	result := p.ParseExercise(context.Background(), "went 4 a run", 70)

	require.Equal(t, 2, mock.callCount)
	assert.Equal(t, []llm.Tier{llm.TierCheap, llm.TierCapable}, mock.tiers)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "running", result.Items[0].Name)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestParseExerciseFallbackNoActivity(t *testing.T) {
	mock := &mockLLM{responses: []llm.Response{textResponse("garbage, not json")}}
	p := newTestParser(mock)

	result := p.ParseExercise(context.Background(), "hello there", 70)

	assert.Empty(t, result.Items)
	assert.Equal(t, 0.0, result.Confidence)
	assert.True(t, result.LowConfidence)
	assert.NotEmpty(t, result.Questions)
}
