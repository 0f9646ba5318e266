package coach

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glpcoach"
	"glpcoach/llm"
	"glpcoach/nutrition"
	"glpcoach/tools"
	"glpcoach/tools/storage"
)

const safetyAllowJSON = `{"allow":true,"risk_level":"low","disclaimers":[],"reasoning":"general coaching"}`

func newTestRegistry(t *testing.T, store storage.RecordStore) *tools.Registry {
	t.Helper()
	parser := nutrition.NewParser(failingLLM(), nutrition.DefaultFoodTable(), glpcoach.DefaultThresholds(), glpcoach.NewNoOpToolRunLogger())
	registry, err := tools.NewRegistry(parser, store)
	require.NoError(t, err)
	return registry
}

func TestCoordinatorBlockedMessageShortCircuits(t *testing.T) {
	mock := failingLLM() // safety classifier fails, keyword fallback takes over
	store := storage.NewMemoryRecordStore()
	c := NewCoordinator(mock, NewSafetyGuard(mock), newTestRegistry(t, store), 6, nil)

	reply := c.Chat(context.Background(), "please change my dose", glpcoach.UserContext{UserID: "u1"})

	assert.True(t, reply.Blocked)
	assert.NotEmpty(t, reply.Answer)
	assert.NotEmpty(t, reply.Disclaimers)
	assert.Empty(t, reply.Actions)
	assert.Equal(t, 1, mock.callCount, "a blocked message never reaches the coaching model")
}

func TestCoordinatorAnswersWithoutTools(t *testing.T) {
	mock := &mockLLM{responses: []llm.Response{
		{Content: safetyAllowJSON},
		{Content: "Aim for protein at every meal and keep portions steady."},
	}}
	store := storage.NewMemoryRecordStore()
	c := NewCoordinator(mock, NewSafetyGuard(mock), newTestRegistry(t, store), 6, nil)

	reply := c.Chat(context.Background(), "any tips for eating out?", glpcoach.UserContext{UserID: "u1"})

	assert.False(t, reply.Blocked)
	assert.Equal(t, "Aim for protein at every meal and keep portions steady.", reply.Answer)
	assert.Empty(t, reply.Actions)
}

func TestCoordinatorInvalidToolCallIsSkippedNotFatal(t *testing.T) {
	// One out-of-range weight and one valid weight in the same turn: the bad
	// call is skipped, the good one is logged, and the turn still finishes.
	mock := &mockLLM{responses: []llm.Response{
		{Content: safetyAllowJSON},
		{ToolCalls: []llm.ToolCall{
			{Name: "log_weight", Input: map[string]any{"weight_kg": 500}, ToolUseID: "t1"},
			{Name: "log_weight", Input: map[string]any{"weight_kg": 82.5}, ToolUseID: "t2"},
		}},
		{Content: "Logged your weight at 82.5 kg."},
	}}
	store := storage.NewMemoryRecordStore()
	c := NewCoordinator(mock, NewSafetyGuard(mock), newTestRegistry(t, store), 6, nil)

	reply := c.Chat(context.Background(), "log my weight", glpcoach.UserContext{UserID: "u1"})

	assert.False(t, reply.Blocked)
	assert.Equal(t, "Logged your weight at 82.5 kg.", reply.Answer)
	require.Len(t, reply.Actions, 1, "only the valid call produces an action")
	assert.Equal(t, "log_weight", reply.Actions[0].Type)
	assert.NotEmpty(t, reply.Actions[0].ID)
	assert.Contains(t, reply.Actions[0].Summary, "82.5")
	assert.Equal(t, 1, store.Count("weights"))
}

func TestCoordinatorUnknownToolIsSkipped(t *testing.T) {
	mock := &mockLLM{responses: []llm.Response{
		{Content: safetyAllowJSON},
		{ToolCalls: []llm.ToolCall{
			{Name: "order_takeout", Input: map[string]any{}, ToolUseID: "t1"},
		}},
		{Content: "I can't order food, but I can log meals for you."},
	}}
	store := storage.NewMemoryRecordStore()
	c := NewCoordinator(mock, NewSafetyGuard(mock), newTestRegistry(t, store), 6, nil)

	reply := c.Chat(context.Background(), "order me a pizza", glpcoach.UserContext{UserID: "u1"})

	assert.Empty(t, reply.Actions)
	assert.Equal(t, "I can't order food, but I can log meals for you.", reply.Answer)
}

func TestCoordinatorModelFailureDegrades(t *testing.T) {
	mock := &mockLLM{
		responses: []llm.Response{{Content: safetyAllowJSON}},
		errs:      []error{nil, fmt.Errorf("%w: down", llm.ErrTransport)},
	}
	store := storage.NewMemoryRecordStore()
	c := NewCoordinator(mock, NewSafetyGuard(mock), newTestRegistry(t, store), 6, nil)

	reply := c.Chat(context.Background(), "hello", glpcoach.UserContext{UserID: "u1"})

	assert.False(t, reply.Blocked)
	assert.NotEmpty(t, reply.Answer, "upstream failure still yields a complete reply")
	assert.Empty(t, reply.Actions)
}

// brokenRunLogger fails every write, like a full disk under the file logger.
type brokenRunLogger struct{}

func (l *brokenRunLogger) LogRun(run glpcoach.ToolRunLog) error {
	return fmt.Errorf("log sink unavailable")
}

func TestCoordinatorRunLoggerFailureDoesNotAffectTurn(t *testing.T) {
	mock := &mockLLM{responses: []llm.Response{
		{Content: safetyAllowJSON},
		{ToolCalls: []llm.ToolCall{
			{Name: "log_weight", Input: map[string]any{"weight_kg": 82.5}, ToolUseID: "t1"},
		}},
		{Content: "Logged your weight."},
	}}
	store := storage.NewMemoryRecordStore()
	c := NewCoordinator(mock, NewSafetyGuard(mock), newTestRegistry(t, store), 6, &brokenRunLogger{})

	reply := c.Chat(context.Background(), "log my weight", glpcoach.UserContext{UserID: "u1"})

	assert.Equal(t, "Logged your weight.", reply.Answer)
	require.Len(t, reply.Actions, 1)
	assert.Equal(t, 1, store.Count("weights"), "audit logging is best effort, the record still lands")
}

func TestCoordinatorInjectsUserAndAnchor(t *testing.T) {
	mock := &mockLLM{responses: []llm.Response{
		{Content: safetyAllowJSON},
		{ToolCalls: []llm.ToolCall{
			{Name: "log_weight", Input: map[string]any{"weight_kg": 90, "when": "this morning"}, ToolUseID: "t1"},
		}},
		{Content: "Done."},
	}}
	store := storage.NewMemoryRecordStore()
	c := NewCoordinator(mock, NewSafetyGuard(mock), newTestRegistry(t, store), 6, nil)

	reply := c.Chat(context.Background(), "weighed 90 kg this morning", glpcoach.UserContext{UserID: "u42"})

	require.Len(t, reply.Actions, 1)
	rec, err := store.Get(context.Background(), "weights", reply.Actions[0].ID, "u42")
	require.NoError(t, err)
	assert.Equal(t, "u42", rec.UserID)
	assert.Equal(t, 8, rec.At.Hour(), "relative phrase resolves against the turn anchor")
}
