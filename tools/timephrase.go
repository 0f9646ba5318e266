package tools

import (
	"strings"
	"time"
)

// phraseOffset positions a record relative to the turn's time anchor. Hour is
// the clock hour to pin when >= 0; DayDelta shifts whole days first.
type phraseOffset struct {
	DayDelta int
	Hour     int
}

var timePhrases = map[string]phraseOffset{
	"now":               {Hour: -1},
	"just now":          {Hour: -1},
	"today":             {Hour: -1},
	"this morning":      {Hour: 8},
	"morning":           {Hour: 8},
	"for breakfast":     {Hour: 8},
	"breakfast":         {Hour: 8},
	"for lunch":         {Hour: 12},
	"lunch":             {Hour: 12},
	"this afternoon":    {Hour: 15},
	"afternoon":         {Hour: 15},
	"this evening":      {Hour: 19},
	"evening":           {Hour: 19},
	"for dinner":        {Hour: 19},
	"dinner":            {Hour: 19},
	"tonight":           {Hour: 21},
	"last night":        {DayDelta: -1, Hour: 21},
	"yesterday":         {DayDelta: -1, Hour: 12},
	"yesterday morning": {DayDelta: -1, Hour: 8},
	"yesterday evening": {DayDelta: -1, Hour: 19},
}

// ResolveWhen maps a relative time phrase to a concrete instant against the
// given anchor. Unrecognized or empty phrases resolve to the anchor itself, so
// a record is never dropped over an odd phrasing.
func ResolveWhen(phrase string, anchor time.Time) time.Time {
	p := strings.ToLower(strings.TrimSpace(phrase))
	off, ok := timePhrases[p]
	if !ok {
		return anchor
	}
	t := anchor.AddDate(0, 0, off.DayDelta)
	if off.Hour >= 0 {
		t = time.Date(t.Year(), t.Month(), t.Day(), off.Hour, 0, 0, 0, t.Location())
	}
	return t
}

// anchorFromInput reads the coordinator-injected anchor, falling back to the
// wall clock when a tool is called outside a coordinated turn.
func anchorFromInput(input map[string]any) time.Time {
	if raw, ok := input[AnchorKey].(string); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return time.Now()
}
