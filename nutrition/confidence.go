package nutrition

import (
	"fmt"

	"glpcoach"
)

// Policy turns a raw confidence score into the escalation decision, the
// low-confidence flag, and the clarification questions for the band the score
// falls in. Thresholds are injected, not hard-coded.
type Policy struct {
	th glpcoach.Thresholds
}

func NewPolicy(th glpcoach.Thresholds) *Policy {
	return &Policy{th: th}
}

// ShouldEscalate reports whether a cheap-tier result warrants one re-run on
// the capable tier. Escalation happens at most once per request; the caller
// enforces that by only consulting this for the first attempt.
func (p *Policy) ShouldEscalate(confidence float64) bool {
	return confidence < p.th.LowConfidenceBelow
}

// Low reports the low_confidence flag, strictly coupled to the threshold
// regardless of which band produced the score.
func (p *Policy) Low(confidence float64) bool {
	return confidence < p.th.LowConfidenceBelow
}

// Questions generates clarification questions for a meal parse. firstItem is
// the best detected item name, used to phrase the confirmation band; it may be
// empty.
func (p *Policy) Questions(confidence float64, firstItem string) []string {
	switch {
	case confidence < p.th.DetailBelow:
		return []string{
			"I couldn't identify the food reliably. Could you describe it again with more detail, " +
				"for example \"2 scrambled eggs with a slice of whole wheat toast\" or \"a bowl of oatmeal with banana\"?",
		}

	case confidence < p.th.LowConfidenceBelow:
		qs := make([]string, 0, 2)
		if firstItem != "" {
			qs = append(qs, fmt.Sprintf("Did you mean %q?", firstItem))
		} else {
			qs = append(qs, "Could you confirm what the main item was?")
		}
		qs = append(qs, "Were there any sides, drinks, or extras with it?")
		return qs

	case confidence < p.th.AskBelow:
		return []string{"Was this the complete meal?"}

	default:
		return nil
	}
}

// ExerciseQuestions is the exercise counterpart; same bands, activity phrasing.
func (p *Policy) ExerciseQuestions(confidence float64, firstItem string) []string {
	switch {
	case confidence < p.th.DetailBelow:
		return []string{
			"I couldn't identify the activity reliably. Could you describe it again with more detail, " +
				"for example \"30 minutes of jogging\" or \"3 sets of 10 squats with 40 kg\"?",
		}

	case confidence < p.th.LowConfidenceBelow:
		qs := make([]string, 0, 2)
		if firstItem != "" {
			qs = append(qs, fmt.Sprintf("Did you mean %q?", firstItem))
		} else {
			qs = append(qs, "Could you confirm what the activity was?")
		}
		qs = append(qs, "How long did it take, and how intense was it?")
		return qs

	case confidence < p.th.AskBelow:
		return []string{"Was that the whole workout?"}

	default:
		return nil
	}
}
