package coach

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"glpcoach"
	"glpcoach/llm"
)

// llmClient is the slice of the model client the coach needs.
type llmClient interface {
	Invoke(ctx context.Context, tier llm.Tier, prompt llm.Prompt) (llm.Response, error)
}

const safetySystemPrompt = `You are a safety classifier for a GLP-1 health coaching assistant. Classify the user's message into exactly one category:

BLOCK: medication dosing changes, starting or stopping medication, symptom diagnosis, emergency situations.
DISCLAIM: general GLP-1 medication information, side-effect discussion, very-low-calorie diets under 1200 kcal, exercise with medical conditions.
ALLOW: general nutrition, exercise, and lifestyle coaching.

Respond with a single JSON object and nothing else:
{"allow": <boolean>, "risk_level": "low"|"medium"|"high", "disclaimers": [<strings>], "reasoning": <string>}

Rules:
- BLOCK means allow=false and risk_level "high", with a disclaimer explaining the refusal and directing the user to their healthcare provider.
- DISCLAIM means allow=true with at least one relevant disclaimer.
- ALLOW means allow=true with no disclaimers.
- Never answer the user's question. Only classify it.`

const medicalDisclaimer = "This information is for educational purposes only. Always consult your healthcare provider for medical advice."
const vlcdDisclaimer = "Very low calorie diets should only be followed under medical supervision."
const refusalDisclaimer = "I cannot provide specific medical advice. Please consult your healthcare provider."

var medicalKeywords = []string{
	"dose", "medication", "side effect", "nausea", "vomiting",
	"heart", "blood pressure", "diabetes", "pregnant", "surgery",
	"ozempic", "wegovy", "mounjaro", "semaglutide", "tirzepatide", "insulin",
}

var blockingPhrases = []string{
	"should i take",
	"can i stop",
	"change my dose",
	"increase my dose",
	"decrease my dose",
	"increase the dose",
	"decrease the dose",
}

var calorieTokens = []string{"1200", "1000", "800", "500"}

// SafetyGuard classifies a coaching message for medical-advice risk before any
// model-generated reply. The model classifier is the primary path; a
// deterministic keyword scan takes over whenever the classifier call fails or
// returns something undecodable.
type SafetyGuard struct {
	llm llmClient
}

func NewSafetyGuard(client llmClient) *SafetyGuard {
	return &SafetyGuard{llm: client}
}

type safetyWire struct {
	Allow       bool     `json:"allow"`
	RiskLevel   string   `json:"risk_level"`
	Disclaimers []string `json:"disclaimers"`
	Reasoning   string   `json:"reasoning"`
}

// Check returns a complete SafetyDecision under all conditions. It never
// returns an error; degraded classification shows up as the keyword fallback's
// more conservative output.
func (g *SafetyGuard) Check(ctx context.Context, message string, userCtx glpcoach.UserContext) glpcoach.SafetyDecision {
	res, err := g.llm.Invoke(ctx, llm.TierCheap, llm.NewTextPrompt(safetySystemPrompt, message))
	if err != nil {
		slog.Warn("SAFETY: Classifier call failed, using keyword fallback", "error", err)
		return g.keywordFallback(message)
	}

	raw, err := llm.ExtractJSON(res.Content)
	if err != nil {
		slog.Warn("SAFETY: Classifier returned no JSON, using keyword fallback", "error", err)
		return g.keywordFallback(message)
	}

	var wire safetyWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		slog.Warn("SAFETY: Classifier JSON undecodable, using keyword fallback", "error", err)
		return g.keywordFallback(message)
	}

	decision := glpcoach.SafetyDecision{
		Allow:       wire.Allow,
		RiskLevel:   glpcoach.RiskLevel(wire.RiskLevel),
		Disclaimers: wire.Disclaimers,
		Reasoning:   wire.Reasoning,
	}
	switch decision.RiskLevel {
	case glpcoach.RiskLow, glpcoach.RiskMedium, glpcoach.RiskHigh:
	default:
		slog.Warn("SAFETY: Classifier returned unknown risk level, using keyword fallback", "risk_level", wire.RiskLevel)
		return g.keywordFallback(message)
	}
	// A refusal must always explain itself.
	if !decision.Allow && len(decision.Disclaimers) == 0 {
		decision.Disclaimers = []string{refusalDisclaimer}
	}
	return decision
}

// keywordFallback is the deterministic path. Only the explicit blocking-phrase
// list forces a refusal; medical keyword mentions alone add a disclaimer.
func (g *SafetyGuard) keywordFallback(message string) glpcoach.SafetyDecision {
	lower := strings.ToLower(message)

	decision := glpcoach.SafetyDecision{
		Allow:     true,
		RiskLevel: glpcoach.RiskLow,
		Reasoning: "keyword fallback",
	}

	for _, kw := range medicalKeywords {
		if strings.Contains(lower, kw) {
			decision.Disclaimers = append(decision.Disclaimers, medicalDisclaimer)
			decision.RiskLevel = glpcoach.RiskMedium
			break
		}
	}

	for _, tok := range calorieTokens {
		if strings.Contains(message, tok) {
			decision.Disclaimers = append(decision.Disclaimers, vlcdDisclaimer)
			if decision.RiskLevel == glpcoach.RiskLow {
				decision.RiskLevel = glpcoach.RiskMedium
			}
			break
		}
	}

	for _, phrase := range blockingPhrases {
		if strings.Contains(lower, phrase) {
			decision.Allow = false
			decision.RiskLevel = glpcoach.RiskHigh
			decision.Disclaimers = append(decision.Disclaimers, refusalDisclaimer)
			break
		}
	}

	return decision
}
