package nutrition

import (
	"encoding/json"
	"fmt"
	"strings"

	"glpcoach/llm"
)

const mealSystemPrompt = `You are a nutrition extraction engine for a weight management app.

Respond with a SINGLE JSON object and nothing else: no explanations, no markdown fences, no text before or after. Schema:
{
  "items": [
    {
      "name": string,      // canonical food name, spelling corrected
      "qty": number,       // amount for the stated quantity, > 0
      "unit": string,      // g, ml, cup, slice, serving, ...
      "kcal": number,      // TOTAL calories for qty, not per unit
      "protein_g": number, // TOTAL grams for qty
      "carbs_g": number,   // TOTAL grams for qty
      "fat_g": number      // TOTAL grams for qty
    }
  ],
  "confidence": number     // 0..1, your certainty in the extraction
}

RULES:
- Compute totals for the literal quantity the user stated ("3 eggs" means kcal for 3 eggs), never a default serving.
- Correct misspelled food names to their canonical form.
- Include every distinct food mentioned as its own item.
- If no food is mentioned at all, return {"items": [], "confidence": 0}.`

const imageSystemPrompt = `You are a nutrition extraction engine analyzing a meal photo.

Respond with a SINGLE JSON object and nothing else: no explanations, no markdown fences, no text before or after. Schema:
{
  "is_food": boolean,      // false when the image contains no identifiable food
  "items": [
    {
      "name": string,      // canonical food name
      "qty": number,       // estimated amount visible, > 0
      "unit": string,
      "kcal": number,      // TOTAL calories for the visible portion
      "protein_g": number,
      "carbs_g": number,
      "fat_g": number
    }
  ],
  "confidence": number     // 0..1
}

RULES:
- Estimate portion sizes from visual cues (plate size, utensils).
- Totals are for the visible portion, not per 100g.
- If the image shows no food, set is_food to false and items to [].`

const exerciseSystemPrompt = `You are an exercise extraction engine for a weight management app.

Respond with a SINGLE JSON object and nothing else: no explanations, no markdown fences, no text before or after. Schema:
{
  "items": [
    {
      "name": string,          // canonical exercise name
      "category": string,      // one of: cardio, strength, flexibility, sport
      "duration_min": number,  // 0 when unknown
      "sets": number,          // 0 when not applicable
      "reps": number,          // 0 when not applicable
      "weight_kg": number,     // equipment weight, 0 when not applicable
      "intensity": string,     // one of: low, moderate, high
      "equipment": string,     // "" when none
      "est_kcal": number       // TOTAL estimated calories burned
    }
  ],
  "confidence": number         // 0..1
}

RULES:
- Estimate est_kcal from the activity, duration, intensity, and the user's body weight given in the message.
- Use the literal duration the user stated.
- If no exercise is mentioned at all, return {"items": [], "confidence": 0}.`

type mealItemWire struct {
	Name     string  `json:"name"`
	Qty      float64 `json:"qty"`
	Unit     string  `json:"unit"`
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

type mealWire struct {
	IsFood     *bool          `json:"is_food,omitempty"`
	Items      []mealItemWire `json:"items"`
	Confidence float64        `json:"confidence"`
}

var mealItemRequired = []string{"name", "qty", "unit", "kcal", "protein_g", "carbs_g", "fat_g"}

// decodeMealWire validates shape before trusting the payload: the raw object
// must carry items and confidence, and every item must carry every required
// field with the right JSON type. Any violation is a malformed response, which
// is the signal that routes to the fallback path.
func decodeMealWire(raw string) (mealWire, error) {
	text, err := llm.ExtractJSON(raw)
	if err != nil {
		return mealWire{}, err
	}

	var probe map[string]any
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return mealWire{}, fmt.Errorf("%w: %v", llm.ErrMalformed, err)
	}
	if _, ok := probe["items"]; !ok {
		return mealWire{}, fmt.Errorf("%w: missing items", llm.ErrMalformed)
	}
	if _, ok := probe["confidence"].(float64); !ok {
		return mealWire{}, fmt.Errorf("%w: missing or non-numeric confidence", llm.ErrMalformed)
	}
	rawItems, ok := probe["items"].([]any)
	if !ok {
		return mealWire{}, fmt.Errorf("%w: items is not an array", llm.ErrMalformed)
	}
	for i, ri := range rawItems {
		obj, ok := ri.(map[string]any)
		if !ok {
			return mealWire{}, fmt.Errorf("%w: item %d is not an object", llm.ErrMalformed, i)
		}
		for _, field := range mealItemRequired {
			v, ok := obj[field]
			if !ok {
				return mealWire{}, fmt.Errorf("%w: item %d missing %s", llm.ErrMalformed, i, field)
			}
			switch field {
			case "name", "unit":
				if _, ok := v.(string); !ok {
					return mealWire{}, fmt.Errorf("%w: item %d field %s is not a string", llm.ErrMalformed, i, field)
				}
			default:
				if _, ok := v.(float64); !ok {
					return mealWire{}, fmt.Errorf("%w: item %d field %s is not a number", llm.ErrMalformed, i, field)
				}
			}
		}
	}

	var wire mealWire
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return mealWire{}, fmt.Errorf("%w: %v", llm.ErrMalformed, err)
	}
	return wire, nil
}

type exerciseItemWire struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	DurationMin float64 `json:"duration_min"`
	Sets        float64 `json:"sets"`
	Reps        float64 `json:"reps"`
	WeightKg    float64 `json:"weight_kg"`
	Intensity   string  `json:"intensity"`
	Equipment   string  `json:"equipment"`
	EstKcal     float64 `json:"est_kcal"`
}

type exerciseWire struct {
	Items      []exerciseItemWire `json:"items"`
	Confidence float64            `json:"confidence"`
}

func decodeExerciseWire(raw string) (exerciseWire, error) {
	text, err := llm.ExtractJSON(raw)
	if err != nil {
		return exerciseWire{}, err
	}

	var probe map[string]any
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return exerciseWire{}, fmt.Errorf("%w: %v", llm.ErrMalformed, err)
	}
	if _, ok := probe["items"]; !ok {
		return exerciseWire{}, fmt.Errorf("%w: missing items", llm.ErrMalformed)
	}
	if _, ok := probe["confidence"].(float64); !ok {
		return exerciseWire{}, fmt.Errorf("%w: missing or non-numeric confidence", llm.ErrMalformed)
	}
	rawItems, ok := probe["items"].([]any)
	if !ok {
		return exerciseWire{}, fmt.Errorf("%w: items is not an array", llm.ErrMalformed)
	}
	for i, ri := range rawItems {
		obj, ok := ri.(map[string]any)
		if !ok {
			return exerciseWire{}, fmt.Errorf("%w: item %d is not an object", llm.ErrMalformed, i)
		}
		if _, ok := obj["name"].(string); !ok {
			return exerciseWire{}, fmt.Errorf("%w: item %d missing name", llm.ErrMalformed, i)
		}
		if _, ok := obj["est_kcal"].(float64); !ok {
			return exerciseWire{}, fmt.Errorf("%w: item %d missing est_kcal", llm.ErrMalformed, i)
		}
	}

	var wire exerciseWire
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return exerciseWire{}, fmt.Errorf("%w: %v", llm.ErrMalformed, err)
	}
	return wire, nil
}

func userPromptWithHints(text string, hints ...string) string {
	var b strings.Builder
	b.WriteString(text)
	for _, h := range hints {
		if h == "" {
			continue
		}
		b.WriteString("\n\nContext: ")
		b.WriteString(h)
	}
	return b.String()
}
