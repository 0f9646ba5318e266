package nutrition

import (
	"regexp"
	"strconv"
	"strings"

	"glpcoach"
)

// Quantity is the advisory multiplier extracted from free text. It is passed
// to the model prompt as a hint and applied directly only by the fallback
// matcher, which has no model to interpret quantity language itself.
type Quantity struct {
	Multiplier float64 // worded or numeric count, default 1.0
	SizeFactor float64 // from size keywords, default 1.0
	SizeLabel  string  // "large", "small", or ""
}

// Combined is the final scaling factor: quantity times size.
func (q Quantity) Combined() float64 {
	return q.Multiplier * q.SizeFactor
}

var wordNumbers = []struct {
	word  string
	value float64
}{
	{"half", 0.5},
	{"quarter", 0.25},
	{"double", 2},
	{"triple", 3},
	{"one", 1}, {"two", 2}, {"three", 3}, {"four", 4}, {"five", 5},
	{"six", 6}, {"seven", 7}, {"eight", 8}, {"nine", 9}, {"ten", 10},
	{"eleven", 11}, {"twelve", 12}, {"thirteen", 13}, {"fourteen", 14},
	{"fifteen", 15}, {"sixteen", 16}, {"seventeen", 17}, {"eighteen", 18},
	{"nineteen", 19}, {"twenty", 20},
}

var (
	unitQtyRe    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:slices?|pieces?|servings?|portions?|cups?|items?)\b`)
	standaloneRe = regexp.MustCompile(`(?:^|\s)(\d+(?:\.\d+)?)\s`)
)

var sizeKeywords = []struct {
	words []string
	class string
}{
	{[]string{"large", "big", "huge", "jumbo", "xl"}, "large"},
	{[]string{"small", "little", "mini", "tiny", "xs"}, "small"},
	{[]string{"medium", "regular", "normal"}, "medium"},
}

// Normalizer extracts quantity multipliers and size descriptors from text.
// It is a pure function of its input; running it twice yields the same result.
type Normalizer struct {
	th glpcoach.Thresholds
}

func NewNormalizer(th glpcoach.Thresholds) *Normalizer {
	return &Normalizer{th: th}
}

// Normalize scans text for worded numbers, unit-qualified counts, standalone
// numbers, and size keywords. Precedence: a unit-qualified number overrides a
// worded one; a bare standalone number is a fallback consulted only when
// neither matched, and accepted only in [0.1, 20] so years and phone digits
// are not mistaken for quantities.
func (n *Normalizer) Normalize(text string) Quantity {
	q := Quantity{Multiplier: 1.0, SizeFactor: 1.0}
	lower := strings.ToLower(text)

	worded := false
	for _, wn := range wordNumbers {
		if containsWord(lower, wn.word) {
			q.Multiplier = wn.value
			worded = true
			break // first match wins
		}
	}

	if m := unitQtyRe.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			q.Multiplier = v
		}
	} else if !worded {
		if m := standaloneRe.FindStringSubmatch(lower + " "); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 0.1 && v <= 20 {
				q.Multiplier = v
			}
		}
	}

	for _, sk := range sizeKeywords {
		matched := false
		for _, w := range sk.words {
			if containsWord(lower, w) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		switch sk.class {
		case "large":
			q.SizeFactor = n.th.LargeFactor
			q.SizeLabel = "large"
		case "small":
			q.SizeFactor = n.th.SmallFactor
			q.SizeLabel = "small"
		case "medium":
			q.SizeFactor = 1.0
			q.SizeLabel = ""
		}
		break
	}

	return q
}

// PromptHint renders the extracted quantity as advisory context for the model
// prompt. The model remains responsible for reflecting quantity in its totals;
// this is never applied as a second scaling pass on model output.
func (q Quantity) PromptHint() string {
	var parts []string
	if q.Multiplier != 1.0 {
		parts = append(parts, "stated quantity multiplier: "+strconv.FormatFloat(q.Multiplier, 'g', -1, 64))
	}
	if q.SizeLabel != "" {
		parts = append(parts, "stated portion size: "+q.SizeLabel)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ")
}

func containsWord(s, word string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isAlpha(s[i-1])
		afterIdx := i + len(word)
		after := afterIdx >= len(s) || !isAlpha(s[afterIdx])
		if before && after {
			return true
		}
		idx = i + len(word)
	}
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
