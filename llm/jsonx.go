package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON pulls the first JSON object out of free-form model text.
// Models regularly wrap their output in markdown fences or pad it with prose
// despite strict-JSON instructions, so every model-calling component shares
// this one repair path: fence stripping first ("```json" before the generic
// "```"), then the raw text, then brace-delimited extraction (first '{' to
// last '}').
func ExtractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)

	if body, ok := unfence(s, "```json"); ok {
		s = body
	} else if body, ok := unfence(s, "```"); ok {
		s = body
	}

	if isJSONObject(s) {
		return s, nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		candidate := strings.TrimSpace(s[start : end+1])
		if isJSONObject(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: no JSON object in %q", ErrMalformed, truncate(s, 120))
}

func unfence(s, fence string) (string, bool) {
	idx := strings.Index(s, fence)
	if idx < 0 {
		return "", false
	}
	body := s[idx+len(fence):]
	if close := strings.Index(body, "```"); close >= 0 {
		body = body[:close]
	}
	return strings.TrimSpace(body), true
}

func isJSONObject(s string) bool {
	return strings.HasPrefix(s, "{") && json.Valid([]byte(s))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
