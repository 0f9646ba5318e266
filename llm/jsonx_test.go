package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "plain JSON object",
			input: `{"items":[],"confidence":0}`,
			want:  `{"items":[],"confidence":0}`,
		},
		{
			name:  "json fence",
			input: "```json\n{\"a\":1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:  "generic fence",
			input: "```\n{\"a\":1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:  "prose around the object",
			input: `Here is the result you asked for: {"a":1} hope that helps!`,
			want:  `{"a":1}`,
		},
		{
			name:  "fence with prose before it",
			input: "Sure thing.\n```json\n{\"a\": {\"b\": 2}}\n```",
			want:  `{"a": {"b": 2}}`,
		},
		{
			name:  "nested braces inside prose",
			input: `prefix {"a":{"b":1},"c":2} suffix`,
			want:  `{"a":{"b":1},"c":2}`,
		},
		{
			name:  "surrounding whitespace",
			input: "   \n {\"a\":1} \n ",
			want:  `{"a":1}`,
		},
		{
			name:    "no JSON at all",
			input:   "I could not parse that meal, sorry.",
			wantErr: true,
		},
		{
			name:    "unbalanced braces",
			input:   `{"a":1`,
			wantErr: true,
		},
		{
			name:    "array is not an object",
			input:   `[1,2,3]`,
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformed), "extraction failures carry the malformed tag")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorClassesAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrTransport, ErrMalformed))
	assert.False(t, errors.Is(ErrMalformed, ErrTransport))
}
