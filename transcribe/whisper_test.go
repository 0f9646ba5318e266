package transcribe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHTTPClient implements glpcoach.HTTPClient for testing.
type mockHTTPClient struct {
	status  int
	body    string
	err     error
	lastReq *http.Request
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.status,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func newTestWhisper(t *testing.T, mock *mockHTTPClient) *WhisperClient {
	t.Helper()
	client, err := NewWhisperClient(WhisperOpts{
		Endpoint:   "https://stt.example.com/v1/audio/transcriptions",
		APIKey:     "test-key",
		HTTPClient: mock,
	})
	require.NoError(t, err)
	return client
}

func TestWhisperTranscribe(t *testing.T) {
	mock := &mockHTTPClient{status: http.StatusOK, body: `{"text":"am mancat doua oua si paine prajita"}`}
	client := newTestWhisper(t, mock)

	text, err := client.Transcribe(context.Background(), []byte("audio-bytes"), "ro")
	require.NoError(t, err)
	assert.Equal(t, "am mancat doua oua si paine prajita", text)

	require.NotNil(t, mock.lastReq)
	assert.Equal(t, http.MethodPost, mock.lastReq.Method)
	assert.Equal(t, "Bearer test-key", mock.lastReq.Header.Get("Authorization"))
	assert.Contains(t, mock.lastReq.Header.Get("Content-Type"), "multipart/form-data")
}

func TestWhisperTranscribeFailures(t *testing.T) {
	tests := []struct {
		name string
		mock *mockHTTPClient
	}{
		{"network error", &mockHTTPClient{err: errors.New("connection refused")}},
		{"non-200 status", &mockHTTPClient{status: http.StatusTooManyRequests, body: "rate limited"}},
		{"invalid body", &mockHTTPClient{status: http.StatusOK, body: "not json"}},
		{"empty transcript", &mockHTTPClient{status: http.StatusOK, body: `{"text":""}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestWhisper(t, tt.mock)
			_, err := client.Transcribe(context.Background(), []byte("audio"), "")
			require.Error(t, err)

			var terr *Error
			assert.True(t, errors.As(err, &terr), "failures are typed, not raw")
		})
	}
}

func TestWhisperTranscribeEmptyAudio(t *testing.T) {
	client := newTestWhisper(t, &mockHTTPClient{status: http.StatusOK, body: `{"text":"x"}`})
	_, err := client.Transcribe(context.Background(), nil, "")
	assert.Error(t, err)
}

func TestTranscribeMeal(t *testing.T) {
	t.Run("success appends hints", func(t *testing.T) {
		client := newTestWhisper(t, &mockHTTPClient{status: http.StatusOK, body: `{"text":"two eggs"}`})
		got := TranscribeMeal(context.Background(), client, []byte("audio"), "breakfast")
		assert.Equal(t, "two eggs. Additional info: breakfast", got)
	})

	t.Run("failure degrades to hints", func(t *testing.T) {
		client := newTestWhisper(t, &mockHTTPClient{err: errors.New("down")})
		got := TranscribeMeal(context.Background(), client, []byte("audio"), "two eggs maybe")
		assert.Equal(t, "two eggs maybe", got)
	})

	t.Run("failure without hints uses placeholder", func(t *testing.T) {
		client := newTestWhisper(t, &mockHTTPClient{err: errors.New("down")})
		got := TranscribeMeal(context.Background(), client, []byte("audio"), "")
		assert.Equal(t, PlaceholderTranscript, got)
	})
}
