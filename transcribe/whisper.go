package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"glpcoach"
)

// PlaceholderTranscript is what callers feed the parser when transcription is
// unavailable and no hints were supplied. Logging still proceeds; the parse
// just lands on the fallback path.
const PlaceholderTranscript = "Unable to transcribe audio"

// Error is a typed transcription failure. It never escapes TranscribeMeal;
// Transcribe returns it so callers can log the cause.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("transcribe: %s: %v", e.Stage, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// WhisperClient calls a hosted Whisper-compatible transcription endpoint. The
// HTTP client is injected so tests can stub the wire.
type WhisperClient struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient glpcoach.HTTPClient
}

type WhisperOpts struct {
	Endpoint   string
	APIKey     string
	Model      string // defaults to whisper-1
	HTTPClient glpcoach.HTTPClient
}

func NewWhisperClient(opts WhisperOpts) (*WhisperClient, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("transcription endpoint is required")
	}
	if opts.HTTPClient == nil {
		return nil, fmt.Errorf("http client is required")
	}
	model := opts.Model
	if model == "" {
		model = "whisper-1"
	}
	return &WhisperClient{
		endpoint:   opts.Endpoint,
		apiKey:     opts.APIKey,
		model:      model,
		httpClient: opts.HTTPClient,
	}, nil
}

// Transcribe sends audio bytes to the speech-to-text service. An empty
// languageHint lets the service auto-detect; Romanian works end to end this
// way. Failures come back as *Error, never a panic.
func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte, languageHint string) (string, error) {
	if len(audio) == 0 {
		return "", &Error{Stage: "input", Err: fmt.Errorf("empty audio payload")}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "audio.m4a")
	if err != nil {
		return "", &Error{Stage: "encode", Err: err}
	}
	if _, err := fw.Write(audio); err != nil {
		return "", &Error{Stage: "encode", Err: err}
	}
	mw.WriteField("model", c.model)
	mw.WriteField("response_format", "json")
	if languageHint != "" {
		mw.WriteField("language", languageHint)
	}
	if err := mw.Close(); err != nil {
		return "", &Error{Stage: "encode", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return "", &Error{Stage: "request", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Stage: "call", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Stage: "read", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &Error{Stage: "call", Err: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 200))}
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &Error{Stage: "decode", Err: err}
	}
	if out.Text == "" {
		return "", &Error{Stage: "decode", Err: fmt.Errorf("empty transcript")}
	}

	slog.Info("TRANSCRIBE: Audio transcribed", "chars", len(out.Text), "language_hint", languageHint)
	return out.Text, nil
}

// TranscribeMeal turns meal-description audio into parser-ready text. On
// failure it degrades to the caller's hints or a literal placeholder instead
// of propagating the error, so a logging attempt is never refused outright.
func TranscribeMeal(ctx context.Context, t glpcoach.Transcriber, audio []byte, hints string) string {
	transcript, err := t.Transcribe(ctx, audio, "")
	if err != nil {
		slog.Warn("TRANSCRIBE: Falling back to hints", "error", err)
		if hints != "" {
			return hints
		}
		return PlaceholderTranscript
	}
	if hints != "" {
		return transcript + ". Additional info: " + hints
	}
	return transcript
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
