package glpcoach

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ToolRunLogger is the interface for recording model calls and tool
// invocations made during a request.
type ToolRunLogger interface {
	LogRun(run ToolRunLog) error
}

// NewToolRunLogFilePath returns a file path based on a cleaned up model name
// or id to make it easier to identify logs produced with various models.
func NewToolRunLogFilePath(model string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		strings.ReplaceAll(strings.ToLower(model), ":", "_"),
	)
}

// ToolRunLog records one model call or tool invocation.
type ToolRunLog struct {
	Tool      string         `json:"tool"`
	Timestamp time.Time      `json:"timestamp"`
	Model     string         `json:"model,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	Output    map[string]any `json:"output,omitempty"`
	LatencyMS int64          `json:"latency_ms"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
}

// FileToolRunLogger logs to a writer, accumulating runs and flushing at the end.
type FileToolRunLogger struct {
	runs   []ToolRunLog
	writer io.Writer
}

func NewFileToolRunLogger(writer io.Writer) *FileToolRunLogger {
	return &FileToolRunLogger{
		runs:   make([]ToolRunLog, 0),
		writer: writer,
	}
}

// LogRun buffers a run record (does not flush immediately).
func (l *FileToolRunLogger) LogRun(run ToolRunLog) error {
	l.runs = append(l.runs, run)
	return nil
}

// Flush writes all accumulated runs to the writer and clears the buffer.
func (l *FileToolRunLogger) Flush() error {
	if l.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"tool_run_session": map[string]any{
			"timestamp": time.Now(),
			"runs":      l.runs,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tool run log: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write tool run log: %w", err)
	}

	l.runs = l.runs[:0]
	return nil
}

// NoOpToolRunLogger discards all log entries.
type NoOpToolRunLogger struct{}

func NewNoOpToolRunLogger() *NoOpToolRunLogger { return &NoOpToolRunLogger{} }

func (l *NoOpToolRunLogger) LogRun(run ToolRunLog) error { return nil }

// StdoutToolRunLogger writes each run as a JSON line to stdout (for
// Lambda/CloudWatch style log collection).
type StdoutToolRunLogger struct{}

func NewStdoutToolRunLogger() *StdoutToolRunLogger { return &StdoutToolRunLogger{} }

func (l *StdoutToolRunLogger) LogRun(run ToolRunLog) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
