package llm

import "errors"

// The two upstream failure classes are kept distinct so callers can assign
// different fallback confidences and log them separately: a transport failure
// is transient, a malformed response signals prompt drift.
var (
	// ErrTransport covers network, auth, timeout, and rate-limit failures
	// surfaced by the model or speech boundary.
	ErrTransport = errors.New("llm: upstream call failed")

	// ErrMalformed covers syntactically or structurally invalid model output
	// (bad JSON, missing required fields, wrong types).
	ErrMalformed = errors.New("llm: malformed model response")
)
