// Package protocol defines the messages exchanged over the /ws stream and
// the run request shared with the HTTP API.
package protocol

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/slimemax/keyboardsim/internal/runner"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeLog carries one journal line from server to client
	TypeLog MessageType = "log"

	// TypeStatus carries a controller snapshot. Clients may send it empty to
	// ask for the current one.
	TypeStatus MessageType = "status"

	// TypeRun is sent by a client to start a run
	TypeRun MessageType = "run"

	// TypeStop is sent by a client to request a stop
	TypeStop MessageType = "stop"

	// TypeError reports a rejected client request
	TypeError MessageType = "error"
)

// Message is the generic container for all WebSocket messages
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// LogPayload is the payload for TypeLog
type LogPayload struct {
	Line string `json:"line"`
}

// ErrorPayload is the payload for TypeError
type ErrorPayload struct {
	Error string `json:"error"`
}

// RunRequest is the body of POST /api/run and the payload of TypeRun.
// Nil fields fall back to the configured defaults.
type RunRequest struct {
	Script       *string `json:"script,omitempty"`
	StartDelayMs *int    `json:"start_delay_ms,omitempty"`
	LoopDelayMs  *int    `json:"loop_delay_ms,omitempty"`
	Loops        *int    `json:"loops,omitempty"`
}

// Apply overlays the request on defaults
func (r RunRequest) Apply(defaults runner.RunConfig) runner.RunConfig {
	cfg := defaults
	if r.Script != nil {
		cfg.Script = *r.Script
	}
	if r.StartDelayMs != nil {
		cfg.StartDelayMs = *r.StartDelayMs
	}
	if r.LoopDelayMs != nil {
		cfg.LoopDelayMs = *r.LoopDelayMs
	}
	if r.Loops != nil {
		cfg.Loops = *r.Loops
	}
	return cfg
}

// ParseRunRequest reads a run request from a JSON object. Missing fields stay
// nil; present fields of the wrong type are an error.
func ParseRunRequest(obj gjson.Result) (RunRequest, error) {
	var req RunRequest
	if !obj.Exists() || obj.Type == gjson.Null {
		return req, nil
	}
	if !obj.IsObject() {
		return req, fmt.Errorf("run request must be a JSON object")
	}

	if v := obj.Get("script"); v.Exists() {
		if v.Type != gjson.String {
			return req, fmt.Errorf("script must be a string")
		}
		s := v.String()
		req.Script = &s
	}

	ints := []struct {
		name string
		dst  **int
	}{
		{"start_delay_ms", &req.StartDelayMs},
		{"loop_delay_ms", &req.LoopDelayMs},
		{"loops", &req.Loops},
	}
	for _, f := range ints {
		v := obj.Get(f.name)
		if !v.Exists() {
			continue
		}
		if v.Type != gjson.Number || v.Num != float64(int(v.Num)) {
			return req, fmt.Errorf("%s must be an integer", f.name)
		}
		n := int(v.Int())
		*f.dst = &n
	}
	return req, nil
}
