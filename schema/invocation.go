package schema

import (
	"strings"
	"time"
)

// InvocationRequest captures a single dispatched tool call.
type InvocationRequest struct {
	Tool          string         `json:"tool"`
	Arguments     map[string]any `json:"arguments,omitempty"`
	Timeout       time.Duration  `json:"-"`
	CorrelationID string         `json:"correlationId"`
}

// InvocationResult is the caller facing outcome of a tool call. Exactly one of
// Content or Error is populated.
type InvocationResult struct {
	Success       bool          `json:"success"`
	Content       []Content     `json:"content,omitempty"`
	Error         *Error        `json:"error,omitempty"`
	Tool          string        `json:"tool"`
	CorrelationID string        `json:"correlationId,omitempty"`
	Elapsed       time.Duration `json:"-"`
}

// Text joins all textual fragments of a successful result.
func (r *InvocationResult) Text() string {
	var parts []string
	for i := range r.Content {
		if r.Content[i].Text != "" {
			parts = append(parts, r.Content[i].Text)
		}
	}
	return strings.Join(parts, "\n")
}
