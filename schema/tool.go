package schema

import (
	"encoding/json"
	"strings"
)

// Tool describes a single callable operation exposed by the remote server.
// InputSchema is server defined and arbitrarily nested, hence the generic map.
type Tool struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	InputSchema map[string]any `yaml:"inputSchema,omitempty" json:"inputSchema,omitempty"`
}

// ListToolsResult is the discovery payload; both transports return the same shape.
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolRequestParams holds the parameters for a tool call request.
type CallToolRequestParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// NewCallToolRequestParams builds call parameters from an arbitrary command struct.
func NewCallToolRequestParams[T any](name string, cmd *T) (*CallToolRequestParams, error) {
	result := &CallToolRequestParams{Name: name, Arguments: map[string]any{}}
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(data, &result.Arguments); err != nil {
		return nil, err
	}
	return result, nil
}

// Content is a single result fragment produced by a tool.
type Content struct {
	Type string          `json:"type,omitempty"`
	Text string          `json:"text,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CallToolResult is the invocation payload returned by the server. A populated
// Error or a true IsError flag indicates the tool ran but reported failure.
type CallToolResult struct {
	Content []Content `json:"content,omitempty"`
	IsError *bool     `json:"isError,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Failed reports whether the server flagged this result as a tool failure.
func (r *CallToolResult) Failed() bool {
	if r.Error != "" {
		return true
	}
	return r.IsError != nil && *r.IsError
}

// Text joins all textual fragments of the result.
func (r *CallToolResult) Text() string {
	var parts []string
	for i := range r.Content {
		if r.Content[i].Text != "" {
			parts = append(parts, r.Content[i].Text)
		}
	}
	return strings.Join(parts, "\n")
}
