package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/viant/jsonrpc"
)

// HTTP reaches a remote tool server by POSTing to fixed sub paths of the
// configured base URL: {base}/tools/list for discovery and {base}/tools/call
// for invocation. A single pooled http.Client is reused across calls, so
// concurrent requests are independent and share underlying connections.
type HTTP struct {
	baseURL string
	headers map[string]string
	client  *http.Client
}

// HTTPOption customizes the HTTP transport.
type HTTPOption func(*HTTP)

// WithHeaders sets static headers attached to every request.
func WithHeaders(headers map[string]string) HTTPOption {
	return func(t *HTTP) {
		t.headers = headers
	}
}

// WithHTTPClient overrides the pooled client, mostly for tests.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(t *HTTP) {
		t.client = client
	}
}

// NewHTTP creates an HTTP transport for the given base URL.
func NewHTTP(baseURL string, options ...HTTPOption) *HTTP {
	ret := &HTTP{baseURL: strings.TrimSuffix(baseURL, "/")}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Connect validates the base URL and builds the pooled client. Reachability
// is probed by the discovery call that follows inside the connect sequence.
func (t *HTTP) Connect(ctx context.Context) error {
	parsed, err := url.Parse(t.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", t.baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}
	if t.client == nil {
		t.client = &http.Client{
			Transport: &http.Transport{
				MaxConnsPerHost:     10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return nil
}

// Call POSTs the params to the sub path derived from the protocol method.
func (t *HTTP) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if t.client == nil {
		return nil, fmt.Errorf("http transport is not connected")
	}
	if params == nil {
		params = map[string]any{}
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	for k, v := range t.headers {
		request.Header.Set(k, v)
	}
	response, err := t.client.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("request to %s failed: %w", request.URL, err)
	}
	defer func() { _ = response.Body.Close() }()
	data, err := io.ReadAll(response.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to read response from %s: %w", request.URL, err)
	}
	if response.StatusCode >= 400 {
		detail := truncate(data, 256)
		if detail == "" {
			return nil, fmt.Errorf("server %s returned %s", t.baseURL, response.Status)
		}
		// the server processed the request and reported a verdict; the
		// caller must not re-invoke the tool
		return nil, jsonrpc.NewInternalError(fmt.Sprintf("%s: %s", response.Status, detail), nil)
	}
	return data, nil
}

// Close releases pooled connections. Idempotent.
func (t *HTTP) Close() error {
	if t.client != nil {
		t.client.CloseIdleConnections()
	}
	return nil
}

func truncate(data []byte, limit int) string {
	text := strings.TrimSpace(string(data))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
