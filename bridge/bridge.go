// Package bridge exposes discovery, execution, health and shutdown over a
// single tool server, hiding which transport carries the calls and how the
// connection is recovered.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Zeeeepa/AgentFlow/schema"
	"github.com/Zeeeepa/AgentFlow/transport"
)

// ErrClosed is returned when a bridge is used after Close; this is a caller
// bug, unlike the recoverable per call errors carried inside results.
var ErrClosed = errors.New("bridge is closed")

// DefaultTimeout bounds calls when no endpoint or per call timeout is given.
const DefaultTimeout = 30 * time.Second

// DefaultMaxReconnects is the reconnect attempt budget per sequence.
const DefaultMaxReconnects = 3

// Bridge is the single entry point callers hold. One bridge owns exactly one
// transport, one connection state and one registry snapshot; instances are
// independent and safe for concurrent use.
type Bridge struct {
	endpoint   Endpoint
	manager    *manager
	registry   *registry
	dispatcher *dispatcher
	closed     atomic.Bool
}

// Endpoint echoes how the bridge reaches its server, for health reporting.
type Endpoint struct {
	Kind    string        `json:"kind,omitempty"`
	Target  string        `json:"target,omitempty"`
	Timeout time.Duration `json:"-"`
}

// Health is a non blocking snapshot of the bridge state.
type Health struct {
	Connected bool     `json:"connected"`
	ToolCount int      `json:"tool_count"`
	State     string   `json:"state"`
	Endpoint  Endpoint `json:"endpoint,omitzero"`
}

// New creates a bridge over the supplied transport.
func New(t transport.Transport, options ...Option) *Bridge {
	ret := &Bridge{registry: newRegistry()}
	config := newConfig(options)
	ret.endpoint = config.endpoint
	ret.endpoint.Timeout = config.timeout
	ret.manager = newManager(t, ret.registry, config.attempts, config.timeout, config.logger)
	ret.dispatcher = newDispatcher(t, ret.manager, ret.registry, config.timeout, config.logger)
	return ret
}

// Discover returns the tool descriptors currently exposed by the server,
// connecting (and populating the registry) first if needed.
func (b *Bridge) Discover(ctx context.Context) ([]schema.Tool, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	if err := b.manager.Ensure(ctx); err != nil {
		return nil, err
	}
	return b.registry.List(), nil
}

// Execute invokes a named tool with the given arguments. The returned result
// always carries either a payload or a structured error; a non nil error is
// reserved for misuse such as calling Execute after Close.
func (b *Bridge) Execute(ctx context.Context, name string, arguments map[string]any, options ...ExecuteOption) (*schema.InvocationResult, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	request := &schema.InvocationRequest{
		Tool:          name,
		Arguments:     arguments,
		Timeout:       b.endpoint.Timeout,
		CorrelationID: uuid.New().String(),
	}
	for _, option := range options {
		option(request)
	}
	return b.dispatcher.execute(ctx, request), nil
}

// Health reports the current connection state and tool count without
// blocking or touching the wire.
func (b *Bridge) Health() Health {
	state := b.manager.State()
	return Health{
		Connected: state == StateConnected,
		ToolCount: b.registry.Len(),
		State:     state.String(),
		Endpoint:  b.endpoint,
	}
}

// Close releases the underlying transport. Idempotent, callable from any
// state.
func (b *Bridge) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.manager.Close()
}

// ExecuteOption adjusts a single invocation.
type ExecuteOption func(*schema.InvocationRequest)

// WithTimeout overrides the endpoint default timeout for this call.
func WithTimeout(timeout time.Duration) ExecuteOption {
	return func(r *schema.InvocationRequest) {
		if timeout > 0 {
			r.Timeout = timeout
		}
	}
}

type config struct {
	endpoint Endpoint
	timeout  time.Duration
	attempts int
	logger   *slog.Logger
}

func newConfig(options []Option) *config {
	ret := &config{
		timeout:  DefaultTimeout,
		attempts: DefaultMaxReconnects,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Option configures a bridge at construction time.
type Option func(*config)

// WithDefaultTimeout sets the per call timeout applied when no override is
// given.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(c *config) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithMaxReconnects sets the reconnect attempt budget per sequence.
func WithMaxReconnects(attempts int) Option {
	return func(c *config) {
		if attempts > 0 {
			c.attempts = attempts
		}
	}
}

// WithEndpoint records endpoint metadata echoed by Health.
func WithEndpoint(kind, target string) Option {
	return func(c *config) {
		c.endpoint.Kind = kind
		c.endpoint.Target = target
	}
}

// WithLogger attaches a structured logger; logging is off by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
