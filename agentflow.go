package agentflow

import (
	"fmt"
	"log/slog"

	"github.com/Zeeeepa/AgentFlow/bridge"
	"github.com/Zeeeepa/AgentFlow/transport"
)

// BridgeOption adjusts bridge construction beyond the endpoint options.
type BridgeOption = bridge.Option

// WithLogger attaches a structured logger to the bridge.
func WithLogger(logger *slog.Logger) BridgeOption {
	return bridge.WithLogger(logger)
}

// New creates a bridge for the configured endpoint. The returned handle owns
// its transport exclusively; create one bridge per server.
func New(options *Options, bridgeOptions ...BridgeOption) (*bridge.Bridge, error) {
	if options == nil {
		return nil, fmt.Errorf("options were nil")
	}
	options.Init()
	if err := options.Validate(); err != nil {
		return nil, err
	}
	t, err := newTransport(options)
	if err != nil {
		return nil, err
	}
	opts := []bridge.Option{
		bridge.WithDefaultTimeout(options.Timeout()),
		bridge.WithMaxReconnects(options.MaxReconnects),
		bridge.WithEndpoint(options.Kind, options.Target()),
	}
	opts = append(opts, bridgeOptions...)
	return bridge.New(t, opts...), nil
}

// newTransport constructs the concrete transport for the endpoint kind.
func newTransport(options *Options) (transport.Transport, error) {
	switch options.Kind {
	case KindLocalProcess:
		return transport.NewStdio(options.Command,
			transport.WithArguments(options.Arguments...),
			transport.WithEnv(options.Env),
			transport.WithDir(options.Dir)), nil
	case KindRemoteHTTP:
		return transport.NewHTTP(options.URL,
			transport.WithHeaders(options.Headers)), nil
	}
	return nil, fmt.Errorf("no transport for kind %q", options.Kind)
}
