package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/viant/jsonrpc"
	proto "github.com/viant/mcp-protocol/schema"

	"github.com/Zeeeepa/AgentFlow/schema"
	"github.com/Zeeeepa/AgentFlow/transport"
)

// dispatcher validates a call against the registry, applies the effective
// timeout, and maps every failure mode to a structured result error.
type dispatcher struct {
	transport transport.Transport
	manager   *manager
	registry  *registry
	timeout   time.Duration
	logger    *slog.Logger
}

func newDispatcher(t transport.Transport, manager *manager, registry *registry, timeout time.Duration, logger *slog.Logger) *dispatcher {
	return &dispatcher{
		transport: t,
		manager:   manager,
		registry:  registry,
		timeout:   timeout,
		logger:    logger,
	}
}

// execute runs a single tool invocation; it always returns a result, never an
// error - all failure modes are recoverable, per call conditions.
func (d *dispatcher) execute(ctx context.Context, request *schema.InvocationRequest) *schema.InvocationResult {
	result := &schema.InvocationResult{
		Tool:          request.Tool,
		CorrelationID: request.CorrelationID,
	}
	started := time.Now()
	defer func() {
		result.Elapsed = time.Since(started)
	}()

	if err := d.manager.Ensure(ctx); err != nil {
		result.Error = d.classify(request, err)
		return result
	}
	if _, ok := d.registry.Resolve(request.Tool); !ok {
		result.Error = schema.NewToolNotFound(request.Tool, d.registry.Names())
		return result
	}

	params := &schema.CallToolRequestParams{Name: request.Tool, Arguments: request.Arguments}
	raw, err := d.call(ctx, request, params)
	if err != nil {
		result.Error = d.classify(request, err)
		return result
	}

	payload := &schema.CallToolResult{}
	if err = json.Unmarshal(raw, payload); err != nil {
		result.Error = schema.NewProtocolError("malformed invocation response", err)
		return result
	}
	if payload.Failed() {
		message := payload.Error
		if message == "" {
			message = payload.Text()
		}
		result.Error = schema.NewServerError(message)
		return result
	}
	result.Success = true
	result.Content = payload.Content
	return result
}

// call invokes the transport once, and on a connection level failure runs one
// bounded reconnect sequence before retrying the invocation a single time.
func (d *dispatcher) call(ctx context.Context, request *schema.InvocationRequest, params *schema.CallToolRequestParams) (json.RawMessage, error) {
	for attempt := 0; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, request.Timeout)
		raw, err := d.transport.Call(callCtx, proto.MethodToolsCall, params)
		// the deadline state has to be read before cancel, which always
		// poisons callCtx with context.Canceled
		expired := callCtx.Err() != nil
		cancel()
		if err == nil {
			return raw, nil
		}
		var rpcErr *jsonrpc.Error
		if expired || errors.As(err, &rpcErr) || attempt > 0 {
			return nil, err
		}
		// connection level failure mid session: reconnect once within the
		// configured budget, then retry the invocation
		d.logger.Warn("transport failure, reconnecting",
			"tool", request.Tool, "correlationId", request.CorrelationID, "error", err)
		d.manager.Invalidate()
		if err = d.manager.Ensure(ctx); err != nil {
			return nil, err
		}
		if _, ok := d.registry.Resolve(request.Tool); !ok {
			return nil, schema.NewToolNotFound(request.Tool, d.registry.Names())
		}
	}
}

// classify maps a transport or manager error to the structured error model.
func (d *dispatcher) classify(request *schema.InvocationRequest, err error) *schema.Error {
	if ret, ok := schema.AsError(err); ok {
		return ret
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return schema.NewTimeout(request.Tool, request.Timeout, err)
	}
	var rpcErr *jsonrpc.Error
	if errors.As(err, &rpcErr) {
		return schema.NewServerErrorFromRPC(rpcErr)
	}
	return schema.NewConnectionError(err.Error(), err)
}
