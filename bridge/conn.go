package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	proto "github.com/viant/mcp-protocol/schema"

	"github.com/Zeeeepa/AgentFlow/schema"
	"github.com/Zeeeepa/AgentFlow/transport"
)

// manager owns the transport and the connection state machine. Reconnection
// is lazy: it only runs inside a call that needs a connection, never in the
// background, and it is bounded by the configured attempt budget.
type manager struct {
	transport transport.Transport
	registry  *registry
	attempts  int
	timeout   time.Duration
	logger    *slog.Logger

	mux   sync.Mutex
	state atomic.Int32
}

func newManager(t transport.Transport, registry *registry, attempts int, timeout time.Duration, logger *slog.Logger) *manager {
	return &manager{
		transport: t,
		registry:  registry,
		attempts:  attempts,
		timeout:   timeout,
		logger:    logger,
	}
}

func (m *manager) State() State {
	return State(m.state.Load())
}

// Ensure returns once the bridge is Connected, running the reconnect sequence
// if needed. From Failed a new sequence starts over; failures are never
// permanently fatal to the bridge instance.
func (m *manager) Ensure(ctx context.Context) error {
	if m.State() == StateConnected {
		return nil
	}
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.State() == StateConnected {
		return nil
	}
	return m.connect(ctx)
}

// Invalidate flags a Connected bridge as lost after a transport failure so
// the next Ensure reconnects.
func (m *manager) Invalidate() {
	m.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnected))
}

// Close releases the transport. Idempotent, callable from any state.
func (m *manager) Close() error {
	m.mux.Lock()
	defer m.mux.Unlock()
	err := m.transport.Close()
	m.state.Store(int32(StateDisconnected))
	return err
}

func (m *manager) connect(ctx context.Context) error {
	m.state.Store(int32(StateConnecting))
	attempt := 0
	operation := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()
		err := m.attemptConnect(attemptCtx)
		if err != nil {
			m.logger.Warn("connection attempt failed",
				"attempt", attempt, "budget", m.attempts, "error", err)
		}
		return err
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 2 * time.Second
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(m.attempts-1)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		m.state.Store(int32(StateFailed))
		if ret, ok := schema.AsError(err); ok {
			return ret
		}
		return schema.NewConnectionError(
			fmt.Sprintf("failed to connect after %d attempt(s)", attempt), err)
	}
	m.state.Store(int32(StateConnected))
	m.logger.Info("connected", "tools", m.registry.Len())
	return nil
}

// attemptConnect runs one full connect sequence: tear down the stale channel,
// establish a new one, discover tools, install the snapshot.
func (m *manager) attemptConnect(ctx context.Context) error {
	_ = m.transport.Close()
	if err := m.transport.Connect(ctx); err != nil {
		return err
	}
	raw, err := m.transport.Call(ctx, proto.MethodToolsList, map[string]any{})
	if err != nil {
		_ = m.transport.Close()
		return err
	}
	result := &schema.ListToolsResult{}
	if err = json.Unmarshal(raw, result); err != nil {
		_ = m.transport.Close()
		// malformed discovery data indicates a version mismatch; retrying
		// will not fix it
		return backoff.Permanent(schema.NewProtocolError("malformed discovery response", err))
	}
	m.registry.Replace(result.Tools)
	return nil
}
