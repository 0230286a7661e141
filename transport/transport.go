// Package transport provides the two concrete channels the bridge can use to
// reach a tool server: a spawned local process speaking newline delimited
// JSON-RPC over its standard streams, and a remote HTTP endpoint exposing the
// tools/list and tools/call sub paths.
package transport

import (
	"context"
	"encoding/json"
)

// Transport turns a logical request into bytes on the wire and back.
//
// Call returns the raw result payload on success. A server reported
// application error surfaces as *jsonrpc.Error somewhere in the returned
// error chain; any other error is a transport level failure. Deadlines are
// supplied through ctx and cancel the underlying operation.
type Transport interface {
	// Connect establishes the channel. It is safe to call again after a
	// failure; a successful call resets any broken state.
	Connect(ctx context.Context) error

	// Call issues a single request for the given protocol method.
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)

	// Close releases the underlying resource. Idempotent.
	Close() error
}
