package schema

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/viant/jsonrpc"
)

// ErrorKind identifies the failure class of a bridge operation.
type ErrorKind string

const (
	// KindConnection - the channel could not be established or maintained.
	KindConnection ErrorKind = "connection"
	// KindToolNotFound - the tool name is absent from the current registry.
	KindToolNotFound ErrorKind = "tool_not_found"
	// KindTimeout - the call deadline was exceeded.
	KindTimeout ErrorKind = "timeout"
	// KindProtocol - the response could not be decoded into the expected shape.
	KindProtocol ErrorKind = "protocol"
	// KindServer - the remote tool executed but reported failure.
	KindServer ErrorKind = "server"
)

// Error is the structured, recoverable error carried by invocation results.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewConnectionError creates a connection error
func NewConnectionError(message string, cause error) *Error {
	return &Error{Kind: KindConnection, Message: message, cause: cause}
}

// NewToolNotFound creates a tool not found error listing the known tools
func NewToolNotFound(name string, available []string) *Error {
	message := fmt.Sprintf("tool %q not found on server", name)
	if len(available) > 0 {
		message += ", available: " + strings.Join(available, ", ")
	}
	return &Error{Kind: KindToolNotFound, Message: message}
}

// NewTimeout creates a timeout error
func NewTimeout(tool string, timeout time.Duration, cause error) *Error {
	return &Error{
		Kind:    KindTimeout,
		Message: fmt.Sprintf("tool %q did not complete within %s", tool, timeout),
		cause:   cause,
	}
}

// NewProtocolError creates a protocol error
func NewProtocolError(message string, cause error) *Error {
	return &Error{Kind: KindProtocol, Message: message, cause: cause}
}

// NewServerError creates a server reported error
func NewServerError(message string) *Error {
	return &Error{Kind: KindServer, Message: message}
}

// NewServerErrorFromRPC converts a JSON-RPC error reported by the server.
func NewServerErrorFromRPC(rpcErr *jsonrpc.Error) *Error {
	return &Error{
		Kind:    KindServer,
		Message: fmt.Sprintf("server error %d: %s", rpcErr.Code, rpcErr.Message),
		cause:   rpcErr,
	}
}

// AsError extracts a structured bridge error from an error chain.
func AsError(err error) (*Error, bool) {
	var ret *Error
	if errors.As(err, &ret) {
		return ret, true
	}
	return nil, false
}
