package schema

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/jsonrpc"
)

func TestError_Kinds(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	var testCases = []struct {
		description string
		err         *Error
		expectKind  ErrorKind
		expectCause error
	}{
		{
			description: "connection",
			err:         NewConnectionError("server unreachable", cause),
			expectKind:  KindConnection,
			expectCause: cause,
		},
		{
			description: "tool not found",
			err:         NewToolNotFound("shout", []string{"echo", "add"}),
			expectKind:  KindToolNotFound,
		},
		{
			description: "timeout",
			err:         NewTimeout("sleep", 2*time.Second, cause),
			expectKind:  KindTimeout,
			expectCause: cause,
		},
		{
			description: "protocol",
			err:         NewProtocolError("malformed payload", cause),
			expectKind:  KindProtocol,
			expectCause: cause,
		},
		{
			description: "server",
			err:         NewServerError("tool failed"),
			expectKind:  KindServer,
		},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expectKind, testCase.err.Kind, testCase.description)
		assert.Contains(t, testCase.err.Error(), string(testCase.expectKind), testCase.description)
		if testCase.expectCause != nil {
			assert.True(t, errors.Is(testCase.err, testCase.expectCause), testCase.description)
		}
	}
}

func TestError_ToolNotFoundMessage(t *testing.T) {
	err := NewToolNotFound("shout", []string{"echo", "add"})
	assert.Contains(t, err.Message, `"shout"`)
	assert.Contains(t, err.Message, "echo, add")
	err = NewToolNotFound("shout", nil)
	assert.NotContains(t, err.Message, "available")
}

func TestError_FromRPC(t *testing.T) {
	rpcErr := jsonrpc.NewInternalError("tool exploded", nil)
	err := NewServerErrorFromRPC(rpcErr)
	assert.Equal(t, KindServer, err.Kind)
	assert.Contains(t, err.Message, "tool exploded")
	var unwrapped *jsonrpc.Error
	assert.True(t, errors.As(err, &unwrapped))
}

func TestAsError(t *testing.T) {
	inner := NewServerError("boom")
	wrapped := fmt.Errorf("invoking tool: %w", inner)
	got, ok := AsError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, inner, got)

	_, ok = AsError(errors.New("plain"))
	assert.False(t, ok)
}
