package agentflow_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	agentflow "github.com/Zeeeepa/AgentFlow"
	"github.com/Zeeeepa/AgentFlow/schema"
)

const serverEnvKey = "AGENTFLOW_TEST_SERVER"

func TestMain(m *testing.M) {
	if os.Getenv(serverEnvKey) == "1" {
		runToolServer()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := agentflow.New(nil)
	assert.NotNil(t, err)
	_, err = agentflow.New(&agentflow.Options{Kind: agentflow.KindRemoteHTTP})
	assert.NotNil(t, err)
}

func TestBridge_LocalProcess(t *testing.T) {
	b, err := agentflow.New(&agentflow.Options{
		Kind: agentflow.KindLocalProcess,
		ProcessOptions: agentflow.ProcessOptions{
			Command: os.Args[0],
			Env:     map[string]string{serverEnvKey: "1"},
		},
		TimeoutSeconds: 5,
	})
	if !assert.Nil(t, err) {
		return
	}
	defer b.Close()
	ctx := context.Background()

	tools, err := b.Discover(ctx)
	assert.Nil(t, err)
	assert.Len(t, tools, 2)

	result, err := b.Execute(ctx, "echo", map[string]any{"message": "hello"})
	assert.Nil(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "hello", result.Text())

	result, err = b.Execute(ctx, "missing", nil)
	assert.Nil(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, schema.KindToolNotFound, result.Error.Kind)

	// killing the server mid call surfaces a connection error on that call
	result, err = b.Execute(ctx, "die", nil)
	assert.Nil(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, schema.KindConnection, result.Error.Kind)

	// the next call transparently reconnects to a fresh process
	result, err = b.Execute(ctx, "echo", map[string]any{"message": "back"})
	assert.Nil(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "back", result.Text())

	health := b.Health()
	assert.True(t, health.Connected)
	assert.Equal(t, agentflow.KindLocalProcess, health.Endpoint.Kind)
}

func TestBridge_LocalProcessUnreachable(t *testing.T) {
	b, err := agentflow.New(&agentflow.Options{
		Kind:           agentflow.KindLocalProcess,
		ProcessOptions: agentflow.ProcessOptions{Command: "/nonexistent/tool-server"},
		MaxReconnects:  2,
	})
	if !assert.Nil(t, err) {
		return
	}
	defer b.Close()

	result, err := b.Execute(context.Background(), "echo", nil)
	assert.Nil(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, schema.KindConnection, result.Error.Kind)
	assert.Equal(t, "failed", b.Health().State)
}

func TestBridge_RemoteHTTP(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tools/list", func(writer http.ResponseWriter, request *http.Request) {
		_ = json.NewEncoder(writer).Encode(&schema.ListToolsResult{Tools: []schema.Tool{{Name: "upper"}}})
	})
	mux.HandleFunc("POST /tools/call", func(writer http.ResponseWriter, request *http.Request) {
		params := &schema.CallToolRequestParams{}
		_ = json.NewDecoder(request.Body).Decode(params)
		text, _ := params.Arguments["message"].(string)
		_ = json.NewEncoder(writer).Encode(&schema.CallToolResult{
			Content: []schema.Content{{Type: "text", Text: text + "!"}},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	b, err := agentflow.New(&agentflow.Options{
		Kind:        agentflow.KindRemoteHTTP,
		HTTPOptions: agentflow.HTTPOptions{URL: server.URL},
	})
	if !assert.Nil(t, err) {
		return
	}
	defer b.Close()

	result, err := b.Execute(context.Background(), "upper", map[string]any{"message": "hey"})
	assert.Nil(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "hey!", result.Text())
	assert.Equal(t, server.URL, b.Health().Endpoint.Target)
}

func TestBridge_RemoteHTTPToolCrash(t *testing.T) {
	var invocations int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tools/list", func(writer http.ResponseWriter, request *http.Request) {
		_ = json.NewEncoder(writer).Encode(&schema.ListToolsResult{Tools: []schema.Tool{{Name: "charge"}}})
	})
	mux.HandleFunc("POST /tools/call", func(writer http.ResponseWriter, request *http.Request) {
		if atomic.AddInt32(&invocations, 1) == 1 {
			http.Error(writer, "tool crashed", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(writer).Encode(&schema.CallToolResult{})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	b, err := agentflow.New(&agentflow.Options{
		Kind:        agentflow.KindRemoteHTTP,
		HTTPOptions: agentflow.HTTPOptions{URL: server.URL},
	})
	if !assert.Nil(t, err) {
		return
	}
	defer b.Close()

	// the server reported the crash, so the tool must not be silently run a
	// second time
	result, err := b.Execute(context.Background(), "charge", nil)
	assert.Nil(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, schema.KindServer, result.Error.Kind)
	assert.Equal(t, int32(1), atomic.LoadInt32(&invocations))
}

// runToolServer is the subprocess side of the local process tests: a minimal
// newline delimited JSON-RPC tool server with an echo tool and a die tool
// that exits without responding.
func runToolServer() {
	type request struct {
		Id     json.RawMessage `json:"id"`
		Method string          `json:"method"`
		Params struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		} `json:"params"`
	}
	writer := bufio.NewWriter(os.Stdout)
	respond := func(id json.RawMessage, result any) {
		data, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": id, "result": result})
		if err != nil {
			return
		}
		_, _ = writer.Write(append(data, '\n'))
		_ = writer.Flush()
	}
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		req := &request{}
		if err := json.Unmarshal(scanner.Bytes(), req); err != nil {
			continue
		}
		switch req.Method {
		case "initialize":
			respond(req.Id, map[string]any{
				"protocolVersion": "2025-03-26",
				"capabilities":    map[string]any{},
				"serverInfo":      map[string]any{"name": "test-server", "version": "0.0"},
			})
		case "tools/list":
			respond(req.Id, map[string]any{"tools": []map[string]any{{"name": "echo"}, {"name": "die"}}})
		case "tools/call":
			switch req.Params.Name {
			case "echo":
				text, _ := req.Params.Arguments["message"].(string)
				respond(req.Id, map[string]any{
					"content": []map[string]any{{"type": "text", "text": text}},
				})
			case "die":
				os.Exit(1)
			default:
				time.Sleep(10 * time.Millisecond)
			}
		}
	}
}
