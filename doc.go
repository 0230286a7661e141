// Package agentflow provides a bridge between a calling system and an
// external tool server, without the caller knowing whether that server is
// reachable over a local process pipe or over HTTP.
//
// The package glues the wire types in schema with the concrete transports in
// transport and the connection machinery in bridge. In practice it is used
// through a single entry point:
//
//	b, err := agentflow.New(&agentflow.Options{
//	    Kind:           agentflow.KindLocalProcess,
//	    ProcessOptions: agentflow.ProcessOptions{Command: "python", Arguments: []string{"server.py"}},
//	})
//	defer b.Close()
//	tools, err := b.Discover(ctx)
//	result, err := b.Execute(ctx, "echo", map[string]any{"text": "hi"})
//
// Option structures carry yaml/json and CLI flag tags so they can be
// populated from configuration files or flags, see cmd/mcp-bridge.
package agentflow
