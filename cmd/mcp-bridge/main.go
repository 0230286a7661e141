// Command mcp-bridge connects to a tool server, lists its tools or invokes
// one of them, and prints the outcome as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/Zeeeepa/AgentFlow"
)

type options struct {
	Endpoint agentflow.Options `group:"endpoint"`
	Config   string            `short:"f" long:"config" description:"endpoint config YAML location"`
	List     bool              `short:"l" long:"list" description:"list the tools exposed by the server"`
	Call     string            `short:"c" long:"call" description:"tool name to invoke"`
	Args     string            `short:"a" long:"args" description:"tool arguments as JSON" default:"{}"`
	Verbose  bool              `short:"v" long:"verbose" description:"log connection activity"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	options := &options{}
	if _, err := flags.ParseArgs(options, args); err != nil {
		return err
	}
	ctx := context.Background()
	if options.Config != "" {
		fs := afs.New()
		data, err := fs.DownloadWithURL(ctx, options.Config)
		if err != nil {
			return fmt.Errorf("failed to load config %v: %w", options.Config, err)
		}
		if err = yaml.Unmarshal(data, &options.Endpoint); err != nil {
			return fmt.Errorf("failed to parse config %v: %w", options.Config, err)
		}
	}
	applyEnv(&options.Endpoint)

	var bridgeOptions []agentflow.BridgeOption
	if options.Verbose {
		bridgeOptions = append(bridgeOptions,
			agentflow.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))))
	}
	b, err := agentflow.New(&options.Endpoint, bridgeOptions...)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	switch {
	case options.List:
		tools, err := b.Discover(ctx)
		if err != nil {
			return err
		}
		return printJSON(tools)
	case options.Call != "":
		arguments := map[string]any{}
		if err = json.Unmarshal([]byte(options.Args), &arguments); err != nil {
			return fmt.Errorf("invalid --args: %w", err)
		}
		result, err := b.Execute(ctx, options.Call, arguments)
		if err != nil {
			return err
		}
		if err = printJSON(result); err != nil {
			return err
		}
		if !result.Success {
			_ = b.Close()
			os.Exit(1)
		}
		return nil
	}
	return fmt.Errorf("nothing to do, use --list or --call")
}

// applyEnv fills unset endpoint fields from the MCP_SERVER_* environment
// variables recognized by the original bridge tool.
func applyEnv(endpoint *agentflow.Options) {
	if endpoint.Kind == "" {
		endpoint.Kind = os.Getenv("MCP_SERVER_TYPE")
	}
	if endpoint.Command == "" {
		endpoint.Command = os.Getenv("MCP_SERVER_COMMAND")
	}
	if len(endpoint.Arguments) == 0 {
		if raw := os.Getenv("MCP_SERVER_ARGS"); raw != "" {
			endpoint.Arguments = strings.Fields(raw)
		}
	}
	if endpoint.URL == "" {
		endpoint.URL = os.Getenv("MCP_SERVER_URL")
	}
	if endpoint.TimeoutSeconds == 0 {
		if value, err := strconv.Atoi(os.Getenv("MCP_SERVER_TIMEOUT")); err == nil {
			endpoint.TimeoutSeconds = value
		}
	}
	if endpoint.MaxReconnects == 0 {
		if value, err := strconv.Atoi(os.Getenv("MCP_RECONNECT_ATTEMPTS")); err == nil {
			endpoint.MaxReconnects = value
		}
	}
}

func printJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
