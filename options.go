package agentflow

import (
	"fmt"
	"time"
)

// Endpoint kinds.
const (
	KindLocalProcess = "local-process"
	KindRemoteHTTP   = "remote-http"
)

// Options is the immutable endpoint descriptor the bridge is built from.
type Options struct {
	Kind           string `yaml:"kind" json:"kind" short:"k" long:"kind" description:"server kind" choice:"local-process" choice:"remote-http"`
	ProcessOptions `yaml:",inline" json:",inline"`
	HTTPOptions    `yaml:",inline" json:",inline"`
	TimeoutSeconds int `yaml:"timeoutSeconds,omitempty" json:"timeoutSeconds,omitempty" short:"t" long:"timeout" description:"default call timeout in seconds"`
	MaxReconnects  int `yaml:"maxReconnects,omitempty" json:"maxReconnects,omitempty" short:"r" long:"max-reconnects" description:"max reconnect attempts"`
}

// ProcessOptions configures a local-process endpoint.
type ProcessOptions struct {
	Command   string            `yaml:"command,omitempty" json:"command,omitempty" short:"C" long:"command" description:"server executable"`
	Arguments []string          `yaml:"arguments,omitempty" json:"arguments,omitempty" short:"A" long:"argument" description:"server executable arguments"`
	Env       map[string]string `yaml:"env,omitempty" json:"env,omitempty" long:"env" description:"extra environment variables"`
	Dir       string            `yaml:"dir,omitempty" json:"dir,omitempty" long:"dir" description:"server working directory"`
}

// HTTPOptions configures a remote-http endpoint.
type HTTPOptions struct {
	URL     string            `yaml:"url,omitempty" json:"url,omitempty" short:"u" long:"url" description:"server base URL"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty" long:"header" description:"static request headers"`
}

// Init applies defaults and normalizes legacy kind aliases.
func (o *Options) Init() {
	switch o.Kind {
	case "stdio", "process":
		o.Kind = KindLocalProcess
	case "http":
		o.Kind = KindRemoteHTTP
	case "":
		o.Kind = KindLocalProcess
	}
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = 30
	}
	if o.MaxReconnects <= 0 {
		o.MaxReconnects = 3
	}
}

// Validate checks kind specific requirements.
func (o *Options) Validate() error {
	switch o.Kind {
	case KindLocalProcess:
		if o.Command == "" {
			return fmt.Errorf("command is required for a %v endpoint", KindLocalProcess)
		}
	case KindRemoteHTTP:
		if o.URL == "" {
			return fmt.Errorf("url is required for a %v endpoint", KindRemoteHTTP)
		}
	default:
		return fmt.Errorf("invalid kind %q, expected %v or %v", o.Kind, KindLocalProcess, KindRemoteHTTP)
	}
	return nil
}

// Timeout returns the default per call timeout.
func (o *Options) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// Target describes the server location for diagnostics.
func (o *Options) Target() string {
	if o.Kind == KindRemoteHTTP {
		return o.URL
	}
	return o.Command
}
