package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"
)

// Stdio reaches a tool server by spawning it as a local subprocess and
// exchanging newline terminated JSON-RPC frames over its standard streams.
//
// The pipe is a single ordered byte stream, so only one request may be in
// flight at a time; concurrent callers are serialized in FIFO order. A call
// abandoned on timeout poisons the current session, because a stdio stream
// cannot be resynchronized mid message - the connection manager has to
// reconnect before the next call.
type Stdio struct {
	command   string
	arguments []string
	env       map[string]string
	dir       string
	info      schema.Implementation

	seq     atomic.Uint64
	mux     sync.Mutex // serializes requests on the pipe
	session atomic.Pointer[session]
}

// StdioOption customizes the process transport.
type StdioOption func(*Stdio)

// WithArguments sets the arguments passed to the spawned executable.
func WithArguments(arguments ...string) StdioOption {
	return func(t *Stdio) {
		t.arguments = arguments
	}
}

// WithEnv adds environment variables on top of the inherited environment.
func WithEnv(env map[string]string) StdioOption {
	return func(t *Stdio) {
		t.env = env
	}
}

// WithDir sets the working directory of the spawned executable.
func WithDir(dir string) StdioOption {
	return func(t *Stdio) {
		t.dir = dir
	}
}

// WithClientInfo overrides the implementation info sent during the handshake.
func WithClientInfo(name, version string) StdioOption {
	return func(t *Stdio) {
		t.info = *schema.NewImplementation(name, version)
	}
}

// NewStdio creates a process transport for the given executable.
func NewStdio(command string, options ...StdioOption) *Stdio {
	ret := &Stdio{
		command: command,
		info:    *schema.NewImplementation("AgentFlow", "1.0"),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Connect spawns the server process and performs the initialize handshake.
// Any previous session is torn down first, so Connect doubles as reconnect.
func (t *Stdio) Connect(ctx context.Context) error {
	if prev := t.session.Swap(nil); prev != nil {
		prev.close()
	}
	sess, err := t.start()
	if err != nil {
		return err
	}
	if err = t.initialize(ctx, sess); err != nil {
		sess.close()
		return fmt.Errorf("initialize handshake failed: %w", err)
	}
	t.session.Store(sess)
	return nil
}

// Call sends a single request and blocks until the matching response arrives,
// the deadline expires, or the process dies.
func (t *Stdio) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	t.mux.Lock()
	defer t.mux.Unlock()
	sess := t.session.Load()
	if sess == nil {
		return nil, fmt.Errorf("process transport is not connected")
	}
	return t.roundTrip(ctx, sess, method, params)
}

// Close terminates the subprocess. Idempotent, callable from any state.
func (t *Stdio) Close() error {
	if sess := t.session.Swap(nil); sess != nil {
		sess.close()
	}
	return nil
}

func (t *Stdio) start() (*session, error) {
	if t.command == "" {
		return nil, fmt.Errorf("command is required for the process transport")
	}
	cmd := exec.Command(t.command, t.arguments...)
	cmd.Dir = t.dir
	cmd.Env = os.Environ()
	for k, v := range t.env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr := &tailBuffer{limit: 4096}
	cmd.Stderr = stderr
	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %q: %w", t.command, err)
	}
	sess := &session{
		cmd:    cmd,
		stdin:  stdin,
		recv:   make(chan *jsonrpc.Response, 1),
		stderr: stderr,
	}
	go sess.readLoop(bufio.NewReader(stdout))
	return sess, nil
}

func (t *Stdio) initialize(ctx context.Context, sess *session) error {
	params := &schema.InitializeRequestParams{
		Capabilities:    schema.ClientCapabilities{},
		ClientInfo:      t.info,
		ProtocolVersion: schema.LatestProtocolVersion,
	}
	if _, err := t.roundTrip(ctx, sess, schema.MethodInitialize, params); err != nil {
		return err
	}
	notification, err := jsonrpc.NewNotification(schema.MethodNotificationInitialized, map[string]any{})
	if err != nil {
		return err
	}
	data, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	return sess.write(data)
}

func (t *Stdio) roundTrip(ctx context.Context, sess *session, method string, params any) (json.RawMessage, error) {
	if sess.broken.Load() {
		return nil, fmt.Errorf("process transport is unusable until reconnect")
	}
	request, err := jsonrpc.NewRequest(method, params)
	if err != nil {
		return nil, err
	}
	id := t.seq.Add(1)
	request.Id = id
	request.Jsonrpc = jsonrpc.Version
	data, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}
	if err = sess.write(data); err != nil {
		sess.broken.Store(true)
		return nil, fmt.Errorf("failed to write request: %w%s", err, sess.stderrSuffix())
	}
	for {
		select {
		case response, ok := <-sess.recv:
			if !ok {
				sess.broken.Store(true)
				return nil, fmt.Errorf("process exited before responding%s", sess.stderrSuffix())
			}
			got, ok := jsonrpc.AsRequestIntId(response.Id)
			if !ok || uint64(got) != id {
				// stale frame from an abandoned call
				continue
			}
			if response.Error != nil {
				return nil, response.Error
			}
			return response.Result, nil
		case <-ctx.Done():
			sess.broken.Store(true)
			return nil, ctx.Err()
		}
	}
}

// session is the state bound to one spawned process; it is replaced wholesale
// on every reconnect so an abandoned reader can never leak into a new one.
type session struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	recv     chan *jsonrpc.Response
	stderr   *tailBuffer
	broken   atomic.Bool
	waitOnce sync.Once
}

func (s *session) write(data []byte) error {
	_, err := s.stdin.Write(append(data, '\n'))
	return err
}

func (s *session) readLoop(reader *bufio.Reader) {
	defer close(s.recv)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			s.dispatch(line)
		}
		if err != nil {
			s.wait()
			return
		}
	}
}

func (s *session) dispatch(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	var probe struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return
	}
	if probe.Method != "" {
		// server initiated request or notification; the bridge protocol is
		// strictly request/response
		return
	}
	response := &jsonrpc.Response{}
	if err := json.Unmarshal(line, response); err != nil {
		return
	}
	select {
	case s.recv <- response:
	default:
		// nobody is waiting; response to an abandoned call
	}
}

func (s *session) close() {
	s.broken.Store(true)
	_ = s.stdin.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.wait()
}

func (s *session) wait() {
	s.waitOnce.Do(func() {
		_ = s.cmd.Wait()
	})
}

func (s *session) stderrSuffix() string {
	if tail := s.stderr.String(); tail != "" {
		return ", stderr: " + tail
	}
	return ""
}

// tailBuffer keeps the most recent stderr output for diagnostics.
type tailBuffer struct {
	mux   sync.Mutex
	limit int
	data  []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mux.Lock()
	defer b.mux.Unlock()
	b.data = append(b.data, p...)
	if len(b.data) > b.limit {
		b.data = b.data[len(b.data)-b.limit:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mux.Lock()
	defer b.mux.Unlock()
	return string(bytes.TrimSpace(b.data))
}
