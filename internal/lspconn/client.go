package lspconn

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// SpawnConfig describes how to start one language server process.
type SpawnConfig struct {
	// Command is the server executable; Args its arguments.
	Command string
	Args    []string

	// WorkspaceRoot is the root directory reported at initialize time.
	WorkspaceRoot string

	// Name is a human-readable server name for logging; defaults to Command.
	Name string
}

// ServerConnection is a Conn backed by a spawned server process speaking
// Content-Length-framed JSON-RPC over stdio.
type ServerConnection struct {
	id     string
	name   string
	cmd    *exec.Cmd
	rpc    jsonrpc2.Conn
	caps   Capabilities
	active atomic.Bool
	log    *logrus.Entry

	onNotification func(method string, params json.RawMessage)
}

// SpawnOption configures a ServerConnection before the handshake.
type SpawnOption func(*ServerConnection)

// WithNotificationHandler routes server-to-client notifications (for example
// textDocument/publishDiagnostics) to the given callback.
func WithNotificationHandler(fn func(method string, params json.RawMessage)) SpawnOption {
	return func(c *ServerConnection) {
		c.onNotification = fn
	}
}

// processIO adapts a subprocess's stdout/stdin to the io.ReadWriteCloser
// jsonrpc2.NewStream expects.
type processIO struct {
	reader io.ReadCloser
	writer io.WriteCloser
}

func (p *processIO) Read(data []byte) (int, error)  { return p.reader.Read(data) }
func (p *processIO) Write(data []byte) (int, error) { return p.writer.Write(data) }
func (p *processIO) Close() error                   { return p.writer.Close() }

type startedProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

// Spawn starts the server process, performs the initialize handshake, and
// returns an active connection. Process start is retried with exponential
// backoff; a missing executable is not retried.
func Spawn(ctx context.Context, cfg SpawnConfig, opts ...SpawnOption) (*ServerConnection, error) {
	name := cfg.Name
	if name == "" {
		name = cfg.Command
	}
	c := &ServerConnection{
		id:   uuid.NewString(),
		name: name,
		log:  logrus.WithField("server", name),
	}
	for _, opt := range opts {
		opt(c)
	}

	proc, err := backoff.Retry(ctx, func() (startedProcess, error) {
		cmd := exec.Command(cfg.Command, cfg.Args...)
		cmd.Dir = cfg.WorkspaceRoot
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return startedProcess{}, backoff.Permanent(err)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return startedProcess{}, backoff.Permanent(err)
		}
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			if _, lookErr := exec.LookPath(cfg.Command); lookErr != nil {
				return startedProcess{}, backoff.Permanent(lookErr)
			}
			return startedProcess{}, err
		}
		return startedProcess{cmd: cmd, stdin: stdin, stdout: stdout}, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(3))
	if err != nil {
		return nil, err
	}

	c.cmd = proc.cmd
	if err := c.attach(ctx, &processIO{reader: proc.stdout, writer: proc.stdin}, cfg.WorkspaceRoot); err != nil {
		_ = proc.cmd.Process.Kill()
		return nil, err
	}
	return c, nil
}

// Attach establishes a connection over an existing stream (a socket, or an
// in-memory pipe in tests) and performs the initialize handshake.
func Attach(ctx context.Context, rwc io.ReadWriteCloser, cfg SpawnConfig, opts ...SpawnOption) (*ServerConnection, error) {
	name := cfg.Name
	if name == "" {
		name = "attached"
	}
	c := &ServerConnection{
		id:   uuid.NewString(),
		name: name,
		log:  logrus.WithField("server", name),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.attach(ctx, rwc, cfg.WorkspaceRoot); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ServerConnection) attach(ctx context.Context, rwc io.ReadWriteCloser, root string) error {
	c.rpc = jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	c.rpc.Go(ctx, c.handle)
	c.active.Store(true)

	go func() {
		<-c.rpc.Done()
		c.active.Store(false)
	}()

	if err := c.initialize(ctx, root); err != nil {
		_ = c.rpc.Close()
		return err
	}
	return nil
}

// handle processes server-initiated traffic. Notifications are forwarded to
// the configured callback; requests we don't serve get a method-not-found
// response so the server is never left waiting.
func (c *ServerConnection) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	if _, isCall := req.(*jsonrpc2.Call); !isCall {
		if c.onNotification != nil {
			c.onNotification(req.Method(), req.Params())
		}
		return reply(ctx, nil, nil)
	}
	return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
}

func (c *ServerConnection) initialize(ctx context.Context, root string) error {
	var params protocol.InitializeParams
	params.ProcessID = int32(os.Getpid())
	params.ClientInfo = &protocol.ClientInfo{Name: "lspsync"}
	if root != "" {
		params.RootURI = protocol.DocumentURI(uri.File(root))
	}

	var result protocol.InitializeResult
	if _, err := c.rpc.Call(ctx, protocol.MethodInitialize, &params, &result); err != nil {
		return err
	}
	c.caps = ParseCapabilities(result.Capabilities)

	if err := c.rpc.Notify(ctx, protocol.MethodInitialized, &protocol.InitializedParams{}); err != nil {
		return err
	}
	c.log.WithField("syncKind", c.caps.Sync.Kind).Debug("server initialized")
	return nil
}

// ID implements Conn.
func (c *ServerConnection) ID() string { return c.id }

// Capabilities implements Conn.
func (c *ServerConnection) Capabilities() Capabilities { return c.caps }

// IsActive implements Conn.
func (c *ServerConnection) IsActive() bool { return c.active.Load() }

// Notify implements Conn.
func (c *ServerConnection) Notify(ctx context.Context, method string, params any) error {
	if !c.IsActive() {
		return ErrConnInactive
	}
	return c.rpc.Notify(ctx, method, params)
}

// Call implements Conn.
func (c *ServerConnection) Call(ctx context.Context, method string, params, result any) error {
	if !c.IsActive() {
		return ErrConnInactive
	}
	_, err := c.rpc.Call(ctx, method, params, result)
	return err
}

// Close performs the shutdown/exit handshake and reaps the process. It is
// safe to call on an already-stopped connection.
func (c *ServerConnection) Close(ctx context.Context) error {
	if !c.active.Swap(false) {
		return nil
	}

	if _, err := c.rpc.Call(ctx, protocol.MethodShutdown, nil, nil); err != nil {
		c.log.WithError(err).Warn("shutdown request failed")
	}
	if err := c.rpc.Notify(ctx, protocol.MethodExit, nil); err != nil {
		c.log.WithError(err).Warn("exit notification failed")
	}
	closeErr := c.rpc.Close()

	if c.cmd != nil {
		done := make(chan error, 1)
		go func() { done <- c.cmd.Wait() }()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			_ = c.cmd.Process.Kill()
			<-done
		}
	}
	return closeErr
}
