package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/toolflow"
	"github.com/aretw0/toolflow/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
)

// Default limits for a session.
const (
	DefaultHandshakeTimeout = 30 * time.Second
	DefaultRequestTimeout   = 60 * time.Second
	DefaultShutdownGrace    = 2 * time.Second
)

// SupportedProtocolVersions lists the protocol revisions the client accepts from a server.
var SupportedProtocolVersions = []string{
	mcp.LATEST_PROTOCOL_VERSION,
	"2025-06-18",
	"2025-03-26",
	"2024-11-05",
}

type config struct {
	logger           *slog.Logger
	handshakeTimeout time.Duration
	requestTimeout   time.Duration
	shutdownGrace    time.Duration
	protocolVersion  string
	clientInfo       mcp.Implementation
}

func defaultConfig() config {
	return config{
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		handshakeTimeout: DefaultHandshakeTimeout,
		requestTimeout:   DefaultRequestTimeout,
		shutdownGrace:    DefaultShutdownGrace,
		protocolVersion:  mcp.LATEST_PROTOCOL_VERSION,
		clientInfo: mcp.Implementation{
			Name:    "toolflow",
			Version: strings.TrimSpace(toolflow.Version),
		},
	}
}

// Option configures a Session.
type Option func(*config)

// WithLogger sets the structured logger for transport diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHandshakeTimeout bounds the initialize exchange.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.handshakeTimeout = d
		}
	}
}

// WithRequestTimeout bounds every request/response exchange.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithShutdownGrace sets how long Close waits for the child to exit before killing it.
func WithShutdownGrace(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.shutdownGrace = d
		}
	}
}

// WithProtocolVersion overrides the protocol version proposed during initialize.
func WithProtocolVersion(v string) Option {
	return func(c *config) {
		c.protocolVersion = v
	}
}

// WithClientInfo overrides the client name and version sent during initialize.
func WithClientInfo(name, version string) Option {
	return func(c *config) {
		c.clientInfo = mcp.Implementation{Name: name, Version: version}
	}
}

// Session is one initialized connection to a tool server running as a child process.
type Session struct {
	spec   domain.LaunchSpec
	cfg    config
	logger *slog.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	// sem keeps one exchange in flight.
	sem    chan struct{}
	wmu    sync.Mutex
	nextID atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan *message
	failure error

	broken     chan struct{}
	breakOnce  sync.Once
	readerDone chan struct{}
	exited     chan struct{}
	exitErr    error
	closeOnce  sync.Once

	serverInfo      mcp.Implementation
	protocolVersion string
	instructions    string
}

// Open spawns the tool server described by spec and performs the initialize handshake.
// On any failure the child process is terminated and reaped before Open returns.
func Open(ctx context.Context, spec domain.LaunchSpec, opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger.With("mcp_server", spec.String())

	if spec.Command == "" {
		return nil, &domain.TransportError{Op: "spawn", Err: errors.New("empty command")}
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stderr = &stderrLog{logger: logger}
	cmd.WaitDelay = cfg.shutdownGrace

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &domain.TransportError{Op: "spawn", Err: fmt.Errorf("create stdin pipe: %w", err)}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, &domain.TransportError{Op: "spawn", Err: fmt.Errorf("create stdout pipe: %w", err)}
	}

	logger.Info("starting MCP subprocess", "command", spec.Command, "args", spec.Args)
	if err := cmd.Start(); err != nil {
		return nil, &domain.TransportError{Op: "spawn", Err: fmt.Errorf("start %s: %w", spec.Command, err)}
	}
	logger.Debug("MCP subprocess started", "pid", cmd.Process.Pid)

	s := &Session{
		spec:       spec,
		cfg:        cfg,
		logger:     logger,
		cmd:        cmd,
		stdin:      stdin,
		stdout:     stdout,
		sem:        make(chan struct{}, 1),
		pending:    make(map[int64]chan *message),
		broken:     make(chan struct{}),
		readerDone: make(chan struct{}),
		exited:     make(chan struct{}),
	}

	go s.readLoop()
	go s.reap()

	hctx, cancel := context.WithTimeout(ctx, cfg.handshakeTimeout)
	defer cancel()
	if err := s.initialize(hctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Spec returns the launch spec the session was opened with.
func (s *Session) Spec() domain.LaunchSpec { return s.spec }

// ServerInfo returns the name and version the server reported during initialize.
func (s *Session) ServerInfo() mcp.Implementation { return s.serverInfo }

// ProtocolVersion returns the negotiated protocol version.
func (s *Session) ProtocolVersion() string { return s.protocolVersion }

// Instructions returns the optional usage hints the server sent during initialize.
func (s *Session) Instructions() string { return s.instructions }

// Exited reports whether the child process has been reaped.
func (s *Session) Exited() bool {
	select {
	case <-s.exited:
		return true
	default:
		return false
	}
}

func (s *Session) initialize(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": s.cfg.protocolVersion,
		"capabilities":    mcp.ClientCapabilities{},
		"clientInfo":      s.cfg.clientInfo,
	}

	raw, rpcErr, err := s.exchange(ctx, "initialize", string(mcp.MethodInitialize), params)
	if err != nil {
		return err
	}
	if rpcErr != nil {
		return s.protocolFault("initialize", rpcErr)
	}

	var result mcp.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return s.protocolFault("initialize", fmt.Errorf("unmarshal initialize result: %w", err))
	}
	if !slices.Contains(SupportedProtocolVersions, result.ProtocolVersion) {
		return s.protocolFault("initialize", fmt.Errorf("unsupported protocol version %q", result.ProtocolVersion))
	}

	s.serverInfo = result.ServerInfo
	s.protocolVersion = result.ProtocolVersion
	s.instructions = result.Instructions

	s.logger.Info("MCP server initialized",
		"server_name", result.ServerInfo.Name,
		"server_version", result.ServerInfo.Version,
		"protocol_version", result.ProtocolVersion,
	)

	if err := s.write(notification{JSONRPC: jsonrpcVersion, Method: methodInitialized}); err != nil {
		return s.transportFault("initialize", fmt.Errorf("send initialized notification: %w", err))
	}
	return nil
}

// ListTools calls tools/list, following pagination, and returns the advertised tools.
func (s *Session) ListTools(ctx context.Context) ([]domain.ToolDescriptor, error) {
	var (
		tools  []domain.ToolDescriptor
		cursor mcp.Cursor
	)
	for {
		var params any
		if cursor != "" {
			params = map[string]any{"cursor": cursor}
		}

		raw, rpcErr, err := s.exchange(ctx, "tools/list", string(mcp.MethodToolsList), params)
		if err != nil {
			return nil, err
		}
		if rpcErr != nil {
			return nil, s.protocolFault("tools/list", rpcErr)
		}

		var page mcp.ListToolsResult
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, s.protocolFault("tools/list", fmt.Errorf("unmarshal tools/list result: %w", err))
		}
		for _, t := range page.Tools {
			if t.Name == "" {
				return nil, s.protocolFault("tools/list", errors.New("tool without a name"))
			}
			d := domain.NewToolDescriptor(t.Name, t.Description, t.InputSchema.Properties, t.InputSchema.Required)
			d.Server = s.spec.String()
			tools = append(tools, d)
		}

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	s.logger.Info("discovered MCP tools", "count", len(tools))
	return tools, nil
}

// CallTool invokes a tool by name. A result flagged isError, or a JSON-RPC error in reply
// to the call, is a tool-level failure and is returned as a ToolCallResult, not an error.
func (s *Session) CallTool(ctx context.Context, name string, params map[string]any) (domain.ToolCallResult, error) {
	if params == nil {
		params = map[string]any{}
	}
	raw, rpcErr, err := s.exchange(ctx, "tools/call", string(mcp.MethodToolsCall), map[string]any{
		"name":      name,
		"arguments": params,
	})
	if err != nil {
		return domain.ToolCallResult{}, err
	}
	if rpcErr != nil {
		s.logger.Warn("tool call rejected by server", "tool", name, "code", rpcErr.Code, "message", rpcErr.Message)
		return domain.ToolFailure(rpcErr.Message), nil
	}

	var result callToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.ToolCallResult{}, s.protocolFault("tools/call", fmt.Errorf("unmarshal tools/call result: %w", err))
	}

	text := result.text()
	if result.IsError {
		if text == "" {
			text = fmt.Sprintf("tool %s reported an error", name)
		}
		return domain.ToolFailure(text), nil
	}
	if result.StructuredContent != nil {
		return domain.ToolSuccess(result.StructuredContent), nil
	}
	return domain.ToolSuccess(text), nil
}

// Ping checks whether the server is responsive.
func (s *Session) Ping(ctx context.Context) error {
	_, rpcErr, err := s.exchange(ctx, "ping", string(mcp.MethodPing), nil)
	if err != nil {
		return err
	}
	if rpcErr != nil {
		return s.protocolFault("ping", rpcErr)
	}
	return nil
}

// Close terminates the child process and releases the transport. It is idempotent:
// after the first call returns the child has been reaped, and later calls are no-ops.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.breakWith(&domain.TransportError{Op: "close", Err: domain.ErrSessionClosed})

		// Closing stdin asks a well-behaved server to exit.
		_ = s.stdin.Close()

		timer := time.NewTimer(s.cfg.shutdownGrace)
		defer timer.Stop()
		select {
		case <-s.exited:
		case <-timer.C:
			s.logger.Warn("MCP subprocess did not exit gracefully, killing", "pid", s.cmd.Process.Pid)
			_ = s.cmd.Process.Kill()
			_ = s.stdout.Close()
			<-s.exited
		}
		s.logger.Info("stopped MCP subprocess", "pid", s.cmd.Process.Pid, "exit", s.exitErr)
	})
	return nil
}

// exchange sends one request and blocks for the matching response, the deadline, or the
// loss of the transport. A JSON-RPC error reply is returned as rpcErr, not as err.
func (s *Session) exchange(ctx context.Context, op, method string, params any) (json.RawMessage, *RPCError, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, &domain.TransportError{Op: op, Err: ctx.Err()}
	}
	defer func() { <-s.sem }()

	if err := s.err(); err != nil {
		return nil, nil, err
	}

	id := s.nextID.Add(1)
	ch := make(chan *message, 1)
	s.mu.Lock()
	s.pending[id] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	if err := s.write(request{JSONRPC: jsonrpcVersion, ID: id, Method: method, Params: params}); err != nil {
		return nil, nil, s.transportFault(op, fmt.Errorf("write to subprocess stdin: %w", err))
	}

	tctx, cancel := context.WithTimeout(ctx, s.cfg.requestTimeout)
	defer cancel()

	select {
	case msg := <-ch:
		if msg.Error != nil {
			return nil, msg.Error, nil
		}
		return msg.Result, nil, nil
	case <-s.broken:
		return nil, nil, s.err()
	case <-tctx.Done():
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return nil, nil, s.transportFault(op, fmt.Errorf("no response to request %d: %w", id, tctx.Err()))
		}
		return nil, nil, &domain.TransportError{Op: op, Err: tctx.Err()}
	}
}

func (s *Session) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err = s.stdin.Write(append(data, '\n'))
	return err
}

// readLoop is the only reader of the child's stdout.
func (s *Session) readLoop() {
	defer close(s.readerDone)

	reader := bufio.NewReaderSize(s.stdout, 1<<20) // 1 MiB buffer for large responses
	for {
		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			s.dispatch(line)
		}
		if err != nil {
			s.breakWith(&domain.TransportError{Op: "read", Err: fmt.Errorf("tool server exited: %w", err)})
			return
		}
	}
}

func (s *Session) dispatch(line []byte) {
	var msg message
	if err := json.Unmarshal(line, &msg); err != nil {
		s.logger.Debug("skipping non-JSON line from MCP subprocess", "line", string(line))
		return
	}

	switch {
	case msg.Method != "" && msg.hasID():
		s.answer(&msg)
	case msg.Method != "":
		s.logger.Debug("MCP notification", "method", msg.Method)
	default:
		id, ok := msg.requestID()
		if !ok {
			s.logger.Warn("discarding MCP message without a usable id", "id", string(msg.ID))
			return
		}
		s.mu.Lock()
		ch, found := s.pending[id]
		delete(s.pending, id)
		s.mu.Unlock()
		if !found {
			s.logger.Warn("discarding unmatched MCP response", "id", id)
			return
		}
		ch <- &msg
	}
}

// answer replies to requests originated by the server.
func (s *Session) answer(msg *message) {
	r := reply{JSONRPC: jsonrpcVersion, ID: msg.ID}
	if msg.Method == string(mcp.MethodPing) {
		r.Result = map[string]any{}
	} else {
		r.Error = &RPCError{Code: mcp.METHOD_NOT_FOUND, Message: "method not supported by client: " + msg.Method}
	}
	if err := s.write(r); err != nil {
		s.logger.Debug("failed to answer server request", "method", msg.Method, "error", err)
	}
}

func (s *Session) reap() {
	<-s.readerDone
	s.exitErr = s.cmd.Wait()
	close(s.exited)
}

func (s *Session) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// breakWith moves the session to the failed state. The first cause wins.
func (s *Session) breakWith(cause error) {
	s.breakOnce.Do(func() {
		s.mu.Lock()
		s.failure = cause
		s.mu.Unlock()
		close(s.broken)
	})
}

func (s *Session) transportFault(op string, err error) error {
	fault := &domain.TransportError{Op: op, Err: fmt.Errorf("%w: %w", domain.ErrSessionFailed, err)}
	s.breakWith(fault)
	return fault
}

func (s *Session) protocolFault(op string, err error) error {
	fault := &domain.ProtocolError{Op: op, Err: err}
	s.breakWith(fault)
	return fault
}

// stderrLog forwards the child's stderr lines to the debug log. It is not part of the protocol.
type stderrLog struct {
	logger *slog.Logger
	buf    []byte
}

func (w *stderrLog) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.logger.Debug("MCP subprocess stderr", "line", string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}
