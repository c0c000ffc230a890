package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"weasel/internal/ime"
	"weasel/internal/logging"
	"weasel/internal/wire"
)

var (
	// ErrServerClosed is returned by Do after Stop.
	ErrServerClosed = errors.New("ipc: server closed")

	// ErrInternal is reported when a bridge call panicked.
	ErrInternal = errors.New("ipc: internal error")

	// ErrUnknownCommand is reported for requests the server does not know.
	ErrUnknownCommand = errors.New("ipc: unknown command")
)

// ServerConfig configures the IPC server.
type ServerConfig struct {
	SocketPath     string
	BufferSize     int
	MaxConnections int

	Logger *logging.Logger
	Crash  *logging.CrashHandler

	// OnShutdown is called once a ShutdownServer request has been answered.
	OnShutdown func()
}

// DefaultServerConfig returns defaults for a socket path.
func DefaultServerConfig(socketPath string) ServerConfig {
	return ServerConfig{
		SocketPath:     socketPath,
		BufferSize:     wire.BufferSize,
		MaxConnections: 64,
	}
}

// Server owns the bridge and serializes every call to it.
type Server struct {
	cfg    ServerConfig
	bridge *ime.Bridge
	log    *logging.Logger
	crash  *logging.CrashHandler

	mu       sync.RWMutex
	listener net.Listener
	conns    map[string]*conn

	jobs     chan job
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool
}

type job struct {
	fn   func(*ime.Bridge)
	info map[string]any
	done chan bool
}

// conn is one client connection and the sessions it opened.
type conn struct {
	id       string
	c        net.Conn
	log      *logging.Logger
	sessions map[ime.SessionID]bool
}

// NewServer creates a server for bridge and starts its dispatcher.
func NewServer(cfg ServerConfig, bridge *ime.Bridge) *Server {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = wire.BufferSize
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Crash == nil {
		cfg.Crash = logging.NewCrashHandler(&logging.CrashHandlerConfig{
			Component: "ipc",
			Logger:    cfg.Logger,
		})
	}

	s := &Server{
		cfg:    cfg,
		bridge: bridge,
		log:    cfg.Logger.WithComponent("ipc"),
		crash:  cfg.Crash,
		conns:  make(map[string]*conn),
		jobs:   make(chan job),
		quit:   make(chan struct{}),
	}
	go s.dispatchLoop()
	return s
}

// Do runs fn on the dispatcher goroutine and waits for it.
func (s *Server) Do(fn func(*ime.Bridge)) error {
	return s.do(nil, fn)
}

// Post runs fn on the dispatcher without waiting.
func (s *Server) Post(fn func(*ime.Bridge)) {
	go func() {
		if err := s.Do(fn); err != nil && !errors.Is(err, ErrServerClosed) {
			s.log.Warn("posted call failed", "error", err)
		}
	}()
}

func (s *Server) do(info map[string]any, fn func(*ime.Bridge)) error {
	j := job{fn: fn, info: info, done: make(chan bool, 1)}
	select {
	case s.jobs <- j:
	case <-s.quit:
		return ErrServerClosed
	}
	if crashed := <-j.done; crashed {
		return ErrInternal
	}
	return nil
}

func (s *Server) dispatchLoop() {
	for {
		select {
		case j := <-s.jobs:
			j.done <- s.crash.Recover(j.info, func() { j.fn(s.bridge) })
		case <-s.quit:
			return
		}
	}
}

// Start listens on the socket and accepts connections.
func (s *Server) Start() error {
	if err := os.MkdirAll(filepath.Dir(s.cfg.SocketPath), 0o700); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}
	if IsSocketListening(s.cfg.SocketPath) {
		return fmt.Errorf("socket already in use: %s", s.cfg.SocketPath)
	}
	if err := CleanupSocket(s.cfg.SocketPath); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("listen on socket: %w", err)
	}
	if err := SetSocketPermissions(s.cfg.SocketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("set socket permissions: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop(listener)

	s.log.Info("ipc server listening", "socket", s.cfg.SocketPath)
	return nil
}

// Stop closes the listener and every connection, ends the sessions the
// clients left open, then stops the dispatcher.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		s.running.Store(false)

		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		for _, c := range s.conns {
			c.c.Close()
		}
		s.mu.Unlock()

		s.wg.Wait()
		close(s.quit)

		if s.listener != nil {
			os.Remove(s.cfg.SocketPath)
		}
	})
	return nil
}

// SocketPath returns the socket path.
func (s *Server) SocketPath() string {
	return s.cfg.SocketPath
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

func (s *Server) acceptLoop(listener net.Listener) {
	defer s.wg.Done()

	for {
		nc, err := listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}

		if ok, err := VerifyPeerIsCurrentUser(nc); err == nil && !ok {
			s.log.Warn("rejecting connection from another user")
			nc.Close()
			continue
		}

		s.mu.Lock()
		if len(s.conns) >= s.cfg.MaxConnections {
			s.mu.Unlock()
			s.log.Warn("connection limit reached", "max", s.cfg.MaxConnections)
			nc.Close()
			continue
		}
		c := &conn{
			id:       uuid.NewString(),
			c:        nc,
			sessions: make(map[ime.SessionID]bool),
		}
		c.log = s.log.WithConnection(c.id)
		s.conns[c.id] = c
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(c)
	}
}

func (s *Server) serve(c *conn) {
	defer s.wg.Done()
	defer s.closeConn(c)

	c.log.Debug("client connected")
	for {
		msg, err := ReadMessage(c.c)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.log.Debug("read failed", "error", err)
			}
			return
		}

		reply, shutdown := s.handle(c, msg)
		if err := reply.Write(c.c); err != nil {
			c.log.Debug("write failed", "error", err)
			return
		}
		if shutdown && s.cfg.OnShutdown != nil {
			s.log.Info("shutdown requested", "conn_id", c.id)
			go s.cfg.OnShutdown()
		}
	}
}

// closeConn ends the sessions the client left open.
func (s *Server) closeConn(c *conn) {
	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()
	c.c.Close()

	if len(c.sessions) == 0 {
		return
	}
	ids := make([]ime.SessionID, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	c.log.Debug("ending abandoned sessions", "count", len(ids))
	err := s.Do(func(b *ime.Bridge) {
		for _, id := range ids {
			b.RemoveSession(id)
		}
	})
	if err != nil && !errors.Is(err, ErrServerClosed) {
		c.log.Warn("end abandoned sessions", "error", err)
	}
}

// handle runs one request on the dispatcher and builds its reply.
func (s *Server) handle(c *conn, msg *Message) (*Message, bool) {
	h := msg.Header
	id := ime.SessionID(h.SessionID)
	reply := NewMessage(CmdReply, h.RequestID, h.SessionID, 0, nil)
	shutdown := false

	var rc ime.Rect
	if h.Command == CmdUpdateInputPos {
		var err error
		if rc, err = DecodeRect(msg.Payload); err != nil {
			return NewErrorMessage(h.RequestID, err), false
		}
	}

	info := map[string]any{
		"command":    h.Command.String(),
		"session_id": h.SessionID,
		"conn_id":    c.id,
	}
	var callErr error
	err := s.do(info, func(b *ime.Bridge) {
		switch h.Command {
		case CmdEcho:
			reply.Header.Param = uint32(b.FindSession(id))
		case CmdStartSession:
			resp := wire.NewBuffer(s.cfg.BufferSize)
			sid := b.AddSession(msg.Payload, resp)
			reply.Header.SessionID = uint32(sid)
			reply.Header.Param = uint32(sid)
			if sid != 0 {
				reply.Payload = resp
			}
		case CmdEndSession:
			b.RemoveSession(id)
		case CmdProcessKeyEvent:
			resp := wire.NewBuffer(s.cfg.BufferSize)
			if b.ProcessKeyEvent(ime.UnpackKeyEvent(h.Param), id, resp) {
				reply.Header.Param = 1
			}
			reply.Payload = resp
		case CmdFocusIn:
			b.FocusIn(h.Param, id)
		case CmdFocusOut:
			b.FocusOut(id)
		case CmdUpdateInputPos:
			b.UpdateInputPosition(rc, id)
		case CmdStartMaintenance:
			b.StartMaintenance()
		case CmdEndMaintenance:
			b.EndMaintenance()
		case CmdShutdownServer:
			shutdown = true
		default:
			callErr = fmt.Errorf("%w: %s", ErrUnknownCommand, h.Command)
		}
	})
	if err == nil {
		err = callErr
	}
	if err != nil {
		c.log.Warn("request failed", "command", h.Command.String(), "error", err)
		return NewErrorMessage(h.RequestID, err), false
	}

	switch h.Command {
	case CmdStartSession:
		if sid := ime.SessionID(reply.Header.SessionID); sid != 0 {
			c.sessions[sid] = true
		}
	case CmdEndSession:
		delete(c.sessions, id)
	}
	return reply, shutdown
}
