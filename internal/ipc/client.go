package ipc

import (
	"fmt"
	"net"
	"sync"
	"time"

	"weasel/internal/ime"
	"weasel/internal/wire"
)

// RemoteError is an error reported by the server.
type RemoteError struct {
	Command Command
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("ipc: %s: %s", e.Command, e.Message)
}

// Client is a connection to the server. It is safe for concurrent use;
// requests are sent one at a time.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	timeout time.Duration
	nextID  uint32
}

// Dial connects to the server socket. A zero timeout waits forever for
// each reply.
func Dial(socketPath string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	return &Client{conn: conn, timeout: timeout}, nil
}

func dialTimeout(t time.Duration) time.Duration {
	if t <= 0 {
		return 5 * time.Second
	}
	return t
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(cmd Command, sessionID ime.SessionID, param uint32, payload []byte) (*Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	req := NewMessage(cmd, c.nextID, uint32(sessionID), param, payload)

	if c.timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.timeout))
		defer c.conn.SetDeadline(time.Time{})
	}
	if err := req.Write(c.conn); err != nil {
		return nil, fmt.Errorf("send %s: %w", cmd, err)
	}
	reply, err := ReadMessage(c.conn)
	if err != nil {
		return nil, fmt.Errorf("read %s reply: %w", cmd, err)
	}
	if reply.Header.RequestID != req.Header.RequestID {
		return nil, fmt.Errorf("ipc: reply id %d for request %d", reply.Header.RequestID, req.Header.RequestID)
	}
	if reply.Header.Command == CmdError {
		return nil, &RemoteError{Command: cmd, Message: string(reply.Payload)}
	}
	return reply, nil
}

// Echo asks whether the server knows session id; it returns id or 0.
func (c *Client) Echo(id ime.SessionID) (ime.SessionID, error) {
	reply, err := c.call(CmdEcho, id, 0, nil)
	if err != nil {
		return 0, err
	}
	return ime.SessionID(reply.Header.Param), nil
}

// StartSession opens a session for app. The returned id is 0 while the
// server is in maintenance, in which case the reply is nil.
func (c *Client) StartSession(app string) (ime.SessionID, *wire.Reply, error) {
	var handshake []byte
	if app != "" {
		handshake = wire.NewBuffer(wire.BufferSize)
		if err := wire.WriteClientInfo(handshake, app); err != nil {
			return 0, nil, err
		}
	}
	reply, err := c.call(CmdStartSession, 0, 0, handshake)
	if err != nil {
		return 0, nil, err
	}
	id := ime.SessionID(reply.Header.Param)
	if id == 0 {
		return 0, nil, nil
	}
	parsed, err := wire.ParseResponse(reply.Payload)
	if err != nil {
		return id, nil, err
	}
	return id, parsed, nil
}

// EndSession closes a session.
func (c *Client) EndSession(id ime.SessionID) error {
	_, err := c.call(CmdEndSession, id, 0, nil)
	return err
}

// ProcessKeyEvent sends a key and returns whether the engine consumed it
// together with the parsed response.
func (c *Client) ProcessKeyEvent(id ime.SessionID, ev ime.KeyEvent) (bool, *wire.Reply, error) {
	reply, err := c.call(CmdProcessKeyEvent, id, ev.Pack(), nil)
	if err != nil {
		return false, nil, err
	}
	handled := reply.Header.Param != 0
	parsed, err := wire.ParseResponse(reply.Payload)
	if err != nil {
		return handled, nil, err
	}
	return handled, parsed, nil
}

// FocusIn reports that the client gained focus.
func (c *Client) FocusIn(id ime.SessionID, caps uint32) error {
	_, err := c.call(CmdFocusIn, id, caps, nil)
	return err
}

// FocusOut reports that the client lost focus.
func (c *Client) FocusOut(id ime.SessionID) error {
	_, err := c.call(CmdFocusOut, id, 0, nil)
	return err
}

// UpdateInputPosition reports the caret rectangle.
func (c *Client) UpdateInputPosition(id ime.SessionID, rc ime.Rect) error {
	_, err := c.call(CmdUpdateInputPos, id, 0, EncodeRect(rc))
	return err
}

// StartMaintenance puts the server into maintenance mode.
func (c *Client) StartMaintenance() error {
	_, err := c.call(CmdStartMaintenance, 0, 0, nil)
	return err
}

// EndMaintenance brings the server out of maintenance mode.
func (c *Client) EndMaintenance() error {
	_, err := c.call(CmdEndMaintenance, 0, 0, nil)
	return err
}

// ShutdownServer asks the server to exit.
func (c *Client) ShutdownServer() error {
	_, err := c.call(CmdShutdownServer, 0, 0, nil)
	return err
}
