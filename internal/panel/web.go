package panel

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"weasel/internal/ime"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	sendQueue     = 64
)

// Message types pushed to web clients.
const (
	MessageHello = "hello"
	MessageState = "state"
	MessageStyle = "style"
)

// Message is the JSON document sent over the websocket.
type Message struct {
	Type     string       `json:"type"`
	ClientID string       `json:"client_id,omitempty"`
	State    State        `json:"state"`
	Style    *ime.UIStyle `json:"style,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the panel listens on loopback
	},
}

// Web broadcasts the candidate window to browser clients.
type Web struct {
	model
	log *slog.Logger

	clientsMu sync.RWMutex
	clients   map[string]*webClient
}

type webClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

var _ ime.UI = (*Web)(nil)

// NewWeb creates a web surface. A nil style uses the defaults.
func NewWeb(style *ime.UIStyle, logger *slog.Logger) *Web {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Web{log: logger, clients: make(map[string]*webClient)}
	w.init(style)
	return w
}

// Handler serves /ws for websocket clients and /state for polling.
func (w *Web) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", w.handleWebSocket)
	mux.HandleFunc("GET /state", w.handleState)
	return mux
}

func (w *Web) Show() {
	w.broadcast(w.apply(func(s *State) { s.Visible = true }))
}

func (w *Web) Hide() {
	w.broadcast(w.apply(func(s *State) { s.Visible = false }))
}

func (w *Web) Update(ctx ime.Context, status ime.Status) {
	w.broadcast(w.apply(func(s *State) {
		s.Context = ctx
		s.Status = status
	}))
}

// SetStyle replaces the style and pushes it to connected clients.
func (w *Web) SetStyle(style ime.UIStyle) {
	w.model.SetStyle(style)
	st := w.State()
	w.send(Message{Type: MessageStyle, State: st, Style: &style})
}

func (w *Web) UpdateInputPosition(rc ime.Rect) {
	w.broadcast(w.apply(func(s *State) { s.Position = rc }))
}

// ClientCount returns the number of connected clients.
func (w *Web) ClientCount() int {
	w.clientsMu.RLock()
	defer w.clientsMu.RUnlock()
	return len(w.clients)
}

// Close disconnects every client.
func (w *Web) Close() {
	w.clientsMu.Lock()
	defer w.clientsMu.Unlock()
	for id, c := range w.clients {
		close(c.send)
		delete(w.clients, id)
	}
}

func (w *Web) handleState(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	st, style := w.snapshot()
	json.NewEncoder(rw).Encode(Message{Type: MessageState, State: st, Style: &style})
}

func (w *Web) handleWebSocket(rw http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &webClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendQueue),
	}
	st, style := w.snapshot()
	hello, err := json.Marshal(Message{
		Type:     MessageHello,
		ClientID: c.id,
		State:    st,
		Style:    &style,
	})
	if err != nil {
		conn.Close()
		return
	}
	c.send <- hello

	w.clientsMu.Lock()
	w.clients[c.id] = c
	w.clientsMu.Unlock()
	w.log.Debug("panel client connected", "client_id", c.id)

	go c.writePump()
	go w.readPump(c)
}

func (w *Web) broadcast(st State) {
	w.send(Message{Type: MessageState, State: st})
}

// send queues msg for every client without blocking.
func (w *Web) send(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		w.log.Warn("encode panel state", "error", err)
		return
	}

	w.clientsMu.RLock()
	defer w.clientsMu.RUnlock()
	for _, c := range w.clients {
		select {
		case c.send <- data:
		default:
			w.log.Debug("panel client lagging, dropping update", "client_id", c.id)
		}
	}
}

func (w *Web) removeClient(c *webClient) {
	w.clientsMu.Lock()
	defer w.clientsMu.Unlock()
	if _, ok := w.clients[c.id]; ok {
		delete(w.clients, c.id)
		close(c.send)
		w.log.Debug("panel client disconnected", "client_id", c.id)
	}
}

// readPump discards client input and detects disconnects.
func (w *Web) readPump(c *webClient) {
	defer func() {
		w.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				w.log.Debug("panel client read error", "client_id", c.id, "error", err)
			}
			return
		}
	}
}

func (c *webClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
