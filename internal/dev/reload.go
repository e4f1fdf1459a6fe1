package dev

import (
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ReloadPath is where the reload websocket is served.
const ReloadPath = "/_cfsui/reload"

// ReloadMessageType is the kind of a ReloadMessage.
type ReloadMessageType string

const (
	ReloadTypeFull  ReloadMessageType = "reload"
	ReloadTypeCSS   ReloadMessageType = "css"
	ReloadTypeError ReloadMessageType = "error"
	ReloadTypeClear ReloadMessageType = "clear"
)

// ReloadMessage is the JSON frame pushed to clients.
type ReloadMessage struct {
	Type  ReloadMessageType `json:"type"`
	Error string            `json:"error,omitempty"`
	File  string            `json:"file,omitempty"`
}

//go:embed reload.js
var reloadJS string

// DevClientScript is injected into the UI shell when reload is enabled.
var DevClientScript = "<script>\n" + reloadJS + "</script>\n"

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// sendBuffer is how many messages a client may fall behind before it
	// is dropped.
	sendBuffer = 16
)

type reloadClient struct {
	conn *websocket.Conn
	send chan []byte
}

// ReloadServer fans reload messages out to connected browsers and to
// `cfsui browse --watch`. Each client has its own writer goroutine, so a
// slow client never blocks the watcher.
type ReloadServer struct {
	mu       sync.Mutex
	clients  map[*reloadClient]struct{}
	closed   bool
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewReloadServer creates a reload server. A nil logger uses slog.Default.
func NewReloadServer(logger *slog.Logger) *ReloadServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReloadServer{
		logger:  logger.With("component", "reload"),
		clients: make(map[*reloadClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  512,
			WriteBufferSize: 1024,
			// Reload is a development endpoint; the CLI dials without an Origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// HandleWebSocket upgrades the request and serves the client until it
// disconnects.
func (r *ReloadServer) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("upgrade failed", "remote", req.RemoteAddr, "error", err)
		return
	}

	c := &reloadClient{conn: conn, send: make(chan []byte, sendBuffer)}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		conn.Close()
		return
	}
	r.clients[c] = struct{}{}
	r.mu.Unlock()
	r.logger.Debug("client connected", "remote", req.RemoteAddr)

	go r.writeLoop(c)
	r.readLoop(c)
}

// readLoop discards client frames; it only exists to notice disconnects and
// to extend the deadline on pongs.
func (r *ReloadServer) readLoop(c *reloadClient) {
	defer r.drop(c)
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (r *ReloadServer) writeLoop(c *reloadClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drop unregisters c and stops its writer. Safe to call more than once.
func (r *ReloadServer) drop(c *reloadClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(c)
}

// remove requires r.mu.
func (r *ReloadServer) remove(c *reloadClient) {
	if _, ok := r.clients[c]; ok {
		delete(r.clients, c)
		close(c.send)
	}
}

func (r *ReloadServer) NotifyReload() {
	r.broadcast(ReloadMessage{Type: ReloadTypeFull})
}

// NotifyCSS asks clients to refresh stylesheets without reloading.
func (r *ReloadServer) NotifyCSS(file string) {
	r.broadcast(ReloadMessage{Type: ReloadTypeCSS, File: file})
}

// NotifyError shows msg in the clients' error overlay.
func (r *ReloadServer) NotifyError(msg string) {
	r.broadcast(ReloadMessage{Type: ReloadTypeError, Error: msg})
}

// ClearError removes the error overlay.
func (r *ReloadServer) ClearError() {
	r.broadcast(ReloadMessage{Type: ReloadTypeClear})
}

func (r *ReloadServer) broadcast(msg ReloadMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Debug("broadcast", "type", msg.Type, "file", msg.File, "clients", len(r.clients))
	for c := range r.clients {
		select {
		case c.send <- data:
		default:
			r.logger.Warn("dropping slow client", "remote", c.conn.RemoteAddr().String())
			r.remove(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (r *ReloadServer) ClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Close disconnects every client and refuses new ones.
func (r *ReloadServer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for c := range r.clients {
		r.remove(c)
	}
}
