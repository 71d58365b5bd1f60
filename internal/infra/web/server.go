package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"voice-phone/internal/domain"
)

const (
	shutdownTimeout = 5 * time.Second
	writeTimeout    = 2 * time.Second
	sendBuffer      = 16
)

//go:embed index.html
var indexPage []byte

// Controller is the part of the assistant the web page drives.
type Controller interface {
	Snapshot() domain.Snapshot
	Toggle(ctx context.Context) (domain.Snapshot, error)
}

// client owns one connection. Only its write loop writes data frames, so a
// slow page never holds up Publish.
type client struct {
	id   string
	send chan []byte
	done chan struct{}
}

func newClient() *client {
	return &client{
		id:   uuid.NewString(),
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// enqueue never blocks. When the buffer is full the oldest snapshot is
// dropped, since the page only renders the latest one.
func (c *client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Server renders the assistant state over HTTP and pushes every change to
// connected WebSocket clients.
type Server struct {
	addr       string
	controller Controller
	logger     *slog.Logger
	mux        *http.ServeMux
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	clients map[*websocket.Conn]*client
	server  *http.Server
}

func NewServer(addr string, controller Controller, logger *slog.Logger) *Server {
	s := &Server{
		addr:       addr,
		controller: controller,
		logger:     logger,
		mux:        http.NewServeMux(),
		clients:    make(map[*websocket.Conn]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("POST /api/toggle", s.handleToggle)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// Mount routes pattern to handler on the same listener.
func (s *Server) Mount(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	go func() {
		s.logger.Info("web server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", err)
		}
	}()
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	conns := make(map[*websocket.Conn]*client, len(s.clients))
	for conn, c := range s.clients {
		conns[conn] = c
	}
	s.clients = make(map[*websocket.Conn]*client)
	s.mu.Unlock()

	for conn := range conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeTimeout))
		conn.Close()
	}

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

type stateMessage struct {
	Type  string          `json:"type"`
	State domain.Snapshot `json:"state"`
}

// Publish queues snapshot for every connected client without waiting for
// any of them.
func (s *Server) Publish(snapshot domain.Snapshot) {
	msg, err := json.Marshal(stateMessage{Type: "state", State: snapshot})
	if err != nil {
		s.logger.Error("marshaling state", "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients {
		if !c.enqueue(msg) {
			s.logger.Debug("client send buffer full, dropping state", "client", c.id)
		}
	}
}

func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) writeLoop(conn *websocket.Conn, c *client) {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.Debug("writing state to client", "client", c.id, "error", err)
				// Unblocks the read loop, which unregisters the client.
				conn.Close()
				return
			}
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexPage)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	snapshot, err := s.controller.Toggle(ctx)
	switch {
	case errors.Is(err, domain.ErrUnsupported):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": "Speech recognition is not supported in this environment",
			"state": s.controller.Snapshot(),
		})
	case err != nil:
		s.logger.Error("toggling listener", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, snapshot)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
		"time":    time.Now().Unix(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := newClient()
	if msg, err := json.Marshal(stateMessage{Type: "state", State: s.controller.Snapshot()}); err == nil {
		c.enqueue(msg)
	}
	s.mu.Lock()
	s.clients[conn] = c
	s.mu.Unlock()
	go s.writeLoop(conn, c)

	s.logger.Info("client connected", "client", c.id, "remote_addr", r.RemoteAddr)

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		close(c.done)
		conn.Close()
		s.logger.Info("client disconnected", "client", c.id)
	}()

	// The page only listens; reads detect the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "client", c.id, "error", err)
			}
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
