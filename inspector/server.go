// Package inspector mirrors a bridge's IOPub traffic to browser clients
// over a websocket, for local debugging when no real sidecar is
// attached. It is purely additive: the bridge functions identically
// whether or not an inspector is running.
package inspector

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const shutdownTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local dev tool, not exposed beyond loopback by default
	},
}

// Message is one mirrored IOPub frame, reshaped for JSON delivery to a
// browser client.
type Message struct {
	MsgType string         `json:"msg_type"`
	Parent  string         `json:"parent_msg_id,omitempty"`
	Content map[string]any `json:"content"`
}

// Server fans a single feed of Messages out to every connected
// websocket client. Feed is called from the bridge's publishing
// goroutine; HandleWebSocket runs one per connected browser tab.
type Server struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	logger  *log.Logger
	http    *http.Server
}

func NewServer(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
	}
}

// Feed broadcasts one message to every currently connected client. A
// client whose write fails is dropped.
func (s *Server) Feed(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.clients {
		if err := conn.WriteJSON(msg); err != nil {
			s.logger.Printf("inspector: write failed, dropping client: %v", err)
			_ = conn.Close()
			delete(s.clients, conn)
		}
	}
}

// HandleWebSocket upgrades r and registers the resulting connection as
// a feed subscriber until it disconnects or errors.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("inspector: upgrade error: %v", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	// The browser side never pushes anything meaningful; read only to
	// detect close/error.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Listen starts an HTTP server exposing the websocket endpoint at /ws.
// It blocks until the server stops or fails, matching the teacher's
// ListenAndServe-blocking convention for its other local dev servers.
func (s *Server) Listen(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWebSocket)

	srv := &http.Server{Addr: addr, Handler: mux}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	s.logger.Printf("inspector: listening at ws://%s/ws", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// ListenInBackground starts Listen in its own goroutine and returns
// immediately, logging (rather than propagating) a listen failure -
// the inspector is an optional debugging aid and must never block or
// fail bridge construction.
func (s *Server) ListenInBackground(addr string) {
	go func() {
		if err := s.Listen(addr); err != nil {
			s.logger.Printf("inspector: listener exited: %v", err)
		}
	}()
}

// Close shuts down the HTTP server and drops every connected client.
func (s *Server) Close() {
	s.mu.Lock()
	srv := s.http
	for conn := range s.clients {
		_ = conn.Close()
	}
	s.clients = make(map[*websocket.Conn]bool)
	s.mu.Unlock()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// MarshalEnvelope is a convenience used by callers that already have a
// raw content map and just need a sanity-checked JSON round trip before
// calling Feed (e.g. to catch non-marshalable values early).
func MarshalEnvelope(msgType, parentMsgID string, content map[string]any) (Message, error) {
	if _, err := json.Marshal(content); err != nil {
		return Message{}, err
	}
	return Message{MsgType: msgType, Parent: parentMsgID, Content: content}, nil
}
