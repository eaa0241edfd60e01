package observer

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/checkrun-dev/engine/pkg/engine"
)

// WebSocketHub broadcasts one run's events to every client connected to
// that run's /runs/{id}/events stream. One hub per in-flight run.
// Grounded on the teacher's WebSocketHub/WebSocketObserver
// (internal/application/observer/websocket_observer.go), collapsed from a
// single hub multiplexing many executions (filtered by ExecutionID) down
// to one hub per run, since cmd/checkengine creates a fresh hub per
// submitted run rather than sharing one hub process-wide.
type WebSocketHub struct {
	log        zerolog.Logger
	mu         sync.RWMutex
	clients    map[*websocket.Conn]chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	done       chan struct{}
}

func NewWebSocketHub(log zerolog.Logger) *WebSocketHub {
	h := &WebSocketHub{
		log:        log,
		clients:    make(map[*websocket.Conn]chan []byte),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *WebSocketHub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = make(chan []byte, 64)
			h.mu.Unlock()
		case conn := <-h.unregister:
			h.mu.Lock()
			if ch, ok := h.clients[conn]; ok {
				close(ch)
				delete(h.clients, conn)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, ch := range h.clients {
				select {
				case ch <- msg:
				default:
					h.log.Warn().Msg("websocket client buffer full, dropping event")
				}
			}
			h.mu.RUnlock()
		case <-h.done:
			return
		}
	}
}

// Register starts streaming to conn and blocks the caller's goroutine
// pumping messages until conn closes or the hub is stopped.
func (h *WebSocketHub) Register(conn *websocket.Conn) {
	h.register <- conn
	h.mu.RLock()
	ch := h.clients[conn]
	h.mu.RUnlock()
	if ch == nil {
		return
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer func() {
		select {
		case h.unregister <- conn:
		case <-h.done:
		}
	}()

	for {
		select {
		case <-h.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Stop tears down the hub's run loop and makes every blocked Register call
// return, so each caller can close its connection.
func (h *WebSocketHub) Stop() {
	close(h.done)
}

// WebSocketSink is an engine.Observer that forwards every event, JSON
// encoded, to WebSocketHub's connected clients.
type WebSocketSink struct {
	hub *WebSocketHub
	log zerolog.Logger
}

func NewWebSocketSink(hub *WebSocketHub, log zerolog.Logger) *WebSocketSink {
	return &WebSocketSink{hub: hub, log: log}
}

func (s *WebSocketSink) Name() string { return "websocket" }

func (s *WebSocketSink) OnEvent(event engine.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal event for websocket broadcast")
		return
	}
	s.hub.broadcast <- data
}
