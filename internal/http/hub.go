package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"live-transcript-service/internal/models"
	"live-transcript-service/internal/observability/logging"
)

// Hub pushes the transcript view to every connected websocket client on a
// fixed interval.
type Hub struct {
	view     func() models.TranscriptView
	interval time.Duration

	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	done       chan struct{}

	// write sends one view; writes to distinct clients run in parallel.
	write    func(*websocket.Conn, models.TranscriptView) error
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHub creates a hub publishing view every interval.
func NewHub(view func() models.TranscriptView, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = time.Second
	}
	return &Hub{
		view:       view,
		interval:   interval,
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		write:      writeView,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logging.WithComponent("hub"),
	}
}

// Run serves registrations and refresh ticks until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Int("clients", n).Msg("Client connected")
			h.send(conn, h.view())

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Int("clients", n).Msg("Client disconnected")

		case <-ticker.C:
			h.broadcast(h.view())
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(view models.TranscriptView) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []*websocket.Conn
	)
	for _, conn := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.write(conn, view); err != nil {
				h.logger.Debug().Err(err).Msg("Write error, dropping client")
				mu.Lock()
				failed = append(failed, conn)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	h.drop(failed...)
}

func (h *Hub) send(conn *websocket.Conn, view models.TranscriptView) {
	h.mu.RLock()
	ok := h.clients[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := h.write(conn, view); err != nil {
		h.drop(conn)
	}
}

func (h *Hub) drop(conns ...*websocket.Conn) {
	if len(conns) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conn := range conns {
		if _, ok := h.clients[conn]; ok {
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

func writeView(conn *websocket.Conn, view models.TranscriptView) error {
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(view)
}

// ServeWS upgrades the request and registers the client. The client's
// messages are read and ignored so that closes are noticed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
