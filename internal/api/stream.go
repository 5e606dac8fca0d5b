package api

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/voltix/agent/internal/events"
)

// Stream fans bus events out to WebSocket clients so the dashboard sees
// alerts and audit records as they happen.
type Stream struct {
	bus        *events.Bus
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

// NewStream creates a stream hub over the bus.
func NewStream(bus *events.Bus) *Stream {
	return &Stream{
		bus:        bus,
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run pumps bus events to all connected clients until ctx is cancelled.
func (st *Stream) Run(ctx context.Context) {
	sub := st.bus.Subscribe()
	defer st.bus.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			st.closeAll()
			return

		case client := <-st.register:
			st.mu.Lock()
			st.clients[client] = true
			n := len(st.clients)
			st.mu.Unlock()
			log.Printf("WebSocket client connected (total: %d)", n)

		case client := <-st.unregister:
			st.drop(client)

		case ev := <-sub:
			st.broadcast(ev)
		}
	}
}

func (st *Stream) broadcast(ev *events.Event) {
	st.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(st.clients))
	for c := range st.clients {
		conns = append(conns, c)
	}
	st.mu.RUnlock()

	for _, c := range conns {
		if err := c.WriteJSON(ev); err != nil {
			log.Printf("WebSocket write error: %v", err)
			st.drop(c)
		}
	}
}

func (st *Stream) drop(client *websocket.Conn) {
	st.mu.Lock()
	if _, ok := st.clients[client]; ok {
		delete(st.clients, client)
		client.Close()
		log.Printf("WebSocket client disconnected (total: %d)", len(st.clients))
	}
	st.mu.Unlock()
}

func (st *Stream) closeAll() {
	st.mu.Lock()
	for c := range st.clients {
		c.Close()
	}
	st.clients = make(map[*websocket.Conn]bool)
	st.mu.Unlock()
}

// ClientCount reports connected clients.
func (st *Stream) ClientCount() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.clients)
}

// HandleWebSocket upgrades the connection and keeps it registered until the
// peer goes away. Inbound messages are discarded; the stream is one way.
func (st *Stream) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := st.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	st.register <- conn

	go func() {
		defer func() { st.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
