// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"
	"sync/atomic"

	applog "musicpainter/internal/log"

	"github.com/gorilla/websocket"
)

// WebSocketTransport implements the Transport interface for WebSocket connections.
// Frames are queued and written as JSON to every connected client by a single
// broadcast goroutine; when the queue is full the frame is dropped.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	server    *http.Server
	dropped   atomic.Uint64
	closeOnce sync.Once
}

// NewWebSocketTransport creates a WebSocketTransport and starts serving /ws on addr.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	wst := newWebSocketTransport(addr)
	wst.start()
	return wst
}

func newWebSocketTransport(addr string) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local viewers are served from anywhere
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 256),
	}
	go wst.handleBroadcasts()
	return wst
}

// start begins the WebSocket server
func (wst *WebSocketTransport) start() {
	mux := http.NewServeMux()
	mux.Handle("/ws", wst)

	wst.server = &http.Server{
		Addr:    wst.addr,
		Handler: mux,
	}

	go func() {
		applog.Infof("Transport: Starting WebSocket server on %s", wst.addr)
		if err := wst.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("Transport: WebSocket server error: %v", err)
		}
	}()
}

// ServeHTTP upgrades HTTP connections to WebSocket and registers the client.
func (wst *WebSocketTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("Transport: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("Transport: Client connected, total: %d", total)

	// Reads only to notice the disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.clientsMu.Lock()
				delete(wst.clients, conn)
				total := len(wst.clients)
				wst.clientsMu.Unlock()
				conn.Close()
				applog.Infof("Transport: Client disconnected, total: %d", total)
				return
			}
		}
	}()
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// Dropped returns how many frames were discarded because the queue was full.
func (wst *WebSocketTransport) Dropped() uint64 {
	return wst.dropped.Load()
}

// handleBroadcasts sends messages to all connected clients
func (wst *WebSocketTransport) handleBroadcasts() {
	for data := range wst.broadcast {
		wst.clientsMu.Lock()
		for client := range wst.clients {
			if err := client.WriteJSON(data); err != nil {
				applog.Warnf("Transport: Error sending to client: %v", err)
				client.Close()
				delete(wst.clients, client)
			}
		}
		wst.clientsMu.Unlock()
	}
}

// Send queues data for all connected WebSocket clients without blocking.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case wst.broadcast <- data:
	default:
		wst.dropped.Add(1)
	}
	return nil
}

// Close shuts down the WebSocket server and disconnects every client.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		applog.Debugf("Transport: Closing WebSocket server")
		close(wst.broadcast)

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
	})
	return err
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
