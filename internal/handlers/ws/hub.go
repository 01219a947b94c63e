package ws

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ClientConnection wraps one operator dashboard connection with metadata.
// writeMux serializes data writes: broadcasts come from more than one
// goroutine (the engine and the subscriber's state callbacks) and the
// websocket library forbids concurrent writes to one connection.
type ClientConnection struct {
	Conn         *websocket.Conn
	AdminID      uint
	LastPong     time.Time
	SupportsGzip bool
	PingTicker   *time.Ticker
	CloseChan    chan struct{}

	writeMux sync.Mutex
}

// Hub fans engine output out to every connected operator dashboard. It is
// push-only: dashboards act through the REST surface, the socket just
// streams. There is no offline queue — a reconnecting dashboard re-renders
// from GET /api/monitor/chats, so missed frames cost nothing.
type Hub struct {
	clients      map[string]*ClientConnection
	clientsMux   sync.RWMutex
	pingInterval time.Duration
	pongTimeout  time.Duration
}

// NewHub creates a new Hub instance and starts its health checker.
func NewHub() *Hub {
	hub := &Hub{
		clients:      make(map[string]*ClientConnection),
		pingInterval: 30 * time.Second,
		pongTimeout:  90 * time.Second,
	}

	go hub.connectionHealthChecker()

	return hub
}

// Register adds a dashboard connection and returns its connection id.
func (h *Hub) Register(adminID uint, conn *websocket.Conn, supportsGzip bool) string {
	connID := uuid.NewString()
	clientConn := &ClientConnection{
		Conn:         conn,
		AdminID:      adminID,
		LastPong:     time.Now(),
		SupportsGzip: supportsGzip,
		PingTicker:   time.NewTicker(h.pingInterval),
		CloseChan:    make(chan struct{}),
	}

	conn.SetPongHandler(func(appData string) error {
		h.clientsMux.Lock()
		if client, exists := h.clients[connID]; exists {
			client.LastPong = time.Now()
		}
		h.clientsMux.Unlock()
		return nil
	})

	conn.SetReadDeadline(time.Now().Add(h.pongTimeout))

	h.clientsMux.Lock()
	h.clients[connID] = clientConn
	total := len(h.clients)
	h.clientsMux.Unlock()

	go h.pingRoutine(connID, clientConn)

	log.Printf("Operator %d connected to hub (connections: %d, gzip: %v)", adminID, total, supportsGzip)
	return connID
}

// Unregister removes a dashboard connection.
func (h *Hub) Unregister(connID string) {
	h.clientsMux.Lock()
	if client, exists := h.clients[connID]; exists {
		if client.PingTicker != nil {
			client.PingTicker.Stop()
		}
		close(client.CloseChan)
		delete(h.clients, connID)
	}
	count := len(h.clients)
	h.clientsMux.Unlock()
	log.Printf("Dashboard connection %s closed (connections: %d)", connID, count)
}

// Count returns the number of connected dashboards.
func (h *Hub) Count() int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.clients)
}

// Broadcast sends a frame to every connected dashboard, compressing for
// clients that negotiated gzip when it pays off.
func (h *Hub) Broadcast(frame Frame) {
	jsonData, err := json.Marshal(frame)
	if err != nil {
		log.Printf("Error marshaling %s frame: %v", frame.Type, err)
		return
	}

	h.clientsMux.RLock()
	clients := make(map[string]*ClientConnection, len(h.clients))
	for id, conn := range h.clients {
		clients[id] = conn
	}
	h.clientsMux.RUnlock()

	var compressed []byte
	for connID, clientConn := range clients {
		data := jsonData
		frameType := websocket.TextMessage
		if clientConn.SupportsGzip && len(jsonData) > 512 {
			if compressed == nil {
				if c, err := compressData(jsonData); err == nil && len(c) < len(jsonData) {
					compressed = c
				} else {
					compressed = jsonData
				}
			}
			if len(compressed) < len(jsonData) {
				data = compressed
				frameType = websocket.BinaryMessage
			}
		}

		clientConn.writeMux.Lock()
		err := clientConn.Conn.WriteMessage(frameType, data)
		clientConn.writeMux.Unlock()
		if err != nil {
			log.Printf("Error broadcasting to connection %s: %v", connID, err)
			h.Unregister(connID)
		}
	}
}

// pingRoutine keeps one connection alive with periodic pings.
func (h *Hub) pingRoutine(connID string, client *ClientConnection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Ping routine recovered from panic for connection %s: %v", connID, r)
		}
	}()

	for {
		select {
		case <-client.CloseChan:
			return
		case <-client.PingTicker.C:
			h.clientsMux.RLock()
			_, exists := h.clients[connID]
			h.clientsMux.RUnlock()

			if !exists {
				return
			}

			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				log.Printf("Ping failed for connection %s: %v", connID, err)
				h.Unregister(connID)
				return
			}
		}
	}
}

// connectionHealthChecker removes connections that stopped answering pings.
func (h *Hub) connectionHealthChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		h.clientsMux.RLock()
		dead := make([]string, 0)
		now := time.Now()

		for connID, client := range h.clients {
			if now.Sub(client.LastPong) > h.pongTimeout {
				dead = append(dead, connID)
			}
		}
		h.clientsMux.RUnlock()

		for _, connID := range dead {
			log.Printf("Removing dead dashboard connection %s (no pong received)", connID)
			h.Unregister(connID)
		}
	}
}

func compressData(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)

	if _, err := gzipWriter.Write(data); err != nil {
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
