package handlers

import (
	"log"

	"github.com/gofiber/websocket/v2"

	"github.com/MaxCaruta/purelove-sub002/internal/handlers/ws"
)

// WebSocketHandler attaches operator dashboards to the hub. The socket is
// push-only: the dashboard's actions (open, close, mark read) go through the
// REST surface, so the read loop here only services ping/pong and close.
type WebSocketHandler struct {
	hub *ws.Hub
}

func NewWebSocketHandler() *WebSocketHandler {
	return &WebSocketHandler{hub: ws.NewHub()}
}

// GetHub returns the hub instance (the engine's sink).
func (h *WebSocketHandler) GetHub() *ws.Hub {
	return h.hub
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	adminID, _ := c.Locals("adminID").(uint)

	// Check if the client negotiated gzip (query param or header).
	supportsGzip := c.Query("gzip") == "1" || c.Headers("X-Supports-Gzip") == "1"

	connID := h.hub.Register(adminID, c, supportsGzip)
	defer h.hub.Unregister(connID)

	log.Printf("Operator %d dashboard connected via WebSocket", adminID)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			log.Printf("Dashboard connection %s read error: %v", connID, err)
			break
		}
		// Inbound frames are ignored; pong handling lives in the hub.
	}

	log.Printf("Operator %d dashboard disconnected", adminID)
}
