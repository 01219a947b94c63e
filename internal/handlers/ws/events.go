package ws

import (
	"github.com/MaxCaruta/purelove-sub002/internal/models"
	"github.com/MaxCaruta/purelove-sub002/internal/monitor"
	"github.com/MaxCaruta/purelove-sub002/internal/subscriber"
)

// Frame types pushed to dashboards.
const (
	FrameConversationUpdate = "conversation_update"
	FrameNotify             = "notify"
	FrameLiveStatus         = "live_status"
)

// Frame is the wire envelope for all dashboard pushes.
type Frame struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// LiveStatusPayload reports the subscriber lifecycle to dashboards, so the
// UI can show a "live updates paused" banner instead of silently going
// stale.
type LiveStatusPayload struct {
	State subscriber.State `json:"state"`
}

// The hub is the engine's sink: conversation updates and notify alerts go
// straight out to every dashboard.
var _ monitor.Sink = (*Hub)(nil)

func (h *Hub) ConversationUpdated(conv models.Conversation) {
	h.Broadcast(Frame{Type: FrameConversationUpdate, Payload: conv})
}

func (h *Hub) Notify(n monitor.Notification) {
	h.Broadcast(Frame{Type: FrameNotify, Payload: n})
}

// LiveStatus publishes a subscriber state transition.
func (h *Hub) LiveStatus(state subscriber.State) {
	h.Broadcast(Frame{Type: FrameLiveStatus, Payload: LiveStatusPayload{State: state}})
}
