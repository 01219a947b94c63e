package models

import "time"

type MessageType string

const (
	TextMessage  MessageType = "text"
	ImageMessage MessageType = "image"
	VoiceMessage MessageType = "voice"
	GiftMessage  MessageType = "gift"
)

func (t MessageType) Valid() bool {
	switch t {
	case TextMessage, ImageMessage, VoiceMessage, GiftMessage:
		return true
	}
	return false
}

// MessageEvent is one message observed on the platform event feed. It is
// transient: consumed once by the reconciler and folded into Conversation
// state. Sender and receiver ids come from the shared user/model namespace,
// so neither side is known to be the real user until resolution.
type MessageEvent struct {
	ID         string      `json:"id" msgpack:"id"`
	SenderID   uint        `json:"sender_id" msgpack:"sender_id"`
	ReceiverID uint        `json:"receiver_id" msgpack:"receiver_id"`
	Content    string      `json:"content" msgpack:"content"`
	Type       MessageType `json:"type" msgpack:"type"`
	CreatedAt  time.Time   `json:"created_at" msgpack:"created_at"`
}

// ConversationEvent is an upsert of pair-level metadata (currently the status
// flag) published when the main backend archives or flags a conversation.
type ConversationEvent struct {
	UserID        uint               `json:"user_id" msgpack:"user_id"`
	CounterpartID uint               `json:"counterpart_id" msgpack:"counterpart_id"`
	Status        ConversationStatus `json:"status" msgpack:"status"`
}

// StoredMessage is the persisted message row in the platform store. The
// monitor reads it for the bulk conversation load and flips is_read on
// mark-read; inserts are owned by the site backend.
type StoredMessage struct {
	ID        string    `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	SenderID   uint        `gorm:"not null;index" json:"sender_id"`
	ReceiverID uint        `gorm:"not null;index" json:"receiver_id"`
	Content    string      `gorm:"type:text;not null" json:"content"`
	Type       MessageType `gorm:"type:varchar(20);default:'text'" json:"type"`
	IsRead     bool        `gorm:"default:false;index" json:"is_read"`
}

func (StoredMessage) TableName() string {
	return "messages"
}
