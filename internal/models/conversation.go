package models

import "time"

type ConversationStatus string

const (
	StatusActive   ConversationStatus = "active"
	StatusArchived ConversationStatus = "archived"
	StatusFlagged  ConversationStatus = "flagged"
)

func (s ConversationStatus) Valid() bool {
	switch s {
	case StatusActive, StatusArchived, StatusFlagged:
		return true
	}
	return false
}

// Conversation is the monitor's summary of one user/counterpart pair. It is
// held in the in-memory registry, seeded from the store on startup and folded
// forward from live message events; full message history is fetched on demand
// by the dashboard and never kept here.
type Conversation struct {
	UserID          uint               `json:"user_id"`
	CounterpartID   uint               `json:"counterpart_id"`
	LastMessageText string             `json:"last_message_text"`
	LastMessageAt   time.Time          `json:"last_message_at"`
	UnreadCount     int                `json:"unread_count"`
	Status          ConversationStatus `json:"status"`
}

// ConversationRecord is the persisted pair row owned by the main site backend.
// The monitor reads it during the bulk load and never writes it.
type ConversationRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID        uint   `gorm:"not null;uniqueIndex:idx_conv_pair" json:"user_id"`
	CounterpartID uint   `gorm:"not null;uniqueIndex:idx_conv_pair" json:"counterpart_id"`
	Status        string `gorm:"type:varchar(20);default:'active'" json:"status"`
}

func (ConversationRecord) TableName() string {
	return "conversations"
}

// ActiveView is the single conversation the operator currently has open.
// At most one is set at any time; the zero value means none.
type ActiveView struct {
	UserID        uint `json:"user_id"`
	CounterpartID uint `json:"counterpart_id"`
	Set           bool `json:"set"`
}

func (v ActiveView) Matches(userID, counterpartID uint) bool {
	return v.Set && v.UserID == userID && v.CounterpartID == counterpartID
}
