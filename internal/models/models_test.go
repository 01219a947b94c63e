package models

import "testing"

func TestConversationStatusValid(t *testing.T) {
	tests := []struct {
		status ConversationStatus
		want   bool
	}{
		{StatusActive, true},
		{StatusArchived, true},
		{StatusFlagged, true},
		{ConversationStatus(""), false},
		{ConversationStatus("deleted"), false},
		{ConversationStatus("Active"), false},
	}

	for _, tt := range tests {
		if got := tt.status.Valid(); got != tt.want {
			t.Errorf("ConversationStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestMessageTypeValid(t *testing.T) {
	tests := []struct {
		msgType MessageType
		want    bool
	}{
		{TextMessage, true},
		{ImageMessage, true},
		{VoiceMessage, true},
		{GiftMessage, true},
		{MessageType(""), false},
		{MessageType("sticker"), false},
	}

	for _, tt := range tests {
		if got := tt.msgType.Valid(); got != tt.want {
			t.Errorf("MessageType(%q).Valid() = %v, want %v", tt.msgType, got, tt.want)
		}
	}
}

func TestActiveViewMatches(t *testing.T) {
	tests := []struct {
		name          string
		view          ActiveView
		userID        uint
		counterpartID uint
		want          bool
	}{
		{"set and same pair", ActiveView{UserID: 1, CounterpartID: 100, Set: true}, 1, 100, true},
		{"set but different counterpart", ActiveView{UserID: 1, CounterpartID: 100, Set: true}, 1, 200, false},
		{"set but different user", ActiveView{UserID: 1, CounterpartID: 100, Set: true}, 2, 100, false},
		{"unset never matches", ActiveView{UserID: 1, CounterpartID: 100}, 1, 100, false},
		{"zero value", ActiveView{}, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.view.Matches(tt.userID, tt.counterpartID); got != tt.want {
				t.Errorf("Matches(%d, %d) = %v, want %v", tt.userID, tt.counterpartID, got, tt.want)
			}
		})
	}
}

func TestAdminToResponseOmitsHash(t *testing.T) {
	admin := &Admin{ID: 7, Email: "ops@purelove.example", PasswordHash: "$2a$10$secret", Role: "operator"}
	resp := admin.ToResponse()

	if resp.ID != 7 || resp.Email != admin.Email || resp.Role != admin.Role {
		t.Errorf("ToResponse = %+v, want fields copied from %+v", resp, admin)
	}
}
