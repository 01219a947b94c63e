package repository

import (
	"testing"
	"time"

	"github.com/MaxCaruta/purelove-sub002/internal/models"
)

func TestGroupChatRows(t *testing.T) {
	at := time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)

	rows := []chatRow{
		{
			UserID:          1,
			UserDisplayName: "Alice",
			UserEmail:       "alice@example.com",
			UserPhoto:       "photos/users/1.jpg",
			CounterpartID:   100,
			Status:          "active",
			LastContent:     "see you tonight",
			LastType:        "text",
			LastCreatedAt:   &at,
			UnreadCount:     2,
		},
		{
			UserID:          1,
			UserDisplayName: "Alice",
			UserEmail:       "alice@example.com",
			UserPhoto:       "photos/users/1.jpg",
			CounterpartID:   200,
			Status:          "flagged",
			LastContent:     "Red Roses",
			LastType:        "gift",
			LastCreatedAt:   &at,
			UnreadCount:     0,
		},
		{
			UserID:          2,
			UserDisplayName: "Bob",
			UserEmail:       "bob@example.com",
			CounterpartID:   100,
			Status:          "",
			LastCreatedAt:   nil,
			UnreadCount:     0,
		},
	}

	got := groupChatRows(rows)
	if len(got) != 2 {
		t.Fatalf("grouped into %d users, want 2", len(got))
	}

	alice := got[0]
	if alice.User.ID != 1 || alice.User.DisplayName != "Alice" {
		t.Errorf("first user = %+v, want Alice (id 1)", alice.User)
	}
	if len(alice.Conversations) != 2 {
		t.Fatalf("Alice has %d conversations, want 2", len(alice.Conversations))
	}
	if alice.Conversations[0].UnreadCount != 2 {
		t.Errorf("unread = %d, want 2", alice.Conversations[0].UnreadCount)
	}
	if alice.Conversations[0].LastMessageText != "see you tonight" {
		t.Errorf("text preview = %q, want literal content", alice.Conversations[0].LastMessageText)
	}
	if alice.Conversations[1].LastMessageText != "🎁 Red Roses" {
		t.Errorf("gift preview = %q, want %q", alice.Conversations[1].LastMessageText, "🎁 Red Roses")
	}
	if alice.Conversations[1].Status != models.StatusFlagged {
		t.Errorf("status = %q, want %q", alice.Conversations[1].Status, models.StatusFlagged)
	}

	bob := got[1]
	if len(bob.Conversations) != 1 {
		t.Fatalf("Bob has %d conversations, want 1", len(bob.Conversations))
	}
	empty := bob.Conversations[0]
	if empty.Status != models.StatusActive {
		t.Errorf("blank status mapped to %q, want %q", empty.Status, models.StatusActive)
	}
	if empty.LastMessageText != "" || !empty.LastMessageAt.IsZero() {
		t.Errorf("messageless pair = %+v, want empty preview and zero time", empty)
	}
}

func TestGroupChatRowsEmpty(t *testing.T) {
	if got := groupChatRows(nil); got != nil {
		t.Errorf("groupChatRows(nil) = %v, want nil", got)
	}
}
