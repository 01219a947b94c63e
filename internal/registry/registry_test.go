package registry

import (
	"testing"
	"time"

	"github.com/MaxCaruta/purelove-sub002/internal/models"
)

func strPtr(s string) *string        { return &s }
func intPtr(n int) *int              { return &n }
func timePtr(t time.Time) *time.Time { return &t }

func statusPtr(s models.ConversationStatus) *models.ConversationStatus { return &s }

func TestUpsertCreatesConversation(t *testing.T) {
	r := New()

	conv := r.Upsert(1, 100, Patch{})
	if conv.UserID != 1 || conv.CounterpartID != 100 {
		t.Errorf("Upsert created pair (%d, %d), want (1, 100)", conv.UserID, conv.CounterpartID)
	}
	if conv.Status != models.StatusActive {
		t.Errorf("new conversation status = %q, want %q", conv.Status, models.StatusActive)
	}
	if conv.UnreadCount != 0 {
		t.Errorf("new conversation unread = %d, want 0", conv.UnreadCount)
	}
	if r.Len() != 1 {
		t.Errorf("registry size = %d, want 1", r.Len())
	}
}

func TestUpsertSinglePairInstance(t *testing.T) {
	r := New()

	r.Upsert(1, 100, Patch{UnreadCount: intPtr(2)})
	r.Upsert(1, 100, Patch{UnreadCount: intPtr(5)})

	if r.Len() != 1 {
		t.Fatalf("registry size = %d, want 1 (one conversation per pair)", r.Len())
	}
	conv, ok := r.Get(1, 100)
	if !ok {
		t.Fatal("Get returned absent for existing pair")
	}
	if conv.UnreadCount != 5 {
		t.Errorf("unread = %d, want 5", conv.UnreadCount)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	r := New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	patch := Patch{
		LastMessageText: strPtr("hello"),
		LastMessageAt:   timePtr(at),
		UnreadCount:     intPtr(3),
		Status:          statusPtr(models.StatusFlagged),
	}

	first := r.Upsert(7, 70, patch)
	second := r.Upsert(7, 70, patch)

	if first != second {
		t.Errorf("repeated identical patch changed state: first %+v, second %+v", first, second)
	}
}

func TestUpsertPartialPatch(t *testing.T) {
	r := New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.Upsert(1, 100, Patch{LastMessageText: strPtr("hi"), LastMessageAt: timePtr(at), UnreadCount: intPtr(4)})

	// Nil fields must leave existing state untouched.
	conv := r.Upsert(1, 100, Patch{UnreadCount: intPtr(0)})
	if conv.LastMessageText != "hi" {
		t.Errorf("last message text = %q, want %q", conv.LastMessageText, "hi")
	}
	if !conv.LastMessageAt.Equal(at) {
		t.Errorf("last message at = %v, want %v", conv.LastMessageAt, at)
	}
	if conv.UnreadCount != 0 {
		t.Errorf("unread = %d, want 0", conv.UnreadCount)
	}
}

func TestUpsertClampsNegativeUnread(t *testing.T) {
	r := New()
	conv := r.Upsert(1, 100, Patch{UnreadCount: intPtr(-3)})
	if conv.UnreadCount != 0 {
		t.Errorf("unread = %d, want 0 (negative counts clamp)", conv.UnreadCount)
	}
}

func TestUpsertIgnoresInvalidStatus(t *testing.T) {
	r := New()
	bad := models.ConversationStatus("deleted")
	conv := r.Upsert(1, 100, Patch{Status: &bad})
	if conv.Status != models.StatusActive {
		t.Errorf("status = %q, want %q (invalid status ignored)", conv.Status, models.StatusActive)
	}
}

func TestGetAbsent(t *testing.T) {
	r := New()
	if _, ok := r.Get(1, 100); ok {
		t.Error("Get returned ok for unseen pair")
	}
}

func TestListOrdering(t *testing.T) {
	r := New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Inserted in this order; c and d share a timestamp.
	r.Upsert(1, 10, Patch{LastMessageAt: timePtr(base.Add(time.Minute))})
	r.Upsert(1, 20, Patch{LastMessageAt: timePtr(base.Add(3 * time.Minute))})
	r.Upsert(1, 30, Patch{LastMessageAt: timePtr(base.Add(2 * time.Minute))})
	r.Upsert(1, 40, Patch{LastMessageAt: timePtr(base.Add(2 * time.Minute))})

	want := []uint{20, 30, 40, 10}
	got := r.List(1)
	if len(got) != len(want) {
		t.Fatalf("List returned %d conversations, want %d", len(got), len(want))
	}
	for i, conv := range got {
		if conv.CounterpartID != want[i] {
			t.Errorf("List[%d].CounterpartID = %d, want %d", i, conv.CounterpartID, want[i])
		}
	}

	// Stable across repeated calls.
	again := r.List(1)
	for i := range got {
		if got[i].CounterpartID != again[i].CounterpartID {
			t.Errorf("List unstable at index %d: %d then %d", i, got[i].CounterpartID, again[i].CounterpartID)
		}
	}
}

func TestListUnknownUser(t *testing.T) {
	r := New()
	if got := r.List(42); got != nil {
		t.Errorf("List for unknown user = %v, want nil", got)
	}
}

func TestUsersSorted(t *testing.T) {
	r := New()
	r.Upsert(3, 30, Patch{})
	r.Upsert(1, 10, Patch{})
	r.Upsert(2, 20, Patch{})

	want := []uint{1, 2, 3}
	got := r.Users()
	if len(got) != len(want) {
		t.Fatalf("Users returned %d ids, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Users[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
