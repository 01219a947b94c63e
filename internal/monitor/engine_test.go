package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MaxCaruta/purelove-sub002/internal/models"
	"github.com/MaxCaruta/purelove-sub002/internal/resolver"
	"github.com/MaxCaruta/purelove-sub002/internal/source"
)

type fakeChatStore struct {
	mu        sync.Mutex
	chats     []source.UserChats
	fetchErr  error
	markErr   error
	markCalls []string
}

func (f *fakeChatStore) FetchUserChats(_ context.Context) ([]source.UserChats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chats, f.fetchErr
}

func (f *fakeChatStore) MarkRead(_ context.Context, userID, counterpartID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls = append(f.markCalls, fmt.Sprintf("%d:%d", userID, counterpartID))
	return f.markErr
}

func (f *fakeChatStore) markReadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.markCalls)
}

type fakeSink struct {
	mu            sync.Mutex
	updates       []models.Conversation
	notifications []Notification
}

func (f *fakeSink) ConversationUpdated(conv models.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, conv)
}

func (f *fakeSink) Notify(n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, n)
}

func (f *fakeSink) notifyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notifications)
}

func testResolver() *resolver.Resolver {
	dir := resolver.NewDirectory()
	dir.AddUser(models.User{ID: 1, DisplayName: "Alice"})
	dir.AddUser(models.User{ID: 2, DisplayName: "Bob"})
	dir.AddModel(models.ModelProfile{ID: 100, DisplayName: "Sofia"})
	dir.AddModel(models.ModelProfile{ID: 200, DisplayName: "Mila"})
	return resolver.New(dir, nil, nil)
}

func startEngine(t *testing.T, store source.ChatStore, sink Sink) *Engine {
	t.Helper()
	e := NewEngine(testResolver(), store, sink)
	go e.Run()
	t.Cleanup(e.Close)
	return e
}

func msgEvent(id string, senderID, receiverID uint) models.MessageEvent {
	return models.MessageEvent{
		ID:         id,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    "hello",
		Type:       models.TextMessage,
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestUnreadAccumulatesWithoutActiveView(t *testing.T) {
	sink := &fakeSink{}
	e := startEngine(t, &fakeChatStore{}, sink)

	for i := 1; i <= 3; i++ {
		e.HandleMessageEvent(msgEvent(fmt.Sprintf("m%d", i), 1, 100))
	}

	conv, ok := e.GetConversation(1, 100)
	if !ok {
		t.Fatal("conversation not created by live events")
	}
	if conv.UnreadCount != 3 {
		t.Errorf("unread = %d, want 3", conv.UnreadCount)
	}
	if sink.notifyCount() != 3 {
		t.Errorf("notifications = %d, want 3", sink.notifyCount())
	}
}

func TestOpenClearsUnreadAndSuppressesNewEvents(t *testing.T) {
	e := startEngine(t, &fakeChatStore{}, &fakeSink{})

	for i := 1; i <= 3; i++ {
		e.HandleMessageEvent(msgEvent(fmt.Sprintf("m%d", i), 1, 100))
	}
	e.OpenConversation(1, 100)

	conv, _ := e.GetConversation(1, 100)
	if conv.UnreadCount != 0 {
		t.Errorf("unread after open = %d, want 0", conv.UnreadCount)
	}

	// A fourth message arrives while the operator is still looking.
	e.HandleMessageEvent(msgEvent("m4", 1, 100))
	conv, _ = e.GetConversation(1, 100)
	if conv.UnreadCount != 0 {
		t.Errorf("unread with view open = %d, want 0", conv.UnreadCount)
	}
}

func TestOpenIsVisibleToEventsQueuedAfterIt(t *testing.T) {
	// The open and the event go through the same queue, so the event must
	// see the new active view even though both were submitted back to back.
	e := startEngine(t, &fakeChatStore{}, &fakeSink{})

	e.OpenConversation(1, 100)
	e.HandleMessageEvent(msgEvent("m1", 1, 100))

	conv, _ := e.GetConversation(1, 100)
	if conv.UnreadCount != 0 {
		t.Errorf("unread = %d, want 0 (open ordered before the event)", conv.UnreadCount)
	}
}

func TestOperatorReplyDoesNotInflate(t *testing.T) {
	sink := &fakeSink{}
	e := startEngine(t, &fakeChatStore{}, sink)

	e.HandleMessageEvent(msgEvent("m1", 1, 100))
	e.HandleMessageEvent(msgEvent("m2", 100, 1)) // model side replies

	conv, _ := e.GetConversation(1, 100)
	if conv.UnreadCount != 1 {
		t.Errorf("unread after operator reply = %d, want 1", conv.UnreadCount)
	}
	if sink.notifyCount() != 1 {
		t.Errorf("notifications = %d, want 1 (replies never notify)", sink.notifyCount())
	}
}

func TestDuplicateDeliveryCountsOnce(t *testing.T) {
	e := startEngine(t, &fakeChatStore{}, &fakeSink{})

	e.HandleMessageEvent(msgEvent("dup", 1, 100))
	e.HandleMessageEvent(msgEvent("dup", 1, 100))

	conv, _ := e.GetConversation(1, 100)
	if conv.UnreadCount != 1 {
		t.Errorf("unread after duplicate delivery = %d, want 1", conv.UnreadCount)
	}
}

func TestCrossConversationInterleavingIndependent(t *testing.T) {
	interleavings := [][]models.MessageEvent{
		{msgEvent("a1", 1, 100), msgEvent("b1", 2, 200), msgEvent("a2", 1, 100), msgEvent("b2", 2, 200)},
		{msgEvent("a1", 1, 100), msgEvent("a2", 1, 100), msgEvent("b1", 2, 200), msgEvent("b2", 2, 200)},
		{msgEvent("b2", 2, 200), msgEvent("b1", 2, 200), msgEvent("a1", 1, 100), msgEvent("a2", 1, 100)},
	}

	for i, events := range interleavings {
		e := startEngine(t, &fakeChatStore{}, &fakeSink{})
		for _, ev := range events {
			e.HandleMessageEvent(ev)
		}

		convA, _ := e.GetConversation(1, 100)
		convB, _ := e.GetConversation(2, 200)
		if convA.UnreadCount != 2 {
			t.Errorf("interleaving %d: conversation A unread = %d, want 2", i, convA.UnreadCount)
		}
		if convB.UnreadCount != 2 {
			t.Errorf("interleaving %d: conversation B unread = %d, want 2", i, convB.UnreadCount)
		}
		e.Close()
	}
}

func TestConversationEventUpdatesStatus(t *testing.T) {
	e := startEngine(t, &fakeChatStore{}, &fakeSink{})

	e.HandleMessageEvent(msgEvent("m1", 1, 100))
	e.HandleConversationEvent(models.ConversationEvent{UserID: 1, CounterpartID: 100, Status: models.StatusFlagged})

	conv, _ := e.GetConversation(1, 100)
	if conv.Status != models.StatusFlagged {
		t.Errorf("status = %q, want %q", conv.Status, models.StatusFlagged)
	}
	if conv.UnreadCount != 1 {
		t.Errorf("unread = %d, want 1 (status upsert must not touch counters)", conv.UnreadCount)
	}
}

func TestLoadInitialSeedsRegistryAndOverview(t *testing.T) {
	at := time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)
	store := &fakeChatStore{
		chats: []source.UserChats{
			{
				User: models.User{ID: 1, DisplayName: "Alice"},
				Conversations: []models.Conversation{
					{UserID: 1, CounterpartID: 100, LastMessageText: "hi", LastMessageAt: at, UnreadCount: 2, Status: models.StatusActive},
				},
			},
			{
				User: models.User{ID: 2, DisplayName: "Bob"},
				Conversations: []models.Conversation{
					{UserID: 2, CounterpartID: 200, LastMessageText: "yo", LastMessageAt: at, UnreadCount: 0, Status: models.StatusArchived},
				},
			},
		},
	}
	e := startEngine(t, store, &fakeSink{})

	if err := e.LoadInitial(context.Background(), nil); err != nil {
		t.Fatalf("LoadInitial returned error: %v", err)
	}

	overview := e.Overview()
	if len(overview) != 2 {
		t.Fatalf("overview has %d users, want 2", len(overview))
	}
	if overview[0].User.DisplayName != "Alice" {
		t.Errorf("overview[0].User = %q, want Alice", overview[0].User.DisplayName)
	}
	conv, ok := e.GetConversation(1, 100)
	if !ok || conv.UnreadCount != 2 {
		t.Errorf("seeded conversation = %+v (ok=%v), want unread 2", conv, ok)
	}
}

func TestLoadInitialPropagatesFetchError(t *testing.T) {
	store := &fakeChatStore{fetchErr: errors.New("store down")}
	e := startEngine(t, store, &fakeSink{})

	if err := e.LoadInitial(context.Background(), nil); err == nil {
		t.Error("LoadInitial returned nil error, want fetch failure")
	}
}

func TestMarkReadFailureKeepsLocalState(t *testing.T) {
	store := &fakeChatStore{markErr: errors.New("store down")}
	e := startEngine(t, store, &fakeSink{})

	e.HandleMessageEvent(msgEvent("m1", 1, 100))
	e.MarkRead(1, 100)

	// Local state is authoritative regardless of the failed persistence.
	conv, _ := e.GetConversation(1, 100)
	if conv.UnreadCount != 0 {
		t.Errorf("unread = %d, want 0 (optimistic clear survives persistence failure)", conv.UnreadCount)
	}

	deadline := time.Now().Add(time.Second)
	for store.markReadCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if store.markReadCount() == 0 {
		t.Error("MarkRead never reached the store")
	}
}

func TestCloseConversationClearsActiveView(t *testing.T) {
	e := startEngine(t, &fakeChatStore{}, &fakeSink{})

	e.OpenConversation(1, 100)
	if view := e.ActiveView(); !view.Matches(1, 100) {
		t.Fatalf("active view = %+v, want (1, 100)", view)
	}

	// Opening another conversation replaces the slot; there is never more
	// than one active view.
	e.OpenConversation(2, 200)
	if view := e.ActiveView(); !view.Matches(2, 200) || view.Matches(1, 100) {
		t.Errorf("active view = %+v, want (2, 200) only", view)
	}

	e.CloseConversation()
	if view := e.ActiveView(); view.Set {
		t.Errorf("active view after close = %+v, want unset", view)
	}
}

func TestQueriesUnblockOnClose(t *testing.T) {
	// No Run goroutine: a queued query can never execute, so the only way
	// out for the caller is the engine's done signal.
	e := NewEngine(testResolver(), &fakeChatStore{}, &fakeSink{})

	finished := make(chan struct{})
	go func() {
		e.ListConversations(1)
		e.GetConversation(1, 100)
		e.Overview()
		e.ActiveView()
		close(finished)
	}()

	time.Sleep(10 * time.Millisecond)
	e.Close()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("read query still blocked after Close")
	}
}

func TestClosedEngineDropsWork(t *testing.T) {
	e := startEngine(t, &fakeChatStore{}, &fakeSink{})
	e.Close()

	e.HandleMessageEvent(msgEvent("m1", 1, 100))
	if convs := e.ListConversations(1); convs != nil {
		t.Errorf("ListConversations on closed engine = %v, want nil", convs)
	}
}
