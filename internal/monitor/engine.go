package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/MaxCaruta/purelove-sub002/internal/models"
	"github.com/MaxCaruta/purelove-sub002/internal/reconcile"
	"github.com/MaxCaruta/purelove-sub002/internal/registry"
	"github.com/MaxCaruta/purelove-sub002/internal/resolver"
	"github.com/MaxCaruta/purelove-sub002/internal/source"
)

const markReadTimeout = 5 * time.Second

// Notification is an operator-facing alert: a user wrote into a conversation
// nobody is watching.
type Notification struct {
	Conversation models.Conversation `json:"conversation"`
	Message      models.MessageEvent `json:"message"`
}

// Sink receives engine output destined for connected dashboards.
type Sink interface {
	ConversationUpdated(models.Conversation)
	Notify(Notification)
}

// Engine is the single-threaded heart of the monitor. Every mutation of the
// registry and the active view — live events, operator actions, reloads —
// runs as a task on one queue drained by one goroutine, which is the whole
// locking discipline. Reads go through the same queue and reply on a
// channel, so they observe a consistent snapshot.
type Engine struct {
	registry   *registry.Registry
	resolver   *resolver.Resolver
	reconciler *reconcile.Reconciler
	active     *Tracker
	store      source.ChatStore
	sink       Sink

	tasks     chan func()
	done      chan struct{}
	closeOnce sync.Once
}

func NewEngine(res *resolver.Resolver, store source.ChatStore, sink Sink) *Engine {
	return &Engine{
		registry:   registry.New(),
		resolver:   res,
		reconciler: reconcile.New(0),
		active:     &Tracker{},
		store:      store,
		sink:       sink,
		tasks:      make(chan func(), 1024),
		done:       make(chan struct{}),
	}
}

// Run drains the task queue until Close. Call it on its own goroutine; every
// other method is safe to call from anywhere.
func (e *Engine) Run() {
	for {
		select {
		case <-e.done:
			return
		case fn := <-e.tasks:
			fn()
		}
	}
}

// Close stops the engine. Queued tasks are dropped; in-flight external calls
// finish on their own and their results are discarded.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.done)
	})
}

func (e *Engine) submit(fn func()) bool {
	select {
	case <-e.done:
		return false
	case e.tasks <- fn:
		return true
	}
}

// HandleMessageEvent enqueues one live message event. Events submitted from
// a single subscription goroutine are processed in delivery order.
func (e *Engine) HandleMessageEvent(ev models.MessageEvent) {
	e.submit(func() { e.applyMessage(ev) })
}

// HandleConversationEvent enqueues a pair-level status upsert.
func (e *Engine) HandleConversationEvent(ev models.ConversationEvent) {
	e.submit(func() { e.applyConversation(ev) })
}

func (e *Engine) applyMessage(ev models.MessageEvent) {
	res := e.resolver.Resolve(context.Background(), ev.SenderID, ev.ReceiverID)
	if res.Direction == resolver.Unknown {
		return
	}

	current, _ := e.registry.Get(res.UserID, res.CounterpartID)
	result := e.reconciler.Apply(ev, res, e.active.Snapshot(), current)
	if result.Patch == nil {
		return
	}

	conv := e.registry.Upsert(res.UserID, res.CounterpartID, *result.Patch)
	if e.sink != nil {
		e.sink.ConversationUpdated(conv)
		if result.Notify {
			e.sink.Notify(Notification{Conversation: conv, Message: ev})
		}
	}
}

func (e *Engine) applyConversation(ev models.ConversationEvent) {
	if !ev.Status.Valid() {
		log.Printf("Dropping conversation event with status %q for (%d, %d)", ev.Status, ev.UserID, ev.CounterpartID)
		return
	}
	status := ev.Status
	conv := e.registry.Upsert(ev.UserID, ev.CounterpartID, registry.Patch{Status: &status})
	if e.sink != nil {
		e.sink.ConversationUpdated(conv)
	}
}

// OpenConversation makes (userID, counterpartID) the active view and
// optimistically clears its unread count. Persisting the read mark is fired
// off best-effort; a failure is logged and never rolls the local state back.
func (e *Engine) OpenConversation(userID, counterpartID uint) {
	e.submit(func() {
		e.active.SetActive(userID, counterpartID)
		zero := 0
		conv := e.registry.Upsert(userID, counterpartID, registry.Patch{UnreadCount: &zero})
		if e.sink != nil {
			e.sink.ConversationUpdated(conv)
		}
		go e.persistMarkRead(userID, counterpartID)
	})
}

// CloseConversation clears the active view.
func (e *Engine) CloseConversation() {
	e.submit(func() { e.active.Clear() })
}

// MarkRead clears unread for a pair without changing the active view.
func (e *Engine) MarkRead(userID, counterpartID uint) {
	e.submit(func() {
		zero := 0
		conv := e.registry.Upsert(userID, counterpartID, registry.Patch{UnreadCount: &zero})
		if e.sink != nil {
			e.sink.ConversationUpdated(conv)
		}
		go e.persistMarkRead(userID, counterpartID)
	})
}

func (e *Engine) persistMarkRead(userID, counterpartID uint) {
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), markReadTimeout)
	defer cancel()
	if err := e.store.MarkRead(ctx, userID, counterpartID); err != nil {
		log.Printf("Mark-read persistence failed for (%d, %d): %v", userID, counterpartID, err)
	}
}

// LoadInitial seeds the registry and the resolver directory from the store.
// Also the manual-refresh path: it only upserts, so a reload can never lose
// live state that arrived in the meantime.
func (e *Engine) LoadInitial(ctx context.Context, profiles source.ProfileDirectory) error {
	chats, err := e.store.FetchUserChats(ctx)
	if err != nil {
		return err
	}

	var modelProfiles []models.ModelProfile
	if profiles != nil {
		modelProfiles, err = profiles.ListModelProfiles(ctx)
		if err != nil {
			// The lookup strategy can still resolve models one by one.
			log.Printf("Model profile preload failed: %v", err)
		}
	}

	loaded := make(chan struct{})
	if !e.submit(func() {
		defer close(loaded)
		for _, m := range modelProfiles {
			e.resolver.Directory().AddModel(m)
		}
		for _, uc := range chats {
			e.registry.SetUser(uc.User)
			e.resolver.Directory().AddUser(uc.User)
			for _, c := range uc.Conversations {
				text, at, unread, status := c.LastMessageText, c.LastMessageAt, c.UnreadCount, c.Status
				e.registry.Upsert(c.UserID, c.CounterpartID, registry.Patch{
					LastMessageText: &text,
					LastMessageAt:   &at,
					UnreadCount:     &unread,
					Status:          &status,
				})
			}
		}
		log.Printf("Seeded registry with %d conversations for %d users", e.registry.Len(), len(chats))
	}) {
		return context.Canceled
	}

	select {
	case <-loaded:
		return nil
	case <-e.done:
		return context.Canceled
	}
}

// ListConversations returns a user's conversations, newest activity first.
func (e *Engine) ListConversations(userID uint) []models.Conversation {
	reply := make(chan []models.Conversation, 1)
	if !e.submit(func() { reply <- e.registry.List(userID) }) {
		return nil
	}
	// Close drops queued tasks, so the reply must never be waited on
	// unconditionally or an in-flight caller hangs across shutdown.
	select {
	case convs := <-reply:
		return convs
	case <-e.done:
		return nil
	}
}

// GetConversation returns one conversation summary, if the pair is known.
func (e *Engine) GetConversation(userID, counterpartID uint) (models.Conversation, bool) {
	type answer struct {
		conv models.Conversation
		ok   bool
	}
	reply := make(chan answer, 1)
	if !e.submit(func() {
		conv, ok := e.registry.Get(userID, counterpartID)
		reply <- answer{conv, ok}
	}) {
		return models.Conversation{}, false
	}
	select {
	case a := <-reply:
		return a.conv, a.ok
	case <-e.done:
		return models.Conversation{}, false
	}
}

// Overview returns every monitored user with their conversation list, for
// the dashboard's initial render.
func (e *Engine) Overview() []source.UserChats {
	reply := make(chan []source.UserChats, 1)
	if !e.submit(func() {
		ids := e.registry.Users()
		out := make([]source.UserChats, 0, len(ids))
		for _, id := range ids {
			u, _ := e.registry.User(id)
			if u.ID == 0 {
				u = models.User{ID: id}
			}
			out = append(out, source.UserChats{User: u, Conversations: e.registry.List(id)})
		}
		reply <- out
	}) {
		return nil
	}
	select {
	case out := <-reply:
		return out
	case <-e.done:
		return nil
	}
}

// ActiveView returns the operator's current view slot.
func (e *Engine) ActiveView() models.ActiveView {
	reply := make(chan models.ActiveView, 1)
	if !e.submit(func() { reply <- e.active.Snapshot() }) {
		return models.ActiveView{}
	}
	select {
	case view := <-reply:
		return view
	case <-e.done:
		return models.ActiveView{}
	}
}
