package reconcile

import (
	"github.com/MaxCaruta/purelove-sub002/internal/models"
	"github.com/MaxCaruta/purelove-sub002/internal/registry"
	"github.com/MaxCaruta/purelove-sub002/internal/resolver"
)

// DefaultDedupWindow is how many recent message ids are remembered for
// duplicate detection. The feed is at-least-once; redeliveries land close to
// the original, so a bounded window is enough.
const DefaultDedupWindow = 512

// Result is the reconciler's verdict for one message event. A nil Patch
// means the event changes nothing (unknown identity or duplicate delivery).
type Result struct {
	Patch  *registry.Patch
	Notify bool
}

// Reconciler folds inbound message events into conversation patches. It
// never touches the registry itself: the engine reads the current summary,
// asks for a verdict, and applies the patch. Patches carry absolute unread
// counts, so re-applying one is harmless.
type Reconciler struct {
	seen *recentSet
}

func New(dedupWindow int) *Reconciler {
	if dedupWindow <= 0 {
		dedupWindow = DefaultDedupWindow
	}
	return &Reconciler{seen: newRecentSet(dedupWindow)}
}

// Apply decides what one message event does to its conversation. active is a
// snapshot of the operator's current view, passed in by the caller so the
// decision never reads shared state. current is the conversation summary as
// it stands before this event (zero value if the pair is new).
func (r *Reconciler) Apply(msg models.MessageEvent, res resolver.Resolution, active models.ActiveView, current models.Conversation) Result {
	if res.Direction == resolver.Unknown {
		return Result{}
	}
	if msg.ID != "" && r.seen.Contains(msg.ID) {
		return Result{}
	}

	preview := Preview(msg)
	at := msg.CreatedAt
	patch := &registry.Patch{
		LastMessageText: &preview,
		LastMessageAt:   &at,
	}

	notify := false
	switch {
	case active.Matches(res.UserID, res.CounterpartID):
		// The operator is looking at this conversation right now; viewing
		// implies read, whichever side wrote.
		zero := 0
		patch.UnreadCount = &zero
	case msg.SenderID == res.UserID:
		// A real user wrote to the counterpart and nobody is watching.
		n := current.UnreadCount + 1
		patch.UnreadCount = &n
		notify = true
	default:
		// Counterpart (operator or automated reply) wrote: never inflate the
		// operator's own unread counter.
	}

	if msg.ID != "" {
		r.seen.Add(msg.ID)
	}
	return Result{Patch: patch, Notify: notify}
}

// Preview renders the one-line summary shown in the conversation list.
func Preview(msg models.MessageEvent) string {
	switch msg.Type {
	case models.GiftMessage:
		return "🎁 " + msg.Content
	case models.ImageMessage:
		return "📷 Photo"
	case models.VoiceMessage:
		return "🎵 Voice message"
	default:
		return msg.Content
	}
}

// recentSet is a fixed-size set of recently applied message ids. Once full,
// the oldest id is evicted per insertion.
type recentSet struct {
	ids  map[string]struct{}
	ring []string
	next int
}

func newRecentSet(capacity int) *recentSet {
	return &recentSet{
		ids:  make(map[string]struct{}, capacity),
		ring: make([]string, capacity),
	}
}

func (s *recentSet) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *recentSet) Add(id string) {
	if _, ok := s.ids[id]; ok {
		return
	}
	if old := s.ring[s.next]; old != "" {
		delete(s.ids, old)
	}
	s.ring[s.next] = id
	s.next = (s.next + 1) % len(s.ring)
	s.ids[id] = struct{}{}
}
