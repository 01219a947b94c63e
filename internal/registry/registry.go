package registry

import (
	"sort"
	"time"

	"github.com/MaxCaruta/purelove-sub002/internal/models"
)

// Patch is a partial update to one conversation summary. Nil fields are left
// untouched. UnreadCount is absolute rather than a delta so that applying the
// same patch twice yields the same state (the event feed is at-least-once).
type Patch struct {
	LastMessageText *string
	LastMessageAt   *time.Time
	UnreadCount     *int
	Status          *models.ConversationStatus
}

type entry struct {
	conv models.Conversation
	seq  uint64
}

// Registry is the in-memory index of conversation summaries, keyed by
// (user, counterpart). It is owned by the monitor engine: all mutation goes
// through the single event-processing goroutine, so there is no lock here.
type Registry struct {
	users   map[uint]models.User
	byUser  map[uint]map[uint]*entry
	nextSeq uint64
}

func New() *Registry {
	return &Registry{
		users:  make(map[uint]models.User),
		byUser: make(map[uint]map[uint]*entry),
	}
}

// SetUser records the user projection shown alongside their conversations.
func (r *Registry) SetUser(u models.User) {
	r.users[u.ID] = u
}

func (r *Registry) User(id uint) (models.User, bool) {
	u, ok := r.users[id]
	return u, ok
}

// Users returns the ids of all users with at least one conversation, in
// ascending order.
func (r *Registry) Users() []uint {
	ids := make([]uint, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Upsert applies a patch to the conversation for (userID, counterpartID),
// creating it if the pair has never been seen. Exactly one conversation
// exists per pair; entries are never deleted (archival is a status flag).
func (r *Registry) Upsert(userID, counterpartID uint, p Patch) models.Conversation {
	convs, ok := r.byUser[userID]
	if !ok {
		convs = make(map[uint]*entry)
		r.byUser[userID] = convs
	}

	e, ok := convs[counterpartID]
	if !ok {
		e = &entry{
			conv: models.Conversation{
				UserID:        userID,
				CounterpartID: counterpartID,
				Status:        models.StatusActive,
			},
			seq: r.nextSeq,
		}
		r.nextSeq++
		convs[counterpartID] = e
	}

	if p.LastMessageText != nil {
		e.conv.LastMessageText = *p.LastMessageText
	}
	if p.LastMessageAt != nil {
		e.conv.LastMessageAt = *p.LastMessageAt
	}
	if p.UnreadCount != nil {
		n := *p.UnreadCount
		if n < 0 {
			n = 0
		}
		e.conv.UnreadCount = n
	}
	if p.Status != nil && p.Status.Valid() {
		e.conv.Status = *p.Status
	}

	return e.conv
}

// Get returns a copy of the conversation for the pair, if present.
func (r *Registry) Get(userID, counterpartID uint) (models.Conversation, bool) {
	if e, ok := r.byUser[userID][counterpartID]; ok {
		return e.conv, true
	}
	return models.Conversation{}, false
}

// List returns copies of a user's conversations ordered by last activity,
// newest first. Ties keep insertion order, so the listing is stable across
// repeated calls.
func (r *Registry) List(userID uint) []models.Conversation {
	convs := r.byUser[userID]
	if len(convs) == 0 {
		return nil
	}

	entries := make([]*entry, 0, len(convs))
	for _, e := range convs {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.conv.LastMessageAt.Equal(b.conv.LastMessageAt) {
			return a.conv.LastMessageAt.After(b.conv.LastMessageAt)
		}
		return a.seq < b.seq
	})

	out := make([]models.Conversation, len(entries))
	for i, e := range entries {
		out[i] = e.conv
	}
	return out
}

// Len returns the total number of conversations across all users.
func (r *Registry) Len() int {
	n := 0
	for _, convs := range r.byUser {
		n += len(convs)
	}
	return n
}
