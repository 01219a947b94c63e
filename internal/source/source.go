package source

import (
	"context"

	"github.com/MaxCaruta/purelove-sub002/internal/models"
)

// Handlers receives decoded platform events. Callbacks are invoked in
// delivery order from a single goroutine per subscription.
type Handlers struct {
	OnMessage      func(models.MessageEvent)
	OnConversation func(models.ConversationEvent)
}

// Subscription is one live attachment to the event feed.
type Subscription interface {
	Close() error
}

// EventSource is the platform's live event feed. Delivery is at-least-once:
// events may be redelivered after transport hiccups but are never silently
// dropped. onError is called at most once per subscription, when the
// transport fails; reconnecting is the caller's job.
type EventSource interface {
	Subscribe(handlers Handlers, onError func(error)) (Subscription, error)
}

// UserChats is one user's slice of the bulk conversation load.
type UserChats struct {
	User          models.User           `json:"user"`
	Conversations []models.Conversation `json:"conversations"`
}

// ChatStore is the persistent record store, consumed read-mostly. MarkRead is
// best effort: local registry state stays authoritative whether or not the
// call succeeds.
type ChatStore interface {
	FetchUserChats(ctx context.Context) ([]UserChats, error)
	MarkRead(ctx context.Context, userID, counterpartID uint) error
}

// Profile is the result of an identity lookup. At most one side is non-nil;
// both nil means the id is absent from the platform.
type Profile struct {
	User  *models.User
	Model *models.ModelProfile
}

func (p Profile) Absent() bool {
	return p.User == nil && p.Model == nil
}

// ProfileDirectory resolves raw ids against the platform's identity tables.
type ProfileDirectory interface {
	LookupProfile(ctx context.Context, id uint) (Profile, error)
	ListModelProfiles(ctx context.Context) ([]models.ModelProfile, error)
}
