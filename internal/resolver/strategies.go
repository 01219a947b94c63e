package resolver

import (
	"context"
	"log"

	"github.com/MaxCaruta/purelove-sub002/internal/source"
)

// knownPairStrategy handles the unambiguous case: exactly one side is a
// known user and the other a known model profile.
type knownPairStrategy struct {
	dir *Directory
}

func (s *knownPairStrategy) Name() string { return "known_pair" }

func (s *knownPairStrategy) TryResolve(_ context.Context, senderID, receiverID uint) (Resolution, bool) {
	if s.dir.IsUser(senderID) && s.dir.IsModel(receiverID) {
		return Resolution{UserID: senderID, CounterpartID: receiverID, Direction: UserToModel}, true
	}
	if s.dir.IsModel(senderID) && s.dir.IsUser(receiverID) {
		return Resolution{UserID: receiverID, CounterpartID: senderID, Direction: ModelToUser}, true
	}
	return Resolution{}, false
}

// bothUsersStrategy covers messages between two known real accounts with no
// model match. The sender is taken as the user side. This is a degraded path
// for malformed pairing data, not a product rule, so it is logged every time.
type bothUsersStrategy struct {
	dir *Directory
}

func (s *bothUsersStrategy) Name() string { return "both_users" }

func (s *bothUsersStrategy) TryResolve(_ context.Context, senderID, receiverID uint) (Resolution, bool) {
	if !s.dir.IsUser(senderID) || !s.dir.IsUser(receiverID) {
		return Resolution{}, false
	}
	if s.dir.IsModel(senderID) || s.dir.IsModel(receiverID) {
		return Resolution{}, false
	}
	log.Printf("Both sides of pair (%d, %d) are real users; treating sender as the user side", senderID, receiverID)
	return Resolution{UserID: senderID, CounterpartID: receiverID, Direction: UserToModel}, true
}

// lookupStrategy fetches unknown ids from the profile directory (cache
// first), folds them into the in-process directory, and retries the static
// strategies. Lookup failures are swallowed: the chain falls through to
// Unknown and the event is not counted.
type lookupStrategy struct {
	dir    *Directory
	lookup source.ProfileDirectory
	cache  ProfileCache
}

func (s *lookupStrategy) Name() string { return "directory_lookup" }

func (s *lookupStrategy) TryResolve(ctx context.Context, senderID, receiverID uint) (Resolution, bool) {
	resolvedAny := false
	for _, id := range []uint{senderID, receiverID} {
		if s.dir.Known(id) {
			continue
		}
		if s.fetch(ctx, id) {
			resolvedAny = true
		}
	}
	if !resolvedAny {
		return Resolution{}, false
	}

	// Retry the static rungs now that the directory may know both sides.
	if res, ok := (&knownPairStrategy{dir: s.dir}).TryResolve(ctx, senderID, receiverID); ok {
		return res, true
	}
	return (&bothUsersStrategy{dir: s.dir}).TryResolve(ctx, senderID, receiverID)
}

// fetch populates the directory for one id. Returns true if the id is now
// known.
func (s *lookupStrategy) fetch(ctx context.Context, id uint) bool {
	if s.cache != nil {
		if p, ok := s.cache.GetProfile(id); ok && !p.Absent() {
			s.fold(p)
			return true
		}
	}

	if s.lookup == nil {
		return false
	}
	p, err := s.lookup.LookupProfile(ctx, id)
	if err != nil {
		log.Printf("Profile lookup for id %d failed: %v", id, err)
		return false
	}
	if p.Absent() {
		return false
	}

	s.fold(p)
	if s.cache != nil {
		if err := s.cache.SetProfile(id, p); err != nil {
			log.Printf("Failed to cache profile %d: %v", id, err)
		}
	}
	return true
}

func (s *lookupStrategy) fold(p source.Profile) {
	if p.User != nil {
		s.dir.AddUser(*p.User)
	}
	if p.Model != nil {
		s.dir.AddModel(*p.Model)
	}
}
