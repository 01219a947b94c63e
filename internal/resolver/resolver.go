package resolver

import (
	"context"
	"log"

	"github.com/MaxCaruta/purelove-sub002/internal/models"
	"github.com/MaxCaruta/purelove-sub002/internal/source"
)

type Direction string

const (
	UserToModel Direction = "user_to_model"
	ModelToUser Direction = "model_to_user"
	Unknown     Direction = "unknown"
)

// Resolution names which side of a message is the real user and which is the
// counterpart. Direction Unknown means unread accounting must be skipped.
type Resolution struct {
	UserID        uint
	CounterpartID uint
	Direction     Direction
}

// Directory is the resolver's view of known identities, seeded from the bulk
// load and grown by on-demand lookups. It is only touched from the engine
// goroutine.
type Directory struct {
	users  map[uint]models.User
	models map[uint]models.ModelProfile
}

func NewDirectory() *Directory {
	return &Directory{
		users:  make(map[uint]models.User),
		models: make(map[uint]models.ModelProfile),
	}
}

func (d *Directory) AddUser(u models.User)          { d.users[u.ID] = u }
func (d *Directory) AddModel(m models.ModelProfile) { d.models[m.ID] = m }

func (d *Directory) IsUser(id uint) bool {
	_, ok := d.users[id]
	return ok
}

func (d *Directory) IsModel(id uint) bool {
	_, ok := d.models[id]
	return ok
}

func (d *Directory) Known(id uint) bool {
	return d.IsUser(id) || d.IsModel(id)
}

// ProfileCache is the shared cache in front of the profile directory. The
// concrete implementation is nil-safe, so a missing cache degrades to
// straight lookups.
type ProfileCache interface {
	GetProfile(id uint) (source.Profile, bool)
	SetProfile(id uint, p source.Profile) error
}

// Strategy is one rung of the resolution ladder. Strategies are tried in
// order; the first to answer wins. A strategy that cannot decide returns
// ok=false and the chain moves on.
type Strategy interface {
	Name() string
	TryResolve(ctx context.Context, senderID, receiverID uint) (Resolution, bool)
}

// Resolver decides which side of a message is the real user. It never
// returns an error: anything the chain cannot place degrades to Direction
// Unknown, since suppressing one notification is safer than double-counting
// or crashing the dashboard.
type Resolver struct {
	dir   *Directory
	chain []Strategy
}

func New(dir *Directory, lookup source.ProfileDirectory, cache ProfileCache) *Resolver {
	return &Resolver{
		dir: dir,
		chain: []Strategy{
			&knownPairStrategy{dir: dir},
			&bothUsersStrategy{dir: dir},
			&lookupStrategy{dir: dir, lookup: lookup, cache: cache},
		},
	}
}

// Directory exposes the backing directory for seeding.
func (r *Resolver) Directory() *Directory {
	return r.dir
}

func (r *Resolver) Resolve(ctx context.Context, senderID, receiverID uint) Resolution {
	for _, s := range r.chain {
		if res, ok := s.TryResolve(ctx, senderID, receiverID); ok {
			return res
		}
	}
	log.Printf("Unresolved identity pair sender=%d receiver=%d, skipping unread accounting", senderID, receiverID)
	return Resolution{Direction: Unknown}
}
