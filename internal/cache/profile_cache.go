package cache

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/MaxCaruta/purelove-sub002/internal/models"
	"github.com/MaxCaruta/purelove-sub002/internal/source"
)

// ProfileTTL bounds how long a resolved identity is trusted. Model profiles
// are near-immutable; users occasionally change display data.
const ProfileTTL = 10 * time.Minute

const (
	kindUser  = "user"
	kindModel = "model"
)

type cachedProfile struct {
	Kind  string               `msgpack:"kind"`
	User  *models.User         `msgpack:"user,omitempty"`
	Model *models.ModelProfile `msgpack:"model,omitempty"`
}

// ProfileCache shares resolved identities across monitor instances so each
// unknown id hits Postgres once, not once per dashboard. Nil-safe: a nil
// cache (Redis unavailable) simply always misses.
type ProfileCache struct {
	redis *RedisCache
}

func NewProfileCache(redis *RedisCache) *ProfileCache {
	return &ProfileCache{redis: redis}
}

func profileKey(id uint) string {
	return fmt.Sprintf("profile:%d", id)
}

// GetProfile retrieves a cached identity resolution.
func (pc *ProfileCache) GetProfile(id uint) (source.Profile, bool) {
	if pc == nil || pc.redis == nil {
		return source.Profile{}, false
	}
	data, err := pc.redis.Get(profileKey(id))
	if err != nil || data == nil {
		return source.Profile{}, false
	}

	var cached cachedProfile
	if err := msgpack.Unmarshal(data, &cached); err != nil {
		return source.Profile{}, false
	}

	switch cached.Kind {
	case kindUser:
		return source.Profile{User: cached.User}, cached.User != nil
	case kindModel:
		return source.Profile{Model: cached.Model}, cached.Model != nil
	}
	return source.Profile{}, false
}

// SetProfile caches a resolved identity. Absent profiles are not cached:
// a signup can turn an absent id into a real one at any moment.
func (pc *ProfileCache) SetProfile(id uint, p source.Profile) error {
	if pc == nil || pc.redis == nil || p.Absent() {
		return nil
	}

	cached := cachedProfile{}
	switch {
	case p.User != nil:
		cached.Kind = kindUser
		cached.User = p.User
	case p.Model != nil:
		cached.Kind = kindModel
		cached.Model = p.Model
	}

	data, err := msgpack.Marshal(cached)
	if err != nil {
		return err
	}
	return pc.redis.Set(profileKey(id), data, ProfileTTL)
}

// InvalidateProfile drops a cached identity.
func (pc *ProfileCache) InvalidateProfile(id uint) error {
	if pc == nil || pc.redis == nil {
		return nil
	}
	return pc.redis.Delete(profileKey(id))
}
