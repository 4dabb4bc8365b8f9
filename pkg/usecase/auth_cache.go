package usecase

import (
	"sync"
	"time"

	"github.com/secmon-lab/actiontrail/pkg/domain/types"
	"github.com/secmon-lab/actiontrail/pkg/utils/clock"
)

const (
	// revocationCacheTTL bounds how long another instance's logout can go
	// unnoticed by this one
	revocationCacheTTL = 30 * time.Second
)

type cachedRevocation struct {
	revoked   bool
	expiresAt time.Time
}

type revocationCache struct {
	clock clock.Clock
	cache sync.Map
}

func newRevocationCache(c clock.Clock) *revocationCache {
	return &revocationCache{clock: c}
}

func (c *revocationCache) get(id types.TokenID) (bool, bool) {
	val, ok := c.cache.Load(id)
	if !ok {
		return false, false
	}

	cached := val.(*cachedRevocation)
	if c.clock().After(cached.expiresAt) {
		c.cache.Delete(id)
		return false, false
	}

	return cached.revoked, true
}

// set stores a lookup result. A zero until caches for revocationCacheTTL.
func (c *revocationCache) set(id types.TokenID, revoked bool, until time.Time) {
	if until.IsZero() {
		until = c.clock().Add(revocationCacheTTL)
	}
	c.cache.Store(id, &cachedRevocation{revoked: revoked, expiresAt: until})
}
