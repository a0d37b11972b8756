package services

import (
	"context"
	"time"

	"github.com/glowspace/glowspace-backend/internal/models"
	"github.com/patrickmn/go-cache"
)

// UserFinder resolves an active user by id.
type UserFinder interface {
	FindActiveByID(ctx context.Context, id string) (*models.User, error)
}

// CachedUserFinder keeps recently resolved users in memory for lookups that
// tolerate stale profiles, such as the author name on a community post.
// Misses are never cached. It must not front the socket handshake, which has
// to see deactivations immediately.
type CachedUserFinder struct {
	next UserFinder
	c    *cache.Cache
}

func NewCachedUserFinder(next UserFinder, ttl time.Duration) *CachedUserFinder {
	return &CachedUserFinder{
		next: next,
		c:    cache.New(ttl, 2*ttl),
	}
}

func (f *CachedUserFinder) FindActiveByID(ctx context.Context, id string) (*models.User, error) {
	if v, ok := f.c.Get(id); ok {
		u := v.(models.User)
		return &u, nil
	}

	u, err := f.next.FindActiveByID(ctx, id)
	if err != nil {
		return nil, err
	}
	f.c.SetDefault(id, *u)
	return u, nil
}

// Invalidate drops a cached user, e.g. after a profile change or deactivation.
func (f *CachedUserFinder) Invalidate(id string) {
	f.c.Delete(id)
}
