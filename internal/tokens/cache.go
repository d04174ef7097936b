package tokens

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"
)

// TokenSource exchanges the long-lived refresh token for an access token.
type TokenSource interface {
	RefreshAccessToken(ctx context.Context) (omnikassa.AccessToken, error)
}

// RefreshedFunc is invoked after a successful refresh, e.g. to persist the token.
type RefreshedFunc func(ctx context.Context, token omnikassa.AccessToken) error

// Cache holds the current access token. Concurrent refreshes may both call the
// source; the last stored token wins.
type Cache struct {
	source      TokenSource
	onRefreshed RefreshedFunc
	current     atomic.Pointer[omnikassa.AccessToken]
	nowFunc     func() time.Time
}

// NewCache returns an empty cache. onRefreshed may be nil.
func NewCache(source TokenSource, onRefreshed RefreshedFunc) *Cache {
	return &Cache{
		source:      source,
		onRefreshed: onRefreshed,
		nowFunc:     time.Now,
	}
}

// Seed installs a previously persisted token.
func (c *Cache) Seed(token omnikassa.AccessToken) {
	c.current.Store(&token)
}

// Current returns the cached token without refreshing it.
func (c *Cache) Current() (omnikassa.AccessToken, bool) {
	t := c.current.Load()
	if t == nil {
		return omnikassa.AccessToken{}, false
	}
	return *t, true
}

// EnsureValid returns a token that is valid now, refreshing it at most once.
// A failed refresh leaves the previous token in place.
func (c *Cache) EnsureValid(ctx context.Context) (omnikassa.AccessToken, error) {
	if t := c.current.Load(); t != nil && t.ValidAt(c.nowFunc()) {
		return *t, nil
	}
	return c.Refresh(ctx)
}

// Refresh unconditionally fetches a new token.
func (c *Cache) Refresh(ctx context.Context) (omnikassa.AccessToken, error) {
	fresh, err := c.source.RefreshAccessToken(ctx)
	if err != nil {
		return omnikassa.AccessToken{}, fmt.Errorf("refresh access token: %w", err)
	}
	c.current.Store(&fresh)
	if c.onRefreshed != nil {
		if err := c.onRefreshed(ctx, fresh); err != nil {
			log.Printf("[tokens] refreshed token not persisted: %v", err)
		}
	}
	return fresh, nil
}
