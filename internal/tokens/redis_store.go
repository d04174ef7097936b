package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"
)

// RedisAPI is the subset of the go-redis client used by RedisStore.
type RedisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore persists the access token so cold starts can reuse it.
type RedisStore struct {
	client  RedisAPI
	key     string
	nowFunc func() time.Time
}

// NewRedisStore returns a store writing to key.
func NewRedisStore(client RedisAPI, key string) *RedisStore {
	return &RedisStore{client: client, key: key, nowFunc: time.Now}
}

// Save stores the token until it expires. Expired tokens are not written.
func (s *RedisStore) Save(ctx context.Context, token omnikassa.AccessToken) error {
	ttl := token.ValidUntil.Sub(s.nowFunc())
	if ttl <= 0 {
		return nil
	}
	body, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := s.client.Set(ctx, s.key, body, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// Load returns the persisted token, or (nil, nil) when none is stored.
func (s *RedisStore) Load(ctx context.Context) (*omnikassa.AccessToken, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	var token omnikassa.AccessToken
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("unmarshal token: %w", err)
	}
	return &token, nil
}

// SeedFrom loads a persisted token into c when one is still valid.
func SeedFrom(ctx context.Context, c *Cache, s *RedisStore) error {
	token, err := s.Load(ctx)
	if err != nil || token == nil {
		return err
	}
	if token.ValidAt(s.nowFunc()) {
		c.Seed(*token)
	}
	return nil
}
