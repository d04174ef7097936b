package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"
)

type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisStore_SaveLoad(t *testing.T) {
	rdb := newFakeRedis()
	s := NewRedisStore(rdb, "omnikassa:token")
	s.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	missing, err := s.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, missing)

	tok := omnikassa.AccessToken{Token: "abc", ValidUntil: now.Add(30 * time.Minute), DurationInMillis: 1800000}
	require.NoError(t, s.Save(ctx, tok))
	require.Equal(t, 30*time.Minute, rdb.ttls["omnikassa:token"])

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, "abc", loaded.Token)
	require.True(t, loaded.ValidUntil.Equal(tok.ValidUntil))
}

func TestRedisStore_SkipsExpired(t *testing.T) {
	rdb := newFakeRedis()
	s := NewRedisStore(rdb, "omnikassa:token")
	s.nowFunc = func() time.Time { return now }

	require.NoError(t, s.Save(context.Background(), omnikassa.AccessToken{Token: "old", ValidUntil: now.Add(-time.Second)}))
	require.Empty(t, rdb.values)
}

func TestSeedFrom(t *testing.T) {
	rdb := newFakeRedis()
	s := NewRedisStore(rdb, "omnikassa:token")
	s.nowFunc = func() time.Time { return now }
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, omnikassa.AccessToken{Token: "persisted", ValidUntil: now.Add(time.Hour)}))

	src := &fakeSource{}
	c := newTestCache(src, s.Save)
	require.NoError(t, SeedFrom(ctx, c, s))

	tok, err := c.EnsureValid(ctx)
	require.NoError(t, err)
	require.Equal(t, "persisted", tok.Token)
	require.Zero(t, src.calls)
}
