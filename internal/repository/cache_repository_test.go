package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
)

// stubRedis implements the handful of commands the cache uses; any other
// command panics on the nil embedded interface.
type stubRedis struct {
	redis.Cmdable
	values map[string]string
	ttls   map[string]time.Duration
}

func newStubRedis() *stubRedis {
	return &stubRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	v, ok := s.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (s *stubRedis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key)
	switch v := value.(type) {
	case []byte:
		s.values[key] = string(v)
	case string:
		s.values[key] = v
	}
	s.ttls[key] = ttl
	cmd.SetVal("OK")
	return cmd
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "del")
	var n int64
	for _, key := range keys {
		if _, ok := s.values[key]; ok {
			delete(s.values, key)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

type channelPayload struct {
	Channel string `json:"channel"`
}

func TestCacheRepositoryRoundTripIsNamespaced(t *testing.T) {
	stub := newStubRedis()
	repo := NewCacheRepository(stub)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "club:c1:channel", channelPayload{Channel: "120363@g.us"}, time.Minute))
	assert.Contains(t, stub.values, "padel-waitlist:club:c1:channel")
	assert.Equal(t, time.Minute, stub.ttls["padel-waitlist:club:c1:channel"])

	var got channelPayload
	require.NoError(t, repo.Get(ctx, "club:c1:channel", &got))
	assert.Equal(t, "120363@g.us", got.Channel)

	require.NoError(t, repo.Delete(ctx, "club:c1:channel"))
	assert.ErrorIs(t, repo.Get(ctx, "club:c1:channel", &got), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryCorruptPayloadIsMiss(t *testing.T) {
	stub := newStubRedis()
	stub.values["padel-waitlist:k"] = "{not json"
	repo := NewCacheRepository(stub)

	var got channelPayload
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &got), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryDeleteNothing(t *testing.T) {
	repo := NewCacheRepository(newStubRedis())
	assert.NoError(t, repo.Delete(context.Background()))
}
