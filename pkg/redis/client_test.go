package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

type fakeCommands struct {
	values    map[string]string
	counters  map[string]int64
	ttls      map[string]time.Duration
	published map[string]string
	incrErr   error
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{
		values:    map[string]string{},
		counters:  map[string]int64{},
		ttls:      map[string]time.Duration{},
		published: map[string]string{},
	}
}

func (f *fakeCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCommands) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.values[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommands) GetDel(ctx context.Context, key string) *redis.StringCmd {
	cmd := f.Get(ctx, key)
	delete(f.values, key)
	return cmd
}

func (f *fakeCommands) Incr(_ context.Context, key string) *redis.IntCmd {
	if f.incrErr != nil {
		return redis.NewIntResult(0, f.incrErr)
	}
	f.counters[key]++
	return redis.NewIntResult(f.counters[key], nil)
}

func (f *fakeCommands) ExpireNX(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	if _, ok := f.ttls[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.values, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeCommands) Publish(_ context.Context, channel string, message any) *redis.IntCmd {
	f.published[channel] = fmt.Sprint(message)
	return redis.NewIntResult(1, nil)
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommands()
	client := &Client{cmd: fake}

	for i, want := range []bool{true, true, false} {
		allowed, count, err := client.FixedWindowAllow(ctx, "login:ip:1.2.3.4", 2, time.Minute)
		require.NoError(t, err)
		require.Equal(t, want, allowed, "hit %d", i+1)
		require.Equal(t, int64(i+1), count)
	}
	require.Equal(t, time.Minute, fake.ttls["sf:rate_limit:login:ip:1.2.3.4"])
}

func TestFixedWindowAllowSurfacesErrors(t *testing.T) {
	fake := newFakeCommands()
	fake.incrErr = errors.New("connection reset")
	client := &Client{cmd: fake}

	_, _, err := client.FixedWindowAllow(context.Background(), "scope", 1, time.Second)
	require.ErrorContains(t, err, "connection reset")
}

func TestFlashValueIsReadOnce(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newFakeCommands()}

	key := client.FlashKey("sid", "error")
	require.NoError(t, client.Set(ctx, key, "bad password", time.Minute))

	got, err := client.GetDel(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "bad password", got)

	_, err = client.GetDel(ctx, key)
	require.ErrorIs(t, err, Nil)
}

func TestPublishUsesChannel(t *testing.T) {
	fake := newFakeCommands()
	client := &Client{cmd: fake}
	require.NoError(t, client.Publish(context.Background(), client.Channel("realtime"), "payload"))
	require.Equal(t, "payload", fake.published["sf:events:realtime"])
}

func TestDisconnectedClient(t *testing.T) {
	client := &Client{}
	ctx := context.Background()
	require.ErrorIs(t, client.Ping(ctx), errNotConnected)
	require.ErrorIs(t, client.Set(ctx, "k", "v", 0), errNotConnected)
	_, _, err := client.FixedWindowAllow(ctx, "scope", 1, time.Second)
	require.ErrorIs(t, err, errNotConnected)
	_, err = client.Subscribe(ctx, "x")
	require.ErrorIs(t, err, errNotConnected)
	require.NoError(t, client.Close())
}

func TestKeyspace(t *testing.T) {
	var ks Keyspace
	require.Equal(t, "sf:rate_limit:scope", ks.RateLimitKey("scope"))
	require.Equal(t, "sf:session:abc", ks.SessionKey("abc"))
	require.Equal(t, "sf:flash:abc:error", ks.FlashKey("abc", "error"))
	require.Equal(t, "sf:flash:abc", ks.FlashKey("abc", " "))
	require.Equal(t, "shop:session:abc", Keyspace{Namespace: "shop"}.SessionKey("abc"))
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6380/2", PoolSize: 4, DialTimeout: time.Second})
	require.NoError(t, err)
	require.Equal(t, "localhost:6380", opts.Addr)
	require.Equal(t, 2, opts.DB)
	require.Equal(t, 4, opts.PoolSize)
	require.Equal(t, time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 3, Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "cache:6379", opts.Addr)
	require.Equal(t, 3, opts.DB)
	require.Equal(t, "pw", opts.Password)
}
