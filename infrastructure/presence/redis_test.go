package presence

import (
	"chat-relay/domain"
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	require.Equal(t, "chat:presence:42", Key(42))
}

func TestNewRedisPresence_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisPresence(ctx, Config{Addr: "127.0.0.1:1", TTL: time.Minute})
	require.Error(t, err)
}

func TestRedisPresence_Unreachable_Operations_Fail(t *testing.T) {
	req := require.New(t)
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	p := newRedisPresence(client, time.Minute)
	defer p.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req.Error(p.Online(ctx, 1))
	req.Error(p.Offline(ctx, 1))
	_, err := p.IsOnline(ctx, 1)
	req.Error(err)
	_, err = CountOnline(ctx, p, []domain.UserID{1})
	req.Error(err)
}

// Runs against a real server when REDIS_ADDR is set.
func TestRedisPresence_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	req := require.New(t)
	ctx := context.Background()
	p, err := NewRedisPresence(ctx, Config{Addr: addr, TTL: time.Minute})
	req.NoError(err)
	defer p.Close()

	req.NoError(p.Online(ctx, 9001))
	online, err := p.IsOnline(ctx, 9001)
	req.NoError(err)
	req.True(online)

	count, err := CountOnline(ctx, p, []domain.UserID{9001, 9002})
	req.NoError(err)
	req.Equal(1, count)

	ttl, err := p.client.TTL(ctx, Key(9001)).Result()
	req.NoError(err)
	req.Greater(ttl, time.Duration(0))

	req.NoError(p.Offline(ctx, 9001))
	online, err = p.IsOnline(ctx, 9001)
	req.NoError(err)
	req.False(online)
}
