package presence

import (
	"chat-relay/domain"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisPresence mirrors the registry to redis so other tools can see who is online.
// key: chat:presence:<user_id>, value: instance id, TTL bounds staleness after a crash.
// It is never used for routing.
type RedisPresence struct {
	client   *redis.Client
	ttl      time.Duration
	instance string
}

func NewRedisPresence(ctx context.Context, c Config) (*RedisPresence, error) {
	client := redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", c.Addr, err)
	}
	return newRedisPresence(client, c.TTL), nil
}

func newRedisPresence(client *redis.Client, ttl time.Duration) *RedisPresence {
	return &RedisPresence{client: client, ttl: ttl, instance: uuid.NewString()}
}

func Key(id domain.UserID) string {
	return fmt.Sprintf("chat:presence:%d", id)
}

// Online sets the user as online and renews the TTL.
func (p *RedisPresence) Online(ctx context.Context, id domain.UserID) error {
	return p.client.Set(ctx, Key(id), p.instance, p.ttl).Err()
}

// Offline deletes the key.
func (p *RedisPresence) Offline(ctx context.Context, id domain.UserID) error {
	return p.client.Del(ctx, Key(id)).Err()
}

// IsOnline reports whether any instance holds a live presence key for id.
func (p *RedisPresence) IsOnline(ctx context.Context, id domain.UserID) (bool, error) {
	err := p.client.Get(ctx, Key(id)).Err()
	switch {
	case err == redis.Nil:
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}

func (p *RedisPresence) Close() error {
	return p.client.Close()
}
