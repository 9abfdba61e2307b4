package session

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/adminpanel/internal/redisclient"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "adminpanel:session:"

// Redis stores the session under a namespace so several profiles can share
// one server.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redisclient.Client, profile string, ttl time.Duration) *Redis {
	prefix := defaultRedisPrefix
	if profile != "" {
		prefix += profile + ":"
	}

	return &Redis{rdb: client.Raw(), prefix: prefix, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.rdb.Set(ctx, r.prefix+key, value, r.ttl).Err()
}

func (r *Redis) Clear(ctx context.Context) error {
	return r.rdb.Del(ctx, r.prefix+KeyUser, r.prefix+KeyToken).Err()
}
