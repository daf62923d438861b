// Package redisstore keeps webhook dedupe keys in redis so every API replica
// shares them.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "furnish:webhook:"

type EventLog struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *EventLog {
	return &EventLog{rdb: rdb, ttl: ttl}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr string, ttl time.Duration) (*EventLog, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return New(rdb, ttl), nil
}

func (l *EventLog) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, keyPrefix+key, "1", l.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (l *EventLog) Forget(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, keyPrefix+key).Err()
}

func (l *EventLog) Close() error {
	return l.rdb.Close()
}
