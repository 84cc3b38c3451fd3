package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisSlot stores the session as JSON under a single Redis key.
type RedisSlot struct {
	rdb *goredis.Client
	key string
}

// NewRedisSlot connects to addr and verifies the connection.
func NewRedisSlot(addr, key string) (*RedisSlot, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis slot: missing address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRedisSlotWithClient(rdb, key), nil
}

// NewRedisSlotWithClient wraps an existing client.
func NewRedisSlotWithClient(rdb *goredis.Client, key string) *RedisSlot {
	return &RedisSlot{rdb: rdb, key: key}
}

func (r *RedisSlot) Get(ctx context.Context) (*Session, error) {
	raw, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read redis slot: %w", err)
	}
	s := &Session{}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

func (r *RedisSlot) Set(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("write redis slot: %w", err)
	}
	return nil
}

func (r *RedisSlot) Remove(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("clear redis slot: %w", err)
	}
	return nil
}

func (r *RedisSlot) Close() error {
	return r.rdb.Close()
}
