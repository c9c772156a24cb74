package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MikeSquared-Agency/lazyswap/internal/conversation"
)

// Redis stores each conversation under prefix:id with a sliding TTL, so
// stale conversations expire on their own.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedis(ctx context.Context, redisURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisWithClient(client, "lazyswap:conversation", ttl), nil
}

func NewRedisWithClient(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "lazyswap:conversation"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(id string) string {
	return r.prefix + ":" + id
}

func (r *Redis) Load(ctx context.Context, id string) (conversation.State, bool, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return conversation.State{}, false, nil
	}
	if err != nil {
		return conversation.State{}, false, fmt.Errorf("get conversation: %w", err)
	}
	var st conversation.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return conversation.State{}, false, fmt.Errorf("decode conversation: %w: %w", conversation.ErrCorruptState, err)
	}
	return st, true, nil
}

func (r *Redis) Save(ctx context.Context, st conversation.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	if err := r.client.Set(ctx, r.key(st.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("set conversation: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// Purge is a no-op: keys expire through their TTL.
func (r *Redis) Purge(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
