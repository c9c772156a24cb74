package store

import (
	"context"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/lazyswap/internal/conversation"
)

// Backend is a conversation store that can also drop stale entries.
type Backend interface {
	conversation.Store
	Purge(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

type Options struct {
	Driver      string
	DatabaseURL string
	RedisURL    string
	TTL         time.Duration
}

// Open returns the backend named by opts.Driver: memory, redis or postgres.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		if opts.RedisURL == "" {
			return nil, fmt.Errorf("redis store requires REDIS_URL")
		}
		return NewRedis(ctx, opts.RedisURL, opts.TTL)
	case "postgres":
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres store requires DATABASE_URL")
		}
		pg, err := NewPostgres(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
