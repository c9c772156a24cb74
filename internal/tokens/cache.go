package tokens

import (
	"context"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/lazyswap/internal/sideshift"
)

// CoinCache keeps the last coin list for ttl. It satisfies CoinLister.
type CoinCache struct {
	src CoinLister
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	coins   []sideshift.Coin
	fetched time.Time
}

func NewCoinCache(src CoinLister, ttl time.Duration) *CoinCache {
	return &CoinCache{src: src, ttl: ttl, now: time.Now}
}

func (c *CoinCache) ListCoins(ctx context.Context) ([]sideshift.Coin, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.coins != nil && c.ttl > 0 && c.now().Sub(c.fetched) < c.ttl {
		return c.coins, nil
	}

	coins, err := c.src.ListCoins(ctx)
	if err != nil {
		return nil, err
	}
	c.coins = coins
	c.fetched = c.now()
	return coins, nil
}

// Invalidate drops the cached list so the next call refetches.
func (c *CoinCache) Invalidate() {
	c.mu.Lock()
	c.coins = nil
	c.mu.Unlock()
}
