package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// StoreLimiter adapts a fixed-window ulule limiter to Allower. The rate is fixed at
// construction, so the window and max passed to Allow are ignored.
type StoreLimiter struct {
	limiter *limiter.Limiter
}

// NewStoreLimiter wraps an existing store with a formatted rate such as "600-M".
func NewStoreLimiter(store limiter.Store, formatted string) (*StoreLimiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse rate %q: %w", formatted, err)
	}
	return &StoreLimiter{limiter: limiter.New(store, rate)}, nil
}

// NewRedisStoreLimiter builds a StoreLimiter over a redis store.
func NewRedisStoreLimiter(client *redis.Client, prefix, formatted string) (*StoreLimiter, error) {
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, fmt.Errorf("ratelimit: redis store: %w", err)
	}
	return NewStoreLimiter(store, formatted)
}

// Limit returns the configured number of events per period.
func (l *StoreLimiter) Limit() int { return int(l.limiter.Rate.Limit) }

func (l *StoreLimiter) Allow(ctx context.Context, key string, _ time.Duration, _ int) (bool, int, time.Time, error) {
	res, err := l.limiter.Get(ctx, key)
	if err != nil {
		return false, 0, time.Now(), err
	}
	return !res.Reached, int(res.Remaining), time.Unix(res.Reset, 0), nil
}
