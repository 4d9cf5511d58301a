// Package replay drops gateway callbacks that were already applied.
package replay

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/paynet-bridge/internal/common"
)

// Guard claims callback payloads using Redis SETNX semantics.
type Guard struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

// Key derives a stable key for a callback payload. Field order on the wire does not matter.
func (g Guard) Key(kind string, payload url.Values) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.Join(payload[k], ","))
		b.WriteByte('\n')
	}
	prefix := g.Prefix
	if prefix == "" {
		prefix = "paynet:cb:"
	}
	return prefix + kind + ":" + common.HashKey(b.String())
}

// Acquire claims key. It reports false when the payload was seen within TTL.
func (g Guard) Acquire(ctx context.Context, key string) (bool, error) {
	if g.Client == nil {
		return true, nil
	}
	ttl := g.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return g.Client.SetNX(ctx, key, "1", ttl).Result()
}

// Release removes the claim so a payload that failed for a transient reason can be retried.
func (g Guard) Release(ctx context.Context, key string) error {
	if g.Client == nil {
		return nil
	}
	return g.Client.Del(ctx, key).Err()
}
