package webhook

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers delivered message ids. A nil client disables it and
// every delivery counts as first.
type Deduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewDeduper(client *redis.Client, ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Deduper{client: client, prefix: "webhook:seen:", ttl: ttl}
}

// Claim returns true when id has not been seen within the TTL and marks it seen.
func (d *Deduper) Claim(ctx context.Context, id string) (bool, error) {
	if d == nil || d.client == nil {
		return true, nil
	}
	return d.client.SetNX(ctx, d.prefix+id, "1", d.ttl).Result()
}

// Release forgets id so a retried delivery is processed again.
func (d *Deduper) Release(ctx context.Context, id string) error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Del(ctx, d.prefix+id).Err()
}
