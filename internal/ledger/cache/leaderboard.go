// Package cache holds the short-TTL Redis cache for leaderboard reads. The
// leaderboard is a full sort per call, so hot read traffic is worth
// absorbing; staleness is bounded by the TTL and tolerated by the contract
// (a ranking is already stale the moment it is returned).
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"almoner/internal/ledger/models"
	platformredis "almoner/internal/platform/redis"
)

type Leaderboard struct {
	client *platformredis.Client
	ttl    time.Duration
}

// NewLeaderboard wraps the redis client; a nil client disables the cache and
// both methods become no-ops.
func NewLeaderboard(client *platformredis.Client, ttl time.Duration) *Leaderboard {
	return &Leaderboard{client: client, ttl: ttl}
}

func key(limit int) string {
	return fmt.Sprintf("almoner:leaderboard:%d", limit)
}

// Get returns the cached ranking for limit, or ok=false on miss, disabled
// cache, or any redis error (a broken cache must never break reads).
func (c *Leaderboard) Get(ctx context.Context, limit int) ([]models.ContributorTotal, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, key(limit)).Bytes()
	if err != nil {
		return nil, false
	}
	var ranking []models.ContributorTotal
	if err := json.Unmarshal(raw, &ranking); err != nil {
		return nil, false
	}
	return ranking, true
}

// Set stores a ranking, best-effort.
func (c *Leaderboard) Set(ctx context.Context, limit int, ranking []models.ContributorTotal) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(ranking)
	if err != nil {
		return
	}
	c.client.Set(ctx, key(limit), raw, c.ttl)
}
