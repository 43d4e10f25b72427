package redis

import (
	"context"
	"errors"
	"strconv"
)

// ══════════════════════════════════════════════════════════════════════════════
// POINTS CACHE
// Implements query.BalanceCache. Values are plain integers under
// "points:<student_id>"; the ledger in Postgres stays the source of truth.
// ══════════════════════════════════════════════════════════════════════════════

// PointsCache caches student point balances.
type PointsCache struct {
	cache *Cache
}

// NewPointsCache creates a new PointsCache.
func NewPointsCache(cache *Cache) *PointsCache {
	return &PointsCache{cache: cache}
}

func pointsKey(studentID string) string {
	return KeyPrefixPoints + studentID
}

// Get returns the cached balance and whether it was present.
func (p *PointsCache) Get(ctx context.Context, studentID string) (int, bool, error) {
	val, err := p.cache.GetString(ctx, pointsKey(studentID))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return 0, false, nil
		}
		return 0, false, err
	}

	balance, err := strconv.Atoi(val)
	if err != nil {
		// Corrupt entry; treat as a miss and drop it.
		_ = p.cache.Delete(ctx, pointsKey(studentID))
		return 0, false, nil
	}

	return balance, true, nil
}

// Set stores the balance with the points TTL.
func (p *PointsCache) Set(ctx context.Context, studentID string, balance int) error {
	return p.cache.SetString(ctx, pointsKey(studentID), strconv.Itoa(balance), TTLPoints)
}

// Invalidate drops the student's cached balance.
func (p *PointsCache) Invalidate(ctx context.Context, studentID string) error {
	return p.cache.Delete(ctx, pointsKey(studentID))
}
