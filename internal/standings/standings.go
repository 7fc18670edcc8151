// Package standings serves challenge leaderboards with a best-effort Redis
// cache in front of the record store.
package standings

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"example.com/challengesync/internal/domain"
)

// TotalsLister is the slice of the record store needed for leaderboards.
type TotalsLister interface {
	ListTotalsByChallenge(ctx context.Context, challengeID string) ([]domain.ParticipantTotals, error)
}

// Service reads leaderboards through the cache. A nil cache degrades to
// direct store reads.
type Service struct {
	store  TotalsLister
	cache  *Cache
	logger *log.Logger
}

// NewService constructs a Service.
func NewService(store TotalsLister, cache *Cache, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.Writer(), "[standings] ", log.LstdFlags)
	}
	return &Service{store: store, cache: cache, logger: logger}
}

// Leaderboard returns participant totals for a challenge, best first.
// Cache failures are logged and fall back to the store; they never fail
// the read.
func (s *Service) Leaderboard(ctx context.Context, challengeID string) ([]domain.ParticipantTotals, error) {
	if s.cache != nil {
		if totals, ok := s.cache.get(ctx, challengeID); ok {
			return totals, nil
		}
	}

	totals, err := s.store.ListTotalsByChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.set(ctx, challengeID, totals)
	}
	return totals, nil
}

// Invalidate implements domain.StandingsInvalidator.
func (s *Service) Invalidate(ctx context.Context, challengeID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.invalidate(ctx, challengeID); err != nil {
		s.logger.Printf("cache invalidation failed (challenge=%s): %v", challengeID, err)
	}
}

// Cache wraps a Redis client with leaderboard-specific keys and TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewCache constructs a Cache. TTL values at or below zero default to one
// minute.
func NewCache(client *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[standings-cache] ", log.LstdFlags)
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func cacheKey(challengeID string) string {
	return "standings:" + challengeID
}

func (c *Cache) get(ctx context.Context, challengeID string) ([]domain.ParticipantTotals, bool) {
	raw, err := c.client.Get(ctx, cacheKey(challengeID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Printf("cache get failed (challenge=%s): %v", challengeID, err)
		}
		return nil, false
	}

	var totals []domain.ParticipantTotals
	if err := json.Unmarshal(raw, &totals); err != nil {
		c.logger.Printf("cache decode failed (challenge=%s): %v", challengeID, err)
		return nil, false
	}
	return totals, true
}

func (c *Cache) set(ctx context.Context, challengeID string, totals []domain.ParticipantTotals) {
	raw, err := json.Marshal(totals)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(challengeID), raw, c.ttl).Err(); err != nil {
		c.logger.Printf("cache set failed (challenge=%s): %v", challengeID, err)
	}
}

func (c *Cache) invalidate(ctx context.Context, challengeID string) error {
	return c.client.Del(ctx, cacheKey(challengeID)).Err()
}
