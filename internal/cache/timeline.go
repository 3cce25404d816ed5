package cache

import (
	"context"
	"time"

	"zeroai/internal/models"
	"zeroai/internal/observability"

	"github.com/redis/go-redis/v9"
)

// DefaultTimelineTTL bounds staleness of the cached timeline.
const DefaultTimelineTTL = 30 * time.Second

// Timeline caches the full ordered timeline under TimelineKey.
type Timeline struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTimeline returns a timeline cache. A nil client disables caching.
func NewTimeline(rdb *redis.Client, ttl time.Duration) *Timeline {
	if ttl <= 0 {
		ttl = DefaultTimelineTTL
	}
	return &Timeline{rdb: rdb, ttl: ttl}
}

// Load returns the cached timeline or calls fetch and caches its result.
func (t *Timeline) Load(ctx context.Context, fetch func(context.Context) ([]*models.Post, error)) ([]*models.Post, error) {
	var posts []*models.Post
	hit, err := Aside(ctx, t.rdb, TimelineKey, &posts, t.ttl, func() error {
		fetched, err := fetch(ctx)
		if err != nil {
			return err
		}
		posts = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}

	if t.rdb != nil {
		result := "miss"
		if hit {
			result = "hit"
		}
		observability.TimelineCacheResults.WithLabelValues(result).Inc()
	}

	if posts == nil {
		posts = []*models.Post{}
	}
	for _, p := range posts {
		p.Normalize()
	}
	return posts, nil
}

// Invalidate drops the cached timeline.
func (t *Timeline) Invalidate(ctx context.Context) {
	Invalidate(ctx, t.rdb, TimelineKey)
}
