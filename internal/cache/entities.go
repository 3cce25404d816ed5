package cache

import (
	"context"

	"zeroai/internal/models"

	"github.com/redis/go-redis/v9"
)

// Entities caches single post and user lookups. A nil *Entities or nil client calls through.
type Entities struct {
	rdb *redis.Client
}

func NewEntities(rdb *redis.Client) *Entities {
	return &Entities{rdb: rdb}
}

// Post returns the cached post for id or loads it with fetch.
func (e *Entities) Post(ctx context.Context, id string, fetch func(context.Context) (*models.Post, error)) (*models.Post, error) {
	if e == nil || e.rdb == nil {
		return fetch(ctx)
	}
	var post *models.Post
	_, err := Aside(ctx, e.rdb, PostKey(id), &post, PostTTL, func() error {
		fetched, err := fetch(ctx)
		if err != nil {
			return err
		}
		post = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// User returns the cached user for id or loads it with fetch. Cached users carry no password hash.
func (e *Entities) User(ctx context.Context, id string, fetch func(context.Context) (*models.User, error)) (*models.User, error) {
	if e == nil || e.rdb == nil {
		return fetch(ctx)
	}
	var user *models.User
	_, err := Aside(ctx, e.rdb, UserKey(id), &user, UserTTL, func() error {
		fetched, err := fetch(ctx)
		if err != nil {
			return err
		}
		user = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (e *Entities) InvalidatePost(ctx context.Context, id string) {
	if e == nil {
		return
	}
	Invalidate(ctx, e.rdb, PostKey(id))
}
