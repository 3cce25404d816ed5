package cache

import (
	"context"
	"errors"
	"testing"

	"zeroai/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntities_PostCachedUntilInvalidated(t *testing.T) {
	mr, rdb := newTestClient(t)
	e := NewEntities(rdb)
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (*models.Post, error) {
		calls++
		return &models.Post{ID: "p1", MediaURL: "https://cdn/p1.png", LikedBy: []string{"u1"}}, nil
	}

	_, err := e.Post(ctx, "p1", fetch)
	require.NoError(t, err)
	got, err := e.Post(ctx, "p1", fetch)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"u1"}, got.LikedBy)
	assert.True(t, mr.Exists(PostKey("p1")))

	e.InvalidatePost(ctx, "p1")
	assert.False(t, mr.Exists(PostKey("p1")))
}

func TestEntities_UserOmitsPasswordHash(t *testing.T) {
	_, rdb := newTestClient(t)
	e := NewEntities(rdb)
	ctx := context.Background()

	fetch := func(context.Context) (*models.User, error) {
		return &models.User{ID: "u1", Username: "ada", Password: "hash"}, nil
	}
	_, err := e.User(ctx, "u1", fetch)
	require.NoError(t, err)

	cached, err := e.User(ctx, "u1", func(context.Context) (*models.User, error) {
		t.Fatal("fetch called on cache hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ada", cached.Username)
	assert.Empty(t, cached.Password)
}

func TestEntities_NilCallsThrough(t *testing.T) {
	var e *Entities
	boom := errors.New("boom")

	_, err := e.Post(context.Background(), "p1", func(context.Context) (*models.Post, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	u, err := NewEntities(nil).User(context.Background(), "u1", func(context.Context) (*models.User, error) {
		return &models.User{ID: "u1"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	e.InvalidatePost(context.Background(), "p1")
}
