// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"zeroai/internal/models"

	"github.com/google/uuid"
)

// PostRepoStub is an in-memory post repository implementation for tests.
type PostRepoStub struct {
	mu    sync.Mutex
	items map[string]*models.Post
	// CreateErr, when set, is returned by Create.
	CreateErr error
}

// NewPostRepoStub creates an empty in-memory post repository.
func NewPostRepoStub() *PostRepoStub {
	return &PostRepoStub{items: make(map[string]*models.Post)}
}

// Create stores a copy of post.
func (s *PostRepoStub) Create(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	post.Normalize()
	s.items[post.ID] = clonePost(post)
	return nil
}

// ListByCreatedAtDesc returns copies of every post, newest first.
func (s *PostRepoStub) ListByCreatedAtDesc(_ context.Context) ([]*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Post, 0, len(s.items))
	for _, p := range s.items {
		out = append(out, clonePost(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetByID returns a copy of the post or PostNotFound.
func (s *PostRepoStub) GetByID(_ context.Context, id string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return nil, models.NewPostNotFoundError(id)
	}
	return clonePost(p), nil
}

// ToggleLike flips userID in the post's like set.
func (s *PostRepoStub) ToggleLike(_ context.Context, postID, userID string) (models.LikeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[postID]
	if !ok {
		return "", models.NewPostNotFoundError(postID)
	}
	for i, id := range p.LikedBy {
		if id == userID {
			p.LikedBy = append(p.LikedBy[:i:i], p.LikedBy[i+1:]...)
			return models.LikeStateUnliked, nil
		}
	}
	p.LikedBy = append(p.LikedBy, userID)
	return models.LikeStateLiked, nil
}

// Count returns the number of stored posts.
func (s *PostRepoStub) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func clonePost(p *models.Post) *models.Post {
	cp := *p
	cp.LikedBy = append([]string{}, p.LikedBy...)
	if p.Author != nil {
		a := *p.Author
		cp.Author = &a
	}
	return &cp
}

// UserRepoStub is an in-memory user repository implementation for tests.
type UserRepoStub struct {
	mu    sync.Mutex
	items map[string]*models.User
}

// NewUserRepoStub creates an in-memory user repository seeded with users.
func NewUserRepoStub(users ...*models.User) *UserRepoStub {
	s := &UserRepoStub{items: make(map[string]*models.User)}
	for _, u := range users {
		_ = s.Create(context.Background(), u)
	}
	return s
}

// GetByID returns a copy of the user or UserNotFound.
func (s *UserRepoStub) GetByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.items[id]
	if !ok {
		return nil, models.NewUserNotFoundError(id)
	}
	cp := *u
	return &cp, nil
}

// GetByEmail returns (nil, nil) when no user has the email.
func (s *UserRepoStub) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.items {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// GetByIDs returns the users that exist, keyed by id.
func (s *UserRepoStub) GetByIDs(_ context.Context, ids []string) (map[string]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := s.items[id]; ok {
			cp := *u
			out[id] = &cp
		}
	}
	return out, nil
}

// Create stores the user, rejecting a duplicate email.
func (s *UserRepoStub) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.items {
		if u.Email == user.Email {
			return models.NewDuplicateEmailError()
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Normalize()
	cp := *user
	s.items[user.ID] = &cp
	return nil
}

// Count returns the number of stored users.
func (s *UserRepoStub) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
