// Package seed creates demo users and posts for development. Posts are written straight to the
// store and never pass through the classifier.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"zeroai/internal/middleware"
	"zeroai/internal/models"
	"zeroai/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

// Options control how much data is generated.
type Options struct {
	Users int
	Posts int
	// LikeRatio is the chance, in [0,1], that a user likes a given post.
	LikeRatio float64
	// MaxDays spreads createdAt over this many past days.
	MaxDays int
	// Seed makes generation reproducible when non-zero.
	Seed int64
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Result summarizes what was written.
type Result struct {
	Users []*models.User
	Posts []*models.Post
	Likes int
}

// Seeder writes generated data through the repositories so it works for every store driver.
type Seeder struct {
	users repository.UserRepository
	posts repository.PostRepository
	faker *gofakeit.Faker
	opts  Options
	now   func() time.Time
}

func NewSeeder(users repository.UserRepository, posts repository.PostRepository, opts Options) *Seeder {
	if opts.MaxDays <= 0 {
		opts.MaxDays = 30
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{
		users: users,
		posts: posts,
		faker: gofakeit.New(seed),
		opts:  opts,
		now:   time.Now,
	}
}

// Run creates users, then posts authored by them, then likes.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	res := &Result{}
	for i := 0; i < s.opts.Users; i++ {
		u := s.buildUser(i, string(hash))
		if err := s.users.Create(ctx, u); err != nil {
			return nil, fmt.Errorf("create user %s: %w", u.Email, err)
		}
		res.Users = append(res.Users, u)
	}
	if len(res.Users) == 0 {
		return res, nil
	}

	for i := 0; i < s.opts.Posts; i++ {
		author := res.Users[s.faker.Number(0, len(res.Users)-1)]
		p := s.buildPost(author)
		if err := s.posts.Create(ctx, p); err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		res.Posts = append(res.Posts, p)
	}

	for _, p := range res.Posts {
		for _, u := range res.Users {
			if s.faker.Float64Range(0, 1) >= s.opts.LikeRatio {
				continue
			}
			if _, err := s.posts.ToggleLike(ctx, p.ID, u.ID); err != nil {
				return nil, fmt.Errorf("like post %s: %w", p.ID, err)
			}
			res.Likes++
		}
	}

	middleware.Logger.InfoContext(ctx, "seed complete",
		slog.Int("users", len(res.Users)),
		slog.Int("posts", len(res.Posts)),
		slog.Int("likes", res.Likes),
	)
	return res, nil
}

// buildUser uses the index in the email so repeated names never collide on the unique index.
func (s *Seeder) buildUser(i int, passwordHash string) *models.User {
	username := strings.ToLower(s.faker.Username())
	return &models.User{
		Username:       username,
		Email:          fmt.Sprintf("%s.%d@seed.zeroai.dev", username, i),
		Password:       passwordHash,
		ProfilePicture: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", s.faker.UUID()),
		Followers:      []string{},
		Followings:     []string{},
	}
}

// buildPost produces scores that would have passed the gate.
func (s *Seeder) buildPost(author *models.User) *models.Post {
	ai := s.faker.Float64Range(0, 0.5)
	back := time.Duration(s.faker.Number(0, s.opts.MaxDays*24*60)) * time.Minute
	return &models.Post{
		AuthorID:   author.ID,
		Caption:    s.faker.Sentence(8),
		MediaURL:   fmt.Sprintf("https://picsum.photos/seed/%s/800/800", s.faker.UUID()),
		AIScore:    ai,
		HumanScore: 1 - ai,
		LikedBy:    []string{},
		CreatedAt:  s.now().Add(-back).UTC(),
	}
}
