package service

import (
	"context"
	"strings"
	"time"

	"zeroai/internal/cache"
	"zeroai/internal/models"
	"zeroai/internal/notifications"
	"zeroai/internal/observability"
	"zeroai/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// PostService serves timeline reads, post lookup and like toggles.
type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	timeline *cache.Timeline
	entities *cache.Entities
	events   notifications.Publisher
	now      func() time.Time
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	timeline *cache.Timeline,
	events notifications.Publisher,
) *PostService {
	if timeline == nil {
		timeline = cache.NewTimeline(nil, 0)
	}
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		timeline: timeline,
		events:   events,
		now:      time.Now,
	}
}

// WithCache fronts GetPost with a per-post cache entry.
func (s *PostService) WithCache(entities *cache.Entities) *PostService {
	s.entities = entities
	return s
}

// Timeline returns every post newest first. The result is never nil.
func (s *PostService) Timeline(ctx context.Context) (posts []*models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.Timeline")
	defer func() { observability.EndSpan(span, err) }()

	posts, err = s.timeline.Load(ctx, func(ctx context.Context) ([]*models.Post, error) {
		list, err := s.postRepo.ListByCreatedAtDesc(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.attachAuthors(ctx, list); err != nil {
			return nil, err
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("timeline.size", len(posts)))
	return posts, nil
}

func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, models.NewValidationError("Post ID is required")
	}
	post, err := s.entities.Post(ctx, id, func(ctx context.Context) (*models.Post, error) {
		post, err := s.postRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.attachAuthors(ctx, []*models.Post{post}); err != nil {
			return nil, err
		}
		return post, nil
	})
	if err != nil {
		return nil, err
	}
	post.Normalize()
	return post, nil
}

// ToggleLike flips userID's membership in the post's like set.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID string) (state models.LikeState, err error) {
	postID = strings.TrimSpace(postID)
	userID = strings.TrimSpace(userID)
	ctx, span := observability.StartSpan(ctx, "PostService.ToggleLike",
		attribute.String("post.id", postID),
		attribute.String("user.id", userID),
	)
	defer func() { observability.EndSpan(span, err) }()
	if postID == "" {
		return "", models.NewValidationError("Post ID is required")
	}
	if userID == "" {
		return "", models.NewValidationError("userId is required")
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return "", err
	}

	state, err = s.postRepo.ToggleLike(ctx, postID, userID)
	if err != nil {
		return "", err
	}

	s.timeline.Invalidate(ctx)
	s.entities.InvalidatePost(ctx, postID)
	publishEvent(ctx, s.events, models.TimelineEvent{
		Type:      models.EventPostLiked,
		PostID:    postID,
		UserID:    userID,
		State:     state,
		Timestamp: s.now().UTC(),
	})
	return state, nil
}

// attachAuthors resolves author summaries in one lookup. Unresolved authors are left nil.
func (s *PostService) attachAuthors(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 || s.userRepo == nil {
		return nil
	}
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.AuthorID)
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, p := range posts {
		if u, ok := users[p.AuthorID]; ok {
			p.Author = u.Summary()
		}
	}
	return nil
}
