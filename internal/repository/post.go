package repository

import (
	"context"
	"errors"
	"time"

	"zeroai/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a GORM-backed PostRepository. Like sets live in the likes table.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	post.Normalize()
	return nil
}

func (r *postRepository) ListByCreatedAtDesc(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := r.attachLikes(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewPostNotFoundError(id)
		}
		return nil, models.NewInternalError(err)
	}
	if err := r.attachLikes(ctx, []*models.Post{&post}); err != nil {
		return nil, err
	}
	return &post, nil
}

// attachLikes fills LikedBy for posts with one query.
func (r *postRepository) attachLikes(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	var likes []models.Like
	if err := r.db.WithContext(ctx).
		Where("post_id IN ?", ids).
		Order("created_at ASC").
		Order("id ASC").
		Find(&likes).Error; err != nil {
		return models.NewInternalError(err)
	}

	byPost := make(map[string][]string, len(posts))
	for _, l := range likes {
		byPost[l.PostID] = append(byPost[l.PostID], l.UserID)
	}
	for _, p := range posts {
		p.LikedBy = byPost[p.ID]
		p.Normalize()
	}
	return nil
}

func (r *postRepository) ToggleLike(ctx context.Context, postID, userID string) (models.LikeState, error) {
	var state models.LikeState

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
			return models.NewInternalError(err)
		}
		if count == 0 {
			return models.NewPostNotFoundError(postID)
		}

		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Like{})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected > 0 {
			state = models.LikeStateUnliked
			return nil
		}

		// A concurrent toggle may insert the same like first; either way the like exists.
		like := &models.Like{UserID: userID, PostID: postID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(like).Error; err != nil {
			return models.NewInternalError(err)
		}
		state = models.LikeStateLiked
		return nil
	})
	if err != nil {
		return "", err
	}
	return state, nil
}
