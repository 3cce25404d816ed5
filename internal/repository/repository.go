// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"zeroai/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostRepository persists posts and their like sets.
type PostRepository interface {
	// Create inserts post, assigning ID and CreatedAt when unset.
	Create(ctx context.Context, post *models.Post) error
	// ListByCreatedAtDesc returns every post, newest first.
	ListByCreatedAtDesc(ctx context.Context) ([]*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// ToggleLike removes userID from the post's like set if present, adds it otherwise.
	ToggleLike(ctx context.Context, postID, userID string) (models.LikeState, error)
}

// UserRepository persists user accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByEmail returns (nil, nil) when no user has the email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByIDs returns the users that resolve, keyed by id.
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
