package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is an image accepted by the verification pipeline.
// A post never exists with AIScore > HumanScore.
type Post struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AuthorID   string    `gorm:"type:varchar(36);not null;index" json:"authorId"`
	Caption    string    `gorm:"type:text" json:"caption"`
	MediaURL   string    `gorm:"not null" json:"mediaUrl"`
	AIScore    float64   `gorm:"not null" json:"aiScore"`
	HumanScore float64   `gorm:"not null" json:"humanScore"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`

	// LikedBy is loaded from the likes table (SQL) or stored inline (Mongo).
	LikedBy []string `gorm:"-" json:"likedBy"`
	// Author is attached on reads when the author resolves.
	Author *AuthorSummary `gorm:"-" json:"author,omitempty"`
}

// BeforeCreate assigns a UUID when the caller did not set one.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Normalize guarantees LikedBy serializes as a list.
func (p *Post) Normalize() {
	if p.LikedBy == nil {
		p.LikedBy = []string{}
	}
}

// HasLike reports whether userID is in the like set.
func (p *Post) HasLike(userID string) bool {
	for _, id := range p.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// AuthorSummary is the public projection of a post's author.
type AuthorSummary struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// LikeState is the membership state after a toggle.
type LikeState string

const (
	LikeStateLiked   LikeState = "liked"
	LikeStateUnliked LikeState = "unliked"
)
