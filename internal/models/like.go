package models

import "time"

// Like records one user's membership in a post's like set.
// The combination of UserID and PostID must be unique.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_post" json:"userId"`
	PostID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_post;index" json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}
