package models

import "time"

// Timeline event types.
const (
	EventPostCreated = "post.created"
	EventPostLiked   = "post.liked"
)

// TimelineEvent is published whenever the timeline changes.
type TimelineEvent struct {
	Type      string    `json:"type"`
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId,omitempty"`
	State     LikeState `json:"state,omitempty"`
	Post      *Post     `json:"post,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
