package cache

import (
	"fmt"
	"time"
)

const (
	TimelineKey   = "timeline:all"
	PostKeyPrefix = "post:%s"
	UserKeyPrefix = "user:%s"

	// TimelineEventsChannel carries post.created and post.liked events.
	TimelineEventsChannel = "timeline:events"
)

const (
	PostTTL = 5 * time.Minute
	UserTTL = 5 * time.Minute
)

func PostKey(postID string) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func UserKey(userID string) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}
