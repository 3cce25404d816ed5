package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"zeroai/internal/cache"
	"zeroai/internal/middleware"
	"zeroai/internal/models"
	"zeroai/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes timeline events on a Redis channel and subscribes to them.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishTimelineEvent implements Publisher. A nil client is a no-op.
func (n *Notifier) PublishTimelineEvent(ctx context.Context, event models.TimelineEvent) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.rdb.Publish(ctx, cache.TimelineEventsChannel, payload).Err(); err != nil {
		observability.EventsPublished.WithLabelValues("redis", "error").Inc()
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	observability.EventsPublished.WithLabelValues("redis", "ok").Inc()
	return nil
}

// StartTimelineSubscriber calls onMessage for each payload on the timeline channel
// until ctx is cancelled. It returns once the subscription is confirmed.
func (n *Notifier) StartTimelineSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if n.rdb == nil {
		return nil
	}

	sub := n.rdb.Subscribe(ctx, cache.TimelineEventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", cache.TimelineEventsChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in timeline subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
