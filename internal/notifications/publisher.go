// Package notifications fans timeline events out to Redis, RabbitMQ and WebSocket clients.
package notifications

import (
	"context"
	"errors"

	"zeroai/internal/models"
)

// Publisher delivers timeline events to a sink.
type Publisher interface {
	PublishTimelineEvent(ctx context.Context, event models.TimelineEvent) error
}

// MultiPublisher publishes to every sink and joins their errors.
type MultiPublisher []Publisher

// PublishTimelineEvent implements Publisher.
func (m MultiPublisher) PublishTimelineEvent(ctx context.Context, event models.TimelineEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.PublishTimelineEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
