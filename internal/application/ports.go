package application

import (
	"context"
)

// EventPublisher publishes domain events. Publishing is best-effort: the
// implementation logs failures and never reports them to the caller.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, data interface{})
}
