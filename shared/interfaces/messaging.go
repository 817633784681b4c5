package interfaces

import (
	"context"

	"adventure-server/shared/models"
)

// PlayEventPublisher announces completed plays to other services.
type PlayEventPublisher interface {
	PublishPlayCompleted(ctx context.Context, event models.PlayCompletedEvent) error
}
