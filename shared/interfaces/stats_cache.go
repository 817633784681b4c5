package interfaces

import (
	"context"

	"adventure-server/shared/models"

	"github.com/google/uuid"
)

// EndingStatsCache caches computed ending distributions per story.
type EndingStatsCache interface {
	// Get returns (nil, false, nil) on a cache miss.
	Get(ctx context.Context, storyID uuid.UUID) ([]models.EndingStat, bool, error)
	Set(ctx context.Context, storyID uuid.UUID, stats []models.EndingStat) error
	Invalidate(ctx context.Context, storyID uuid.UUID) error
}
