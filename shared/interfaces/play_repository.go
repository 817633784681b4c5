package interfaces

import (
	"context"
	"time"

	"adventure-server/shared/models"

	"github.com/google/uuid"
)

// PlaySessionRepository stores resumable positions, one row per (session key, story).
//
//go:generate mockery --name PlaySessionRepository --output ./mocks --outpkg mocks --case=underscore
type PlaySessionRepository interface {
	// Get returns models.ErrNotFound if there is no session.
	Get(ctx context.Context, querier DBTX, sessionKey string, storyID uuid.UUID) (*models.PlaySession, error)
	// GetForUpdate is Get with a row lock; it must run inside a transaction.
	GetForUpdate(ctx context.Context, querier DBTX, sessionKey string, storyID uuid.UUID) (*models.PlaySession, error)
	// InsertIfAbsent creates the session unless a row for the same key and story exists.
	// Returns false when a concurrent insert won.
	InsertIfAbsent(ctx context.Context, querier DBTX, session *models.PlaySession) (bool, error)
	// Upsert moves the session to pageID, creating it if needed, and clears the pending roll.
	Upsert(ctx context.Context, querier DBTX, sessionKey string, storyID, pageID uuid.UUID, userID *uuid.UUID) error
	AppendStep(ctx context.Context, querier DBTX, sessionKey string, storyID uuid.UUID, step models.PathStep) error
	SetPendingRoll(ctx context.Context, querier DBTX, sessionKey string, storyID uuid.UUID, roll *int) error
	Delete(ctx context.Context, querier DBTX, sessionKey string, storyID uuid.UUID) error
	// DeleteStale removes sessions not updated since before. Returns the number removed.
	DeleteStale(ctx context.Context, querier DBTX, before time.Time) (int64, error)
}

// PlayRepository stores completed plays and their paths.
//
//go:generate mockery --name PlayRepository --output ./mocks --outpkg mocks --case=underscore
type PlayRepository interface {
	Create(ctx context.Context, querier DBTX, play *models.Play) error
	// InsertPath bulk-inserts committed path rows.
	InsertPath(ctx context.Context, querier DBTX, steps []models.PlayerPathStep) error
	// GetByID returns models.ErrPlayNotFound if the play does not exist.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Play, error)
	GetPath(ctx context.Context, querier DBTX, playID uuid.UUID) ([]models.PlayerPathStep, error)
	ListByUser(ctx context.Context, querier DBTX, userID uuid.UUID, limit, offset int) ([]*models.Play, error)
	CountEndings(ctx context.Context, querier DBTX, storyID uuid.UUID) ([]models.EndingCount, error)
	TopStories(ctx context.Context, querier DBTX, limit int) ([]models.StoryPlayCount, error)
	CountAll(ctx context.Context, querier DBTX) (int64, error)
}
