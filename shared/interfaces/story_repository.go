package interfaces

import (
	"context"

	"adventure-server/shared/models"

	"github.com/google/uuid"
)

// StoryRepository persists story rows.
//
//go:generate mockery --name StoryRepository --output ./mocks --outpkg mocks --case=underscore
type StoryRepository interface {
	// Create inserts a story and fills ID/CreatedAt/UpdatedAt.
	Create(ctx context.Context, querier DBTX, story *models.Story) error
	// GetByID returns models.ErrStoryNotFound if the story does not exist.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Story, error)
	List(ctx context.Context, querier DBTX, filter models.StoryFilter) ([]*models.Story, error)
	// Update overwrites mutable fields (title, description, status, start page, illustration, metadata).
	Update(ctx context.Context, querier DBTX, story *models.Story) error
	UpdateStatus(ctx context.Context, querier DBTX, id uuid.UUID, status models.StoryStatus) error
	// SetStartPageIfEmpty sets the start page only if the story has none. Returns true if it was set.
	SetStartPageIfEmpty(ctx context.Context, querier DBTX, storyID, pageID uuid.UUID) (bool, error)
	// ClearStartPage resets the start page if it currently points at pageID.
	ClearStartPage(ctx context.Context, querier DBTX, storyID, pageID uuid.UUID) error
	Delete(ctx context.Context, querier DBTX, id uuid.UUID) error
	CountByStatus(ctx context.Context, querier DBTX, status models.StoryStatus) (int64, error)
	GetTitles(ctx context.Context, querier DBTX, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// PageRepository persists pages. Pages returned by Get*/List* carry their outgoing choices.
//
//go:generate mockery --name PageRepository --output ./mocks --outpkg mocks --case=underscore
type PageRepository interface {
	Create(ctx context.Context, querier DBTX, page *models.Page) error
	// GetByID returns models.ErrPageNotFound if the page does not exist.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Page, error)
	ListByStory(ctx context.Context, querier DBTX, storyID uuid.UUID) ([]*models.Page, error)
	// GetByIDs returns the pages (without choices) that still exist among ids.
	GetByIDs(ctx context.Context, querier DBTX, ids []uuid.UUID) (map[uuid.UUID]*models.Page, error)
	Update(ctx context.Context, querier DBTX, page *models.Page) error
	Delete(ctx context.Context, querier DBTX, id uuid.UUID) error
	DeleteByStory(ctx context.Context, querier DBTX, storyID uuid.UUID) error
}

// ChoiceRepository persists choices.
//
//go:generate mockery --name ChoiceRepository --output ./mocks --outpkg mocks --case=underscore
type ChoiceRepository interface {
	Create(ctx context.Context, querier DBTX, choice *models.Choice) error
	// GetByID returns models.ErrChoiceNotFound if the choice does not exist.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Choice, error)
	Update(ctx context.Context, querier DBTX, choice *models.Choice) error
	Delete(ctx context.Context, querier DBTX, id uuid.UUID) error
	// DeleteTouchingPage removes every choice whose source or target is pageID.
	DeleteTouchingPage(ctx context.Context, querier DBTX, pageID uuid.UUID) (int64, error)
	DeleteByStory(ctx context.Context, querier DBTX, storyID uuid.UUID) error
}
