package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ interfaces.PageRepository = (*pgPageRepository)(nil)

const pageColumns = `id, story_id, text, is_ending, ending_label, illustration_url, created_at`

const (
	createPageQuery = `
INSERT INTO pages (id, story_id, text, is_ending, ending_label, illustration_url, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getPageByIDQuery    = `SELECT ` + pageColumns + ` FROM pages WHERE id = $1`
	listPagesByStoryQry = `SELECT ` + pageColumns + ` FROM pages WHERE story_id = $1 ORDER BY created_at, id`
	getPagesByIDsQuery  = `SELECT ` + pageColumns + ` FROM pages WHERE id = ANY($1)`

	updatePageQuery = `
UPDATE pages SET text = $2, is_ending = $3, ending_label = $4, illustration_url = $5
WHERE id = $1`

	deletePageQuery        = `DELETE FROM pages WHERE id = $1`
	deletePagesByStoryQuery = `DELETE FROM pages WHERE story_id = $1`

	listChoicesByPageQuery = `SELECT ` + choiceColumns + ` FROM choices WHERE page_id = $1 ORDER BY created_at, id`
	listChoicesByStoryQry  = `
SELECT c.id, c.page_id, c.text, c.next_page_id, c.dice_requirement, c.created_at
FROM choices c
JOIN pages p ON p.id = c.page_id
WHERE p.story_id = $1
ORDER BY c.created_at, c.id`
)

type pgPageRepository struct {
	logger *zap.Logger
}

// NewPgPageRepository creates a new page repository.
func NewPgPageRepository(logger *zap.Logger) interfaces.PageRepository {
	return &pgPageRepository{logger: logger.Named("PgPageRepo")}
}

func (r *pgPageRepository) Create(ctx context.Context, querier interfaces.DBTX, page *models.Page) error {
	if page.ID == uuid.Nil {
		page.ID = uuid.New()
	}
	page.CreatedAt = time.Now().UTC()
	logFields := []zap.Field{zap.Stringer("pageID", page.ID), zap.Stringer("storyID", page.StoryID)}

	_, err := querier.Exec(ctx, createPageQuery,
		page.ID, page.StoryID, page.Text, page.IsEnding, page.EndingLabel, page.IllustrationURL, page.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create page", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to create page: %w", err)
	}
	if page.Choices == nil {
		page.Choices = []*models.Choice{}
	}
	r.logger.Debug("Page created", logFields...)
	return nil
}

// GetByID loads the page together with its outgoing choices.
func (r *pgPageRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Page, error) {
	var page models.Page
	if err := pgxscan.Get(ctx, querier, &page, getPageByIDQuery, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrPageNotFound
		}
		r.logger.Error("Failed to get page", zap.Stringer("pageID", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get page %s: %w", id, err)
	}

	page.Choices = make([]*models.Choice, 0)
	if err := pgxscan.Select(ctx, querier, &page.Choices, listChoicesByPageQuery, id); err != nil {
		r.logger.Error("Failed to load page choices", zap.Stringer("pageID", id), zap.Error(err))
		return nil, fmt.Errorf("failed to load choices of page %s: %w", id, err)
	}
	return &page, nil
}

// ListByStory returns all pages of a story with their choices attached.
func (r *pgPageRepository) ListByStory(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) ([]*models.Page, error) {
	logFields := []zap.Field{zap.Stringer("storyID", storyID)}

	pages := make([]*models.Page, 0)
	if err := pgxscan.Select(ctx, querier, &pages, listPagesByStoryQry, storyID); err != nil {
		r.logger.Error("Failed to list pages", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	var choices []*models.Choice
	if err := pgxscan.Select(ctx, querier, &choices, listChoicesByStoryQry, storyID); err != nil {
		r.logger.Error("Failed to list choices", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to list choices: %w", err)
	}

	byID := make(map[uuid.UUID]*models.Page, len(pages))
	for _, p := range pages {
		p.Choices = make([]*models.Choice, 0)
		byID[p.ID] = p
	}
	for _, c := range choices {
		if p, ok := byID[c.PageID]; ok {
			p.Choices = append(p.Choices, c)
		}
	}
	return pages, nil
}

func (r *pgPageRepository) GetByIDs(ctx context.Context, querier interfaces.DBTX, ids []uuid.UUID) (map[uuid.UUID]*models.Page, error) {
	result := make(map[uuid.UUID]*models.Page, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var pages []*models.Page
	if err := pgxscan.Select(ctx, querier, &pages, getPagesByIDsQuery, ids); err != nil {
		r.logger.Error("Failed to get pages by ids", zap.Int("count", len(ids)), zap.Error(err))
		return nil, fmt.Errorf("failed to get pages by ids: %w", err)
	}
	for _, p := range pages {
		result[p.ID] = p
	}
	return result, nil
}

func (r *pgPageRepository) Update(ctx context.Context, querier interfaces.DBTX, page *models.Page) error {
	tag, err := querier.Exec(ctx, updatePageQuery, page.ID, page.Text, page.IsEnding, page.EndingLabel, page.IllustrationURL)
	if err != nil {
		r.logger.Error("Failed to update page", zap.Stringer("pageID", page.ID), zap.Error(err))
		return fmt.Errorf("failed to update page: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrPageNotFound
	}
	return nil
}

func (r *pgPageRepository) Delete(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	tag, err := querier.Exec(ctx, deletePageQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete page", zap.Stringer("pageID", id), zap.Error(err))
		return fmt.Errorf("failed to delete page: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrPageNotFound
	}
	r.logger.Info("Page deleted", zap.Stringer("pageID", id))
	return nil
}

func (r *pgPageRepository) DeleteByStory(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) error {
	tag, err := querier.Exec(ctx, deletePagesByStoryQuery, storyID)
	if err != nil {
		r.logger.Error("Failed to delete story pages", zap.Stringer("storyID", storyID), zap.Error(err))
		return fmt.Errorf("failed to delete pages of story %s: %w", storyID, err)
	}
	r.logger.Debug("Story pages deleted", zap.Stringer("storyID", storyID), zap.Int64("count", tag.RowsAffected()))
	return nil
}
