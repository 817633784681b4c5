package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.StoryRepository = (*pgStoryRepository)(nil)

const storyColumns = `id, title, description, status, start_page_id, author_id, illustration_url, metadata, created_at, updated_at`

const (
	createStoryQuery = `
INSERT INTO stories (id, title, description, status, start_page_id, author_id, illustration_url, metadata, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`

	getStoryByIDQuery = `SELECT ` + storyColumns + ` FROM stories WHERE id = $1`

	updateStoryQuery = `
UPDATE stories SET
    title = $2,
    description = $3,
    status = $4,
    start_page_id = $5,
    illustration_url = $6,
    metadata = $7,
    updated_at = $8
WHERE id = $1`

	updateStoryStatusQuery = `UPDATE stories SET status = $2, updated_at = NOW() WHERE id = $1`

	setStartPageIfEmptyQuery = `
UPDATE stories SET start_page_id = $2, updated_at = NOW()
WHERE id = $1 AND start_page_id IS NULL`

	clearStartPageQuery = `
UPDATE stories SET start_page_id = NULL, updated_at = NOW()
WHERE id = $1 AND start_page_id = $2`

	deleteStoryQuery        = `DELETE FROM stories WHERE id = $1`
	countStoriesByStatusQry = `SELECT COUNT(*) FROM stories WHERE status = $1`
	getStoryTitlesQuery     = `SELECT id, title FROM stories WHERE id = ANY($1)`
)

type pgStoryRepository struct {
	logger *zap.Logger
}

// NewPgStoryRepository creates a new story repository.
func NewPgStoryRepository(logger *zap.Logger) interfaces.StoryRepository {
	return &pgStoryRepository{logger: logger.Named("PgStoryRepo")}
}

func (r *pgStoryRepository) Create(ctx context.Context, querier interfaces.DBTX, story *models.Story) error {
	if story.ID == uuid.Nil {
		story.ID = uuid.New()
	}
	if story.Status == "" {
		story.Status = models.StatusDraft
	}
	if story.Metadata == nil {
		story.Metadata = map[string]any{}
	}
	now := time.Now().UTC()
	story.CreatedAt, story.UpdatedAt = now, now
	logFields := []zap.Field{zap.Stringer("storyID", story.ID), zap.String("title", story.Title)}

	_, err := querier.Exec(ctx, createStoryQuery,
		story.ID, story.Title, story.Description, story.Status, story.StartPageID,
		story.AuthorID, story.IllustrationURL, story.Metadata, now,
	)
	if err != nil {
		r.logger.Error("Failed to create story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to create story: %w", err)
	}
	r.logger.Info("Story created", logFields...)
	return nil
}

func (r *pgStoryRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Story, error) {
	var story models.Story
	if err := pgxscan.Get(ctx, querier, &story, getStoryByIDQuery, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrStoryNotFound
		}
		r.logger.Error("Failed to get story", zap.Stringer("storyID", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get story %s: %w", id, err)
	}
	return &story, nil
}

func (r *pgStoryRepository) List(ctx context.Context, querier interfaces.DBTX, filter models.StoryFilter) ([]*models.Story, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if filter.AuthorID != nil {
		args = append(args, *filter.AuthorID)
		conds = append(conds, fmt.Sprintf("author_id = $%d", len(args)))
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + storyColumns + ` FROM stories`)
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC, id")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}

	stories := make([]*models.Story, 0)
	if err := pgxscan.Select(ctx, querier, &stories, sb.String(), args...); err != nil {
		r.logger.Error("Failed to list stories", zap.Any("filter", filter), zap.Error(err))
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return stories, nil
}

func (r *pgStoryRepository) Update(ctx context.Context, querier interfaces.DBTX, story *models.Story) error {
	story.UpdatedAt = time.Now().UTC()
	if story.Metadata == nil {
		story.Metadata = map[string]any{}
	}
	logFields := []zap.Field{zap.Stringer("storyID", story.ID)}

	tag, err := querier.Exec(ctx, updateStoryQuery,
		story.ID, story.Title, story.Description, story.Status, story.StartPageID,
		story.IllustrationURL, story.Metadata, story.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to update story: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrStoryNotFound
	}
	r.logger.Debug("Story updated", logFields...)
	return nil
}

func (r *pgStoryRepository) UpdateStatus(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, status models.StoryStatus) error {
	logFields := []zap.Field{zap.Stringer("storyID", id), zap.String("status", string(status))}
	tag, err := querier.Exec(ctx, updateStoryStatusQuery, id, status)
	if err != nil {
		r.logger.Error("Failed to update story status", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to update story status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrStoryNotFound
	}
	r.logger.Info("Story status updated", logFields...)
	return nil
}

func (r *pgStoryRepository) SetStartPageIfEmpty(ctx context.Context, querier interfaces.DBTX, storyID, pageID uuid.UUID) (bool, error) {
	tag, err := querier.Exec(ctx, setStartPageIfEmptyQuery, storyID, pageID)
	if err != nil {
		r.logger.Error("Failed to set start page", zap.Stringer("storyID", storyID), zap.Stringer("pageID", pageID), zap.Error(err))
		return false, fmt.Errorf("failed to set start page: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgStoryRepository) ClearStartPage(ctx context.Context, querier interfaces.DBTX, storyID, pageID uuid.UUID) error {
	if _, err := querier.Exec(ctx, clearStartPageQuery, storyID, pageID); err != nil {
		r.logger.Error("Failed to clear start page", zap.Stringer("storyID", storyID), zap.Stringer("pageID", pageID), zap.Error(err))
		return fmt.Errorf("failed to clear start page: %w", err)
	}
	return nil
}

func (r *pgStoryRepository) Delete(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	tag, err := querier.Exec(ctx, deleteStoryQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete story", zap.Stringer("storyID", id), zap.Error(err))
		return fmt.Errorf("failed to delete story: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrStoryNotFound
	}
	r.logger.Info("Story deleted", zap.Stringer("storyID", id))
	return nil
}

func (r *pgStoryRepository) CountByStatus(ctx context.Context, querier interfaces.DBTX, status models.StoryStatus) (int64, error) {
	var count int64
	if err := querier.QueryRow(ctx, countStoriesByStatusQry, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stories: %w", err)
	}
	return count, nil
}

func (r *pgStoryRepository) GetTitles(ctx context.Context, querier interfaces.DBTX, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	titles := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}
	rows, err := querier.Query(ctx, getStoryTitlesQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query story titles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id    uuid.UUID
			title string
		)
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("failed to scan story title: %w", err)
		}
		titles[id] = title
	}
	return titles, rows.Err()
}
