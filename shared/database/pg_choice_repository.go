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

var _ interfaces.ChoiceRepository = (*pgChoiceRepository)(nil)

const choiceColumns = `id, page_id, text, next_page_id, dice_requirement, created_at`

const (
	createChoiceQuery = `
INSERT INTO choices (id, page_id, text, next_page_id, dice_requirement, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	getChoiceByIDQuery = `SELECT ` + choiceColumns + ` FROM choices WHERE id = $1`

	updateChoiceQuery = `
UPDATE choices SET text = $2, next_page_id = $3, dice_requirement = $4
WHERE id = $1`

	deleteChoiceQuery             = `DELETE FROM choices WHERE id = $1`
	deleteChoicesTouchingPageQuery = `DELETE FROM choices WHERE page_id = $1 OR next_page_id = $1`
	deleteChoicesByStoryQuery     = `
DELETE FROM choices c
USING pages p
WHERE p.id = c.page_id AND p.story_id = $1`
)

type pgChoiceRepository struct {
	logger *zap.Logger
}

// NewPgChoiceRepository creates a new choice repository.
func NewPgChoiceRepository(logger *zap.Logger) interfaces.ChoiceRepository {
	return &pgChoiceRepository{logger: logger.Named("PgChoiceRepo")}
}

func (r *pgChoiceRepository) Create(ctx context.Context, querier interfaces.DBTX, choice *models.Choice) error {
	if choice.ID == uuid.Nil {
		choice.ID = uuid.New()
	}
	choice.CreatedAt = time.Now().UTC()
	logFields := []zap.Field{
		zap.Stringer("choiceID", choice.ID),
		zap.Stringer("pageID", choice.PageID),
		zap.Stringer("nextPageID", choice.NextPageID),
	}

	_, err := querier.Exec(ctx, createChoiceQuery,
		choice.ID, choice.PageID, choice.Text, choice.NextPageID, choice.DiceRequirement, choice.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create choice", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to create choice: %w", err)
	}
	r.logger.Debug("Choice created", logFields...)
	return nil
}

func (r *pgChoiceRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Choice, error) {
	var choice models.Choice
	if err := pgxscan.Get(ctx, querier, &choice, getChoiceByIDQuery, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrChoiceNotFound
		}
		r.logger.Error("Failed to get choice", zap.Stringer("choiceID", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get choice %s: %w", id, err)
	}
	return &choice, nil
}

func (r *pgChoiceRepository) Update(ctx context.Context, querier interfaces.DBTX, choice *models.Choice) error {
	tag, err := querier.Exec(ctx, updateChoiceQuery, choice.ID, choice.Text, choice.NextPageID, choice.DiceRequirement)
	if err != nil {
		r.logger.Error("Failed to update choice", zap.Stringer("choiceID", choice.ID), zap.Error(err))
		return fmt.Errorf("failed to update choice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrChoiceNotFound
	}
	return nil
}

func (r *pgChoiceRepository) Delete(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	tag, err := querier.Exec(ctx, deleteChoiceQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete choice", zap.Stringer("choiceID", id), zap.Error(err))
		return fmt.Errorf("failed to delete choice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrChoiceNotFound
	}
	return nil
}

func (r *pgChoiceRepository) DeleteTouchingPage(ctx context.Context, querier interfaces.DBTX, pageID uuid.UUID) (int64, error) {
	tag, err := querier.Exec(ctx, deleteChoicesTouchingPageQuery, pageID)
	if err != nil {
		r.logger.Error("Failed to delete choices of page", zap.Stringer("pageID", pageID), zap.Error(err))
		return 0, fmt.Errorf("failed to delete choices touching page %s: %w", pageID, err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgChoiceRepository) DeleteByStory(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) error {
	if _, err := querier.Exec(ctx, deleteChoicesByStoryQuery, storyID); err != nil {
		r.logger.Error("Failed to delete story choices", zap.Stringer("storyID", storyID), zap.Error(err))
		return fmt.Errorf("failed to delete choices of story %s: %w", storyID, err)
	}
	return nil
}
