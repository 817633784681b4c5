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

var _ interfaces.PlayRepository = (*pgPlayRepository)(nil)

const (
	createPlayQuery = `
INSERT INTO plays (id, story_id, ending_page_id, user_id, created_at)
VALUES ($1, $2, $3, $4, $5)`

	getPlayByIDQuery = `SELECT id, story_id, ending_page_id, user_id, created_at FROM plays WHERE id = $1`

	listPlaysByUserQuery = `
SELECT id, story_id, ending_page_id, user_id, created_at
FROM plays
WHERE user_id = $1
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3`

	getPlayPathQuery = `
SELECT id, play_id, page_id, choice_id, sequence, dice_roll, timestamp
FROM player_paths
WHERE play_id = $1
ORDER BY sequence`

	countEndingsQuery = `
SELECT ending_page_id, COUNT(*) AS count
FROM plays
WHERE story_id = $1
GROUP BY ending_page_id
ORDER BY count DESC, ending_page_id`

	topStoriesQuery = `
SELECT story_id, COUNT(*) AS plays
FROM plays
GROUP BY story_id
ORDER BY plays DESC, story_id
LIMIT $1`

	countPlaysQuery = `SELECT COUNT(*) FROM plays`
)

var playerPathColumns = []string{"id", "play_id", "page_id", "choice_id", "sequence", "dice_roll", "timestamp"}

type pgPlayRepository struct {
	logger *zap.Logger
}

// NewPgPlayRepository creates a new play repository.
func NewPgPlayRepository(logger *zap.Logger) interfaces.PlayRepository {
	return &pgPlayRepository{logger: logger.Named("PgPlayRepo")}
}

func (r *pgPlayRepository) Create(ctx context.Context, querier interfaces.DBTX, play *models.Play) error {
	if play.ID == uuid.Nil {
		play.ID = uuid.New()
	}
	if play.CreatedAt.IsZero() {
		play.CreatedAt = time.Now().UTC()
	}
	logFields := []zap.Field{zap.Stringer("playID", play.ID), zap.Stringer("storyID", play.StoryID), zap.Stringer("endingPageID", play.EndingPageID)}

	if _, err := querier.Exec(ctx, createPlayQuery, play.ID, play.StoryID, play.EndingPageID, play.UserID, play.CreatedAt); err != nil {
		r.logger.Error("Failed to create play", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to create play: %w", err)
	}
	r.logger.Info("Play created", logFields...)
	return nil
}

// InsertPath copies all steps in one round trip.
func (r *pgPlayRepository) InsertPath(ctx context.Context, querier interfaces.DBTX, steps []models.PlayerPathStep) error {
	if len(steps) == 0 {
		return nil
	}
	n, err := querier.CopyFrom(ctx, pgx.Identifier{"player_paths"}, playerPathColumns,
		pgx.CopyFromSlice(len(steps), func(i int) ([]any, error) {
			s := steps[i]
			if s.ID == uuid.Nil {
				s.ID = uuid.New()
			}
			return []any{s.ID, s.PlayID, s.PageID, s.ChoiceID, s.Sequence, s.DiceRoll, s.Timestamp}, nil
		}),
	)
	if err != nil {
		r.logger.Error("Failed to insert player path", zap.Stringer("playID", steps[0].PlayID), zap.Error(err))
		return fmt.Errorf("failed to insert player path: %w", err)
	}
	if int(n) != len(steps) {
		return fmt.Errorf("failed to insert player path: copied %d of %d rows", n, len(steps))
	}
	return nil
}

func (r *pgPlayRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Play, error) {
	var play models.Play
	if err := pgxscan.Get(ctx, querier, &play, getPlayByIDQuery, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrPlayNotFound
		}
		r.logger.Error("Failed to get play", zap.Stringer("playID", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get play %s: %w", id, err)
	}
	return &play, nil
}

func (r *pgPlayRepository) GetPath(ctx context.Context, querier interfaces.DBTX, playID uuid.UUID) ([]models.PlayerPathStep, error) {
	steps := make([]models.PlayerPathStep, 0)
	if err := pgxscan.Select(ctx, querier, &steps, getPlayPathQuery, playID); err != nil {
		r.logger.Error("Failed to get player path", zap.Stringer("playID", playID), zap.Error(err))
		return nil, fmt.Errorf("failed to get player path: %w", err)
	}
	return steps, nil
}

func (r *pgPlayRepository) ListByUser(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID, limit, offset int) ([]*models.Play, error) {
	plays := make([]*models.Play, 0)
	if err := pgxscan.Select(ctx, querier, &plays, listPlaysByUserQuery, userID, limit, offset); err != nil {
		r.logger.Error("Failed to list plays of user", zap.Stringer("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list plays: %w", err)
	}
	return plays, nil
}

func (r *pgPlayRepository) CountEndings(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) ([]models.EndingCount, error) {
	counts := make([]models.EndingCount, 0)
	if err := pgxscan.Select(ctx, querier, &counts, countEndingsQuery, storyID); err != nil {
		r.logger.Error("Failed to count endings", zap.Stringer("storyID", storyID), zap.Error(err))
		return nil, fmt.Errorf("failed to count endings: %w", err)
	}
	return counts, nil
}

func (r *pgPlayRepository) TopStories(ctx context.Context, querier interfaces.DBTX, limit int) ([]models.StoryPlayCount, error) {
	top := make([]models.StoryPlayCount, 0)
	if err := pgxscan.Select(ctx, querier, &top, topStoriesQuery, limit); err != nil {
		r.logger.Error("Failed to get top stories", zap.Int("limit", limit), zap.Error(err))
		return nil, fmt.Errorf("failed to get top stories: %w", err)
	}
	return top, nil
}

func (r *pgPlayRepository) CountAll(ctx context.Context, querier interfaces.DBTX) (int64, error) {
	var count int64
	if err := querier.QueryRow(ctx, countPlaysQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count plays: %w", err)
	}
	return count, nil
}
