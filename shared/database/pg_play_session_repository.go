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

var _ interfaces.PlaySessionRepository = (*pgPlaySessionRepository)(nil)

const playSessionColumns = `id, session_key, story_id, current_page_id, user_id, pending_dice_roll, path_steps, created_at, updated_at`

const (
	getPlaySessionQuery = `
SELECT ` + playSessionColumns + `
FROM play_sessions
WHERE session_key = $1 AND story_id = $2`

	getPlaySessionForUpdateQuery = getPlaySessionQuery + `
FOR UPDATE`

	insertPlaySessionIfAbsentQuery = `
INSERT INTO play_sessions (id, session_key, story_id, current_page_id, user_id, pending_dice_roll, path_steps, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NULL, $6::jsonb, $7, $7)
ON CONFLICT (session_key, story_id) DO NOTHING`

	// Upsert never touches path_steps: the buffer is only extended through AppendStep.
	upsertPlaySessionQuery = `
INSERT INTO play_sessions (id, session_key, story_id, current_page_id, user_id, pending_dice_roll, path_steps, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NULL, '[]'::jsonb, $6, $6)
ON CONFLICT (session_key, story_id) DO UPDATE SET
    current_page_id = EXCLUDED.current_page_id,
    user_id = COALESCE(EXCLUDED.user_id, play_sessions.user_id),
    pending_dice_roll = NULL,
    updated_at = EXCLUDED.updated_at`

	appendPathStepQuery = `
UPDATE play_sessions
SET path_steps = path_steps || $3::jsonb, updated_at = $4
WHERE session_key = $1 AND story_id = $2`

	setPendingRollQuery = `
UPDATE play_sessions
SET pending_dice_roll = $3, updated_at = $4
WHERE session_key = $1 AND story_id = $2`

	deletePlaySessionQuery      = `DELETE FROM play_sessions WHERE session_key = $1 AND story_id = $2`
	deleteStalePlaySessionsQuery = `DELETE FROM play_sessions WHERE updated_at < $1`
)

type pgPlaySessionRepository struct {
	logger *zap.Logger
}

// NewPgPlaySessionRepository creates a new play session repository.
func NewPgPlaySessionRepository(logger *zap.Logger) interfaces.PlaySessionRepository {
	return &pgPlaySessionRepository{logger: logger.Named("PgPlaySessionRepo")}
}

func (r *pgPlaySessionRepository) Get(ctx context.Context, querier interfaces.DBTX, sessionKey string, storyID uuid.UUID) (*models.PlaySession, error) {
	return r.get(ctx, querier, getPlaySessionQuery, sessionKey, storyID)
}

func (r *pgPlaySessionRepository) GetForUpdate(ctx context.Context, querier interfaces.DBTX, sessionKey string, storyID uuid.UUID) (*models.PlaySession, error) {
	return r.get(ctx, querier, getPlaySessionForUpdateQuery, sessionKey, storyID)
}

func (r *pgPlaySessionRepository) get(ctx context.Context, querier interfaces.DBTX, query, sessionKey string, storyID uuid.UUID) (*models.PlaySession, error) {
	var session models.PlaySession
	if err := pgxscan.Get(ctx, querier, &session, query, sessionKey, storyID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get play session",
			zap.String("sessionKey", sessionKey), zap.Stringer("storyID", storyID), zap.Error(err))
		return nil, fmt.Errorf("failed to get play session: %w", err)
	}
	if session.Path == nil {
		session.Path = []models.PathStep{}
	}
	return &session, nil
}

func (r *pgPlaySessionRepository) InsertIfAbsent(ctx context.Context, querier interfaces.DBTX, session *models.PlaySession) (bool, error) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.Path == nil {
		session.Path = []models.PathStep{}
	}
	now := time.Now().UTC()
	session.CreatedAt, session.UpdatedAt = now, now
	logFields := []zap.Field{
		zap.String("sessionKey", session.SessionKey),
		zap.Stringer("storyID", session.StoryID),
		zap.Stringer("pageID", session.CurrentPageID),
	}

	tag, err := querier.Exec(ctx, insertPlaySessionIfAbsentQuery,
		session.ID, session.SessionKey, session.StoryID, session.CurrentPageID, session.UserID, session.Path, now,
	)
	if err != nil {
		r.logger.Error("Failed to insert play session", append(logFields, zap.Error(err))...)
		return false, fmt.Errorf("failed to insert play session: %w", err)
	}
	inserted := tag.RowsAffected() > 0
	if inserted {
		r.logger.Info("Play session created", logFields...)
	} else {
		r.logger.Debug("Play session already exists, insert skipped", logFields...)
	}
	return inserted, nil
}

func (r *pgPlaySessionRepository) Upsert(ctx context.Context, querier interfaces.DBTX, sessionKey string, storyID, pageID uuid.UUID, userID *uuid.UUID) error {
	logFields := []zap.Field{zap.String("sessionKey", sessionKey), zap.Stringer("storyID", storyID), zap.Stringer("pageID", pageID)}
	_, err := querier.Exec(ctx, upsertPlaySessionQuery, uuid.New(), sessionKey, storyID, pageID, userID, time.Now().UTC())
	if err != nil {
		r.logger.Error("Failed to upsert play session", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to upsert play session: %w", err)
	}
	r.logger.Debug("Play session advanced", logFields...)
	return nil
}

func (r *pgPlaySessionRepository) AppendStep(ctx context.Context, querier interfaces.DBTX, sessionKey string, storyID uuid.UUID, step models.PathStep) error {
	if step.At.IsZero() {
		step.At = time.Now().UTC()
	}
	tag, err := querier.Exec(ctx, appendPathStepQuery, sessionKey, storyID, []models.PathStep{step}, step.At)
	if err != nil {
		r.logger.Error("Failed to append path step",
			zap.String("sessionKey", sessionKey), zap.Stringer("storyID", storyID), zap.Error(err))
		return fmt.Errorf("failed to append path step: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgPlaySessionRepository) SetPendingRoll(ctx context.Context, querier interfaces.DBTX, sessionKey string, storyID uuid.UUID, roll *int) error {
	tag, err := querier.Exec(ctx, setPendingRollQuery, sessionKey, storyID, roll, time.Now().UTC())
	if err != nil {
		r.logger.Error("Failed to set pending dice roll",
			zap.String("sessionKey", sessionKey), zap.Stringer("storyID", storyID), zap.Error(err))
		return fmt.Errorf("failed to set pending dice roll: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgPlaySessionRepository) Delete(ctx context.Context, querier interfaces.DBTX, sessionKey string, storyID uuid.UUID) error {
	logFields := []zap.Field{zap.String("sessionKey", sessionKey), zap.Stringer("storyID", storyID)}
	tag, err := querier.Exec(ctx, deletePlaySessionQuery, sessionKey, storyID)
	if err != nil {
		r.logger.Error("Failed to delete play session", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to delete play session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to delete non-existent play session", logFields...)
	} else {
		r.logger.Info("Play session deleted", logFields...)
	}
	return nil
}

func (r *pgPlaySessionRepository) DeleteStale(ctx context.Context, querier interfaces.DBTX, before time.Time) (int64, error) {
	tag, err := querier.Exec(ctx, deleteStalePlaySessionsQuery, before)
	if err != nil {
		r.logger.Error("Failed to delete stale play sessions", zap.Time("before", before), zap.Error(err))
		return 0, fmt.Errorf("failed to delete stale play sessions: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		r.logger.Info("Stale play sessions deleted", zap.Int64("count", n), zap.Time("before", before))
	}
	return tag.RowsAffected(), nil
}
