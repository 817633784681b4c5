package service

import (
	"context"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PathRecorder buffers the steps of an unfinished traversal and turns them
// into an immutable Play once an ending is reached.
type PathRecorder interface {
	AppendStep(ctx context.Context, q interfaces.DBTX, identity models.Identity, storyID uuid.UUID, step models.PathStep) error
	// Commit must run inside a transaction. The session has to still stand on fromPageID,
	// otherwise ErrSessionMoved. finalStep is appended after the buffered steps; nil means
	// the buffer already ends on endingPageID.
	Commit(ctx context.Context, tx interfaces.DBTX, identity models.Identity, storyID, fromPageID, endingPageID uuid.UUID, finalStep *models.PathStep) (*models.Play, int, error)
}

type pathRecorderImpl struct {
	sessions   interfaces.PlaySessionRepository
	plays      interfaces.PlayRepository
	sessionMgr SessionManager
	logger     *zap.Logger
}

func NewPathRecorder(
	sessions interfaces.PlaySessionRepository,
	plays interfaces.PlayRepository,
	sessionMgr SessionManager,
	logger *zap.Logger,
) PathRecorder {
	return &pathRecorderImpl{
		sessions:   sessions,
		plays:      plays,
		sessionMgr: sessionMgr,
		logger:     logger.Named("PathRecorder"),
	}
}

func (r *pathRecorderImpl) AppendStep(ctx context.Context, q interfaces.DBTX, identity models.Identity, storyID uuid.UUID, step models.PathStep) error {
	if err := identity.Validate(); err != nil {
		return err
	}
	return r.sessions.AppendStep(ctx, q, identity.Key(), storyID, step)
}

func (r *pathRecorderImpl) Commit(
	ctx context.Context,
	tx interfaces.DBTX,
	identity models.Identity,
	storyID, fromPageID, endingPageID uuid.UUID,
	finalStep *models.PathStep,
) (*models.Play, int, error) {
	if err := identity.Validate(); err != nil {
		return nil, 0, err
	}
	logFields := []zap.Field{
		zap.String("sessionKey", identity.Key()),
		zap.Stringer("storyID", storyID),
		zap.Stringer("endingPageID", endingPageID),
	}

	session, err := r.sessionMgr.LockAt(ctx, tx, identity, storyID, fromPageID)
	if err != nil {
		return nil, 0, err
	}

	steps := make([]models.PathStep, 0, len(session.Path)+1)
	steps = append(steps, session.Path...)
	if finalStep != nil {
		steps = append(steps, *finalStep)
	}

	play := &models.Play{
		StoryID:      storyID,
		EndingPageID: endingPageID,
		UserID:       identity.UserID,
	}
	if err := r.plays.Create(ctx, tx, play); err != nil {
		return nil, 0, err
	}

	rows := make([]models.PlayerPathStep, len(steps))
	for i, s := range steps {
		rows[i] = models.PlayerPathStep{
			PlayID:    play.ID,
			PageID:    s.PageID,
			ChoiceID:  s.ChoiceID,
			Sequence:  i + 1,
			DiceRoll:  s.DiceRoll,
			Timestamp: s.At,
		}
	}
	if err := r.plays.InsertPath(ctx, tx, rows); err != nil {
		return nil, 0, err
	}

	if err := r.sessionMgr.Clear(ctx, tx, identity, storyID); err != nil {
		return nil, 0, err
	}

	r.logger.Info("Play committed", append(logFields, zap.Stringer("playID", play.ID), zap.Int("steps", len(rows)))...)
	return play, len(rows), nil
}
