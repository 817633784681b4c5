package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionManager owns the resumable position of an identity inside a story.
type SessionManager interface {
	// GetOrCreate returns the existing session or creates one at the story's start page.
	// created is true only for the caller whose insert won.
	GetOrCreate(ctx context.Context, identity models.Identity, storyID uuid.UUID) (session *models.PlaySession, created bool, err error)
	Get(ctx context.Context, identity models.Identity, storyID uuid.UUID) (*models.PlaySession, error)
	// Advance moves the session from fromPageID to toPageID. It must run inside a transaction:
	// the row is locked first, and ErrSessionMoved is returned when it is gone or no longer on fromPageID.
	Advance(ctx context.Context, tx interfaces.DBTX, identity models.Identity, storyID, fromPageID, toPageID uuid.UUID) error
	// LockAt locks the session row inside tx and checks it still points at pageID.
	LockAt(ctx context.Context, tx interfaces.DBTX, identity models.Identity, storyID, pageID uuid.UUID) (*models.PlaySession, error)
	Clear(ctx context.Context, q interfaces.DBTX, identity models.Identity, storyID uuid.UUID) error
	SetPendingRoll(ctx context.Context, identity models.Identity, storyID uuid.UUID, roll int) error
	ClearPendingRoll(ctx context.Context, q interfaces.DBTX, identity models.Identity, storyID uuid.UUID) error
	// SweepStale deletes sessions untouched for olderThan.
	SweepStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type sessionManagerImpl struct {
	db       interfaces.DBTX
	sessions interfaces.PlaySessionRepository
	stories  interfaces.StoryRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewSessionManager(
	db interfaces.DBTX,
	sessions interfaces.PlaySessionRepository,
	stories interfaces.StoryRepository,
	logger *zap.Logger,
) SessionManager {
	return &sessionManagerImpl{
		db:       db,
		sessions: sessions,
		stories:  stories,
		logger:   logger.Named("SessionManager"),
		now:      time.Now,
	}
}

func (m *sessionManagerImpl) GetOrCreate(ctx context.Context, identity models.Identity, storyID uuid.UUID) (*models.PlaySession, bool, error) {
	if err := identity.Validate(); err != nil {
		return nil, false, err
	}
	key := identity.Key()

	session, err := m.sessions.Get(ctx, m.db, key, storyID)
	if err == nil {
		return session, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, err
	}

	story, err := m.stories.GetByID(ctx, m.db, storyID)
	if err != nil {
		return nil, false, err
	}
	if story.StartPageID == nil {
		return nil, false, models.ErrNoStartPage
	}

	now := m.now().UTC()
	fresh := &models.PlaySession{
		SessionKey:    key,
		StoryID:       storyID,
		CurrentPageID: *story.StartPageID,
		UserID:        identity.UserID,
		Path:          []models.PathStep{{PageID: *story.StartPageID, At: now}},
	}
	created, err := m.sessions.InsertIfAbsent(ctx, m.db, fresh)
	if err != nil {
		return nil, false, err
	}

	// Перечитываем: при гонке строку мог вставить другой запрос.
	session, err = m.sessions.Get(ctx, m.db, key, storyID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-read play session: %w", err)
	}
	if created {
		sessionsStarted.Inc()
		m.logger.Debug("Play session created",
			zap.String("sessionKey", key), zap.Stringer("storyID", storyID))
	}
	return session, created, nil
}

func (m *sessionManagerImpl) Get(ctx context.Context, identity models.Identity, storyID uuid.UUID) (*models.PlaySession, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	return m.sessions.Get(ctx, m.db, identity.Key(), storyID)
}

func (m *sessionManagerImpl) Advance(ctx context.Context, tx interfaces.DBTX, identity models.Identity, storyID, fromPageID, toPageID uuid.UUID) error {
	if _, err := m.LockAt(ctx, tx, identity, storyID, fromPageID); err != nil {
		return err
	}
	return m.sessions.Upsert(ctx, tx, identity.Key(), storyID, toPageID, identity.UserID)
}

func (m *sessionManagerImpl) LockAt(ctx context.Context, tx interfaces.DBTX, identity models.Identity, storyID, pageID uuid.UUID) (*models.PlaySession, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	session, err := m.sessions.GetForUpdate(ctx, tx, identity.Key(), storyID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrSessionMoved
		}
		return nil, fmt.Errorf("failed to lock play session: %w", err)
	}
	if session.CurrentPageID != pageID {
		m.logger.Warn("Play session moved on by a concurrent request",
			zap.String("sessionKey", identity.Key()), zap.Stringer("storyID", storyID),
			zap.Stringer("expectedPageID", pageID), zap.Stringer("currentPageID", session.CurrentPageID))
		return nil, models.ErrSessionMoved
	}
	return session, nil
}

func (m *sessionManagerImpl) Clear(ctx context.Context, q interfaces.DBTX, identity models.Identity, storyID uuid.UUID) error {
	if err := identity.Validate(); err != nil {
		return err
	}
	return m.sessions.Delete(ctx, q, identity.Key(), storyID)
}

func (m *sessionManagerImpl) SetPendingRoll(ctx context.Context, identity models.Identity, storyID uuid.UUID, roll int) error {
	if err := identity.Validate(); err != nil {
		return err
	}
	return m.sessions.SetPendingRoll(ctx, m.db, identity.Key(), storyID, &roll)
}

func (m *sessionManagerImpl) ClearPendingRoll(ctx context.Context, q interfaces.DBTX, identity models.Identity, storyID uuid.UUID) error {
	if err := identity.Validate(); err != nil {
		return err
	}
	return m.sessions.SetPendingRoll(ctx, q, identity.Key(), storyID, nil)
}

func (m *sessionManagerImpl) SweepStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("%w: session TTL must be positive", models.ErrInvalidInput)
	}
	before := m.now().Add(-olderThan)
	removed, err := m.sessions.DeleteStale(ctx, m.db, before)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		sessionsSwept.Add(float64(removed))
		m.logger.Info("Stale play sessions removed", zap.Int64("count", removed), zap.Time("before", before))
	}
	return removed, nil
}
