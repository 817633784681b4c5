package mocks

import (
	"context"
	"time"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// PlaySessionRepository is a mock type for the PlaySessionRepository type
type PlaySessionRepository struct {
	mock.Mock
}

func (_m *PlaySessionRepository) Get(ctx context.Context, querier interfaces.DBTX, sessionKey string, storyID uuid.UUID) (*models.PlaySession, error) {
	ret := _m.Called(ctx, querier, sessionKey, storyID)
	var r0 *models.PlaySession
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.PlaySession)
	}
	return r0, ret.Error(1)
}

func (_m *PlaySessionRepository) GetForUpdate(ctx context.Context, querier interfaces.DBTX, sessionKey string, storyID uuid.UUID) (*models.PlaySession, error) {
	ret := _m.Called(ctx, querier, sessionKey, storyID)
	var r0 *models.PlaySession
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.PlaySession)
	}
	return r0, ret.Error(1)
}

func (_m *PlaySessionRepository) InsertIfAbsent(ctx context.Context, querier interfaces.DBTX, session *models.PlaySession) (bool, error) {
	ret := _m.Called(ctx, querier, session)
	return ret.Bool(0), ret.Error(1)
}

func (_m *PlaySessionRepository) Upsert(ctx context.Context, querier interfaces.DBTX, sessionKey string, storyID, pageID uuid.UUID, userID *uuid.UUID) error {
	ret := _m.Called(ctx, querier, sessionKey, storyID, pageID, userID)
	return ret.Error(0)
}

func (_m *PlaySessionRepository) AppendStep(ctx context.Context, querier interfaces.DBTX, sessionKey string, storyID uuid.UUID, step models.PathStep) error {
	ret := _m.Called(ctx, querier, sessionKey, storyID, step)
	return ret.Error(0)
}

func (_m *PlaySessionRepository) SetPendingRoll(ctx context.Context, querier interfaces.DBTX, sessionKey string, storyID uuid.UUID, roll *int) error {
	ret := _m.Called(ctx, querier, sessionKey, storyID, roll)
	return ret.Error(0)
}

func (_m *PlaySessionRepository) Delete(ctx context.Context, querier interfaces.DBTX, sessionKey string, storyID uuid.UUID) error {
	ret := _m.Called(ctx, querier, sessionKey, storyID)
	return ret.Error(0)
}

func (_m *PlaySessionRepository) DeleteStale(ctx context.Context, querier interfaces.DBTX, before time.Time) (int64, error) {
	ret := _m.Called(ctx, querier, before)
	return ret.Get(0).(int64), ret.Error(1)
}

var _ interfaces.PlaySessionRepository = (*PlaySessionRepository)(nil)

// PlayRepository is a mock type for the PlayRepository type
type PlayRepository struct {
	mock.Mock
}

func (_m *PlayRepository) Create(ctx context.Context, querier interfaces.DBTX, play *models.Play) error {
	ret := _m.Called(ctx, querier, play)
	return ret.Error(0)
}

func (_m *PlayRepository) InsertPath(ctx context.Context, querier interfaces.DBTX, steps []models.PlayerPathStep) error {
	ret := _m.Called(ctx, querier, steps)
	return ret.Error(0)
}

func (_m *PlayRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Play, error) {
	ret := _m.Called(ctx, querier, id)
	var r0 *models.Play
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Play)
	}
	return r0, ret.Error(1)
}

func (_m *PlayRepository) GetPath(ctx context.Context, querier interfaces.DBTX, playID uuid.UUID) ([]models.PlayerPathStep, error) {
	ret := _m.Called(ctx, querier, playID)
	var r0 []models.PlayerPathStep
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.PlayerPathStep)
	}
	return r0, ret.Error(1)
}

func (_m *PlayRepository) ListByUser(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID, limit, offset int) ([]*models.Play, error) {
	ret := _m.Called(ctx, querier, userID, limit, offset)
	var r0 []*models.Play
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*models.Play)
	}
	return r0, ret.Error(1)
}

func (_m *PlayRepository) CountEndings(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) ([]models.EndingCount, error) {
	ret := _m.Called(ctx, querier, storyID)
	var r0 []models.EndingCount
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.EndingCount)
	}
	return r0, ret.Error(1)
}

func (_m *PlayRepository) TopStories(ctx context.Context, querier interfaces.DBTX, limit int) ([]models.StoryPlayCount, error) {
	ret := _m.Called(ctx, querier, limit)
	var r0 []models.StoryPlayCount
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.StoryPlayCount)
	}
	return r0, ret.Error(1)
}

func (_m *PlayRepository) CountAll(ctx context.Context, querier interfaces.DBTX) (int64, error) {
	ret := _m.Called(ctx, querier)
	return ret.Get(0).(int64), ret.Error(1)
}

var _ interfaces.PlayRepository = (*PlayRepository)(nil)
