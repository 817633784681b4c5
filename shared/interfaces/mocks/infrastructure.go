package mocks

import (
	"context"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Transactor runs fn directly with a nil transaction; repositories are mocked anyway.
type Transactor struct {
	mock.Mock
}

func (_m *Transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.DBTX) error) error {
	ret := _m.Called(ctx)
	if err := ret.Error(0); err != nil {
		return err
	}
	return fn(ctx, nil)
}

var _ interfaces.Transactor = (*Transactor)(nil)

// EndingStatsCache is a mock type for the EndingStatsCache type
type EndingStatsCache struct {
	mock.Mock
}

func (_m *EndingStatsCache) Get(ctx context.Context, storyID uuid.UUID) ([]models.EndingStat, bool, error) {
	ret := _m.Called(ctx, storyID)
	var r0 []models.EndingStat
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.EndingStat)
	}
	return r0, ret.Bool(1), ret.Error(2)
}

func (_m *EndingStatsCache) Set(ctx context.Context, storyID uuid.UUID, stats []models.EndingStat) error {
	ret := _m.Called(ctx, storyID, stats)
	return ret.Error(0)
}

func (_m *EndingStatsCache) Invalidate(ctx context.Context, storyID uuid.UUID) error {
	ret := _m.Called(ctx, storyID)
	return ret.Error(0)
}

var _ interfaces.EndingStatsCache = (*EndingStatsCache)(nil)

// PlayEventPublisher is a mock type for the PlayEventPublisher type
type PlayEventPublisher struct {
	mock.Mock
}

func (_m *PlayEventPublisher) PublishPlayCompleted(ctx context.Context, event models.PlayCompletedEvent) error {
	ret := _m.Called(ctx, event)
	return ret.Error(0)
}

var _ interfaces.PlayEventPublisher = (*PlayEventPublisher)(nil)
