package mocks

import (
	"context"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// StoryRepository is a mock type for the StoryRepository type
type StoryRepository struct {
	mock.Mock
}

func (_m *StoryRepository) Create(ctx context.Context, querier interfaces.DBTX, story *models.Story) error {
	ret := _m.Called(ctx, querier, story)
	return ret.Error(0)
}

func (_m *StoryRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Story, error) {
	ret := _m.Called(ctx, querier, id)
	var r0 *models.Story
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Story)
	}
	return r0, ret.Error(1)
}

func (_m *StoryRepository) List(ctx context.Context, querier interfaces.DBTX, filter models.StoryFilter) ([]*models.Story, error) {
	ret := _m.Called(ctx, querier, filter)
	var r0 []*models.Story
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*models.Story)
	}
	return r0, ret.Error(1)
}

func (_m *StoryRepository) Update(ctx context.Context, querier interfaces.DBTX, story *models.Story) error {
	ret := _m.Called(ctx, querier, story)
	return ret.Error(0)
}

func (_m *StoryRepository) UpdateStatus(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, status models.StoryStatus) error {
	ret := _m.Called(ctx, querier, id, status)
	return ret.Error(0)
}

func (_m *StoryRepository) SetStartPageIfEmpty(ctx context.Context, querier interfaces.DBTX, storyID, pageID uuid.UUID) (bool, error) {
	ret := _m.Called(ctx, querier, storyID, pageID)
	return ret.Bool(0), ret.Error(1)
}

func (_m *StoryRepository) ClearStartPage(ctx context.Context, querier interfaces.DBTX, storyID, pageID uuid.UUID) error {
	ret := _m.Called(ctx, querier, storyID, pageID)
	return ret.Error(0)
}

func (_m *StoryRepository) Delete(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	ret := _m.Called(ctx, querier, id)
	return ret.Error(0)
}

func (_m *StoryRepository) CountByStatus(ctx context.Context, querier interfaces.DBTX, status models.StoryStatus) (int64, error) {
	ret := _m.Called(ctx, querier, status)
	return ret.Get(0).(int64), ret.Error(1)
}

func (_m *StoryRepository) GetTitles(ctx context.Context, querier interfaces.DBTX, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	ret := _m.Called(ctx, querier, ids)
	var r0 map[uuid.UUID]string
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(map[uuid.UUID]string)
	}
	return r0, ret.Error(1)
}

var _ interfaces.StoryRepository = (*StoryRepository)(nil)

// PageRepository is a mock type for the PageRepository type
type PageRepository struct {
	mock.Mock
}

func (_m *PageRepository) Create(ctx context.Context, querier interfaces.DBTX, page *models.Page) error {
	ret := _m.Called(ctx, querier, page)
	return ret.Error(0)
}

func (_m *PageRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Page, error) {
	ret := _m.Called(ctx, querier, id)
	var r0 *models.Page
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Page)
	}
	return r0, ret.Error(1)
}

func (_m *PageRepository) ListByStory(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) ([]*models.Page, error) {
	ret := _m.Called(ctx, querier, storyID)
	var r0 []*models.Page
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*models.Page)
	}
	return r0, ret.Error(1)
}

func (_m *PageRepository) GetByIDs(ctx context.Context, querier interfaces.DBTX, ids []uuid.UUID) (map[uuid.UUID]*models.Page, error) {
	ret := _m.Called(ctx, querier, ids)
	var r0 map[uuid.UUID]*models.Page
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(map[uuid.UUID]*models.Page)
	}
	return r0, ret.Error(1)
}

func (_m *PageRepository) Update(ctx context.Context, querier interfaces.DBTX, page *models.Page) error {
	ret := _m.Called(ctx, querier, page)
	return ret.Error(0)
}

func (_m *PageRepository) Delete(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	ret := _m.Called(ctx, querier, id)
	return ret.Error(0)
}

func (_m *PageRepository) DeleteByStory(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) error {
	ret := _m.Called(ctx, querier, storyID)
	return ret.Error(0)
}

var _ interfaces.PageRepository = (*PageRepository)(nil)

// ChoiceRepository is a mock type for the ChoiceRepository type
type ChoiceRepository struct {
	mock.Mock
}

func (_m *ChoiceRepository) Create(ctx context.Context, querier interfaces.DBTX, choice *models.Choice) error {
	ret := _m.Called(ctx, querier, choice)
	return ret.Error(0)
}

func (_m *ChoiceRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Choice, error) {
	ret := _m.Called(ctx, querier, id)
	var r0 *models.Choice
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Choice)
	}
	return r0, ret.Error(1)
}

func (_m *ChoiceRepository) Update(ctx context.Context, querier interfaces.DBTX, choice *models.Choice) error {
	ret := _m.Called(ctx, querier, choice)
	return ret.Error(0)
}

func (_m *ChoiceRepository) Delete(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	ret := _m.Called(ctx, querier, id)
	return ret.Error(0)
}

func (_m *ChoiceRepository) DeleteTouchingPage(ctx context.Context, querier interfaces.DBTX, pageID uuid.UUID) (int64, error) {
	ret := _m.Called(ctx, querier, pageID)
	return ret.Get(0).(int64), ret.Error(1)
}

func (_m *ChoiceRepository) DeleteByStory(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) error {
	ret := _m.Called(ctx, querier, storyID)
	return ret.Error(0)
}

var _ interfaces.ChoiceRepository = (*ChoiceRepository)(nil)
