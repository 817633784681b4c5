package service

import (
	"context"
	"errors"
	"fmt"

	"adventure-server/pkg/storygraph"
	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StoryService is the story graph store: CRUD over stories, pages and choices
// with reference checks on every write.
type StoryService interface {
	CreateStory(ctx context.Context, authorID *uuid.UUID, in CreateStoryInput) (*models.Story, error)
	GetStory(ctx context.Context, id uuid.UUID, withGraph bool) (*models.Story, error)
	ListStories(ctx context.Context, filter models.StoryFilter) ([]*models.Story, error)
	UpdateStory(ctx context.Context, id uuid.UUID, in UpdateStoryInput) (*models.Story, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.StoryStatus) error
	DeleteStory(ctx context.Context, id uuid.UUID) error
	GetStartPage(ctx context.Context, storyID uuid.UUID) (*models.Page, error)

	CreatePage(ctx context.Context, storyID uuid.UUID, in CreatePageInput) (*models.Page, error)
	GetPage(ctx context.Context, id uuid.UUID) (*models.Page, error)
	UpdatePage(ctx context.Context, id uuid.UUID, in UpdatePageInput) (*models.Page, error)
	DeletePage(ctx context.Context, id uuid.UUID) error

	CreateChoice(ctx context.Context, pageID uuid.UUID, in CreateChoiceInput) (*models.Choice, error)
	GetChoice(ctx context.Context, id uuid.UUID) (*models.Choice, error)
	UpdateChoice(ctx context.Context, id uuid.UUID, in UpdateChoiceInput) (*models.Choice, error)
	DeleteChoice(ctx context.Context, id uuid.UUID) error

	GetStoryTree(ctx context.Context, storyID uuid.UUID) (*models.StoryTree, error)
	InspectStory(ctx context.Context, storyID uuid.UUID) (*storygraph.Report, error)
}

type storyServiceImpl struct {
	db      interfaces.DBTX
	tx      interfaces.Transactor
	stories interfaces.StoryRepository
	pages   interfaces.PageRepository
	choices interfaces.ChoiceRepository
	cache   interfaces.EndingStatsCache
	logger  *zap.Logger
}

// NewStoryService creates the story graph store service.
func NewStoryService(
	db interfaces.DBTX,
	tx interfaces.Transactor,
	stories interfaces.StoryRepository,
	pages interfaces.PageRepository,
	choices interfaces.ChoiceRepository,
	cache interfaces.EndingStatsCache,
	logger *zap.Logger,
) StoryService {
	return &storyServiceImpl{
		db:      db,
		tx:      tx,
		stories: stories,
		pages:   pages,
		choices: choices,
		cache:   cache,
		logger:  logger.Named("StoryService"),
	}
}

func (s *storyServiceImpl) CreateStory(ctx context.Context, authorID *uuid.UUID, in CreateStoryInput) (*models.Story, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	story := &models.Story{
		Title:           in.Title,
		Description:     in.Description,
		Status:          in.Status,
		AuthorID:        authorID,
		IllustrationURL: in.IllustrationURL,
		Metadata:        in.Metadata,
	}
	if story.Status == "" {
		story.Status = models.StatusDraft
	}
	if err := s.stories.Create(ctx, s.db, story); err != nil {
		return nil, err
	}
	return story, nil
}

func (s *storyServiceImpl) GetStory(ctx context.Context, id uuid.UUID, withGraph bool) (*models.Story, error) {
	story, err := s.stories.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if withGraph {
		if story.Pages, err = s.pages.ListByStory(ctx, s.db, id); err != nil {
			return nil, err
		}
	}
	return story, nil
}

func (s *storyServiceImpl) ListStories(ctx context.Context, filter models.StoryFilter) ([]*models.Story, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidInput, filter.Status)
	}
	return s.stories.List(ctx, s.db, filter)
}

func (s *storyServiceImpl) UpdateStory(ctx context.Context, id uuid.UUID, in UpdateStoryInput) (*models.Story, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	var story *models.Story
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		var err error
		if story, err = s.stories.GetByID(ctx, tx, id); err != nil {
			return err
		}
		if in.Title != nil {
			story.Title = *in.Title
		}
		if in.Description != nil {
			story.Description = *in.Description
		}
		if in.Status != nil {
			story.Status = *in.Status
		}
		if in.IllustrationURL != nil {
			story.IllustrationURL = in.IllustrationURL
		}
		if in.Metadata != nil {
			story.Metadata = in.Metadata
		}
		if in.StartPageID != nil {
			page, err := s.pages.GetByID(ctx, tx, *in.StartPageID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					return models.ErrInvalidReference
				}
				return err
			}
			if err := storygraph.ValidateStartPage(story, page); err != nil {
				return err
			}
			story.StartPageID = &page.ID
		}
		return s.stories.Update(ctx, tx, story)
	})
	if err != nil {
		return nil, err
	}
	return story, nil
}

func (s *storyServiceImpl) SetStatus(ctx context.Context, id uuid.UUID, status models.StoryStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", models.ErrInvalidInput, status)
	}
	return s.stories.UpdateStatus(ctx, s.db, id, status)
}

// DeleteStory removes the story with all its pages and choices.
func (s *storyServiceImpl) DeleteStory(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		if _, err := s.stories.GetByID(ctx, tx, id); err != nil {
			return err
		}
		if err := s.choices.DeleteByStory(ctx, tx, id); err != nil {
			return err
		}
		if err := s.pages.DeleteByStory(ctx, tx, id); err != nil {
			return err
		}
		return s.stories.Delete(ctx, tx, id)
	})
}

func (s *storyServiceImpl) GetStartPage(ctx context.Context, storyID uuid.UUID) (*models.Page, error) {
	story, err := s.stories.GetByID(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}
	if story.StartPageID == nil {
		return nil, models.ErrNoStartPage
	}
	return s.pages.GetByID(ctx, s.db, *story.StartPageID)
}

// CreatePage adds a page; the first page of a story becomes its start page.
func (s *storyServiceImpl) CreatePage(ctx context.Context, storyID uuid.UUID, in CreatePageInput) (*models.Page, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	page := &models.Page{
		StoryID:         storyID,
		Text:            in.Text,
		IsEnding:        in.IsEnding,
		EndingLabel:     in.EndingLabel,
		IllustrationURL: in.IllustrationURL,
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		if _, err := s.stories.GetByID(ctx, tx, storyID); err != nil {
			return err
		}
		if err := s.pages.Create(ctx, tx, page); err != nil {
			return err
		}
		isStart, err := s.stories.SetStartPageIfEmpty(ctx, tx, storyID, page.ID)
		if err != nil {
			return err
		}
		if isStart {
			s.logger.Info("Page became the start page", zap.Stringer("storyID", storyID), zap.Stringer("pageID", page.ID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *storyServiceImpl) GetPage(ctx context.Context, id uuid.UUID) (*models.Page, error) {
	return s.pages.GetByID(ctx, s.db, id)
}

func (s *storyServiceImpl) UpdatePage(ctx context.Context, id uuid.UUID, in UpdatePageInput) (*models.Page, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	page, err := s.pages.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	wasEnding := page.IsEnding
	if in.Text != nil {
		page.Text = *in.Text
	}
	if in.IsEnding != nil {
		page.IsEnding = *in.IsEnding
	}
	if in.EndingLabel != nil {
		page.EndingLabel = in.EndingLabel
	}
	if in.IllustrationURL != nil {
		page.IllustrationURL = in.IllustrationURL
	}
	if err := s.pages.Update(ctx, s.db, page); err != nil {
		return nil, err
	}
	if wasEnding || page.IsEnding {
		s.invalidateEndingStats(ctx, page.StoryID)
	}
	return page, nil
}

// DeletePage removes the page and every choice leading from or to it.
func (s *storyServiceImpl) DeletePage(ctx context.Context, id uuid.UUID) error {
	var deleted *models.Page
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		page, err := s.pages.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		deleted = page
		removed, err := s.choices.DeleteTouchingPage(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.stories.ClearStartPage(ctx, tx, page.StoryID, id); err != nil {
			return err
		}
		if err := s.pages.Delete(ctx, tx, id); err != nil {
			return err
		}
		s.logger.Info("Page deleted with its choices",
			zap.Stringer("pageID", id), zap.Stringer("storyID", page.StoryID), zap.Int64("choicesRemoved", removed))
		return nil
	})
	if err != nil {
		return err
	}
	if deleted != nil && deleted.IsEnding {
		s.invalidateEndingStats(ctx, deleted.StoryID)
	}
	return nil
}

func (s *storyServiceImpl) CreateChoice(ctx context.Context, pageID uuid.UUID, in CreateChoiceInput) (*models.Choice, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := storygraph.ValidateDiceRequirement(in.DiceRequirement); err != nil {
		return nil, err
	}
	source, err := s.pages.GetByID(ctx, s.db, pageID)
	if err != nil {
		return nil, err
	}
	if err := s.checkTarget(ctx, source, in.NextPageID); err != nil {
		return nil, err
	}

	choice := &models.Choice{
		PageID:          pageID,
		Text:            in.Text,
		NextPageID:      in.NextPageID,
		DiceRequirement: in.DiceRequirement,
	}
	if err := s.choices.Create(ctx, s.db, choice); err != nil {
		return nil, err
	}
	return choice, nil
}

func (s *storyServiceImpl) GetChoice(ctx context.Context, id uuid.UUID) (*models.Choice, error) {
	return s.choices.GetByID(ctx, s.db, id)
}

func (s *storyServiceImpl) UpdateChoice(ctx context.Context, id uuid.UUID, in UpdateChoiceInput) (*models.Choice, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	choice, err := s.choices.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if in.Text != nil {
		choice.Text = *in.Text
	}
	if in.NextPageID != nil && *in.NextPageID != choice.NextPageID {
		source, err := s.pages.GetByID(ctx, s.db, choice.PageID)
		if err != nil {
			return nil, err
		}
		if err := s.checkTarget(ctx, source, *in.NextPageID); err != nil {
			return nil, err
		}
		choice.NextPageID = *in.NextPageID
	}
	switch {
	case in.ClearDiceRequirement:
		choice.DiceRequirement = nil
	case in.DiceRequirement != nil:
		if err := storygraph.ValidateDiceRequirement(in.DiceRequirement); err != nil {
			return nil, err
		}
		choice.DiceRequirement = in.DiceRequirement
	}
	if err := s.choices.Update(ctx, s.db, choice); err != nil {
		return nil, err
	}
	return choice, nil
}

func (s *storyServiceImpl) DeleteChoice(ctx context.Context, id uuid.UUID) error {
	return s.choices.Delete(ctx, s.db, id)
}

func (s *storyServiceImpl) GetStoryTree(ctx context.Context, storyID uuid.UUID) (*models.StoryTree, error) {
	story, err := s.GetStory(ctx, storyID, true)
	if err != nil {
		return nil, err
	}
	return storygraph.BuildTree(story, story.Pages), nil
}

func (s *storyServiceImpl) InspectStory(ctx context.Context, storyID uuid.UUID) (*storygraph.Report, error) {
	story, err := s.GetStory(ctx, storyID, true)
	if err != nil {
		return nil, err
	}
	rep := storygraph.Inspect(story, story.Pages)
	return &rep, nil
}

// invalidateEndingStats drops cached ending stats; labels and the ending set may have changed.
// Ошибка кэша не роняет запись: кэш истечёт по TTL.
func (s *storyServiceImpl) invalidateEndingStats(ctx context.Context, storyID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, storyID); err != nil {
		s.logger.Warn("Failed to invalidate ending stats cache", zap.Stringer("storyID", storyID), zap.Error(err))
	}
}

// checkTarget loads the target page and verifies it belongs to source's story.
func (s *storyServiceImpl) checkTarget(ctx context.Context, source *models.Page, targetID uuid.UUID) error {
	target, err := s.pages.GetByID(ctx, s.db, targetID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidReference
		}
		return err
	}
	if err := storygraph.ValidateChoiceTarget(source, targetID, []*models.Page{target}); err != nil {
		s.logger.Warn("Rejected cross-story choice",
			zap.Stringer("sourcePageID", source.ID), zap.Stringer("targetPageID", targetID))
		return err
	}
	return nil
}
