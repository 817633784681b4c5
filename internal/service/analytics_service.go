package service

import (
	"context"
	"fmt"
	"math"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnalyticsService aggregates committed plays. Reads are not coordinated with writers.
type AnalyticsService interface {
	EndingStats(ctx context.Context, storyID uuid.UUID) ([]models.EndingStat, error)
	EndingShare(ctx context.Context, storyID, endingPageID uuid.UUID) (*models.EndingShare, error)
	TopStories(ctx context.Context, limit int) ([]models.StoryPlayCount, error)
	Summary(ctx context.Context, topLimit int) (*models.StatsSummary, error)
	GetPlay(ctx context.Context, playID uuid.UUID) (*models.Play, error)
	PlayerPath(ctx context.Context, playID uuid.UUID) (*models.PlayerPathView, error)
	PlaysByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Play, error)
}

type analyticsServiceImpl struct {
	db      interfaces.DBTX
	stories interfaces.StoryRepository
	pages   interfaces.PageRepository
	plays   interfaces.PlayRepository
	cache   interfaces.EndingStatsCache
	logger  *zap.Logger
}

func NewAnalyticsService(
	db interfaces.DBTX,
	stories interfaces.StoryRepository,
	pages interfaces.PageRepository,
	plays interfaces.PlayRepository,
	cache interfaces.EndingStatsCache,
	logger *zap.Logger,
) AnalyticsService {
	return &analyticsServiceImpl{
		db:      db,
		stories: stories,
		pages:   pages,
		plays:   plays,
		cache:   cache,
		logger:  logger.Named("AnalyticsService"),
	}
}

// percentage returns count/total*100 rounded to one decimal.
func percentage(count, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(count)*1000/float64(total)) / 10
}

func endingLabel(pageID uuid.UUID, page *models.Page) string {
	if page != nil && page.EndingLabel != nil && *page.EndingLabel != "" {
		return *page.EndingLabel
	}
	return fmt.Sprintf("Ending %s", pageID)
}

func (s *analyticsServiceImpl) EndingStats(ctx context.Context, storyID uuid.UUID) ([]models.EndingStat, error) {
	if _, err := s.stories.GetByID(ctx, s.db, storyID); err != nil {
		return nil, err
	}
	logFields := []zap.Field{zap.Stringer("storyID", storyID)}

	cached, hit, err := s.cache.Get(ctx, storyID)
	if err != nil {
		s.logger.Warn("Ending stats cache read failed", append(logFields, zap.Error(err))...)
	} else if hit {
		return cached, nil
	}

	counts, err := s.plays.CountEndings(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}
	var total int64
	ids := make([]uuid.UUID, 0, len(counts))
	for _, c := range counts {
		total += c.Count
		ids = append(ids, c.EndingPageID)
	}

	stats := make([]models.EndingStat, 0, len(counts))
	if total > 0 {
		pages, err := s.pages.GetByIDs(ctx, s.db, ids)
		if err != nil {
			return nil, err
		}
		for _, c := range counts {
			stats = append(stats, models.EndingStat{
				EndingPageID: c.EndingPageID,
				Label:        endingLabel(c.EndingPageID, pages[c.EndingPageID]),
				Count:        c.Count,
				Percentage:   percentage(c.Count, total),
			})
		}
	}

	if err := s.cache.Set(ctx, storyID, stats); err != nil {
		s.logger.Warn("Ending stats cache write failed", append(logFields, zap.Error(err))...)
	}
	return stats, nil
}

func (s *analyticsServiceImpl) EndingShare(ctx context.Context, storyID, endingPageID uuid.UUID) (*models.EndingShare, error) {
	counts, err := s.plays.CountEndings(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}
	share := &models.EndingShare{EndingPageID: endingPageID}
	for _, c := range counts {
		share.Total += c.Count
		if c.EndingPageID == endingPageID {
			share.Count = c.Count
		}
	}
	share.Percentage = percentage(share.Count, share.Total)
	return share, nil
}

func (s *analyticsServiceImpl) TopStories(ctx context.Context, limit int) ([]models.StoryPlayCount, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", models.ErrInvalidInput)
	}
	top, err := s.plays.TopStories(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}
	if len(top) == 0 {
		return []models.StoryPlayCount{}, nil
	}

	ids := make([]uuid.UUID, len(top))
	for i := range top {
		ids[i] = top[i].StoryID
	}
	titles, err := s.stories.GetTitles(ctx, s.db, ids)
	if err != nil {
		// Рейтинг полезен и без названий.
		s.logger.Warn("Failed to load story titles for top stories", zap.Error(err))
		return top, nil
	}
	for i := range top {
		top[i].Title = titles[top[i].StoryID]
	}
	return top, nil
}

func (s *analyticsServiceImpl) Summary(ctx context.Context, topLimit int) (*models.StatsSummary, error) {
	total, err := s.plays.CountAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	published, err := s.stories.CountByStatus(ctx, s.db, models.StatusPublished)
	if err != nil {
		return nil, err
	}
	top, err := s.TopStories(ctx, topLimit)
	if err != nil {
		return nil, err
	}
	return &models.StatsSummary{TotalPlays: total, PublishedStories: published, TopStories: top}, nil
}

func (s *analyticsServiceImpl) GetPlay(ctx context.Context, playID uuid.UUID) (*models.Play, error) {
	return s.plays.GetByID(ctx, s.db, playID)
}

// PlayerPath reconstructs a traversal. Pages deleted since the play are marked PageMissing.
func (s *analyticsServiceImpl) PlayerPath(ctx context.Context, playID uuid.UUID) (*models.PlayerPathView, error) {
	play, err := s.plays.GetByID(ctx, s.db, playID)
	if err != nil {
		return nil, err
	}
	steps, err := s.plays.GetPath(ctx, s.db, playID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(steps))
	for _, st := range steps {
		ids = append(ids, st.PageID)
	}
	pages, err := s.pages.GetByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	view := &models.PlayerPathView{Play: play, Steps: make([]models.PathStepView, 0, len(steps))}
	for _, st := range steps {
		sv := models.PathStepView{
			Sequence:  st.Sequence,
			PageID:    st.PageID,
			ChoiceID:  st.ChoiceID,
			DiceRoll:  st.DiceRoll,
			Timestamp: st.Timestamp,
		}
		if page, ok := pages[st.PageID]; ok {
			sv.PageText = page.Text
		} else {
			sv.PageMissing = true
		}
		view.Steps = append(view.Steps, sv)
	}
	return view, nil
}

func (s *analyticsServiceImpl) PlaysByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Play, error) {
	return s.plays.ListByUser(ctx, s.db, userID, limit, offset)
}
