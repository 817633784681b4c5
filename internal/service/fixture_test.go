package service_test

import (
	"time"

	"adventure-server/internal/service"
	"adventure-server/shared/interfaces/mocks"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }

type fixedRoller int

func (r fixedRoller) Roll() int { return int(r) }

// forest is the canonical three page story: A -> B is free, A -> C needs a 4 and C is the ending.
type forest struct {
	story  *models.Story
	a, b   *models.Page
	c      *models.Page
	toB    *models.Choice
	toC    *models.Choice
	player models.Identity
}

func newForest() *forest {
	storyID := uuid.New()
	f := &forest{
		a:      &models.Page{ID: uuid.New(), StoryID: storyID, Text: "You stand at the edge of a dark forest."},
		b:      &models.Page{ID: uuid.New(), StoryID: storyID, Text: "You follow the stream."},
		c:      &models.Page{ID: uuid.New(), StoryID: storyID, Text: "The guardian of the forest lets you pass.", IsEnding: true, EndingLabel: strPtr("Forest Guardian")},
		player: models.Identity{SessionKey: "tok-1"},
	}
	f.toB = &models.Choice{ID: uuid.New(), PageID: f.a.ID, Text: "Follow the stream", NextPageID: f.b.ID}
	f.toC = &models.Choice{ID: uuid.New(), PageID: f.a.ID, Text: "Face the guardian", NextPageID: f.c.ID, DiceRequirement: intPtr(4)}
	f.a.Choices = []*models.Choice{f.toB, f.toC}
	f.story = &models.Story{ID: storyID, Title: "Forest", Status: models.StatusPublished, StartPageID: &f.a.ID}
	return f
}

// sessionAt returns a session positioned on page with a buffered path.
func (f *forest) sessionAt(page *models.Page, path ...*models.Page) *models.PlaySession {
	steps := make([]models.PathStep, 0, len(path))
	for _, p := range path {
		steps = append(steps, models.PathStep{PageID: p.ID, At: time.Now().UTC()})
	}
	return &models.PlaySession{
		ID:            uuid.New(),
		SessionKey:    f.player.Key(),
		StoryID:       f.story.ID,
		CurrentPageID: page.ID,
		Path:          steps,
	}
}

type deps struct {
	stories   *mocks.StoryRepository
	pages     *mocks.PageRepository
	choices   *mocks.ChoiceRepository
	sessions  *mocks.PlaySessionRepository
	plays     *mocks.PlayRepository
	tx        *mocks.Transactor
	cache     *mocks.EndingStatsCache
	publisher *mocks.PlayEventPublisher
}

func newDeps() *deps {
	return &deps{
		stories:   new(mocks.StoryRepository),
		pages:     new(mocks.PageRepository),
		choices:   new(mocks.ChoiceRepository),
		sessions:  new(mocks.PlaySessionRepository),
		plays:     new(mocks.PlayRepository),
		tx:        new(mocks.Transactor),
		cache:     new(mocks.EndingStatsCache),
		publisher: new(mocks.PlayEventPublisher),
	}
}

func (d *deps) gameplay(roller int) service.GameplayService {
	logger := zap.NewNop()
	sessionMgr := service.NewSessionManager(nil, d.sessions, d.stories, logger)
	recorder := service.NewPathRecorder(d.sessions, d.plays, sessionMgr, logger)
	return service.NewGameplayService(nil, d.tx, d.stories, d.pages, sessionMgr, recorder, d.cache, d.publisher, fixedRoller(roller), logger)
}

func (d *deps) storyService() service.StoryService {
	return service.NewStoryService(nil, d.tx, d.stories, d.pages, d.choices, d.cache, zap.NewNop())
}

func (d *deps) analytics() service.AnalyticsService {
	return service.NewAnalyticsService(nil, d.stories, d.pages, d.plays, d.cache, zap.NewNop())
}
