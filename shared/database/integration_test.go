package database_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"adventure-server/internal/service"
	"adventure-server/pkg/migration"
	"adventure-server/shared/database"
	"adventure-server/shared/database/migrations"
	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// IntegrationTestSuite поднимает Postgres и Redis в контейнерах.
type IntegrationTestSuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	rdContainer *tcredis.RedisContainer
	pool        *pgxpool.Pool
	redisClient *redis.Client
	logger      *zap.Logger

	tx       *database.TransactionHelper
	stories  interfaces.StoryRepository
	pages    interfaces.PageRepository
	choices  interfaces.ChoiceRepository
	sessions interfaces.PlaySessionRepository
	plays    interfaces.PlayRepository
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.logger, err = zap.NewDevelopment()
	require.NoError(s.T(), err)

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("adventure_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	dsn, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	s.pool, err = pgxpool.New(s.ctx, dsn)
	require.NoError(s.T(), err, "Failed to connect to test postgres")

	err = migration.NewMigrator(migration.Config{FS: migrations.FS}, s.pool, zerolog.Nop()).Up()
	require.NoError(s.T(), err, "Failed to run migrations")

	s.rdContainer, err = tcredis.Run(s.ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(1*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start redis container")

	redisURL, err := s.rdContainer.ConnectionString(s.ctx)
	require.NoError(s.T(), err)
	opts, err := redis.ParseURL(redisURL)
	require.NoError(s.T(), err)
	s.redisClient = redis.NewClient(opts)
	require.NoError(s.T(), s.redisClient.Ping(s.ctx).Err())

	s.tx = database.NewTransactionHelper(s.pool, s.logger)
	s.stories = database.NewPgStoryRepository(s.logger)
	s.pages = database.NewPgPageRepository(s.logger)
	s.choices = database.NewPgChoiceRepository(s.logger)
	s.sessions = database.NewPgPlaySessionRepository(s.logger)
	s.plays = database.NewPgPlayRepository(s.logger)
}

func (s *IntegrationTestSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Error("Failed to terminate postgres container", zap.Error(err))
		}
	}
	if s.rdContainer != nil {
		if err := s.rdContainer.Terminate(s.ctx); err != nil {
			s.logger.Error("Failed to terminate redis container", zap.Error(err))
		}
	}
}

// Перед каждым тестом чистим таблицы и Redis
func (s *IntegrationTestSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, "TRUNCATE TABLE player_paths, plays, play_sessions, choices, pages, stories CASCADE")
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.redisClient.FlushDB(s.ctx).Err())
}

func TestIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	suite.Run(t, new(IntegrationTestSuite))
}

// seedStory creates start -> ending with a single choice.
func (s *IntegrationTestSuite) seedStory() (*models.Story, *models.Page, *models.Page, *models.Choice) {
	t := s.T()
	story := &models.Story{Title: "Forest", Status: models.StatusPublished}
	require.NoError(t, s.stories.Create(s.ctx, s.pool, story))

	label := "Home"
	start := &models.Page{StoryID: story.ID, Text: "You wake up in a forest."}
	ending := &models.Page{StoryID: story.ID, Text: "You are home.", IsEnding: true, EndingLabel: &label}
	require.NoError(t, s.pages.Create(s.ctx, s.pool, start))
	require.NoError(t, s.pages.Create(s.ctx, s.pool, ending))

	set, err := s.stories.SetStartPageIfEmpty(s.ctx, s.pool, story.ID, start.ID)
	require.NoError(t, err)
	require.True(t, set)

	choice := &models.Choice{PageID: start.ID, Text: "Walk home", NextPageID: ending.ID}
	require.NoError(t, s.choices.Create(s.ctx, s.pool, choice))
	return story, start, ending, choice
}

func (s *IntegrationTestSuite) TestStoryGraph_RoundTrip() {
	t := s.T()
	story, start, _, choice := s.seedStory()

	got, err := s.stories.GetByID(s.ctx, s.pool, story.ID)
	require.NoError(t, err)
	require.NotNil(t, got.StartPageID)
	assert.Equal(t, start.ID, *got.StartPageID)

	// Второй вызов не перезаписывает стартовую страницу
	set, err := s.stories.SetStartPageIfEmpty(s.ctx, s.pool, story.ID, choice.NextPageID)
	require.NoError(t, err)
	assert.False(t, set)

	page, err := s.pages.GetByID(s.ctx, s.pool, start.ID)
	require.NoError(t, err)
	require.Len(t, page.Choices, 1)
	assert.Equal(t, choice.ID, page.Choices[0].ID)

	_, err = s.stories.GetByID(s.ctx, s.pool, uuid.New())
	assert.ErrorIs(t, err, models.ErrStoryNotFound)
}

func (s *IntegrationTestSuite) TestDeleteTouchingPage() {
	t := s.T()
	_, start, ending, _ := s.seedStory()

	back := &models.Choice{PageID: ending.ID, Text: "Again", NextPageID: start.ID}
	require.NoError(t, s.choices.Create(s.ctx, s.pool, back))

	n, err := s.choices.DeleteTouchingPage(s.ctx, s.pool, ending.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	page, err := s.pages.GetByID(s.ctx, s.pool, start.ID)
	require.NoError(t, err)
	assert.Empty(t, page.Choices)
}

func (s *IntegrationTestSuite) TestInsertIfAbsent_ConcurrentCreatesOneRow() {
	t := s.T()
	story, start, _, _ := s.seedStory()

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.sessions.InsertIfAbsent(s.ctx, s.pool, &models.PlaySession{
				SessionKey:    "anon:race",
				StoryID:       story.ID,
				CurrentPageID: start.ID,
				Path:          []models.PathStep{{PageID: start.ID, At: time.Now().UTC()}},
			})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
	var rows int
	require.NoError(t, s.pool.QueryRow(s.ctx,
		"SELECT COUNT(*) FROM play_sessions WHERE session_key = $1 AND story_id = $2", "anon:race", story.ID).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func (s *IntegrationTestSuite) TestSessionPathAndPendingRoll() {
	t := s.T()
	story, start, ending, choice := s.seedStory()
	key := "anon:path"

	_, err := s.sessions.InsertIfAbsent(s.ctx, s.pool, &models.PlaySession{
		SessionKey: key, StoryID: story.ID, CurrentPageID: start.ID,
		Path: []models.PathStep{{PageID: start.ID, At: time.Now().UTC()}},
	})
	require.NoError(t, err)

	roll := 5
	require.NoError(t, s.sessions.SetPendingRoll(s.ctx, s.pool, key, story.ID, &roll))

	choiceID := choice.ID
	require.NoError(t, s.sessions.AppendStep(s.ctx, s.pool, key, story.ID,
		models.PathStep{PageID: ending.ID, ChoiceID: &choiceID, DiceRoll: &roll}))
	require.NoError(t, s.sessions.Upsert(s.ctx, s.pool, key, story.ID, ending.ID, nil))

	session, err := s.sessions.Get(s.ctx, s.pool, key, story.ID)
	require.NoError(t, err)
	assert.Equal(t, ending.ID, session.CurrentPageID)
	assert.Nil(t, session.PendingDiceRoll, "upsert clears the pending roll")
	require.Len(t, session.Path, 2)
	assert.Equal(t, start.ID, session.Path[0].PageID)
	require.NotNil(t, session.Path[1].DiceRoll)
	assert.Equal(t, 5, *session.Path[1].DiceRoll)

	err = s.sessions.AppendStep(s.ctx, s.pool, "anon:missing", story.ID, models.PathStep{PageID: start.ID})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func (s *IntegrationTestSuite) TestCommit_AtomicPlayAndPath() {
	t := s.T()
	story, start, ending, choice := s.seedStory()
	key := "anon:commit"
	now := time.Now().UTC()

	_, err := s.sessions.InsertIfAbsent(s.ctx, s.pool, &models.PlaySession{
		SessionKey: key, StoryID: story.ID, CurrentPageID: start.ID,
		Path: []models.PathStep{{PageID: start.ID, At: now}},
	})
	require.NoError(t, err)

	var play *models.Play
	err = s.tx.WithTransaction(s.ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		session, err := s.sessions.GetForUpdate(ctx, tx, key, story.ID)
		if err != nil {
			return err
		}
		play = &models.Play{StoryID: story.ID, EndingPageID: ending.ID}
		if err := s.plays.Create(ctx, tx, play); err != nil {
			return err
		}
		choiceID := choice.ID
		steps := append(session.Path, models.PathStep{PageID: ending.ID, ChoiceID: &choiceID, At: now})
		rows := make([]models.PlayerPathStep, 0, len(steps))
		for i, st := range steps {
			rows = append(rows, models.PlayerPathStep{
				PlayID: play.ID, PageID: st.PageID, ChoiceID: st.ChoiceID,
				Sequence: i + 1, DiceRoll: st.DiceRoll, Timestamp: st.At,
			})
		}
		if err := s.plays.InsertPath(ctx, tx, rows); err != nil {
			return err
		}
		return s.sessions.Delete(ctx, tx, key, story.ID)
	})
	require.NoError(t, err)

	path, err := s.plays.GetPath(s.ctx, s.pool, play.ID)
	require.NoError(t, err)
	require.Len(t, path, 2)
	assert.Equal(t, 1, path[0].Sequence)
	assert.Equal(t, start.ID, path[0].PageID)
	assert.Equal(t, 2, path[1].Sequence)
	assert.Equal(t, ending.ID, path[1].PageID)

	_, err = s.sessions.Get(s.ctx, s.pool, key, story.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

// Запрос, прочитавший сессию до коммита концовки, не должен воскресить её пустой.
func (s *IntegrationTestSuite) TestStaleAdvanceAfterCommit() {
	t := s.T()
	story, start, ending, choice := s.seedStory()
	identity := models.Identity{SessionKey: "stale"}

	sessionMgr := service.NewSessionManager(s.pool, s.sessions, s.stories, s.logger)
	recorder := service.NewPathRecorder(s.sessions, s.plays, sessionMgr, s.logger)

	session, created, err := sessionMgr.GetOrCreate(s.ctx, identity, story.ID)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, start.ID, session.CurrentPageID)

	var play *models.Play
	err = s.tx.WithTransaction(s.ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		choiceID := choice.ID
		var err error
		play, _, err = recorder.Commit(ctx, tx, identity, story.ID, start.ID, ending.ID,
			&models.PathStep{PageID: ending.ID, ChoiceID: &choiceID, At: time.Now().UTC()})
		return err
	})
	require.NoError(t, err)

	// второй запрос всё ещё думает, что игрок на start
	err = s.tx.WithTransaction(s.ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		return sessionMgr.Advance(ctx, tx, identity, story.ID, start.ID, ending.ID)
	})
	require.ErrorIs(t, err, models.ErrSessionMoved)

	var rows int
	require.NoError(t, s.pool.QueryRow(s.ctx,
		"SELECT COUNT(*) FROM play_sessions WHERE session_key = $1", identity.Key()).Scan(&rows))
	assert.Zero(t, rows)

	path, err := s.plays.GetPath(s.ctx, s.pool, play.ID)
	require.NoError(t, err)
	require.Len(t, path, 2)
	assert.Equal(t, start.ID, path[0].PageID)
	assert.Nil(t, path[0].ChoiceID)
	assert.Equal(t, ending.ID, path[1].PageID)
}

func (s *IntegrationTestSuite) TestCommit_RollbackLeavesNothing() {
	t := s.T()
	story, _, ending, _ := s.seedStory()

	var playID uuid.UUID
	err := s.tx.WithTransaction(s.ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		play := &models.Play{StoryID: story.ID, EndingPageID: ending.ID}
		if err := s.plays.Create(ctx, tx, play); err != nil {
			return err
		}
		playID = play.ID
		// повтор sequence нарушает уникальность и откатывает всю транзакцию
		return s.plays.InsertPath(ctx, tx, []models.PlayerPathStep{
			{PlayID: play.ID, PageID: ending.ID, Sequence: 1, Timestamp: time.Now().UTC()},
			{PlayID: play.ID, PageID: ending.ID, Sequence: 1, Timestamp: time.Now().UTC()},
		})
	})
	require.Error(t, err)

	_, err = s.plays.GetByID(s.ctx, s.pool, playID)
	assert.ErrorIs(t, err, models.ErrPlayNotFound)
}

func (s *IntegrationTestSuite) TestCountEndingsAndTopStories() {
	t := s.T()
	story, start, ending, _ := s.seedStory()

	other := &models.Page{StoryID: story.ID, Text: "Lost forever.", IsEnding: true}
	require.NoError(t, s.pages.Create(s.ctx, s.pool, other))

	for _, endID := range []uuid.UUID{ending.ID, ending.ID, other.ID} {
		require.NoError(t, s.plays.Create(s.ctx, s.pool, &models.Play{StoryID: story.ID, EndingPageID: endID}))
	}
	second := &models.Story{Title: "Cave", Status: models.StatusPublished}
	require.NoError(t, s.stories.Create(s.ctx, s.pool, second))
	require.NoError(t, s.plays.Create(s.ctx, s.pool, &models.Play{StoryID: second.ID, EndingPageID: start.ID}))

	counts, err := s.plays.CountEndings(s.ctx, s.pool, story.ID)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, ending.ID, counts[0].EndingPageID)
	assert.EqualValues(t, 2, counts[0].Count)
	assert.Equal(t, other.ID, counts[1].EndingPageID)
	assert.EqualValues(t, 1, counts[1].Count)

	top, err := s.plays.TopStories(s.ctx, s.pool, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, story.ID, top[0].StoryID)
	assert.EqualValues(t, 3, top[0].Plays)

	total, err := s.plays.CountAll(s.ctx, s.pool)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)

	titles, err := s.stories.GetTitles(s.ctx, s.pool, []uuid.UUID{story.ID, second.ID})
	require.NoError(t, err)
	assert.Equal(t, "Cave", titles[second.ID])
}

func (s *IntegrationTestSuite) TestDeleteStale() {
	t := s.T()
	story, start, _, _ := s.seedStory()

	_, err := s.sessions.InsertIfAbsent(s.ctx, s.pool, &models.PlaySession{
		SessionKey: "anon:old", StoryID: story.ID, CurrentPageID: start.ID,
	})
	require.NoError(t, err)
	_, err = s.pool.Exec(s.ctx, "UPDATE play_sessions SET updated_at = NOW() - INTERVAL '2 days' WHERE session_key = 'anon:old'")
	require.NoError(t, err)
	_, err = s.sessions.InsertIfAbsent(s.ctx, s.pool, &models.PlaySession{
		SessionKey: "anon:fresh", StoryID: story.ID, CurrentPageID: start.ID,
	})
	require.NoError(t, err)

	n, err := s.sessions.DeleteStale(s.ctx, s.pool, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.sessions.Get(s.ctx, s.pool, "anon:fresh", story.ID)
	assert.NoError(t, err)
}

func (s *IntegrationTestSuite) TestRedisStatsCache() {
	t := s.T()
	cache := database.NewRedisStatsCache(s.redisClient, time.Minute, s.logger)
	storyID := uuid.New()

	_, hit, err := cache.Get(s.ctx, storyID)
	require.NoError(t, err)
	assert.False(t, hit)

	stats := []models.EndingStat{{EndingPageID: uuid.New(), Label: "Home", Count: 2, Percentage: 66.7}}
	require.NoError(t, cache.Set(s.ctx, storyID, stats))

	got, hit, err := cache.Get(s.ctx, storyID)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, stats, got)

	require.NoError(t, cache.Invalidate(s.ctx, storyID))
	_, hit, err = cache.Get(s.ctx, storyID)
	require.NoError(t, err)
	assert.False(t, hit)

	// битая запись считается промахом
	require.NoError(t, s.redisClient.Set(s.ctx, "ending_stats:"+storyID.String(), "not-json", time.Minute).Err())
	_, hit, err = cache.Get(s.ctx, storyID)
	require.NoError(t, err)
	assert.False(t, hit)
}
