package service

import (
	"context"
	"errors"
	"time"

	"adventure-server/pkg/storygraph"
	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GameplayService drives a player through a story: start or resume, roll the die, pick a choice.
type GameplayService interface {
	StartOrResume(ctx context.Context, identity models.Identity, storyID uuid.UUID) (*models.PlayState, error)
	// RollDice draws a roll for the next gated choice. A roll that was not spent yet is returned again.
	RollDice(ctx context.Context, identity models.Identity, storyID uuid.UUID) (int, error)
	// ResolveChoice applies choiceID to the player's current page. Gated choices are
	// checked against the roll drawn by RollDice.
	ResolveChoice(ctx context.Context, identity models.Identity, storyID, choiceID uuid.UUID) (*models.ResolveResult, error)
	// ResolveChoiceWithRoll is ResolveChoice with a roll supplied by a trusted caller
	// (content tools holding the API key). Never expose it to players.
	ResolveChoiceWithRoll(ctx context.Context, identity models.Identity, storyID, choiceID uuid.UUID, roll int) (*models.ResolveResult, error)
}

type gameplayServiceImpl struct {
	db         interfaces.DBTX
	tx         interfaces.Transactor
	stories    interfaces.StoryRepository
	pages      interfaces.PageRepository
	sessionMgr SessionManager
	recorder   PathRecorder
	cache      interfaces.EndingStatsCache
	publisher  interfaces.PlayEventPublisher
	engine     *storygraph.Engine
	roller     storygraph.Roller
	logger     *zap.Logger
	now        func() time.Time
}

func NewGameplayService(
	db interfaces.DBTX,
	tx interfaces.Transactor,
	stories interfaces.StoryRepository,
	pages interfaces.PageRepository,
	sessionMgr SessionManager,
	recorder PathRecorder,
	cache interfaces.EndingStatsCache,
	publisher interfaces.PlayEventPublisher,
	roller storygraph.Roller,
	logger *zap.Logger,
) GameplayService {
	s := &gameplayServiceImpl{
		db:         db,
		tx:         tx,
		stories:    stories,
		pages:      pages,
		sessionMgr: sessionMgr,
		recorder:   recorder,
		cache:      cache,
		publisher:  publisher,
		roller:     roller,
		logger:     logger.Named("GameplayService"),
		now:        time.Now,
	}
	if s.roller == nil {
		s.roller = storygraph.RandomRoller{}
	}
	s.engine = storygraph.NewEngine(storygraph.PageSourceFunc(func(ctx context.Context, id uuid.UUID) (*models.Page, error) {
		return pages.GetByID(ctx, db, id)
	}))
	return s
}

func (s *gameplayServiceImpl) StartOrResume(ctx context.Context, identity models.Identity, storyID uuid.UUID) (*models.PlayState, error) {
	if err := s.checkPlayable(ctx, identity, storyID); err != nil {
		return nil, err
	}
	logFields := []zap.Field{zap.String("sessionKey", identity.Key()), zap.Stringer("storyID", storyID)}

	session, created, err := s.sessionMgr.GetOrCreate(ctx, identity, storyID)
	if err != nil {
		return nil, err
	}

	page, err := s.pages.GetByID(ctx, s.db, session.CurrentPageID)
	if errors.Is(err, models.ErrNotFound) {
		// Страница удалена, пока игрок отсутствовал: начинаем заново.
		s.logger.Warn("Current page of play session is gone, restarting", append(logFields, zap.Stringer("pageID", session.CurrentPageID))...)
		if err := s.sessionMgr.Clear(ctx, s.db, identity, storyID); err != nil {
			return nil, err
		}
		if session, created, err = s.sessionMgr.GetOrCreate(ctx, identity, storyID); err != nil {
			return nil, err
		}
		page, err = s.pages.GetByID(ctx, s.db, session.CurrentPageID)
	}
	if err != nil {
		return nil, err
	}

	state := &models.PlayState{
		StoryID:         storyID,
		Page:            playerView(page),
		PendingDiceRoll: session.PendingDiceRoll,
		Resumed:         !created,
		IsEnding:        page.IsEnding,
	}
	if page.IsEnding {
		var play *models.Play
		var steps int
		err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
			var err error
			play, steps, err = s.recorder.Commit(ctx, tx, identity, storyID, page.ID, page.ID, nil)
			return err
		})
		if err != nil {
			return nil, err
		}
		s.afterCommit(ctx, play, steps)
		state.PlayID = &play.ID
	}
	return state, nil
}

func (s *gameplayServiceImpl) RollDice(ctx context.Context, identity models.Identity, storyID uuid.UUID) (int, error) {
	if err := s.checkPlayable(ctx, identity, storyID); err != nil {
		return 0, err
	}
	session, _, err := s.sessionMgr.GetOrCreate(ctx, identity, storyID)
	if err != nil {
		return 0, err
	}
	if session.PendingDiceRoll != nil {
		return *session.PendingDiceRoll, nil
	}

	roll := s.roller.Roll()
	if err := s.sessionMgr.SetPendingRoll(ctx, identity, storyID, roll); err != nil {
		return 0, err
	}
	diceRolled.Inc()
	s.logger.Debug("Dice rolled",
		zap.String("sessionKey", identity.Key()), zap.Stringer("storyID", storyID), zap.Int("roll", roll))
	return roll, nil
}

func (s *gameplayServiceImpl) ResolveChoice(ctx context.Context, identity models.Identity, storyID, choiceID uuid.UUID) (*models.ResolveResult, error) {
	return s.resolve(ctx, identity, storyID, choiceID, nil)
}

func (s *gameplayServiceImpl) ResolveChoiceWithRoll(ctx context.Context, identity models.Identity, storyID, choiceID uuid.UUID, roll int) (*models.ResolveResult, error) {
	return s.resolve(ctx, identity, storyID, choiceID, &roll)
}

func (s *gameplayServiceImpl) resolve(
	ctx context.Context,
	identity models.Identity,
	storyID, choiceID uuid.UUID,
	trustedRoll *int,
) (*models.ResolveResult, error) {
	if err := s.checkPlayable(ctx, identity, storyID); err != nil {
		return nil, err
	}
	logFields := []zap.Field{
		zap.String("sessionKey", identity.Key()),
		zap.Stringer("storyID", storyID),
		zap.Stringer("choiceID", choiceID),
	}

	session, _, err := s.sessionMgr.GetOrCreate(ctx, identity, storyID)
	if err != nil {
		return nil, err
	}
	roll := trustedRoll
	if roll == nil {
		roll = session.PendingDiceRoll
	}

	outcome, err := s.engine.Resolve(ctx, session.CurrentPageID, choiceID, roll)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrDiceTooLow):
			choicesResolved.WithLabelValues(outcomeDiceTooLow).Inc()
			// Бросок израсходован, игрок остаётся на странице.
			if session.PendingDiceRoll != nil {
				if clearErr := s.sessionMgr.ClearPendingRoll(ctx, s.db, identity, storyID); clearErr != nil {
					s.logger.Error("Failed to clear spent dice roll", append(logFields, zap.Error(clearErr))...)
				}
			}
		case errors.Is(err, models.ErrDiceNotRolled):
			choicesResolved.WithLabelValues(outcomeDiceNotRolled).Inc()
		case errors.Is(err, models.ErrInvalidChoice), errors.Is(err, models.ErrInvalidDiceRoll), errors.Is(err, models.ErrUnknownPage):
			choicesResolved.WithLabelValues(outcomeInvalid).Inc()
		default:
			s.logger.Error("Failed to resolve choice", append(logFields, zap.Error(err))...)
		}
		return nil, err
	}

	step := models.PathStep{
		PageID:   outcome.NextPage.ID,
		ChoiceID: &outcome.Choice.ID,
		DiceRoll: outcome.DiceRoll,
		At:       s.now().UTC(),
	}
	result := &models.ResolveResult{
		NextPage: playerView(outcome.NextPage),
		IsEnding: outcome.IsEnding,
		DiceRoll: outcome.DiceRoll,
	}

	if !outcome.IsEnding {
		err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
			if err := s.sessionMgr.Advance(ctx, tx, identity, storyID, outcome.From.ID, outcome.NextPage.ID); err != nil {
				return err
			}
			return s.recorder.AppendStep(ctx, tx, identity, storyID, step)
		})
		if err != nil {
			return nil, err
		}
		choicesResolved.WithLabelValues(outcomeAdvanced).Inc()
		return result, nil
	}

	var play *models.Play
	var steps int
	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		var err error
		play, steps, err = s.recorder.Commit(ctx, tx, identity, storyID, outcome.From.ID, outcome.NextPage.ID, &step)
		return err
	})
	if err != nil {
		return nil, err
	}
	choicesResolved.WithLabelValues(outcomeEnding).Inc()
	s.afterCommit(ctx, play, steps)
	result.PlayID = &play.ID
	return result, nil
}

// checkPlayable validates the identity and rejects missing or suspended stories.
func (s *gameplayServiceImpl) checkPlayable(ctx context.Context, identity models.Identity, storyID uuid.UUID) error {
	if err := identity.Validate(); err != nil {
		return err
	}
	story, err := s.stories.GetByID(ctx, s.db, storyID)
	if err != nil {
		return err
	}
	if story.Status == models.StatusSuspended {
		return models.ErrStorySuspended
	}
	return nil
}

// afterCommit runs the side effects of a committed play. Failures are logged only.
func (s *gameplayServiceImpl) afterCommit(ctx context.Context, play *models.Play, steps int) {
	playsCommitted.Inc()
	ctx = context.WithoutCancel(ctx)
	logFields := []zap.Field{zap.Stringer("playID", play.ID), zap.Stringer("storyID", play.StoryID)}

	if err := s.cache.Invalidate(ctx, play.StoryID); err != nil {
		s.logger.Warn("Failed to invalidate ending stats cache", append(logFields, zap.Error(err))...)
	}
	event := models.PlayCompletedEvent{
		PlayID:       play.ID,
		StoryID:      play.StoryID,
		EndingPageID: play.EndingPageID,
		UserID:       play.UserID,
		Steps:        steps,
		CompletedAt:  play.CreatedAt,
	}
	if err := s.publisher.PublishPlayCompleted(ctx, event); err != nil {
		s.logger.Warn("Failed to publish play completed event", append(logFields, zap.Error(err))...)
	}
}

// playerView returns a copy of page exposing only the choices a player may pick.
func playerView(page *models.Page) *models.Page {
	view := *page
	view.Choices = storygraph.AvailableChoices(page)
	return &view
}
