package service_test

import (
	"context"
	"errors"
	"testing"

	"adventure-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestResolveChoice_ForestScenario(t *testing.T) {
	ctx := context.Background()
	f := newForest()
	d := newDeps()
	playID := uuid.New()

	atA := func(pending *int) *models.PlaySession {
		session := f.sessionAt(f.a, f.a)
		session.PendingDiceRoll = pending
		return session
	}

	d.stories.On("GetByID", mock.Anything, mock.Anything, f.story.ID).Return(f.story, nil)
	d.pages.On("GetByID", mock.Anything, mock.Anything, f.a.ID).Return(f.a, nil)
	d.pages.On("GetByID", mock.Anything, mock.Anything, f.c.ID).Return(f.c, nil)

	// бросок 3: игрок остаётся на A, бросок сгорает
	d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(atA(intPtr(3)), nil).Once()
	d.sessions.On("SetPendingRoll", mock.Anything, mock.Anything, f.player.Key(), f.story.ID, (*int)(nil)).Return(nil).Once()

	res, err := d.gameplay(5).ResolveChoice(ctx, f.player, f.story.ID, f.toC.ID)

	assert.Nil(t, res)
	require.ErrorIs(t, err, models.ErrDiceTooLow)
	d.sessions.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	d.tx.AssertNotCalled(t, "WithTransaction", mock.Anything)

	// новый бросок 5
	d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(atA(nil), nil).Once()
	d.sessions.On("SetPendingRoll", mock.Anything, mock.Anything, f.player.Key(), f.story.ID, intPtr(5)).Return(nil).Once()

	roll, err := d.gameplay(5).RollDice(ctx, f.player, f.story.ID)
	require.NoError(t, err)
	require.Equal(t, 5, roll)

	d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(atA(intPtr(5)), nil).Once()
	d.tx.On("WithTransaction", ctx).Return(nil).Once()
	d.sessions.On("GetForUpdate", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(atA(intPtr(5)), nil).Once()
	d.plays.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(p *models.Play) bool {
		return p.StoryID == f.story.ID && p.EndingPageID == f.c.ID && p.UserID == nil
	})).Run(func(args mock.Arguments) {
		args.Get(2).(*models.Play).ID = playID
	}).Return(nil).Once()
	d.plays.On("InsertPath", mock.Anything, mock.Anything, mock.MatchedBy(func(rows []models.PlayerPathStep) bool {
		if len(rows) != 2 {
			return false
		}
		first, last := rows[0], rows[1]
		return first.Sequence == 1 && first.PageID == f.a.ID && first.ChoiceID == nil && first.DiceRoll == nil &&
			last.Sequence == 2 && last.PageID == f.c.ID && last.ChoiceID != nil && *last.ChoiceID == f.toC.ID &&
			last.DiceRoll != nil && *last.DiceRoll == 5 &&
			first.PlayID == playID && last.PlayID == playID
	})).Return(nil).Once()
	d.sessions.On("Delete", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(nil).Once()
	d.cache.On("Invalidate", mock.Anything, f.story.ID).Return(nil).Once()
	d.publisher.On("PublishPlayCompleted", mock.Anything, mock.MatchedBy(func(e models.PlayCompletedEvent) bool {
		return e.PlayID == playID && e.EndingPageID == f.c.ID && e.Steps == 2
	})).Return(nil).Once()

	res, err = d.gameplay(5).ResolveChoice(ctx, f.player, f.story.ID, f.toC.ID)

	require.NoError(t, err)
	assert.True(t, res.IsEnding)
	require.NotNil(t, res.PlayID)
	assert.Equal(t, playID, *res.PlayID)
	assert.Equal(t, f.c.ID, res.NextPage.ID)
	require.NotNil(t, res.NextPage.EndingLabel)
	assert.Equal(t, "Forest Guardian", *res.NextPage.EndingLabel)
	assert.Empty(t, res.NextPage.Choices)
	assert.Equal(t, 5, *res.DiceRoll)
	d.sessions.AssertExpectations(t)
	d.plays.AssertExpectations(t)
	d.cache.AssertExpectations(t)
	d.publisher.AssertExpectations(t)
	d.sessions.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveChoice_Advance(t *testing.T) {
	ctx := context.Background()
	f := newForest()

	t.Run("Free choice moves the session", func(t *testing.T) {
		d := newDeps()
		d.stories.On("GetByID", mock.Anything, mock.Anything, f.story.ID).Return(f.story, nil)
		d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(f.sessionAt(f.a, f.a), nil)
		d.pages.On("GetByID", mock.Anything, mock.Anything, f.a.ID).Return(f.a, nil)
		d.pages.On("GetByID", mock.Anything, mock.Anything, f.b.ID).Return(f.b, nil)
		d.tx.On("WithTransaction", ctx).Return(nil).Once()
		d.sessions.On("GetForUpdate", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(f.sessionAt(f.a, f.a), nil).Once()
		d.sessions.On("Upsert", mock.Anything, mock.Anything, f.player.Key(), f.story.ID, f.b.ID, (*uuid.UUID)(nil)).Return(nil).Once()
		d.sessions.On("AppendStep", mock.Anything, mock.Anything, f.player.Key(), f.story.ID, mock.MatchedBy(func(s models.PathStep) bool {
			return s.PageID == f.b.ID && s.ChoiceID != nil && *s.ChoiceID == f.toB.ID
		})).Return(nil).Once()

		res, err := d.gameplay(1).ResolveChoice(ctx, f.player, f.story.ID, f.toB.ID)

		require.NoError(t, err)
		assert.False(t, res.IsEnding)
		assert.Nil(t, res.PlayID)
		assert.Equal(t, f.b.ID, res.NextPage.ID)
		d.sessions.AssertExpectations(t)
	})

	t.Run("Session that moved on is not rewritten", func(t *testing.T) {
		d := newDeps()
		d.stories.On("GetByID", mock.Anything, mock.Anything, f.story.ID).Return(f.story, nil)
		d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(f.sessionAt(f.a, f.a), nil)
		d.pages.On("GetByID", mock.Anything, mock.Anything, f.a.ID).Return(f.a, nil)
		d.pages.On("GetByID", mock.Anything, mock.Anything, f.b.ID).Return(f.b, nil)
		d.tx.On("WithTransaction", ctx).Return(nil).Once()
		d.sessions.On("GetForUpdate", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(f.sessionAt(f.b, f.a, f.b), nil).Once()

		_, err := d.gameplay(1).ResolveChoice(ctx, f.player, f.story.ID, f.toB.ID)

		assert.ErrorIs(t, err, models.ErrSessionMoved)
		d.sessions.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		d.sessions.AssertNotCalled(t, "AppendStep", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Session committed by a concurrent request is not recreated", func(t *testing.T) {
		d := newDeps()
		d.stories.On("GetByID", mock.Anything, mock.Anything, f.story.ID).Return(f.story, nil)
		d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(f.sessionAt(f.a, f.a), nil)
		d.pages.On("GetByID", mock.Anything, mock.Anything, f.a.ID).Return(f.a, nil)
		d.pages.On("GetByID", mock.Anything, mock.Anything, f.b.ID).Return(f.b, nil)
		d.tx.On("WithTransaction", ctx).Return(nil).Once()
		d.sessions.On("GetForUpdate", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(nil, models.ErrNotFound).Once()

		_, err := d.gameplay(1).ResolveChoice(ctx, f.player, f.story.ID, f.toB.ID)

		assert.ErrorIs(t, err, models.ErrSessionMoved)
		d.sessions.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Ending on a moved session commits nothing", func(t *testing.T) {
		d := newDeps()
		session := f.sessionAt(f.a, f.a)
		session.PendingDiceRoll = intPtr(6)
		d.stories.On("GetByID", mock.Anything, mock.Anything, f.story.ID).Return(f.story, nil)
		d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(session, nil)
		d.pages.On("GetByID", mock.Anything, mock.Anything, f.a.ID).Return(f.a, nil)
		d.pages.On("GetByID", mock.Anything, mock.Anything, f.c.ID).Return(f.c, nil)
		d.tx.On("WithTransaction", ctx).Return(nil).Once()
		d.sessions.On("GetForUpdate", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(nil, models.ErrNotFound).Once()

		_, err := d.gameplay(1).ResolveChoice(ctx, f.player, f.story.ID, f.toC.ID)

		assert.ErrorIs(t, err, models.ErrSessionMoved)
		d.plays.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		d.cache.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
	})
}

func TestResolveChoice_Rolls(t *testing.T) {
	ctx := context.Background()
	f := newForest()

	t.Run("Gated choice without any roll", func(t *testing.T) {
		d := newDeps()
		d.stories.On("GetByID", mock.Anything, mock.Anything, f.story.ID).Return(f.story, nil)
		d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(f.sessionAt(f.a, f.a), nil)
		d.pages.On("GetByID", mock.Anything, mock.Anything, f.a.ID).Return(f.a, nil)

		_, err := d.gameplay(1).ResolveChoice(ctx, f.player, f.story.ID, f.toC.ID)

		assert.ErrorIs(t, err, models.ErrDiceNotRolled)
		d.sessions.AssertNotCalled(t, "SetPendingRoll", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Trusted roll below requirement keeps the pending roll untouched", func(t *testing.T) {
		d := newDeps()
		d.stories.On("GetByID", mock.Anything, mock.Anything, f.story.ID).Return(f.story, nil)
		d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(f.sessionAt(f.a, f.a), nil)
		d.pages.On("GetByID", mock.Anything, mock.Anything, f.a.ID).Return(f.a, nil)

		_, err := d.gameplay(1).ResolveChoiceWithRoll(ctx, f.player, f.story.ID, f.toC.ID, 3)

		assert.ErrorIs(t, err, models.ErrDiceTooLow)
		d.sessions.AssertNotCalled(t, "SetPendingRoll", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Trusted roll out of range", func(t *testing.T) {
		d := newDeps()
		d.stories.On("GetByID", mock.Anything, mock.Anything, f.story.ID).Return(f.story, nil)
		d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(f.sessionAt(f.a, f.a), nil)
		d.pages.On("GetByID", mock.Anything, mock.Anything, f.a.ID).Return(f.a, nil)

		_, err := d.gameplay(1).ResolveChoiceWithRoll(ctx, f.player, f.story.ID, f.toC.ID, 9)

		assert.ErrorIs(t, err, models.ErrInvalidDiceRoll)
	})
}

func TestResolveChoice_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newForest()

	t.Run("Choice of another page", func(t *testing.T) {
		d := newDeps()
		d.stories.On("GetByID", mock.Anything, mock.Anything, f.story.ID).Return(f.story, nil)
		d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(f.sessionAt(f.b, f.a, f.b), nil)
		d.pages.On("GetByID", mock.Anything, mock.Anything, f.b.ID).Return(f.b, nil)

		_, err := d.gameplay(1).ResolveChoice(ctx, f.player, f.story.ID, f.toC.ID)

		assert.ErrorIs(t, err, models.ErrInvalidChoice)
	})

	t.Run("Suspended story", func(t *testing.T) {
		d := newDeps()
		suspended := *f.story
		suspended.Status = models.StatusSuspended
		d.stories.On("GetByID", mock.Anything, mock.Anything, f.story.ID).Return(&suspended, nil)

		_, err := d.gameplay(1).ResolveChoice(ctx, f.player, f.story.ID, f.toC.ID)

		assert.ErrorIs(t, err, models.ErrStorySuspended)
	})

	t.Run("Missing identity", func(t *testing.T) {
		d := newDeps()

		_, err := d.gameplay(1).ResolveChoice(ctx, models.Identity{}, f.story.ID, f.toC.ID)

		assert.ErrorIs(t, err, models.ErrInvalidIdentity)
		d.stories.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestStartOrResume(t *testing.T) {
	ctx := context.Background()
	f := newForest()

	t.Run("First visit creates a session at the start page", func(t *testing.T) {
		d := newDeps()
		d.stories.On("GetByID", mock.Anything, mock.Anything, f.story.ID).Return(f.story, nil)
		d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(nil, models.ErrNotFound).Once()
		d.sessions.On("InsertIfAbsent", mock.Anything, mock.Anything, mock.MatchedBy(func(s *models.PlaySession) bool {
			return s.CurrentPageID == f.a.ID && len(s.Path) == 1 && s.Path[0].PageID == f.a.ID && s.Path[0].ChoiceID == nil
		})).Return(true, nil).Once()
		d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(f.sessionAt(f.a, f.a), nil).Once()
		d.pages.On("GetByID", mock.Anything, mock.Anything, f.a.ID).Return(f.a, nil)

		state, err := d.gameplay(1).StartOrResume(ctx, f.player, f.story.ID)

		require.NoError(t, err)
		assert.False(t, state.Resumed)
		assert.Equal(t, f.a.ID, state.Page.ID)
		assert.Len(t, state.Page.Choices, 2)
		d.sessions.AssertExpectations(t)
	})

	t.Run("Second visit resumes without a new row", func(t *testing.T) {
		d := newDeps()
		session := f.sessionAt(f.b, f.a, f.b)
		session.PendingDiceRoll = intPtr(6)
		d.stories.On("GetByID", mock.Anything, mock.Anything, f.story.ID).Return(f.story, nil)
		d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(session, nil)
		d.pages.On("GetByID", mock.Anything, mock.Anything, f.b.ID).Return(f.b, nil)

		state, err := d.gameplay(1).StartOrResume(ctx, f.player, f.story.ID)

		require.NoError(t, err)
		assert.True(t, state.Resumed)
		assert.Equal(t, f.b.ID, state.Page.ID)
		assert.Equal(t, 6, *state.PendingDiceRoll)
		d.sessions.AssertNotCalled(t, "InsertIfAbsent", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Story without a start page", func(t *testing.T) {
		d := newDeps()
		empty := &models.Story{ID: uuid.New(), Status: models.StatusPublished}
		d.stories.On("GetByID", mock.Anything, mock.Anything, empty.ID).Return(empty, nil)
		d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), empty.ID).Return(nil, models.ErrNotFound)

		_, err := d.gameplay(1).StartOrResume(ctx, f.player, empty.ID)

		assert.ErrorIs(t, err, models.ErrNoStartPage)
	})

	t.Run("Ending start page completes the play at once", func(t *testing.T) {
		d := newDeps()
		short := &models.Story{ID: f.story.ID, Status: models.StatusPublished, StartPageID: &f.c.ID}
		session := f.sessionAt(f.c, f.c)
		d.stories.On("GetByID", mock.Anything, mock.Anything, f.story.ID).Return(short, nil)
		d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(session, nil)
		d.sessions.On("GetForUpdate", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(session, nil)
		d.sessions.On("Delete", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(nil)
		d.pages.On("GetByID", mock.Anything, mock.Anything, f.c.ID).Return(f.c, nil)
		d.tx.On("WithTransaction", ctx).Return(nil)
		d.plays.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		d.plays.On("InsertPath", mock.Anything, mock.Anything, mock.MatchedBy(func(rows []models.PlayerPathStep) bool {
			return len(rows) == 1 && rows[0].PageID == f.c.ID && rows[0].Sequence == 1
		})).Return(nil).Once()
		d.cache.On("Invalidate", mock.Anything, f.story.ID).Return(errors.New("redis down"))
		d.publisher.On("PublishPlayCompleted", mock.Anything, mock.Anything).Return(nil)

		state, err := d.gameplay(1).StartOrResume(ctx, f.player, f.story.ID)

		require.NoError(t, err, "cache failures must not fail a committed play")
		assert.True(t, state.IsEnding)
		assert.NotNil(t, state.PlayID)
		assert.Empty(t, state.Page.Choices)
		d.plays.AssertExpectations(t)
	})

	t.Run("Deleted current page restarts the story", func(t *testing.T) {
		d := newDeps()
		gone := uuid.New()
		stale := f.sessionAt(&models.Page{ID: gone}, f.a)
		d.stories.On("GetByID", mock.Anything, mock.Anything, f.story.ID).Return(f.story, nil)
		d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(stale, nil).Once()
		d.pages.On("GetByID", mock.Anything, mock.Anything, gone).Return(nil, models.ErrPageNotFound)
		d.sessions.On("Delete", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(nil).Once()
		d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(nil, models.ErrNotFound).Once()
		d.sessions.On("InsertIfAbsent", mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Once()
		d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(f.sessionAt(f.a, f.a), nil).Once()
		d.pages.On("GetByID", mock.Anything, mock.Anything, f.a.ID).Return(f.a, nil)

		state, err := d.gameplay(1).StartOrResume(ctx, f.player, f.story.ID)

		require.NoError(t, err)
		assert.Equal(t, f.a.ID, state.Page.ID)
		d.sessions.AssertExpectations(t)
	})
}

func TestRollDice(t *testing.T) {
	ctx := context.Background()
	f := newForest()

	t.Run("Draws and stores a new roll", func(t *testing.T) {
		d := newDeps()
		d.stories.On("GetByID", mock.Anything, mock.Anything, f.story.ID).Return(f.story, nil)
		d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(f.sessionAt(f.a, f.a), nil)
		d.sessions.On("SetPendingRoll", mock.Anything, mock.Anything, f.player.Key(), f.story.ID, intPtr(4)).Return(nil).Once()

		roll, err := d.gameplay(4).RollDice(ctx, f.player, f.story.ID)

		require.NoError(t, err)
		assert.Equal(t, 4, roll)
		d.sessions.AssertExpectations(t)
	})

	t.Run("Unspent roll is returned again", func(t *testing.T) {
		d := newDeps()
		session := f.sessionAt(f.a, f.a)
		session.PendingDiceRoll = intPtr(2)
		d.stories.On("GetByID", mock.Anything, mock.Anything, f.story.ID).Return(f.story, nil)
		d.sessions.On("Get", mock.Anything, mock.Anything, f.player.Key(), f.story.ID).Return(session, nil)

		roll, err := d.gameplay(6).RollDice(ctx, f.player, f.story.ID)

		require.NoError(t, err)
		assert.Equal(t, 2, roll)
		d.sessions.AssertNotCalled(t, "SetPendingRoll", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
