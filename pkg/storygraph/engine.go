package storygraph

import (
	"context"
	"errors"
	"fmt"

	"adventure-server/shared/models"

	"github.com/google/uuid"
)

// PageSource loads a page together with its outgoing choices.
type PageSource interface {
	GetPage(ctx context.Context, id uuid.UUID) (*models.Page, error)
}

// PageSourceFunc adapts a function to PageSource.
type PageSourceFunc func(ctx context.Context, id uuid.UUID) (*models.Page, error)

func (f PageSourceFunc) GetPage(ctx context.Context, id uuid.UUID) (*models.Page, error) {
	return f(ctx, id)
}

// Outcome is the result of a successfully resolved choice.
type Outcome struct {
	From     *models.Page
	Choice   *models.Choice
	NextPage *models.Page
	IsEnding bool
	// DiceRoll is the roll that satisfied a gated choice; nil for ungated choices.
	DiceRoll *int
}

// Engine resolves choices against the story graph. It holds no state.
type Engine struct {
	pages PageSource
}

func NewEngine(pages PageSource) *Engine {
	return &Engine{pages: pages}
}

// Resolve validates choiceID against the current page and the dice roll.
//
// Errors: models.ErrUnknownPage when the current page is gone, models.ErrInvalidChoice
// when the choice is not offered on it, and the dice errors of CheckDice.
// An ending page offers no choices.
func (e *Engine) Resolve(ctx context.Context, currentPageID, choiceID uuid.UUID, roll *int) (*Outcome, error) {
	current, err := e.pages.GetPage(ctx, currentPageID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnknownPage
		}
		return nil, fmt.Errorf("failed to load current page: %w", err)
	}

	choice := AvailableChoice(current, choiceID)
	if choice == nil {
		return nil, models.ErrInvalidChoice
	}
	if err := CheckDice(choice, roll); err != nil {
		return nil, err
	}

	next, err := e.pages.GetPage(ctx, choice.NextPageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load target page %s: %w", choice.NextPageID, err)
	}

	out := &Outcome{
		From:     current,
		Choice:   choice,
		NextPage: next,
		IsEnding: next.IsEnding,
	}
	if choice.DiceRequirement != nil {
		r := *roll
		out.DiceRoll = &r
	}
	return out, nil
}

// AvailableChoice returns the choice with id if the page offers it to a player.
func AvailableChoice(page *models.Page, id uuid.UUID) *models.Choice {
	if page == nil || page.IsEnding {
		return nil
	}
	return page.FindChoice(id)
}

// AvailableChoices returns the choices a player may pick on page.
func AvailableChoices(page *models.Page) []*models.Choice {
	if page == nil || page.IsEnding {
		return []*models.Choice{}
	}
	return page.Choices
}
