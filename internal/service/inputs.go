package service

import (
	"errors"
	"fmt"
	"strings"

	"adventure-server/shared/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput runs struct tag validation and maps failures to models.ErrInvalidInput.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", models.ErrInvalidInput, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
}

type CreateStoryInput struct {
	Title           string             `json:"title" validate:"required,max=200"`
	Description     string             `json:"description" validate:"max=5000"`
	Status          models.StoryStatus `json:"status" validate:"omitempty,oneof=draft published suspended"`
	IllustrationURL *string            `json:"illustration_url" validate:"omitempty,url"`
	Metadata        map[string]any     `json:"metadata"`
}

type UpdateStoryInput struct {
	Title           *string             `json:"title" validate:"omitempty,min=1,max=200"`
	Description     *string             `json:"description" validate:"omitempty,max=5000"`
	Status          *models.StoryStatus `json:"status" validate:"omitempty,oneof=draft published suspended"`
	StartPageID     *uuid.UUID          `json:"start_page_id"`
	IllustrationURL *string             `json:"illustration_url" validate:"omitempty,url"`
	Metadata        map[string]any      `json:"metadata"`
}

type CreatePageInput struct {
	Text            string  `json:"text" validate:"required,max=20000"`
	IsEnding        bool    `json:"is_ending"`
	EndingLabel     *string `json:"ending_label" validate:"omitempty,max=100"`
	IllustrationURL *string `json:"illustration_url" validate:"omitempty,url"`
}

type UpdatePageInput struct {
	Text            *string `json:"text" validate:"omitempty,min=1,max=20000"`
	IsEnding        *bool   `json:"is_ending"`
	EndingLabel     *string `json:"ending_label" validate:"omitempty,max=100"`
	IllustrationURL *string `json:"illustration_url" validate:"omitempty,url"`
}

type CreateChoiceInput struct {
	Text            string    `json:"text" validate:"required,max=500"`
	NextPageID      uuid.UUID `json:"next_page_id" validate:"required"`
	DiceRequirement *int      `json:"dice_requirement" validate:"omitempty,min=1,max=6"`
}

type UpdateChoiceInput struct {
	Text            *string    `json:"text" validate:"omitempty,min=1,max=500"`
	NextPageID      *uuid.UUID `json:"next_page_id"`
	DiceRequirement *int       `json:"dice_requirement" validate:"omitempty,min=1,max=6"`
	// ClearDiceRequirement removes the gate; it wins over DiceRequirement.
	ClearDiceRequirement bool `json:"clear_dice_requirement"`
}
