package storygraph

import (
	"adventure-server/shared/models"

	"github.com/google/uuid"
)

// ValidateChoiceTarget checks that targetID names a page of the same story as source.
// storyPages must be the pages of source's story.
func ValidateChoiceTarget(source *models.Page, targetID uuid.UUID, storyPages []*models.Page) error {
	if source == nil {
		return models.ErrInvalidReference
	}
	for _, p := range storyPages {
		if p.ID == targetID {
			if p.StoryID != source.StoryID {
				return models.ErrInvalidReference
			}
			return nil
		}
	}
	return models.ErrInvalidReference
}

// ValidateStartPage checks that page belongs to story.
func ValidateStartPage(story *models.Story, page *models.Page) error {
	if story == nil || page == nil || page.StoryID != story.ID {
		return models.ErrInvalidReference
	}
	return nil
}

// ValidateDiceRequirement accepts nil or a face of the die.
func ValidateDiceRequirement(req *int) error {
	if req != nil && !ValidRoll(*req) {
		return models.ErrInvalidInput
	}
	return nil
}
