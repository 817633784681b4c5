package storygraph

import (
	"testing"

	"adventure-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateChoiceTarget(t *testing.T) {
	f := newForest()
	foreign := &models.Page{ID: uuid.New(), StoryID: uuid.New()}

	assert.NoError(t, ValidateChoiceTarget(f.a, f.c.ID, f.pages()))
	assert.ErrorIs(t, ValidateChoiceTarget(f.a, foreign.ID, f.pages()), models.ErrInvalidReference,
		"target absent from story pages")
	assert.ErrorIs(t, ValidateChoiceTarget(f.a, foreign.ID, append(f.pages(), foreign)), models.ErrInvalidReference,
		"target of another story")
	assert.ErrorIs(t, ValidateChoiceTarget(nil, f.c.ID, f.pages()), models.ErrInvalidReference)
}

func TestValidateStartPage(t *testing.T) {
	f := newForest()
	assert.NoError(t, ValidateStartPage(f.story, f.b))
	assert.ErrorIs(t, ValidateStartPage(f.story, &models.Page{ID: uuid.New(), StoryID: uuid.New()}), models.ErrInvalidReference)
}

func TestValidateDiceRequirement(t *testing.T) {
	assert.NoError(t, ValidateDiceRequirement(nil))
	assert.NoError(t, ValidateDiceRequirement(intPtr(1)))
	assert.NoError(t, ValidateDiceRequirement(intPtr(6)))
	assert.ErrorIs(t, ValidateDiceRequirement(intPtr(0)), models.ErrInvalidInput)
	assert.ErrorIs(t, ValidateDiceRequirement(intPtr(7)), models.ErrInvalidInput)
}
