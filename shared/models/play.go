package models

import (
	"time"

	"github.com/google/uuid"
)

// PathStep - один шаг незавершённого прохождения. Хранится в play_sessions.path_steps (jsonb).
type PathStep struct {
	PageID   uuid.UUID  `json:"page_id"`
	ChoiceID *uuid.UUID `json:"choice_id,omitempty"`
	DiceRoll *int       `json:"dice_roll,omitempty"`
	At       time.Time  `json:"at"`
}

// PlaySession is the resumable position of one identity inside one story.
// At most one row exists per (SessionKey, StoryID).
type PlaySession struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	SessionKey      string     `json:"-" db:"session_key"`
	StoryID         uuid.UUID  `json:"story_id" db:"story_id"`
	CurrentPageID   uuid.UUID  `json:"current_page_id" db:"current_page_id"`
	UserID          *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	PendingDiceRoll *int       `json:"pending_dice_roll,omitempty" db:"pending_dice_roll"`
	Path            []PathStep `json:"path" db:"path_steps"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Play is an immutable record of one completed traversal.
type Play struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	StoryID      uuid.UUID  `json:"story_id" db:"story_id"`
	EndingPageID uuid.UUID  `json:"ending_page_id" db:"ending_page_id"`
	UserID       *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// PlayerPathStep is one committed row of a Play's path. Sequence starts at 1.
type PlayerPathStep struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	PlayID    uuid.UUID  `json:"play_id" db:"play_id"`
	PageID    uuid.UUID  `json:"page_id" db:"page_id"`
	ChoiceID  *uuid.UUID `json:"choice_id,omitempty" db:"choice_id"`
	Sequence  int        `json:"sequence" db:"sequence"`
	DiceRoll  *int       `json:"dice_roll,omitempty" db:"dice_roll"`
	Timestamp time.Time  `json:"timestamp" db:"timestamp"`
}

// ResolveResult is returned to the player after a choice was applied.
type ResolveResult struct {
	NextPage *Page      `json:"next_page"`
	IsEnding bool       `json:"is_ending"`
	PlayID   *uuid.UUID `json:"play_id,omitempty"`
	DiceRoll *int       `json:"dice_roll,omitempty"`
}

// PlayCompletedEvent is published after a Play has been committed.
type PlayCompletedEvent struct {
	PlayID       uuid.UUID  `json:"play_id"`
	StoryID      uuid.UUID  `json:"story_id"`
	EndingPageID uuid.UUID  `json:"ending_page_id"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	Steps        int        `json:"steps"`
	CompletedAt  time.Time  `json:"completed_at"`
}

// PlayState is what a player sees after starting or resuming a story.
type PlayState struct {
	StoryID         uuid.UUID  `json:"story_id"`
	Page            *Page      `json:"page"`
	PendingDiceRoll *int       `json:"pending_dice_roll,omitempty"`
	Resumed         bool       `json:"resumed"`
	IsEnding        bool       `json:"is_ending"`
	PlayID          *uuid.UUID `json:"play_id,omitempty"`
}
