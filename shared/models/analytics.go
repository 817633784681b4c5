package models

import (
	"time"

	"github.com/google/uuid"
)

// EndingCount is a raw aggregate row: plays per ending page.
type EndingCount struct {
	EndingPageID uuid.UUID `db:"ending_page_id"`
	Count        int64     `db:"count"`
}

// EndingStat describes how often an ending was reached.
type EndingStat struct {
	EndingPageID uuid.UUID `json:"ending_page_id"`
	Label        string    `json:"label"`
	Count        int64     `json:"count"`
	Percentage   float64   `json:"percentage"`
}

// EndingShare is shown on an ending screen.
type EndingShare struct {
	EndingPageID uuid.UUID `json:"ending_page_id"`
	Count        int64     `json:"count"`
	Total        int64     `json:"total"`
	Percentage   float64   `json:"percentage"`
}

// StoryPlayCount is one row of the top stories ranking.
type StoryPlayCount struct {
	StoryID uuid.UUID `json:"story_id" db:"story_id"`
	Title   string    `json:"title,omitempty" db:"-"`
	Plays   int64     `json:"plays" db:"plays"`
}

// PathStepView is a committed path step joined with the page it points at.
type PathStepView struct {
	Sequence    int        `json:"sequence"`
	PageID      uuid.UUID  `json:"page_id"`
	PageText    string     `json:"page_text"`
	PageMissing bool       `json:"page_missing,omitempty"`
	ChoiceID    *uuid.UUID `json:"choice_id,omitempty"`
	DiceRoll    *int       `json:"dice_roll,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// PlayerPathView is a reconstructed traversal of one Play.
type PlayerPathView struct {
	Play  *Play          `json:"play"`
	Steps []PathStepView `json:"steps"`
}

// StatsSummary holds platform-wide counters.
type StatsSummary struct {
	TotalPlays       int64            `json:"total_plays"`
	PublishedStories int64            `json:"published_stories"`
	TopStories       []StoryPlayCount `json:"top_stories"`
}
