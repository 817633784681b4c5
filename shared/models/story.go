package models

import (
	"time"

	"github.com/google/uuid"
)

// StoryStatus определяет статус истории. Совпадает с CHECK-ограничением stories.status в БД.
type StoryStatus string

const (
	StatusDraft     StoryStatus = "draft"     // Черновик, виден только автору
	StatusPublished StoryStatus = "published" // Доступна всем игрокам
	StatusSuspended StoryStatus = "suspended" // Снята модератором, играть нельзя
)

// Valid reports whether s is one of the known statuses.
func (s StoryStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusSuspended:
		return true
	}
	return false
}

// Story is the root of a story graph.
type Story struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	Title           string         `json:"title" db:"title"`
	Description     string         `json:"description" db:"description"`
	Status          StoryStatus    `json:"status" db:"status"`
	StartPageID     *uuid.UUID     `json:"start_page_id,omitempty" db:"start_page_id"`
	AuthorID        *uuid.UUID     `json:"author_id,omitempty" db:"author_id"`
	IllustrationURL *string        `json:"illustration_url,omitempty" db:"illustration_url"`
	Metadata        map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`

	// Pages заполняется только когда граф запрошен целиком.
	Pages []*Page `json:"pages,omitempty" db:"-"`
}

// IsOwnedBy reports whether userID is the story's author.
func (s *Story) IsOwnedBy(userID *uuid.UUID) bool {
	return s != nil && s.AuthorID != nil && userID != nil && *s.AuthorID == *userID
}

// Page is a node of the story graph.
type Page struct {
	ID              uuid.UUID `json:"id" db:"id"`
	StoryID         uuid.UUID `json:"story_id" db:"story_id"`
	Text            string    `json:"text" db:"text"`
	IsEnding        bool      `json:"is_ending" db:"is_ending"`
	EndingLabel     *string   `json:"ending_label,omitempty" db:"ending_label"`
	IllustrationURL *string   `json:"illustration_url,omitempty" db:"illustration_url"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`

	Choices []*Choice `json:"choices" db:"-"`
}

// FindChoice returns the outgoing choice with the given id, or nil.
func (p *Page) FindChoice(id uuid.UUID) *Choice {
	for _, c := range p.Choices {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Choice is a directed edge between two pages of the same story.
type Choice struct {
	ID              uuid.UUID `json:"id" db:"id"`
	PageID          uuid.UUID `json:"page_id" db:"page_id"`
	Text            string    `json:"text" db:"text"`
	NextPageID      uuid.UUID `json:"next_page_id" db:"next_page_id"`
	DiceRequirement *int      `json:"dice_requirement,omitempty" db:"dice_requirement"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// StoryFilter narrows ListStories. Zero values mean "no filter".
type StoryFilter struct {
	Status   StoryStatus
	Search   string
	AuthorID *uuid.UUID
	Limit    int
	Offset   int
}

// StoryTree is the read-only node/edge projection of a story graph used by authoring tools.
type StoryTree struct {
	StoryID uuid.UUID  `json:"story_id"`
	Title   string     `json:"title"`
	Nodes   []TreeNode `json:"nodes"`
	Edges   []TreeEdge `json:"edges"`
}

type TreeNode struct {
	ID          uuid.UUID `json:"id"`
	Text        string    `json:"text"`
	IsStart     bool      `json:"is_start"`
	IsEnding    bool      `json:"is_ending"`
	EndingLabel *string   `json:"ending_label,omitempty"`
}

type TreeEdge struct {
	ID              uuid.UUID `json:"id"`
	From            uuid.UUID `json:"from"`
	To              uuid.UUID `json:"to"`
	Label           string    `json:"label"`
	DiceRequirement *int      `json:"dice_requirement,omitempty"`
}
