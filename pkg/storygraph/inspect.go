package storygraph

import (
	"slices"

	"adventure-server/shared/models"

	"github.com/google/uuid"
)

// Report lists structural problems of a story graph. None of them blocks writes.
type Report struct {
	StoryID            uuid.UUID   `json:"story_id"`
	MissingStartPage   bool        `json:"missing_start_page"`
	DanglingChoices    []uuid.UUID `json:"dangling_choices"`
	UnreachablePages   []uuid.UUID `json:"unreachable_pages"`
	EndingsWithChoices []uuid.UUID `json:"endings_with_choices"`
	DeadEnds           []uuid.UUID `json:"dead_ends"`
	Endings            int         `json:"endings"`
}

// OK reports whether the graph has no problems.
func (r Report) OK() bool {
	return !r.MissingStartPage &&
		len(r.DanglingChoices) == 0 &&
		len(r.UnreachablePages) == 0 &&
		len(r.EndingsWithChoices) == 0 &&
		len(r.DeadEnds) == 0
}

// Inspect audits the graph of story built from pages.
func Inspect(story *models.Story, pages []*models.Page) Report {
	rep := Report{
		StoryID:            story.ID,
		DanglingChoices:    []uuid.UUID{},
		UnreachablePages:   []uuid.UUID{},
		EndingsWithChoices: []uuid.UUID{},
		DeadEnds:           []uuid.UUID{},
	}

	byID := make(map[uuid.UUID]*models.Page, len(pages))
	for _, p := range pages {
		if p.StoryID == story.ID {
			byID[p.ID] = p
		}
	}

	for _, p := range pages {
		if p.IsEnding {
			rep.Endings++
			if len(p.Choices) > 0 {
				rep.EndingsWithChoices = append(rep.EndingsWithChoices, p.ID)
			}
		} else if len(p.Choices) == 0 {
			rep.DeadEnds = append(rep.DeadEnds, p.ID)
		}
		for _, c := range p.Choices {
			if _, ok := byID[c.NextPageID]; !ok {
				rep.DanglingChoices = append(rep.DanglingChoices, c.ID)
			}
		}
	}

	if story.StartPageID == nil || byID[*story.StartPageID] == nil {
		rep.MissingStartPage = true
		return rep
	}

	seen := map[uuid.UUID]bool{*story.StartPageID: true}
	queue := []uuid.UUID{*story.StartPageID}
	for len(queue) > 0 {
		p := byID[queue[0]]
		queue = queue[1:]
		for _, c := range AvailableChoices(p) {
			if _, ok := byID[c.NextPageID]; ok && !seen[c.NextPageID] {
				seen[c.NextPageID] = true
				queue = append(queue, c.NextPageID)
			}
		}
	}
	for _, p := range pages {
		if _, ok := byID[p.ID]; ok && !seen[p.ID] {
			rep.UnreachablePages = append(rep.UnreachablePages, p.ID)
		}
	}
	slices.SortFunc(rep.UnreachablePages, compareUUID)
	return rep
}

func compareUUID(a, b uuid.UUID) int {
	return slices.Compare(a[:], b[:])
}
