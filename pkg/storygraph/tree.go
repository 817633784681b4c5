package storygraph

import (
	"adventure-server/shared/models"
)

const (
	treeNodeTextLimit  = 50
	treeEdgeLabelLimit = 30
)

// BuildTree projects a story graph to nodes and edges for visualisation.
func BuildTree(story *models.Story, pages []*models.Page) *models.StoryTree {
	tree := &models.StoryTree{
		StoryID: story.ID,
		Title:   story.Title,
		Nodes:   make([]models.TreeNode, 0, len(pages)),
		Edges:   make([]models.TreeEdge, 0),
	}
	for _, p := range pages {
		tree.Nodes = append(tree.Nodes, models.TreeNode{
			ID:          p.ID,
			Text:        Truncate(p.Text, treeNodeTextLimit),
			IsStart:     story.StartPageID != nil && *story.StartPageID == p.ID,
			IsEnding:    p.IsEnding,
			EndingLabel: p.EndingLabel,
		})
		for _, c := range p.Choices {
			tree.Edges = append(tree.Edges, models.TreeEdge{
				ID:              c.ID,
				From:            p.ID,
				To:              c.NextPageID,
				Label:           Truncate(c.Text, treeEdgeLabelLimit),
				DiceRequirement: c.DiceRequirement,
			})
		}
	}
	return tree
}

// Truncate cuts s to limit runes and marks the cut with "...".
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
