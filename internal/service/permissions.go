package service

import (
	"adventure-server/shared/models"
)

// ResolveCapabilities computes what p may do with story.
//
// Admins and content API key holders may do everything. Authors may edit and inspect
// their own stories. Anyone may inspect the tree of a published story.
func ResolveCapabilities(p models.Principal, story *models.Story) models.Capabilities {
	if p.IsAdmin() {
		return models.Capabilities{CanEditStory: true, CanModerate: true, CanViewTree: true}
	}
	var caps models.Capabilities
	if story == nil {
		return caps
	}
	owner := story.IsOwnedBy(p.Identity.UserID)
	caps.CanEditStory = owner && models.HasRole(p.Roles, models.RoleAuthor)
	caps.CanViewTree = owner || story.Status == models.StatusPublished
	return caps
}

// CanCreateStory reports whether p may start a new story.
func CanCreateStory(p models.Principal) bool {
	return p.IsAdmin() || (p.Identity.IsAuthenticated() && models.HasRole(p.Roles, models.RoleAuthor))
}

// CanReadStory reports whether p may see story's content outside of play.
func CanReadStory(p models.Principal, story *models.Story) bool {
	if story.Status == models.StatusPublished {
		return true
	}
	return p.IsAdmin() || story.IsOwnedBy(p.Identity.UserID)
}

// CanViewPlayerPath reports whether p may see the path of play: its owner or an admin.
func CanViewPlayerPath(p models.Principal, play *models.Play) bool {
	if p.IsAdmin() {
		return true
	}
	return play.UserID != nil && p.Identity.UserID != nil && *play.UserID == *p.Identity.UserID
}
