package models

import "slices"

// Определяем константы для ролей
const (
	RoleAdmin  = "ROLE_ADMIN"
	RoleAuthor = "ROLE_AUTHOR"
	RoleUser   = "ROLE_USER" // обычный читатель
)

// HasRole проверяет, есть ли у пользователя указанная роль.
func HasRole(userRoles []string, targetRole string) bool {
	return slices.Contains(userRoles, targetRole)
}

// Principal is the caller of a request as seen by the authorization layer.
type Principal struct {
	Identity Identity
	Roles    []string
	// ServiceKey is set when the request carried a valid content API key.
	ServiceKey bool
}

// IsAdmin reports whether the principal has full rights.
func (p Principal) IsAdmin() bool {
	return p.ServiceKey || HasRole(p.Roles, RoleAdmin)
}

// Capabilities is the permission set of a principal with respect to one story.
// It is resolved once per request and consumed by handlers.
type Capabilities struct {
	CanEditStory bool `json:"can_edit_story"`
	CanModerate  bool `json:"can_moderate"`
	CanViewTree  bool `json:"can_view_tree"`
}
