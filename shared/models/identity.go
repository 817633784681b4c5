package models

import (
	"strings"

	"github.com/google/uuid"
)

const (
	userKeyPrefix = "user:"
	anonKeyPrefix = "anon:"

	// MaxSessionKeyLength bounds anonymous tokens; play_sessions.session_key is VARCHAR(255).
	MaxSessionKeyLength = 200
)

// Identity identifies a player. Authenticated players are keyed by user id,
// anonymous ones by an opaque token supplied by the caller.
type Identity struct {
	SessionKey string     `json:"session_key,omitempty"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
}

// Key returns the storage key of the identity; it is empty for an invalid identity.
func (i Identity) Key() string {
	if i.UserID != nil && *i.UserID != uuid.Nil {
		return userKeyPrefix + i.UserID.String()
	}
	if token := strings.TrimSpace(i.SessionKey); token != "" {
		return anonKeyPrefix + token
	}
	return ""
}

// Validate returns ErrInvalidIdentity when the identity carries neither a user nor a
// session key, or when an anonymous token is longer than MaxSessionKeyLength.
func (i Identity) Validate() error {
	if i.Key() == "" {
		return ErrInvalidIdentity
	}
	if !i.IsAuthenticated() && len(strings.TrimSpace(i.SessionKey)) > MaxSessionKeyLength {
		return ErrInvalidIdentity
	}
	return nil
}

// IsAuthenticated reports whether the identity belongs to a registered user.
func (i Identity) IsAuthenticated() bool {
	return i.UserID != nil && *i.UserID != uuid.Nil
}
