package authutils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyChecker compares content API keys against a bcrypt hash from configuration.
type APIKeyChecker struct {
	hash []byte
}

// NewAPIKeyChecker returns a checker for hash. An empty hash disables API keys.
func NewAPIKeyChecker(hash string) (*APIKeyChecker, error) {
	if hash == "" {
		return &APIKeyChecker{}, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, errors.New("content API key hash is not a bcrypt hash")
	}
	return &APIKeyChecker{hash: []byte(hash)}, nil
}

// VerifyAPIKey reports whether key matches the configured hash.
func (c *APIKeyChecker) VerifyAPIKey(key string) bool {
	if len(c.hash) == 0 || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(c.hash, []byte(key)) == nil
}

// HashAPIKey produces the value stored in configuration for key.
func HashAPIKey(key string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
