package config

import (
	"testing"
	"time"

	"adventure-server/shared/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	old := utils.SecretsDir
	utils.SecretsDir = t.TempDir()
	t.Cleanup(func() { utils.SecretsDir = old })
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "adventure")
	t.Setenv("DB_NAME", "adventure")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("JWT_SECRET", "jwt")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 720*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.TopStoriesLimit)
	assert.Equal(t, "postgres://adventure:pw@localhost:5432/adventure?sslmode=disable", cfg.GetDSN())
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.ContentAPIKeyHash)
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_RejectsNonPositiveTTL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SESSION_TTL", "0s")

	_, err := LoadConfig()
	assert.Error(t, err)
}
