package config

import (
	"fmt"
	"strings"
	"time"

	"adventure-server/shared/utils"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Config содержит конфигурацию adventure-server.
type Config struct {
	// Настройки сервера
	Port            string        `envconfig:"SERVER_PORT" default:"8080"`
	Env             string        `envconfig:"ENV" default:"development"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding     string        `envconfig:"LOG_ENCODING" default:"json"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
	AllowedOrigins  []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// Настройки PostgreSQL
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_TIME" default:"5m"`
	AutoMigrate   bool          `envconfig:"DB_AUTO_MIGRATE" default:"true"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string `ignored:"true"`

	// Redis (кэш статистики концовок). Пустой адрес отключает кэш.
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	StatsCacheTTL time.Duration `envconfig:"STATS_CACHE_TTL" default:"5m"`
	RedisPassword string        `ignored:"true"`

	// RabbitMQ (события play.completed). Пустой URL отключает публикацию.
	RabbitMQURL        string `envconfig:"RABBITMQ_URL"`
	PlayEventsExchange string `envconfig:"PLAY_EVENTS_EXCHANGE" default:"play_events_exchange"`

	// Сессии прохождения
	SessionTTL           time.Duration `envconfig:"SESSION_TTL" default:"720h"`
	SessionSweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"1h"`

	TopStoriesLimit int `envconfig:"TOP_STORIES_LIMIT" default:"10"`
	// Лимит запросов к /api/play на идентичность в минуту; 0 отключает.
	PlayRateLimit uint `envconfig:"PLAY_RATE_LIMIT" default:"120"`

	// Секреты
	JWTSecret         string `ignored:"true"`
	ContentAPIKeyHash string `ignored:"true"`
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadConfig загружает конфигурацию из переменных окружения и секретов.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load adventure-server config: %w", err)
	}

	var err error
	if cfg.DBPassword, err = utils.ReadSecretOrEnv("db_password", "DB_PASSWORD"); err != nil {
		return nil, err
	}
	if cfg.JWTSecret, err = utils.ReadSecretOrEnv("jwt_secret", "JWT_SECRET"); err != nil {
		return nil, err
	}
	// Optional secrets.
	cfg.ContentAPIKeyHash, _ = utils.ReadSecretOrEnv("content_api_key_hash", "CONTENT_API_KEY_HASH")
	cfg.RedisPassword, _ = utils.ReadSecretOrEnv("redis_password", "REDIS_PASSWORD")

	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	return &cfg, nil
}

// LogFields describes the loaded configuration without secrets.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("port", c.Port),
		zap.String("env", c.Env),
		zap.String("logLevel", c.LogLevel),
		zap.String("db", fmt.Sprintf("postgres://%s:***@%s:%s/%s?sslmode=%s", c.DBUser, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)),
		zap.Int("dbMaxConns", c.DBMaxConns),
		zap.Bool("autoMigrate", c.AutoMigrate),
		zap.Bool("redisEnabled", c.RedisAddr != ""),
		zap.Bool("rabbitmqEnabled", c.RabbitMQURL != ""),
		zap.Duration("sessionTTL", c.SessionTTL),
		zap.Duration("sessionSweepInterval", c.SessionSweepInterval),
		zap.Uint("playRateLimit", c.PlayRateLimit),
		zap.Bool("contentAPIKey", c.ContentAPIKeyHash != ""),
	}
}
