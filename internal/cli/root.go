// Package cli implements the storyctl operator commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"adventure-server/internal/service"
	"adventure-server/shared/database"
	sharedLogger "adventure-server/shared/logger"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Config is read from storyctl.yml, environment variables override it.
type Config struct {
	DB struct {
		Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
		Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
		User     string `yaml:"user" env:"DB_USER" env-default:"postgres"`
		Password string `yaml:"password" env:"DB_PASSWORD"`
		Name     string `yaml:"name" env:"DB_NAME" env-default:"adventure"`
		SSLMode  string `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
	} `yaml:"db"`
	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	} `yaml:"log"`
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"720h"`
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

var (
	configPath string
	cfg        Config
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "storyctl",
	Short:         "Operator tool for adventure-server",
	Long:          "storyctl applies migrations, sweeps abandoned play sessions, prints statistics and checks story graphs.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(configPath, &cfg); err != nil {
			return err
		}
		initLogger(cfg.Log.Level)
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "storyctl.yml", "Path to the config file")
}

// Execute runs RootCmd and reports a failure on stderr.
func Execute() int {
	if err := RootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		return 1
	}
	return 0
}

func loadConfig(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return nil
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("failed to read config from environment: %w", err)
	}
	return nil
}

func initLogger(level string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()

	logLevel := zerolog.InfoLevel
	if lvl, err := zerolog.ParseLevel(level); err == nil && level != "" {
		logLevel = lvl
	}
	zerolog.SetGlobalLevel(logLevel)
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Debug().Str("host", cfg.DB.Host).Str("db", cfg.DB.Name).Msg("connected to database")
	return pool, nil
}

// services bundles what the data commands need.
type services struct {
	stories   service.StoryService
	sessions  service.SessionManager
	analytics service.AnalyticsService
}

// withServices opens the database, builds the services and runs fn.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, s *services) error) error {
	ctx := cmd.Context()
	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Сервисный слой пишет в zap; в CLI показываем только предупреждения и ошибки.
	zl, err := sharedLogger.New(sharedLogger.Config{Level: "warn", Encoding: "console", ServiceName: "storyctl"})
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	storyRepo := database.NewPgStoryRepository(zl)
	pageRepo := database.NewPgPageRepository(zl)
	s := &services{
		stories: service.NewStoryService(pool, database.NewTransactionHelper(pool, zl), storyRepo, pageRepo,
			database.NewPgChoiceRepository(zl), database.NoopStatsCache{}, zl),
		sessions:  service.NewSessionManager(pool, database.NewPgPlaySessionRepository(zl), storyRepo, zl),
		analytics: service.NewAnalyticsService(pool, storyRepo, pageRepo, database.NewPgPlayRepository(zl), database.NoopStatsCache{}, zl),
	}
	return fn(ctx, s)
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}

