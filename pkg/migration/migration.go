package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

// Config содержит настройки для миграций
type Config struct {
	FS              fs.FS  // источник *.sql файлов
	Path            string // каталог внутри FS, "." для корня
	MigrationsTable string
	LockTimeout     time.Duration
}

// Migrator применяет SQL-миграции из встроенной FS к базе пула.
type Migrator struct {
	cfg  Config
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewMigrator создает новый экземпляр Migrator
func NewMigrator(cfg Config, pool *pgxpool.Pool, log zerolog.Logger) *Migrator {
	if cfg.Path == "" {
		cfg.Path = "."
	}
	if cfg.MigrationsTable == "" {
		cfg.MigrationsTable = "schema_migrations"
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 30 * time.Second
	}
	return &Migrator{cfg: cfg, pool: pool, log: log.With().Str("component", "migrator").Logger()}
}

// Up применяет все доступные миграции.
func (m *Migrator) Up() error {
	return m.run("apply", func(mg *migrate.Migrate) error { return mg.Up() })
}

// Down откатывает все миграции.
func (m *Migrator) Down() error {
	return m.run("rollback", func(mg *migrate.Migrate) error { return mg.Down() })
}

// Steps applies n migrations forward (n > 0) or backward (n < 0).
func (m *Migrator) Steps(n int) error {
	return m.run(fmt.Sprintf("step %d", n), func(mg *migrate.Migrate) error { return mg.Steps(n) })
}

// Force sets the version without running migrations; used to recover from a dirty state.
func (m *Migrator) Force(version int) error {
	return m.run(fmt.Sprintf("force %d", version), func(mg *migrate.Migrate) error { return mg.Force(version) })
}

// Version возвращает текущую версию миграции и флаг dirty.
func (m *Migrator) Version() (uint, bool, error) {
	mg, db, err := m.open()
	if err != nil {
		return 0, false, err
	}
	defer m.close(mg, db)

	version, dirty, err := mg.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

func (m *Migrator) run(op string, fn func(*migrate.Migrate) error) error {
	mg, db, err := m.open()
	if err != nil {
		return err
	}
	defer m.close(mg, db)

	if err := fn(mg); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.log.Info().Str("op", op).Msg("database schema is up to date")
			return nil
		}
		return fmt.Errorf("migration %s failed: %w", op, err)
	}

	version, dirty, _ := mg.Version()
	m.log.Info().Str("op", op).Uint("version", version).Bool("dirty", dirty).Msg("database migrations done")
	return nil
}

func (m *Migrator) open() (*migrate.Migrate, *sql.DB, error) {
	db := stdlib.OpenDBFromPool(m.pool)

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: m.cfg.MigrationsTable})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	source, err := iofs.New(m.cfg.FS, m.cfg.Path)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	mg, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	mg.LockTimeout = m.cfg.LockTimeout
	return mg, db, nil
}

func (m *Migrator) close(mg *migrate.Migrate, db *sql.DB) {
	srcErr, dbErr := mg.Close()
	if srcErr != nil || dbErr != nil {
		m.log.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("failed to close migrator")
	}
	_ = db.Close()
}
