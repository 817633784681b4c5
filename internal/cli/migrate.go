package cli

import (
	"fmt"
	"strconv"

	"adventure-server/pkg/migration"
	"adventure-server/shared/database/migrations"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *migration.Migrator) error { return m.Up() })
		},
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (one step by default, --all for everything)",
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			return withMigrator(cmd, func(m *migration.Migrator) error {
				if all {
					return m.Down()
				}
				return m.Steps(-steps)
			})
		},
	}
	downCmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to roll back")
	downCmd.Flags().Bool("all", false, "Roll back every migration")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *migration.Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
				return err
			})
		},
	}

	forceCmd := &cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations (clears the dirty flag)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return withMigrator(cmd, func(m *migration.Migrator) error { return m.Force(v) })
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, versionCmd, forceCmd)
	RootCmd.AddCommand(migrateCmd)
}

func withMigrator(cmd *cobra.Command, fn func(m *migration.Migrator) error) error {
	pool, err := openPool(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(migration.NewMigrator(migration.Config{FS: migrations.FS}, pool, log.Logger))
}
