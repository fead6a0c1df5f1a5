package cmd

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-sponsorships/config"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Run: func(_ *cobra.Command, _ []string) {
		runMigration("up", func(m *migrate.Migrate) error { return m.Up() })
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations, one step unless --steps is given",
	Run: func(_ *cobra.Command, _ []string) {
		runMigration("down", func(m *migrate.Migrate) error {
			steps := migrateSteps
			if steps <= 0 {
				steps = 1
			}
			return m.Steps(-steps)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Run: func(_ *cobra.Command, _ []string) {
		runMigration("version", func(m *migrate.Migrate) error {
			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				logrus.Info("No migrations applied")
				return nil
			}
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("Schema version")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "Number of migrations to roll back")
}

func runMigration(name string, fn func(m *migrate.Migrate) error) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db := mustOpenDatabase(cfg)
	defer db.Close()

	m, err := newMigrator(db, cfg.MySQL.MigrationsPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize migrations")
	}

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logrus.WithError(err).WithField("command", name).Fatal("Migration failed")
	}
	logrus.WithField("command", name).Info("Migration finished")
}

func newMigrator(db *sql.DB, path string) (*migrate.Migrate, error) {
	driver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		return nil, fmt.Errorf("creating mysql driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+path, "mysql", driver)
	if err != nil {
		return nil, fmt.Errorf("creating migrate instance: %w", err)
	}
	return m, nil
}
