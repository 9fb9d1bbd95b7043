package main

import (
	"errors"
	"flag"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/liamcoop/ivfsuccess/internal/config"
	"github.com/liamcoop/ivfsuccess/internal/logger"
)

// migrator is the subset of *migrate.Migrate the commands use
type migrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Force(version int) error
}

// runCommand executes one migration command and returns a status line
func runCommand(m migrator, command string, args []string) (string, error) {
	switch command {
	case "up":
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			return "no migrations to run (database is up to date)", nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to run migrations: %w", err)
		}
		return "migrations completed", nil

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return "", fmt.Errorf("failed to roll back migrations: %w", err)
		}
		return "rollback completed", nil

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return "no migration applied", nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to get version: %w", err)
		}
		return fmt.Sprintf("current version: %d (dirty: %v)", version, dirty), nil

	case "force":
		if len(args) < 1 {
			return "", errors.New("force requires a version number: -command force <version>")
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return "", fmt.Errorf("invalid version number %q: %w", args[0], err)
		}
		if err := m.Force(version); err != nil {
			return "", fmt.Errorf("failed to force version: %w", err)
		}
		return fmt.Sprintf("forced version to %d", version), nil

	default:
		return "", fmt.Errorf("unknown command: %s (use: up, down, version, force)", command)
	}
}

func main() {
	var databaseURL string
	var migrationsPath string
	var command string

	flag.StringVar(&databaseURL, "database", "", "Database URL (defaults to DATABASE_URL)")
	flag.StringVar(&migrationsPath, "path", "migrations", "Path to migrations directory")
	flag.StringVar(&command, "command", "up", "Migration command: up, down, version, force")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = config.New().GetString(config.KeyDatabaseURL)
	}
	if databaseURL == "" {
		logger.Fatal("database URL is required; use -database or " + config.KeyDatabaseURL)
	}

	logger.Info("connecting to database", "migrations", migrationsPath, "command", command)

	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), databaseURL)
	if err != nil {
		logger.Fatal("failed to create migration instance", "error", err)
	}
	defer m.Close()

	status, err := runCommand(m, command, flag.Args())
	if err != nil {
		logger.Fatal("migration failed", "error", err)
	}
	logger.Info(status)
}
