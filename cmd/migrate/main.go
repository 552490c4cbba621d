package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/joao-fontenele/storefront-orders/internal/logging"
)

const usage = "usage: migrate [-path url] [-steps n] <up|down|version|force v>"

func main() {
	logger := logging.New("migrate")

	pathFlag := flag.String("path", "", "migrations source URL, overrides MIGRATIONS_PATH")
	steps := flag.Int("steps", 1, "number of migrations to roll back with down")
	flag.Parse()

	if flag.NArg() < 1 {
		logger.Error(usage)
		os.Exit(2)
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	source := *pathFlag
	if source == "" {
		source = os.Getenv("MIGRATIONS_PATH")
	}
	if source == "" {
		source = "file://migrations"
	}

	m, err := migrate.New(source, postgresURL)
	if err != nil {
		logger.Error("failed to create migrate instance", "error", err, "source", source)
		os.Exit(1)
	}
	defer func() { _, _ = m.Close() }()

	if err := run(m, logger, flag.Args(), *steps); err != nil {
		logger.Error("migrate failed", "command", flag.Arg(0), "error", err)
		os.Exit(1)
	}
}

func run(m *migrate.Migrate, logger *slog.Logger, args []string, steps int) error {
	switch args[0] {
	case "up":
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("schema is up to date")
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("migrations applied")
	case "down":
		if steps < 1 {
			return fmt.Errorf("steps must be positive, got %d", steps)
		}
		err := m.Steps(-steps)
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("nothing to roll back")
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("migrations rolled back", "steps", steps)
	case "force":
		if len(args) < 2 {
			return errors.New(usage)
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		if err := m.Force(version); err != nil {
			return err
		}
		logger.Info("migration version forced", "version", version)
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied yet")
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("current migration version", "version", version, "dirty", dirty)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}
