// Command migrate applies the embedded SQL migrations to DATABASE_URL.
//
//	migrate [up]          apply all pending migrations
//	migrate down <n>      roll back n migrations
//	migrate force <v>     mark version v as clean after a failed run
//	migrate version       print the current version
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	appconfig "github.com/wolfman30/hairloss-doctor/internal/config"
	appmigrations "github.com/wolfman30/hairloss-doctor/migrations"
	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if err := run(cfg.DatabaseURL, os.Args[1:]); err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(databaseURL string, args []string) error {
	cmd, arg, err := parseArgs(args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(databaseURL) == "" {
		return errors.New("DATABASE_URL is required")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("db driver: %w", err)
	}
	m, err := newMigrator(dbDriver)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-arg)
	case "force":
		err = m.Force(arg)
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return nil
		}
		if verr != nil {
			return fmt.Errorf("version: %w", verr)
		}
		fmt.Printf("version %d (dirty=%t)\n", version, dirty)
		return nil
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", cmd, err)
	}
	fmt.Printf("migrate %s complete\n", cmd)
	return nil
}

func newMigrator(dbDriver database.Driver) (*migrate.Migrate, error) {
	srcDriver, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// parseArgs returns the subcommand and its numeric argument.
func parseArgs(args []string) (string, int, error) {
	if len(args) == 0 {
		return "up", 0, nil
	}
	cmd := args[0]
	switch cmd {
	case "up", "version":
		return cmd, 0, nil
	case "down", "force":
		if len(args) < 2 {
			return "", 0, fmt.Errorf("%s requires a number", cmd)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || (cmd == "down" && n <= 0) || n < 0 {
			return "", 0, fmt.Errorf("invalid %s argument %q", cmd, args[1])
		}
		return cmd, n, nil
	default:
		return "", 0, fmt.Errorf("unknown command %q", cmd)
	}
}
