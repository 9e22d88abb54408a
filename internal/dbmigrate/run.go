package dbmigrate

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"slices"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fdg312/meal-hub/migrations"
)

// Commands lists the goose commands cmd/migrate exposes.
var Commands = []string{"up", "status", "down"}

var ErrUnknownCommand = errors.New("unsupported migrate command")

// Run executes a goose command against target using the embedded meal-hub
// migrations. logger receives goose output; nil keeps the goose default.
func Run(command string, target Target, logger *log.Logger) error {
	if !slices.Contains(Commands, command) {
		return fmt.Errorf("%w %q (allowed: %v)", ErrUnknownCommand, command, Commands)
	}
	if target.URL == "" {
		return ErrNoDatabaseURL
	}

	db, err := sql.Open("pgx", target.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database (%s): %w", target.Source, err)
	}

	goose.SetBaseFS(migrations.FS)
	if logger != nil {
		goose.SetLogger(logger)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Run(command, db, "."); err != nil {
		return fmt.Errorf("goose %s failed: %w", command, err)
	}

	return nil
}
