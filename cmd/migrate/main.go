package main

import (
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/meal-hub/internal/config"
	"github.com/fdg312/meal-hub/internal/dbmigrate"
	"github.com/fdg312/meal-hub/internal/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New("migrate", cfg.LogLevel)
	defer logger.Sync()

	if len(os.Args) < 2 {
		logger.Fatalf("usage: go run ./cmd/migrate [%s]", strings.Join(dbmigrate.Commands, "|"))
	}
	command := os.Args[1]

	target, err := dbmigrate.SelectTarget(cfg, false)
	if err != nil {
		logger.Fatal(err)
	}
	if target.Warning != "" {
		logger.Warn(target.Warning)
	}
	logger.Infow("migrate", "command", command, "using", target.Source)

	if err := dbmigrate.Run(command, target, logging.StdLogger(logger.Named("goose"))); err != nil {
		logger.Fatal(err)
	}

	logger.Infof("migrate: %s completed successfully", command)
}
