package main

import (
	"log"

	"github.com/pageza/recipebox/config"
	"github.com/pageza/recipebox/internal/database"
	"github.com/pageza/recipebox/internal/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zl, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zl.Sync()

	db, err := database.New(cfg, zl)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.RunMigrations(db, zl); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}
	zl.Info("all migrations applied")
}
