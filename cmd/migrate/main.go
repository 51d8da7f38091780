package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/minervalabs/minerva/internal/config"
	"github.com/minervalabs/minerva/internal/repository/postgres"
)

// Applies the SQL migrations to the Postgres backend. The sqlite and mysql
// backends bootstrap their own schema on open, and mongo is schemaless.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	sourceURL := "file://migrations"
	if len(os.Args) > 1 {
		sourceURL = os.Args[1]
	}

	fmt.Printf("Applying migrations to %s:%d...\n", cfg.Database.Host, cfg.Database.Port)

	if err := postgres.RunMigrations(cfg.Database.DSN(), sourceURL); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}
}
