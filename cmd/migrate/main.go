package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/cephie-studios/pfcontrol/internal/config"
	"github.com/cephie-studios/pfcontrol/internal/db/migrations"
	"github.com/cephie-studios/pfcontrol/pkg/logger"
)

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbURL := flag.String("db", cfg.DBConnStr, "Database connection string")
	rollback := flag.Bool("rollback", false, "Rollback the last applied migration")
	flag.Parse()

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	conn, err := sql.Open("postgres", *dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer conn.Close()

	if err := conn.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	migrator := migrations.New(conn)
	all := migrations.All()

	if *rollback {
		name, err := migrator.Rollback(all)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		if name == "" {
			log.Info("Nothing to roll back")
		} else {
			log.Info("Rolled back migration", logger.String("name", name))
		}
		return nil
	}

	applied, err := migrator.Migrate(all)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if len(applied) == 0 {
		log.Info("Schema already up to date")
	} else {
		for _, name := range applied {
			log.Info("Applied migration", logger.String("name", name))
		}
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pfcontrol-migrate: %v\n", err)
		os.Exit(1)
	}
}
