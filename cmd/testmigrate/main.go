package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"asms-api/internal/config"
	"asms-api/internal/database"
	"asms-api/internal/logging"
)

// testmigrate prepares the integration test database. It reads the usual
// DB_* settings; TEST_DATABASE_URL takes precedence over DB_DSN.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		cfg.DatabaseURL = dsn
	}
	logger := logging.NewLogger(cfg.LogLevel, os.Stdout)
	log := logrus.NewEntry(logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.Open(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to test database")
	}
	defer pool.Close()

	applied, err := database.Migrate(ctx, pool, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to apply migrations")
	}
	fmt.Printf("Applied %d migration(s)\n", len(applied))
}
