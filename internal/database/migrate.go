package database

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		id BIGSERIAL PRIMARY KEY,
		filename TEXT NOT NULL UNIQUE,
		checksum TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// Migration is one embedded schema file
type Migration struct {
	Filename string
	SQL      string
	Checksum string
}

// Migrations returns the embedded schema files in apply order
func Migrations() ([]Migration, error) {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		content, err := migrationFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		sum := sha256.Sum256(content)
		out = append(out, Migration{
			Filename: strings.TrimPrefix(name, "migrations/"),
			SQL:      string(content),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}
	return out, nil
}

// Migrate applies every embedded migration not yet recorded in
// schema_migrations and returns the filenames it applied.
func Migrate(ctx context.Context, db Querier, log *logrus.Entry) ([]string, error) {
	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied []string
	for _, m := range migrations {
		var checksum string
		err := db.QueryRow(ctx, "SELECT checksum FROM schema_migrations WHERE filename = $1", m.Filename).Scan(&checksum)
		switch {
		case err == nil:
			if checksum != m.Checksum {
				log.WithField("migration", m.Filename).Warn("applied migration differs from embedded file")
			}
			continue
		case !errors.Is(err, pgx.ErrNoRows):
			return applied, fmt.Errorf("check %s: %w", m.Filename, err)
		}

		if _, err := db.Exec(ctx, m.SQL); err != nil {
			return applied, fmt.Errorf("apply %s: %w", m.Filename, err)
		}
		if _, err := db.Exec(ctx, "INSERT INTO schema_migrations (filename, checksum) VALUES ($1, $2)", m.Filename, m.Checksum); err != nil {
			return applied, fmt.Errorf("record %s: %w", m.Filename, err)
		}

		log.WithField("migration", m.Filename).Info("applied migration")
		applied = append(applied, m.Filename)
	}

	return applied, nil
}
