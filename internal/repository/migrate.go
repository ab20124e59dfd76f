package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies every pending up migration in version order.
// Applied versions are recorded in schema_migrations, so repeated runs are no-ops.
func Migrate(ctx context.Context, databaseURL string) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", describePQ(err))
	}

	files, err := migrationFiles(".up.sql")
	if err != nil {
		return err
	}

	for _, file := range files {
		version := migrationVersion(file, ".up.sql")

		var applied bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", version, describePQ(err))
		}
		if applied {
			continue
		}

		if err := applyMigration(ctx, db, file, version); err != nil {
			return err
		}
	}

	return nil
}

// MigrationSQL returns the SQL of one embedded migration, e.g. ("000001_visitor", "down").
func MigrationSQL(version, direction string) (string, error) {
	data, err := migrationFS.ReadFile(path.Join("migrations", version+"."+direction+".sql"))
	if err != nil {
		return "", fmt.Errorf("read migration %s.%s: %w", version, direction, err)
	}
	return string(data), nil
}

func applyMigration(ctx context.Context, db *sql.DB, file, version string) error {
	body, err := migrationFS.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", version, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", version, describePQ(err))
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("apply migration %s: %w", version, describePQ(err))
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return fmt.Errorf("record migration %s: %w", version, describePQ(err))
	}

	return tx.Commit()
}

func migrationFiles(suffix string) ([]string, error) {
	files, err := fs.Glob(migrationFS, "migrations/*"+suffix)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func migrationVersion(file, suffix string) string {
	return strings.TrimSuffix(path.Base(file), suffix)
}

// describePQ prefixes server errors with their SQLSTATE code.
func describePQ(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("sqlstate %s: %w", pqErr.Code, err)
	}
	return err
}
