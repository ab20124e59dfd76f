// Package sqlite implements the visit event store on an embedded SQLite database.
// It serves local development and single-node deployments where PostgreSQL is not available.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, registers "sqlite"

	"github.com/visitrack/visitrack/internal/model"
	"github.com/visitrack/visitrack/internal/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS visitor (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ip_address  TEXT NOT NULL,
	user_agent  TEXT,
	timestamp   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	visit_month INTEGER NOT NULL,
	visit_year  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_visitor_period ON visitor(visit_year, visit_month);
`

// Store is a visit event store backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database named by databaseURL and ensures the schema.
// Accepted forms: sqlite:///relative/path.db, sqlite:////abs/path.db, file:path.db, or a bare path.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	dsn, dir := parseURL(databaseURL)
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Insert writes one visit row and returns its id.
func (s *Store) Insert(ctx context.Context, ipAddress string, userAgent *string, at time.Time) (int64, error) {
	rec := model.NewVisitRecord(ipAddress, userAgent, at)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO visitor (ip_address, user_agent, timestamp, visit_month, visit_year) VALUES (?, ?, ?, ?, ?)`,
		rec.IPAddress,
		nullString(rec.UserAgent),
		rec.Timestamp.Format(time.RFC3339Nano),
		rec.VisitMonth,
		rec.VisitYear,
	)
	if err != nil {
		return 0, repository.NewStorageError(repository.OpInsert, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, repository.NewStorageError(repository.OpInsert, err)
	}
	return id, nil
}

// CountDistinctVisitors returns the number of distinct ip_address values in a period.
func (s *Store) CountDistinctVisitors(ctx context.Context, month, year int) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT ip_address) FROM visitor WHERE visit_month = ? AND visit_year = ?`,
		month, year,
	).Scan(&count)
	if err != nil {
		return 0, repository.NewStorageError(repository.OpCountDistinct, err)
	}
	return count, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// parseURL turns a database URL into a driver DSN and the directory that must exist for it.
func parseURL(databaseURL string) (dsn, dir string) {
	dsn = databaseURL
	if rest, ok := strings.CutPrefix(databaseURL, "sqlite:"); ok {
		// sqlite:///rel.db is relative and sqlite:////abs.db is absolute.
		// sqlite://rel.db, with the path in the host slot, is read as relative too.
		rest = strings.TrimPrefix(rest, "//")
		dsn = strings.TrimPrefix(rest, "/")
	}

	filePath := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(filePath, '?'); i >= 0 {
		filePath = filePath[:i]
	}
	if filePath == "" || filePath == ":memory:" {
		return dsn, ""
	}

	dir = filepath.Dir(filePath)
	if dir == "." {
		dir = ""
	}
	return dsn, dir
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
