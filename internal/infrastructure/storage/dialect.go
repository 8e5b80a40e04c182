package storage

import (
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// Dialect captures the differences between the supported SQL engines.
type Dialect struct {
	Name        string
	DriverName  string
	placeholder sq.PlaceholderFormat
	schema      []string
}

var (
	// Postgres is the production relational backend (lib/pq).
	Postgres = Dialect{
		Name:        "postgres",
		DriverName:  "postgres",
		placeholder: sq.Dollar,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id SERIAL PRIMARY KEY,
				username TEXT NOT NULL UNIQUE,
				password TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS documents (
				id SERIAL PRIMARY KEY,
				file_name VARCHAR(255) NOT NULL,
				content_type VARCHAR(100) NOT NULL,
				file_size INTEGER NOT NULL,
				upload_date VARCHAR(100) NOT NULL,
				file_path TEXT,
				status VARCHAR(20) NOT NULL DEFAULT 'uploaded',
				enhancement_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				spell_check_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				layout_analysis_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				ocr_mode VARCHAR(20) NOT NULL DEFAULT 'auto',
				output_format VARCHAR(10) NOT NULL DEFAULT 'txt',
				confidence_threshold INTEGER NOT NULL DEFAULT 80,
				original_text TEXT,
				processed_text TEXT,
				processing_summary JSONB
			)`,
			`ALTER TABLE documents ADD COLUMN IF NOT EXISTS file_path TEXT`,
		},
	}

	// SQLite backs local development and the repository tests (modernc.org/sqlite).
	SQLite = Dialect{
		Name:        "sqlite",
		DriverName:  "sqlite",
		placeholder: sq.Question,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				username TEXT NOT NULL UNIQUE,
				password TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS documents (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				file_name TEXT NOT NULL,
				content_type TEXT NOT NULL,
				file_size INTEGER NOT NULL,
				upload_date TEXT NOT NULL,
				file_path TEXT,
				status TEXT NOT NULL DEFAULT 'uploaded',
				enhancement_enabled BOOLEAN NOT NULL DEFAULT 1,
				spell_check_enabled BOOLEAN NOT NULL DEFAULT 1,
				layout_analysis_enabled BOOLEAN NOT NULL DEFAULT 1,
				ocr_mode TEXT NOT NULL DEFAULT 'auto',
				output_format TEXT NOT NULL DEFAULT 'txt',
				confidence_threshold INTEGER NOT NULL DEFAULT 80,
				original_text TEXT,
				processed_text TEXT,
				processing_summary TEXT
			)`,
		},
	}
)

// builder returns a squirrel statement builder bound to the dialect's placeholders.
func (d Dialect) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.placeholder)
}

func (d Dialect) isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ParseDSN resolves the dialect from a connection string and returns the
// driver-specific data source name.
func ParseDSN(dsn string) (Dialect, string, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return Postgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return SQLite, strings.TrimPrefix(dsn, "sqlite:"), nil
	case strings.HasPrefix(dsn, "file:"):
		return SQLite, dsn, nil
	default:
		return Dialect{}, "", fmt.Errorf("unsupported database dsn scheme in %q", redact(dsn))
	}
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		return dsn[:i+3] + "..."
	}
	if len(dsn) > 8 {
		return dsn[:8] + "..."
	}
	return dsn
}
