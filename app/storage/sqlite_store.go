package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lysyi3m/skills-monitor/app/posting"
	_ "modernc.org/sqlite"
)

//go:embed schema/jobs.sql
var schema string

// SQLiteStore keeps rows in a local SQLite database, tagged with the run
// that collected them.
type SQLiteStore struct {
	db      *sql.DB
	stamper *Stamper
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, stamper: NewStamper()}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, runID string, postings []posting.Posting) ([]posting.Row, error) {
	if len(postings) == 0 {
		return []posting.Row{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO jobs (run_id, source, title, company, location, posted_at, url, skills, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	rows := stampRows(s.stamper, postings)
	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			runID, row.Source, row.Title,
			nullString(row.Company), nullString(row.Location),
			nullIfEmpty(formatPostedAt(row.Posting)), nullString(row.URL),
			strings.Join(row.Skills, ","), formatTime(row.FetchedAt))
		if err != nil {
			return nil, fmt.Errorf("failed to insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit rows: %w", err)
	}

	return rows, nil
}

func (s *SQLiteStore) Load(ctx context.Context) ([]posting.Row, error) {
	rs, err := s.db.QueryContext(ctx, `
		SELECT source, title, COALESCE(company, ''), COALESCE(location, ''),
		       COALESCE(posted_at, ''), COALESCE(url, ''), skills, fetched_at
		FROM jobs
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rs.Close()

	rows := []posting.Row{}
	for rs.Next() {
		values := make([]string, len(Columns))
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rs.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rows = append(rows, decodeRow(func(name string) string {
			if i := slices.Index(Columns, name); i >= 0 {
				return values[i]
			}
			return ""
		}))
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return rows, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
