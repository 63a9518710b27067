package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/neilberkman/claude-grep/internal/logging"
)

var log = logging.ForComponent(logging.CompHistory)

// Where a search was run from.
const (
	SourceCLI = "cli"
	SourceWeb = "web"
	SourceMCP = "mcp"
)

// Entry is one executed search.
type Entry struct {
	ID          int64         `json:"id"`
	Query       string        `json:"query"`
	Project     string        `json:"project,omitempty"`
	Source      string        `json:"source"`
	ResultCount int           `json:"resultCount"`
	Duration    time.Duration `json:"-"`
	DurationMS  int64         `json:"durationMs"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Store is the SQLite search log. Transcripts themselves are never stored.
type Store struct {
	conn *sql.DB
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	s := &Store{conn: conn}
	if err := s.initSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Record appends a search to the log. CreatedAt defaults to now.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Source == "" {
		e.Source = SourceCLI
	}

	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO searches (query, project, source, result_count, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.Query, e.Project, e.Source, e.ResultCount, e.Duration.Milliseconds(), e.CreatedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to record search: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit searches, newest first. A limit of zero or
// less returns everything.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, query, project, source, result_count, duration_ms, created_at
		FROM searches
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			project   sql.NullString
			durMS     int64
			createdMS int64
		)
		if err := rows.Scan(&e.ID, &e.Query, &project, &e.Source, &e.ResultCount, &durMS, &createdMS); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.Project = project.String
		e.DurationMS = durMS
		e.Duration = time.Duration(durMS) * time.Millisecond
		e.CreatedAt = time.UnixMilli(createdMS)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear deletes all history and returns how many entries were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM searches`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	n, _ := res.RowsAffected()
	log.Info("search history cleared", "entries", n)
	return n, nil
}
