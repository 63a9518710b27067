package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_WALMode(t *testing.T) {
	s := openTest(t)

	var journalMode string
	if err := s.conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}
}

func TestRecordAndRecent(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Query: "auth bug", Project: "api", ResultCount: 3, Duration: 1500 * time.Millisecond, CreatedAt: base},
		{Query: "deploy", Source: SourceWeb, ResultCount: 0, CreatedAt: base.Add(time.Minute)},
		{Query: "flaky test", Source: SourceMCP, ResultCount: 7, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if _, err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(Recent(2)) = %d, want 2", len(got))
	}
	if got[0].Query != "flaky test" || got[1].Query != "deploy" {
		t.Errorf("Recent() order = %q, %q", got[0].Query, got[1].Query)
	}
	if got[1].Source != SourceWeb {
		t.Errorf("Source = %q, want web", got[1].Source)
	}

	all, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len(Recent(0)) = %d, want 3", len(all))
	}

	oldest := all[2]
	if oldest.Project != "api" || oldest.ResultCount != 3 || oldest.Source != SourceCLI {
		t.Errorf("oldest = %+v", oldest)
	}
	if oldest.Duration != 1500*time.Millisecond || oldest.DurationMS != 1500 {
		t.Errorf("Duration = %v (%d ms), want 1.5s", oldest.Duration, oldest.DurationMS)
	}
	if !oldest.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", oldest.CreatedAt, base)
	}
}

func TestClear(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	for _, q := range []string{"a", "b"} {
		if _, err := s.Record(ctx, Entry{Query: q}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Clear() = %d, want 2", n)
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("Recent() after Clear = %v, want empty", got)
	}
}

func TestMigrate_AddsSourceColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = conn.Exec(`
		CREATE TABLE searches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			project TEXT,
			result_count INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);
		INSERT INTO searches (query, created_at) VALUES ('legacy', 1700000000000);
	`)
	if err != nil {
		t.Fatal(err)
	}
	_ = conn.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = s.Close() }()

	got, err := s.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 1 || got[0].Query != "legacy" || got[0].Source != SourceCLI {
		t.Errorf("Recent() = %+v, want the legacy row with source cli", got)
	}
}
