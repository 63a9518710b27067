package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/neilberkman/claude-grep/internal/core/config"
	"github.com/neilberkman/claude-grep/internal/core/history"
	"github.com/neilberkman/claude-grep/internal/core/project"
	"github.com/neilberkman/claude-grep/internal/core/results"
	"github.com/neilberkman/claude-grep/internal/core/search"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	base := t.TempDir()

	sessions := map[string]string{
		"zq/one.jsonl": `{"type":"user","sessionId":"one","timestamp":"2024-06-01T10:00:00Z","message":{"role":"user","content":"the deploy script fails"}}`,
		"zq/two.jsonl": `{"type":"user","sessionId":"two","timestamp":"2024-06-02T10:00:00Z","message":{"role":"user","content":"unrelated chat"}}`,
		"xw/tri.jsonl": `{"type":"assistant","sessionId":"tri","timestamp":"2024-06-03T10:00:00Z","message":{"role":"assistant","content":"deploy finished"}}`,
	}
	for rel, line := range sessions {
		path := filepath.Join(base, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(line+"\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	svc, err := New(&config.Env{ProjectsPath: base, Home: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestSearch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Search(ctx, Request{
		Search:  search.Options{Query: "deploy", Limit: 10},
		Process: results.Options{MaxResults: 10},
		Source:  history.SourceWeb,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(resp.Results) != 2 || resp.TotalMatches != 2 {
		t.Fatalf("got %d results (%d total), want 2", len(resp.Results), resp.TotalMatches)
	}
	if resp.Stats.TotalConversationsSearched != 3 {
		t.Errorf("TotalConversationsSearched = %d, want 3", resp.Stats.TotalConversationsSearched)
	}
	if resp.Summary.FilesSearched != 3 {
		t.Errorf("FilesSearched = %d, want 3", resp.Summary.FilesSearched)
	}

	entries, err := svc.History.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Query != "deploy" || entries[0].ResultCount != 2 || entries[0].Source != history.SourceWeb {
		t.Errorf("history = %+v", entries)
	}
}

func TestResolveProject(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	got, err := svc.ResolveProject(ctx, "", true)
	if err != nil || got != "" {
		t.Errorf("all projects: got %q, %v", got, err)
	}

	got, err = svc.ResolveProject(ctx, "xw", false)
	if err != nil || got != "xw" {
		t.Errorf("explicit: got %q, %v", got, err)
	}

	_, err = svc.ResolveProject(ctx, "nope", false)
	if !errors.Is(err, project.ErrProjectNotFound) {
		t.Errorf("unknown project error = %v, want ErrProjectNotFound", err)
	}

	if err := svc.Projects.Remember("zq"); err != nil {
		t.Fatal(err)
	}
	got, err = svc.ResolveProject(ctx, "", false)
	if err != nil || got != "zq" {
		t.Errorf("remembered: got %q, %v", got, err)
	}
}
