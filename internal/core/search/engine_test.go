package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/neilberkman/claude-grep/internal/core/models"
	"github.com/neilberkman/claude-grep/internal/core/progress"
	"github.com/neilberkman/claude-grep/internal/core/scanner"
)

type testMessage struct {
	role    string
	content string
	ts      time.Time
	blocks  bool // render content as a text block plus a tool_use block
}

func writeConversation(t *testing.T, base, project, sessionID string, mtime time.Time, msgs ...testMessage) {
	t.Helper()

	dir := filepath.Join(base, project)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	var lines []string
	for i, m := range msgs {
		var content any = m.content
		if m.blocks {
			content = []map[string]any{
				{"type": "text", "text": m.content},
				{"type": "tool_use", "name": "Bash"},
			}
		}
		ts := m.ts
		if ts.IsZero() {
			ts = mtime
		}
		entry := map[string]any{
			"type":      m.role,
			"uuid":      fmt.Sprintf("%s-%d", sessionID, i),
			"sessionId": sessionID,
			"timestamp": ts.UTC().Format(time.RFC3339Nano),
			"gitBranch": "main",
			"message":   map[string]any{"role": m.role, "content": content},
		}
		data, err := json.Marshal(entry)
		if err != nil {
			t.Fatal(err)
		}
		lines = append(lines, string(data))
	}

	path := filepath.Join(dir, sessionID+".jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func collect(t *testing.T, e *Engine, opts Options) []*models.SearchResult {
	t.Helper()
	var results []*models.SearchResult
	for r, err := range e.Search(context.Background(), opts) {
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		results = append(results, r)
	}
	return results
}

func TestSearch_ExhaustiveVersusLimit(t *testing.T) {
	base := t.TempDir()
	now := time.Now()
	for i := range 10 {
		writeConversation(t, base, "proj", fmt.Sprintf("session-%02d", i), now.Add(-time.Duration(i)*time.Hour),
			testMessage{role: "user", content: fmt.Sprintf("Question number %d", i)},
			testMessage{role: "assistant", content: "An answer"},
		)
	}
	e := New(scanner.New(base))

	all := collect(t, e, Options{Query: "Question", Exhaustive: true})
	if len(all) != 10 {
		t.Errorf("exhaustive search returned %d results, want 10", len(all))
	}

	limited := collect(t, e, Options{Query: "Question", Limit: 5})
	if len(limited) != 5 {
		t.Errorf("limited search returned %d results, want 5", len(limited))
	}
	for i := 1; i < len(limited); i++ {
		if limited[i].Score > limited[i-1].Score {
			t.Errorf("results not sorted by score: %v > %v", limited[i].Score, limited[i-1].Score)
		}
	}

	// exhaustive with relevance sorting ranks everything, then cuts
	ranked := collect(t, e, Options{Query: "Question", Exhaustive: true, SortBy: SortRelevance, Limit: 3})
	if len(ranked) != 3 {
		t.Errorf("exhaustive relevance search returned %d results, want 3", len(ranked))
	}
}

func TestSearch_StreamingStopsAtLimit(t *testing.T) {
	base := t.TempDir()
	now := time.Now()
	for i := range 6 {
		writeConversation(t, base, "proj", fmt.Sprintf("s%d", i), now.Add(-time.Duration(i)*time.Minute),
			testMessage{role: "user", content: "deploy the service"},
		)
	}

	var searched int
	tracker := progress.NewTracker(0, progress.Funcs{
		Progress: func(u progress.Update) {
			if u.Stage == progress.StageSearching {
				searched++
			}
		},
	})
	e := New(scanner.New(base), WithProgress(tracker))

	results := collect(t, e, Options{Query: "deploy", SortBy: SortDate, Limit: 2})
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].SessionID != "s0" || results[1].SessionID != "s1" {
		t.Errorf("streaming order = %s, %s; want s0, s1", results[0].SessionID, results[1].SessionID)
	}
	if searched != 2 {
		t.Errorf("files searched = %d, want 2", searched)
	}
}

func TestSearch_CaseInsensitive(t *testing.T) {
	base := t.TempDir()
	writeConversation(t, base, "proj", "greeting", time.Now(),
		testMessage{role: "user", content: "HELLO WORLD"},
	)
	writeConversation(t, base, "proj", "other", time.Now(),
		testMessage{role: "user", content: "nothing to see"},
	)
	e := New(scanner.New(base))

	for _, q := range []string{"hello", "HELLO", "HeLLo"} {
		results := collect(t, e, Options{Query: q})
		if len(results) != 1 {
			t.Errorf("query %q returned %d results, want 1", q, len(results))
			continue
		}
		if results[0].MatchCount != 1 {
			t.Errorf("query %q MatchCount = %d, want 1", q, results[0].MatchCount)
		}
	}
}

func TestSearch_EmptyQueryMatchesEverything(t *testing.T) {
	base := t.TempDir()
	for i := range 4 {
		writeConversation(t, base, "proj", fmt.Sprintf("c%d", i), time.Now(),
			testMessage{role: "user", content: fmt.Sprintf("message %d", i)},
		)
	}
	e := New(scanner.New(base))

	results := collect(t, e, Options{Query: ""})
	if len(results) != 4 {
		t.Errorf("len(results) = %d, want 4", len(results))
	}
	for _, r := range results {
		if r.Score <= 0 || r.Score > 1 {
			t.Errorf("score %v out of (0,1]", r.Score)
		}
	}
}

func TestSearch_FilePatternsAreAFilter(t *testing.T) {
	base := t.TempDir()
	now := time.Now()
	writeConversation(t, base, "proj", "ts", now,
		testMessage{role: "user", content: "refactor the parser"},
		testMessage{role: "assistant", content: "Edited src/parser.ts"},
	)
	writeConversation(t, base, "proj", "go", now,
		testMessage{role: "user", content: "refactor main.go please"},
	)
	writeConversation(t, base, "proj", "none", now,
		testMessage{role: "user", content: "refactor everything"},
	)
	e := New(scanner.New(base))

	without := collect(t, e, Options{Query: "refactor", Exhaustive: true})
	with := collect(t, e, Options{Query: "refactor", Exhaustive: true, FilePatterns: []string{"*.ts"}})

	if len(without) != 3 {
		t.Fatalf("unfiltered results = %d, want 3", len(without))
	}
	if len(with) != 1 || with[0].SessionID != "ts" {
		t.Fatalf("filtered results = %+v, want only ts", with)
	}

	// files from non-matching messages count when patterns are given
	if len(with[0].Files) != 1 || with[0].Files[0] != "src/parser.ts" {
		t.Errorf("Files = %v, want [src/parser.ts]", with[0].Files)
	}

	ids := make(map[string]bool)
	for _, r := range without {
		ids[r.SessionID] = true
	}
	for _, r := range with {
		if !ids[r.SessionID] {
			t.Errorf("filtered result %s not in unfiltered set", r.SessionID)
		}
	}
}

func TestSearch_RecencyIsMonotonic(t *testing.T) {
	base := t.TempDir()
	now := time.Now()
	msg := testMessage{role: "user", content: "database migration failed"}
	writeConversation(t, base, "proj", "recent", now.Add(-24*time.Hour), msg)
	writeConversation(t, base, "proj", "older", now.Add(-20*24*time.Hour), msg)
	e := New(scanner.New(base))

	results := collect(t, e, Options{Query: "migration"})
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].SessionID != "recent" {
		t.Errorf("first result = %s, want recent", results[0].SessionID)
	}
	if results[0].Score < results[1].Score {
		t.Errorf("recent score %v < older score %v", results[0].Score, results[1].Score)
	}
}

func TestSearch_Score(t *testing.T) {
	base := t.TempDir()
	mtime := time.Now().Truncate(time.Second)
	writeConversation(t, base, "proj", "scored", mtime,
		testMessage{role: "user", content: "deploy and deploy again"},
		testMessage{role: "assistant", content: "done"},
	)
	e := New(scanner.New(base))
	e.now = func() time.Time { return mtime }

	results := collect(t, e, Options{Query: "deploy"})
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}

	// keyword 0.4*min(1, 2/1) + recency 0.2*1 + density 0.2*(1/2)
	want := 0.4 + 0.2 + 0.1
	if math.Abs(results[0].Score-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", results[0].Score, want)
	}

	r := results[0]
	if r.Metadata == nil || r.Metadata.TotalMessages != 2 || r.Branch != "main" || r.ProjectName != "proj" {
		t.Errorf("result fields = %+v metadata = %+v", r, r.Metadata)
	}
}

func TestSearch_Filters(t *testing.T) {
	base := t.TempDir()
	now := time.Now()
	writeConversation(t, base, "proj", "errors", now,
		testMessage{role: "user", content: "build broke"},
		testMessage{role: "assistant", content: "Build log: TypeError: x is undefined"},
	)
	writeConversation(t, base, "proj", "tools", now,
		testMessage{role: "assistant", content: "running the build", blocks: true},
	)
	writeConversation(t, base, "other", "user-only", now,
		testMessage{role: "user", content: "the build is slow"},
	)
	e := New(scanner.New(base))

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"errors only", Options{Query: "build", IncludeErrors: Bool(true)}, []string{"errors"}},
		{"tool calls only", Options{Query: "build", IncludeToolCalls: Bool(true)}, []string{"tools"}},
		{"user role", Options{Query: "build", MessageTypes: []string{RoleUser}}, []string{"errors", "user-only"}},
		{"project", Options{Query: "build", Project: "other"}, []string{"user-only"}},
		{"time range excludes", Options{Query: "build", TimeRange: TimeRange{End: now.Add(-time.Hour)}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Exhaustive = true
			results := collect(t, e, tt.opts)

			got := make(map[string]bool)
			for _, r := range results {
				got[r.SessionID] = true
			}
			if len(got) != len(tt.want) {
				t.Fatalf("results = %v, want %v", got, tt.want)
			}
			for _, id := range tt.want {
				if !got[id] {
					t.Errorf("missing result %s in %v", id, got)
				}
			}
		})
	}
}

func TestSearch_ErrorBonus(t *testing.T) {
	base := t.TempDir()
	mtime := time.Now().Truncate(time.Second)
	writeConversation(t, base, "proj", "e", mtime,
		testMessage{role: "assistant", content: "error: disk full"},
	)
	e := New(scanner.New(base))
	e.now = func() time.Time { return mtime }

	plain := collect(t, e, Options{Query: "disk"})
	bonus := collect(t, e, Options{Query: "disk", IncludeErrors: Bool(true)})
	if len(plain) != 1 || len(bonus) != 1 {
		t.Fatalf("got %d and %d results", len(plain), len(bonus))
	}
	// 0.4 + 0.2 + 0.2 without the bonus
	if math.Abs(bonus[0].Score-plain[0].Score-0.1) > 1e-9 {
		t.Errorf("error bonus = %v, want 0.1", bonus[0].Score-plain[0].Score)
	}
}

func TestSearch_Deterministic(t *testing.T) {
	base := t.TempDir()
	now := time.Now().Truncate(time.Second)
	for i := range 5 {
		writeConversation(t, base, "proj", fmt.Sprintf("d%d", i), now.Add(-time.Duration(i)*time.Hour),
			testMessage{role: "user", content: strings.Repeat("cache ", i+1)},
			testMessage{role: "assistant", content: "ok"},
		)
	}
	e := New(scanner.New(base))
	e.now = func() time.Time { return now }

	first := collect(t, e, Options{Query: "cache"})
	second := collect(t, e, Options{Query: "cache"})
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].SessionID != second[i].SessionID || first[i].Score != second[i].Score {
			t.Errorf("result %d differs: %s/%v vs %s/%v", i,
				first[i].SessionID, first[i].Score, second[i].SessionID, second[i].Score)
		}
	}
}

func TestSearch_MissingBase(t *testing.T) {
	e := New(scanner.New(filepath.Join(t.TempDir(), "missing")))
	results := collect(t, e, Options{Query: "anything"})
	if len(results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(results))
	}
}

func TestSearch_Cancelled(t *testing.T) {
	base := t.TempDir()
	writeConversation(t, base, "proj", "a", time.Now(), testMessage{role: "user", content: "hello there"})
	e := New(scanner.New(base))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range e.Search(ctx, Options{Query: "hello"}) {
		gotErr = err
	}
	if !errors.Is(gotErr, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", gotErr)
	}
}

func TestSearch_CompleteSummary(t *testing.T) {
	base := t.TempDir()
	writeConversation(t, base, "proj", "a", time.Now(), testMessage{role: "user", content: "alpha beta"})
	writeConversation(t, base, "proj", "b", time.Now(), testMessage{role: "user", content: "gamma"})

	var summary progress.Summary
	tracker := progress.NewTracker(0, progress.Funcs{
		Complete: func(s progress.Summary) { summary = s },
		Progress: func(progress.Update) { panic("listener panics are contained") },
	})
	e := New(scanner.New(base), WithProgress(tracker))

	results := collect(t, e, Options{Query: "alpha"})
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if summary.FilesSearched != 2 || summary.MatchesFound != 1 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestSearch_UnreadableFileIsSkipped(t *testing.T) {
	base := t.TempDir()
	writeConversation(t, base, "proj", "gone", time.Now(), testMessage{role: "user", content: "deploy broke"})
	writeConversation(t, base, "proj", "kept", time.Now().Add(-time.Hour), testMessage{role: "user", content: "deploy fixed"})
	gone := filepath.Join(base, "proj", "gone.jsonl")

	var reported []error
	var summary progress.Summary
	tracker := progress.NewTracker(0, progress.Funcs{
		// The file is listed by the scan and then disappears before it is read.
		Progress: func(u progress.Update) {
			if u.Stage == progress.StageScanning {
				_ = os.Remove(gone)
			}
		},
		Error:    func(err error) { reported = append(reported, err) },
		Complete: func(s progress.Summary) { summary = s },
	})
	e := New(scanner.New(base), WithProgress(tracker))

	results := collect(t, e, Options{Query: "deploy", Exhaustive: true})
	if len(results) != 1 || results[0].SessionID != "kept" {
		t.Fatalf("results = %v, want only kept", sessionIDs(results))
	}
	if len(reported) != 1 || !strings.Contains(reported[0].Error(), "gone.jsonl") {
		t.Errorf("reported errors = %v, want one for gone.jsonl", reported)
	}
	if len(summary.Errors) != 1 || summary.FilesSearched != 1 {
		t.Errorf("summary = %+v, want 1 error and 1 file searched", summary)
	}
}

func TestSearch_InvalidFilePattern(t *testing.T) {
	base := t.TempDir()
	writeConversation(t, base, "proj", "a", time.Now(), testMessage{role: "user", content: "edit main.go"})

	e := New(scanner.New(base))
	_, err := e.Collect(context.Background(), Options{Query: "edit", FilePatterns: []string{"src/("}})
	if !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("Collect() error = %v, want ErrInvalidPattern", err)
	}
}

func TestConversationByID(t *testing.T) {
	base := t.TempDir()
	ts := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	writeConversation(t, base, "proj", "wanted", ts,
		testMessage{role: "user", content: "open src/app.go", ts: ts},
		testMessage{role: "assistant", content: "Done", ts: ts.Add(time.Minute)},
	)
	writeConversation(t, base, "proj", "other", ts,
		testMessage{role: "user", content: "unrelated"},
	)
	e := New(scanner.New(base))

	r, err := e.ConversationByID(context.Background(), "wanted")
	if err != nil {
		t.Fatalf("ConversationByID() error = %v", err)
	}
	if r.Score != 1.0 || r.MatchCount != 2 || !r.Timestamp.Equal(ts) {
		t.Errorf("result = %+v", r)
	}

	want := fmt.Sprintf("[USER] %s\nopen src/app.go\nFiles: src/app.go\n\n---\n\n[ASSISTANT] %s\nDone\n",
		FormatMessageTime(ts), FormatMessageTime(ts.Add(time.Minute)))
	if r.Content != want {
		t.Errorf("Content =\n%q\nwant\n%q", r.Content, want)
	}

	_, err = e.ConversationByID(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}

	f, err := e.FindConversation(context.Background(), "other")
	if err != nil || f.ProjectName != "proj" {
		t.Errorf("FindConversation() = %+v, %v", f, err)
	}
}

func TestSort(t *testing.T) {
	now := time.Now()
	results := []*models.SearchResult{
		{SessionID: "a", Score: 0.2, Timestamp: now.Add(-time.Hour), MatchCount: 3},
		{SessionID: "b", Score: 0.9, Timestamp: now.Add(-2 * time.Hour), MatchCount: 1},
		{SessionID: "c", Score: 0.5, Timestamp: now, MatchCount: 2},
	}

	tests := []struct {
		by    SortField
		order SortOrder
		want  string
	}{
		{SortRelevance, "", "bca"},
		{SortRelevance, SortAsc, "acb"},
		{SortDate, SortDesc, "cab"},
		{SortDate, SortAsc, "bac"},
		{SortMessageCount, "", "acb"},
	}
	for _, tt := range tests {
		Sort(results, tt.by, tt.order)
		var got string
		for _, r := range results {
			got += r.SessionID
		}
		if got != tt.want {
			t.Errorf("Sort(%s, %s) = %s, want %s", tt.by, tt.order, got, tt.want)
		}
	}
}

func sessionIDs(results []*models.SearchResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.SessionID
	}
	return ids
}
