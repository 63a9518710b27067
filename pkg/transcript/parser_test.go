package transcript

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFile(t *testing.T) {
	messages, err := NewParser().ParseFile(context.Background(), "testdata/sample.jsonl")
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	// summary line has no message, blank and malformed lines are skipped
	if len(messages) != 4 {
		t.Fatalf("Message count = %v, want 4", len(messages))
	}

	first := messages[0]
	if first.Role != "user" {
		t.Errorf("First message role = %v, want 'user'", first.Role)
	}
	if first.SessionID != "abc-123" || first.UUID != "msg-1" || first.GitBranch != "main" {
		t.Errorf("First message envelope = %+v", first)
	}
	if first.Timestamp.IsZero() {
		t.Error("First message timestamp not parsed")
	}
	if first.HasToolCall {
		t.Error("string content should not be a tool call")
	}

	second := messages[1]
	if second.Content != "Reading the file now.\n[Tool: Read]" {
		t.Errorf("Block content = %q", second.Content)
	}
	if !second.HasToolCall {
		t.Error("tool_use block should set HasToolCall")
	}

	third := messages[2]
	if third.Content != "[Tool Result: toolu_1]" {
		t.Errorf("Tool result content = %q", third.Content)
	}
	if !third.HasToolCall {
		t.Error("tool_result block should set HasToolCall")
	}
	// the result body is not part of the extracted text
	if third.HasError {
		t.Error("tool_result body should not be scanned for errors")
	}

	if messages[3].HasError {
		t.Error(`"No errors found" should not be flagged as an error`)
	}
}

func TestParseFile_InvalidPath(t *testing.T) {
	_, err := NewParser().ParseFile(context.Background(), "nonexistent.jsonl")
	if err == nil {
		t.Error("ParseFile() should return error for invalid path")
	}
}

func TestMessages_MalformedLinesDoNotShiftOrder(t *testing.T) {
	valid := []string{
		`{"type":"user","uuid":"a","message":{"content":"one"}}`,
		`{"type":"assistant","uuid":"b","message":{"content":"two"}}`,
		`{"type":"user","uuid":"c","message":{"content":"three"}}`,
	}

	layouts := [][]string{
		{valid[0], valid[1], valid[2]},
		{"{broken", valid[0], valid[1], valid[2]},
		{valid[0], "not json", "", valid[1], "{]", valid[2], "trailing garbage"},
	}

	for i, lines := range layouts {
		path := filepath.Join(t.TempDir(), "s.jsonl")
		if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
			t.Fatal(err)
		}

		messages, err := NewParser().ParseFile(context.Background(), path)
		if err != nil {
			t.Fatalf("layout %d: ParseFile() error = %v", i, err)
		}
		var got []string
		for _, m := range messages {
			got = append(got, m.UUID)
		}
		if strings.Join(got, ",") != "a,b,c" {
			t.Errorf("layout %d: got %v, want [a b c]", i, got)
		}
	}
}

func TestMessages_StopEarly(t *testing.T) {
	count := 0
	for _, err := range NewParser().Messages(context.Background(), "testdata/sample.jsonl") {
		if err != nil {
			t.Fatal(err)
		}
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestMessages_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser().ParseFile(ctx, "testdata/sample.jsonl")
	if err == nil {
		t.Error("expected context error")
	}
}
