package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestForComponentBeforeInit(t *testing.T) {
	Shutdown()
	log := ForComponent(CompParser)

	var buf bytes.Buffer
	Init(Config{Stderr: &buf})
	defer Shutdown()

	log.Warn("skipping malformed line", "line", 3)

	out := buf.String()
	if !strings.Contains(out, "component=parser") {
		t.Errorf("expected component attr, got %q", out)
	}
	if !strings.Contains(out, "line=3") {
		t.Errorf("expected line attr, got %q", out)
	}
}

func TestDefaultLevelIsWarn(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Stderr: &buf})
	defer Shutdown()

	ForComponent(CompSearch).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
}

func TestDebugWritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	Init(Config{Debug: true, LogDir: dir, Format: "json"})

	ForComponent(CompWeb).Debug("request", "path", "/api/search")
	Shutdown()

	data, err := os.ReadFile(filepath.Join(dir, "claude-grep.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"component":"web"`) {
		t.Errorf("log file missing component: %s", data)
	}
}
