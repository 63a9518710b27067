package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const barWidth = 20

// Console draws a single-line progress bar on a terminal writer and prints
// a short summary when the search completes.
type Console struct {
	mu       sync.Mutex
	writer   io.Writer
	lastLine string
}

// NewConsole creates a console listener writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{writer: w}
}

// OnProgress redraws the bar.
func (c *Console) OnProgress(u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pct := 0
	if u.TotalFiles > 0 {
		pct = u.FilesProcessed * 100 / u.TotalFiles
	}

	filled := pct * barWidth / 100
	bar := "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"

	eta := ""
	if u.ETA > 0 {
		eta = " ETA: " + formatDuration(u.ETA)
	}

	label := "Searching"
	if u.Stage == StageScanning {
		label = "Scanning"
	}

	c.updateLine(fmt.Sprintf("%s: %s %d%% (%d/%d)%s", label, bar, pct, u.FilesProcessed, u.TotalFiles, eta))
}

// OnError prints the error below the bar.
func (c *Console) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLine()
	_, _ = fmt.Fprintf(c.writer, "Error: %v\n", err)
}

// OnComplete clears the bar and prints the summary.
func (c *Console) OnComplete(s Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLine()

	_, _ = fmt.Fprintf(c.writer, "\nSearch completed in %s\n", formatDuration(s.Duration))
	_, _ = fmt.Fprintf(c.writer, "Files searched: %d\n", s.FilesSearched)
	_, _ = fmt.Fprintf(c.writer, "Matches found: %d\n", s.MatchesFound)
	if len(s.Errors) > 0 {
		_, _ = fmt.Fprintf(c.writer, "Errors encountered: %d\n", len(s.Errors))
	}
}

func (c *Console) updateLine(line string) {
	c.clearLine()
	_, _ = io.WriteString(c.writer, line)
	c.lastLine = line
}

func (c *Console) clearLine() {
	if c.lastLine == "" {
		return
	}
	_, _ = io.WriteString(c.writer, "\r"+strings.Repeat(" ", len([]rune(c.lastLine)))+"\r")
	c.lastLine = ""
}

func formatDuration(d time.Duration) string {
	seconds := int(d / time.Second)
	minutes := seconds / 60
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds)
}
