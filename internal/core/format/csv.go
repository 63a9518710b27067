package format

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/neilberkman/claude-grep/internal/core/models"
)

var csvHeader = []string{"Session ID", "Timestamp", "Project", "Branch", "Score", "Match Count", "Files", "Preview"}

func formatCSV(rs []*models.SearchResult, _ Options) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, r := range rs {
		record := []string{
			r.SessionID,
			r.Timestamp.UTC().Format(time.RFC3339Nano),
			r.ProjectName,
			r.Branch,
			fmt.Sprintf("%.3f", r.Score),
			strconv.Itoa(matchCount(r)),
			strings.Join(r.Files, "; "),
			cut(flatten(r.MatchedContent), 500),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
