package format

import (
	"encoding/json"
	"time"

	"github.com/neilberkman/claude-grep/internal/core/models"
	"github.com/neilberkman/claude-grep/internal/core/results"
)

type jsonResult struct {
	SessionID      string                 `json:"sessionId"`
	Timestamp      time.Time              `json:"timestamp"`
	ProjectName    string                 `json:"projectName"`
	Branch         string                 `json:"branch,omitempty"`
	Score          float64                `json:"score"`
	MatchCount     int                    `json:"matchCount"`
	Files          []string               `json:"files"`
	MatchedContent string                 `json:"matchedContent"`
	Metadata       *models.ResultMetadata `json:"metadata,omitempty"`
}

type jsonStats struct {
	TotalConversationsSearched int               `json:"totalConversationsSearched"`
	TotalMatchesFound          int               `json:"totalMatchesFound"`
	AverageScore               float64           `json:"averageScore"`
	SearchDurationMs           int64             `json:"searchDuration,omitempty"`
	DateRange                  results.DateRange `json:"dateRange"`
	ProjectDistribution        map[string]int    `json:"projectDistribution"`
}

type jsonOutput struct {
	Results    []jsonResult `json:"results"`
	Statistics *jsonStats   `json:"statistics,omitempty"`
}

func formatJSON(rs []*models.SearchResult, opts Options) (string, error) {
	out := jsonOutput{Results: make([]jsonResult, 0, len(rs))}

	for _, r := range rs {
		files := r.Files
		if files == nil {
			files = []string{}
		}
		out.Results = append(out.Results, jsonResult{
			SessionID:      r.SessionID,
			Timestamp:      r.Timestamp,
			ProjectName:    r.ProjectName,
			Branch:         r.Branch,
			Score:          r.Score,
			MatchCount:     matchCount(r),
			Files:          files,
			MatchedContent: r.MatchedContent,
			Metadata:       r.Metadata,
		})
	}

	if s, ok := opts.stats(); ok {
		out.Statistics = &jsonStats{
			TotalConversationsSearched: s.TotalConversationsSearched,
			TotalMatchesFound:          s.TotalMatchesFound,
			AverageScore:               s.AverageScore,
			SearchDurationMs:           s.SearchDuration.Milliseconds(),
			DateRange:                  s.DateRange,
			ProjectDistribution:        s.ProjectDistribution,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
