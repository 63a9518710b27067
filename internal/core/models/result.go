package models

import "time"

// SearchResult is the scored aggregate for one matching conversation.
type SearchResult struct {
	SessionID      string          `json:"sessionId"`
	Timestamp      time.Time       `json:"timestamp"`
	MatchedContent string          `json:"matchedContent"`
	Files          []string        `json:"files"`
	Score          float64         `json:"score"`
	ProjectName    string          `json:"projectName"`
	Branch         string          `json:"branch,omitempty"`
	MatchCount     int             `json:"matchCount"`
	Metadata       *ResultMetadata `json:"metadata,omitempty"`

	// Content holds the full transcript for by-id lookups only.
	Content string `json:"content,omitempty"`
}

// ResultMetadata summarizes the conversation a result came from.
type ResultMetadata struct {
	TotalMessages int    `json:"totalMessages"`
	HasErrors     bool   `json:"hasErrors"`
	HasToolCalls  bool   `json:"hasToolCalls"`
	GitBranch     string `json:"gitBranch,omitempty"`
	ProjectPath   string `json:"projectPath,omitempty"`
}

// HasErrors reports whether the result's conversation contained errors.
func (r *SearchResult) HasErrors() bool {
	return r.Metadata != nil && r.Metadata.HasErrors
}
