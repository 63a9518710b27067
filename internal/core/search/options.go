package search

import "time"

// SortField selects how results are ordered.
type SortField string

const (
	SortRelevance    SortField = "relevance"
	SortDate         SortField = "date"
	SortMessageCount SortField = "messageCount"
)

// Valid reports whether f is a known sort field. Empty means the default.
func (f SortField) Valid() bool {
	switch f {
	case "", SortRelevance, SortDate, SortMessageCount:
		return true
	}
	return false
}

// SortOrder is asc or desc. Empty means desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// TimeRange bounds message timestamps. Zero ends are open.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether neither end is set.
func (r TimeRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Contains reports whether t falls inside the range. Unknown (zero)
// timestamps are never excluded.
func (r TimeRange) Contains(t time.Time) bool {
	if t.IsZero() {
		return true
	}
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// Role values accepted in Options.MessageTypes.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Options describes one search.
type Options struct {
	Query        string
	Project      string   // empty searches every project
	FilePatterns []string // glob-ish, "*" is a wildcard
	TimeRange    TimeRange

	// When set, only messages whose flag equals the value match.
	IncludeErrors    *bool
	IncludeToolCalls *bool

	MessageTypes []string // "user", "assistant"; empty means both
	Exhaustive   bool
	Limit        int // 0 means unlimited
	SortBy       SortField
	SortOrder    SortOrder
}

// buffered reports whether results must be collected and ranked before
// any is emitted.
func (o Options) buffered() bool {
	return o.SortBy == SortRelevance || (o.SortBy == "" && !o.Exhaustive)
}

// Bool returns a pointer to b, for the Include* filters.
func Bool(b bool) *bool {
	return &b
}

// Weights are the coefficients of the relevance score.
type Weights struct {
	KeywordMatch     float64
	Recency          float64
	MessageTypeMatch float64
	ErrorPresence    float64
	ToolCallPresence float64
}

// DefaultWeights returns the standard scoring coefficients.
func DefaultWeights() Weights {
	return Weights{
		KeywordMatch:     0.4,
		Recency:          0.2,
		MessageTypeMatch: 0.2,
		ErrorPresence:    0.1,
		ToolCallPresence: 0.1,
	}
}
