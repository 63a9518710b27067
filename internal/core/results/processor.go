// Package results refines engine output: filtering, dedup, contextual
// re-ranking, highlighting and grouping. Nothing here mutates its input.
package results

import (
	"cmp"
	"math"
	"regexp"
	"slices"
	"time"

	"github.com/neilberkman/claude-grep/internal/core/models"
)

// Options controls Process.
type Options struct {
	MaxResults        int     // 0 keeps everything
	MinScore          float64 // results scoring below are dropped
	Deduplicate       bool    // keep the best result per session
	HighlightKeywords []string
}

// Stats describes a processed result set.
type Stats struct {
	TotalConversationsSearched int            `json:"totalConversationsSearched"`
	TotalMatchesFound          int            `json:"totalMatchesFound"`
	AverageScore               float64        `json:"averageScore"`
	SearchDuration             time.Duration  `json:"searchDuration,omitempty"`
	ProjectDistribution        map[string]int `json:"projectDistribution"`
	DateRange                  DateRange      `json:"dateRange"`
}

// DateRange spans the timestamps of a result set.
type DateRange struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// Processed is the output of Process.
type Processed struct {
	Results       []*models.SearchResult
	TotalMatches  int // before MaxResults was applied
	ProjectCounts map[string]int
	Stats         Stats
}

// Process filters, deduplicates and truncates results and computes
// statistics over the filtered set.
func Process(results []*models.SearchResult, opts Options) Processed {
	processed := slices.Clone(results)

	if opts.MinScore > 0 {
		processed = slices.DeleteFunc(processed, func(r *models.SearchResult) bool {
			return r.Score < opts.MinScore
		})
	}
	if opts.Deduplicate {
		processed = Deduplicate(processed)
	}

	stats := computeStats(len(results), processed)
	total := len(processed)

	if opts.MaxResults > 0 && len(processed) > opts.MaxResults {
		processed = processed[:opts.MaxResults]
	}
	if len(opts.HighlightKeywords) > 0 {
		processed = Highlight(processed, opts.HighlightKeywords)
	}

	return Processed{
		Results:       processed,
		TotalMatches:  total,
		ProjectCounts: countByProject(processed),
		Stats:         stats,
	}
}

// Deduplicate keeps the highest scoring result for each session id. The
// first occurrence of a session fixes its position.
func Deduplicate(results []*models.SearchResult) []*models.SearchResult {
	index := make(map[string]int, len(results))
	out := make([]*models.SearchResult, 0, len(results))

	for _, r := range results {
		i, ok := index[r.SessionID]
		if !ok {
			index[r.SessionID] = len(out)
			out = append(out, r)
			continue
		}
		if r.Score > out[i].Score {
			out[i] = r
		}
	}
	return out
}

func countByProject(results []*models.SearchResult) map[string]int {
	counts := make(map[string]int)
	for _, r := range results {
		name := r.ProjectName
		if name == "" {
			name = "unknown"
		}
		counts[name]++
	}
	return counts
}

func computeStats(searched int, matched []*models.SearchResult) Stats {
	stats := Stats{
		TotalConversationsSearched: searched,
		TotalMatchesFound:          len(matched),
		ProjectDistribution:        countByProject(matched),
	}
	if len(matched) == 0 {
		return stats
	}

	var sum float64
	stats.DateRange = DateRange{Earliest: matched[0].Timestamp, Latest: matched[0].Timestamp}
	for _, r := range matched {
		sum += r.Score
		if r.Timestamp.Before(stats.DateRange.Earliest) {
			stats.DateRange.Earliest = r.Timestamp
		}
		if r.Timestamp.After(stats.DateRange.Latest) {
			stats.DateRange.Latest = r.Timestamp
		}
	}
	stats.AverageScore = sum / float64(len(matched))
	return stats
}

// Context carries what the caller knows about its surroundings.
type Context struct {
	CurrentProject     string
	CurrentBranch      string
	PreferRecent       bool
	SearchingForErrors bool
	RecentFiles        []string
	Now                time.Time // defaults to time.Now()
}

// Rank rescales scores using ctx and returns the results best first.
func Rank(results []*models.SearchResult, ctx Context) []*models.SearchResult {
	now := ctx.Now
	if now.IsZero() {
		now = time.Now()
	}
	recent := make(map[string]bool, len(ctx.RecentFiles))
	for _, f := range ctx.RecentFiles {
		recent[f] = true
	}

	ranked := make([]*models.SearchResult, len(results))
	for i, r := range results {
		score := r.Score

		if ctx.PreferRecent {
			ageDays := now.Sub(r.Timestamp).Hours() / 24
			score *= 1 + math.Exp(-ageDays/7)*0.2
		}
		if ctx.CurrentProject != "" && r.ProjectName == ctx.CurrentProject {
			score *= 1.1
		}
		if ctx.SearchingForErrors && r.HasErrors() {
			score *= 1.15
		}
		if len(recent) > 0 && len(r.Files) > 0 {
			overlap := 0
			for _, f := range r.Files {
				if recent[f] {
					overlap++
				}
			}
			score *= 1 + float64(overlap)/float64(len(r.Files))*0.1
		}

		c := *r
		c.Score = math.Min(1, score)
		ranked[i] = &c
	}

	slices.SortStableFunc(ranked, func(a, b *models.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return ranked
}

// Highlight wraps every case-insensitive occurrence of each keyword in
// the previews with **bold** markers.
func Highlight(results []*models.SearchResult, keywords []string) []*models.SearchResult {
	var patterns []*regexp.Regexp
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		patterns = append(patterns, regexp.MustCompile(`(?i)(`+regexp.QuoteMeta(kw)+`)`))
	}

	out := make([]*models.SearchResult, len(results))
	for i, r := range results {
		c := *r
		for _, re := range patterns {
			c.MatchedContent = re.ReplaceAllString(c.MatchedContent, "**$1**")
		}
		out[i] = &c
	}
	return out
}

// Time period buckets used by GroupByTimePeriod.
const (
	PeriodToday     = "today"
	PeriodYesterday = "yesterday"
	PeriodThisWeek  = "thisWeek"
	PeriodThisMonth = "thisMonth"
	PeriodOlder     = "older"
)

// Periods lists the buckets newest first.
var Periods = []string{PeriodToday, PeriodYesterday, PeriodThisWeek, PeriodThisMonth, PeriodOlder}

// GroupByTimePeriod buckets results against day-aligned boundaries in
// now's location. Every bucket is present in the returned map.
func GroupByTimePeriod(results []*models.SearchResult, now time.Time) map[string][]*models.SearchResult {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterday := today.AddDate(0, 0, -1)
	weekAgo := today.AddDate(0, 0, -7)
	monthAgo := today.AddDate(0, -1, 0)

	groups := make(map[string][]*models.SearchResult, len(Periods))
	for _, p := range Periods {
		groups[p] = []*models.SearchResult{}
	}

	for _, r := range results {
		ts := r.Timestamp
		switch {
		case !ts.Before(today):
			groups[PeriodToday] = append(groups[PeriodToday], r)
		case !ts.Before(yesterday):
			groups[PeriodYesterday] = append(groups[PeriodYesterday], r)
		case !ts.Before(weekAgo):
			groups[PeriodThisWeek] = append(groups[PeriodThisWeek], r)
		case !ts.Before(monthAgo):
			groups[PeriodThisMonth] = append(groups[PeriodThisMonth], r)
		default:
			groups[PeriodOlder] = append(groups[PeriodOlder], r)
		}
	}
	return groups
}
