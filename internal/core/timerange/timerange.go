// Package timerange turns user time filters ("7d", "yesterday",
// "2025-01-02..2025-02-01") into search time ranges.
package timerange

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/neilberkman/claude-grep/internal/core/search"
)

var relativeRe = regexp.MustCompile(`^(\d+)([hdwmy])$`)

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// Parse interprets s relative to now. Relative amounts and natural
// language produce an open-ended range starting at that point; "a..b"
// produces a closed range. An empty string is the zero range.
func Parse(s string, now time.Time) (search.TimeRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return search.TimeRange{}, nil
	}

	if from, to, ok := strings.Cut(s, ".."); ok {
		var r search.TimeRange
		var err error
		if strings.TrimSpace(from) != "" {
			if r.Start, err = parsePoint(from, now); err != nil {
				return search.TimeRange{}, err
			}
		}
		if strings.TrimSpace(to) != "" {
			if r.End, err = parsePoint(to, now); err != nil {
				return search.TimeRange{}, err
			}
			if isDateOnly(to) {
				r.End = r.End.AddDate(0, 0, 1).Add(-time.Nanosecond)
			}
		}
		return r, nil
	}

	start, err := parsePoint(s, now)
	if err != nil {
		return search.TimeRange{}, err
	}
	return search.TimeRange{Start: start}, nil
}

// Since returns the range covering the last n days.
func Since(days int, now time.Time) search.TimeRange {
	if days <= 0 {
		return search.TimeRange{}
	}
	return search.TimeRange{Start: now.AddDate(0, 0, -days)}
}

func parsePoint(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)

	if m := relativeRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time range %q: %w", s, err)
		}
		switch m[2] {
		case "h":
			return now.Add(-time.Duration(n) * time.Hour), nil
		case "d":
			return now.AddDate(0, 0, -n), nil
		case "w":
			return now.AddDate(0, 0, -7*n), nil
		case "m":
			return now.AddDate(0, -n, 0), nil
		default:
			return now.AddDate(-n, 0, 0), nil
		}
	}

	for _, layout := range dateFormats {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}

	if r, err := newParser().Parse(s, now); err == nil && r != nil {
		return r.Time, nil
	}

	return time.Time{}, fmt.Errorf("invalid time range %q: use 24h, 7d, 2w, 3m, 1y, a date like 2025-01-02, or a phrase like \"yesterday\"", s)
}

func isDateOnly(s string) bool {
	_, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	return err == nil
}
