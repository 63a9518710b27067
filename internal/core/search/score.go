package search

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/neilberkman/claude-grep/pkg/transcript"
)

const previewLength = 200

var stopWords = map[string]bool{
	"the": true, "and": true, "or": true, "but": true, "for": true, "with": true,
}

// Keywords splits a query into the terms used for matching. Words of two
// characters or fewer and common stop words are dropped.
func Keywords(query string) []string {
	var keywords []string
	for _, word := range strings.Fields(query) {
		if len([]rune(word)) <= 2 || stopWords[strings.ToLower(word)] {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}

func lowerAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(w)
	}
	return out
}

// keywordScore is the mean keyword hit density over matched messages,
// capped at 1.
func keywordScore(matches []transcript.Message, keywords []string) float64 {
	if len(matches) == 0 || len(keywords) == 0 {
		return 0
	}

	var total float64
	for _, m := range matches {
		content := strings.ToLower(m.Content)
		hits := 0
		for _, kw := range keywords {
			hits += strings.Count(content, kw)
		}
		total += float64(hits) / float64(len(keywords))
	}
	return math.Min(1, total/float64(len(matches)))
}

// recencyScore decays exponentially with a 30 day scale.
func recencyScore(modified, now time.Time) float64 {
	ageDays := now.Sub(modified).Hours() / 24
	return math.Exp(-ageDays / 30)
}

func (e *Engine) score(matches []transcript.Message, total int, modified time.Time, keywords []string, opts Options) float64 {
	var score float64

	if len(keywords) > 0 {
		score += e.weights.KeywordMatch * keywordScore(matches, keywords)
	}
	score += e.weights.Recency * recencyScore(modified, e.now())
	if total > 0 {
		score += e.weights.MessageTypeMatch * float64(len(matches)) / float64(total)
	}

	if opts.IncludeErrors != nil && *opts.IncludeErrors && anyMessage(matches, func(m transcript.Message) bool { return m.HasError }) {
		score += e.weights.ErrorPresence
	}
	if opts.IncludeToolCalls != nil && *opts.IncludeToolCalls && anyMessage(matches, func(m transcript.Message) bool { return m.HasToolCall }) {
		score += e.weights.ToolCallPresence
	}

	return math.Max(0, math.Min(1, score))
}

func anyMessage(messages []transcript.Message, pred func(transcript.Message) bool) bool {
	for _, m := range messages {
		if pred(m) {
			return true
		}
	}
	return false
}

// Preview returns content unchanged if it is at most 200 characters,
// otherwise a window around the first keyword found in it, otherwise a
// plain truncation. Lengths count runes.
func Preview(content string, keywords []string) string {
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	runes := []rune(content)

	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		loc := regexp.MustCompile("(?i)" + regexp.QuoteMeta(kw)).FindStringIndex(content)
		if loc == nil {
			continue
		}
		idx := utf8.RuneCountInString(content[:loc[0]])
		start := max(0, idx-50)
		end := min(len(runes), idx+previewLength-50)
		return "..." + string(runes[start:end]) + "..."
	}

	return string(runes[:previewLength]) + "..."
}

// ErrInvalidPattern is returned for a file pattern that does not compile.
var ErrInvalidPattern = errors.New("invalid file pattern")

// compilePatterns turns file globs into case-insensitive regexes. Blank
// patterns are skipped.
func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	var compiled []*regexp.Regexp
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + strings.ReplaceAll(p, "*", ".*"))
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func matchesAnyFile(files []string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		for _, f := range files {
			if re.MatchString(f) {
				return true
			}
		}
	}
	return false
}
