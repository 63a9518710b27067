package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/neilberkman/claude-grep/internal/core/models"
	"github.com/neilberkman/claude-grep/internal/core/progress"
	"github.com/neilberkman/claude-grep/internal/core/scanner"
	"github.com/neilberkman/claude-grep/internal/logging"
	"github.com/neilberkman/claude-grep/pkg/transcript"
)

var log = logging.ForComponent(logging.CompSearch)

// ErrNotFound is returned when no transcript has the requested session id.
var ErrNotFound = errors.New("conversation not found")

// Engine runs keyword searches over the transcripts a Scanner finds.
type Engine struct {
	scanner *scanner.Scanner
	parser  *transcript.Parser
	weights Weights
	tracker *progress.Tracker
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights overrides the scoring coefficients.
func WithWeights(w Weights) Option {
	return func(e *Engine) { e.weights = w }
}

// WithProgress attaches a progress tracker. It is reset at the start of
// every search.
func WithProgress(t *progress.Tracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// New creates a search engine.
func New(s *scanner.Scanner, opts ...Option) *Engine {
	e := &Engine{
		scanner: s,
		parser:  transcript.NewParser(),
		weights: DefaultWeights(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scanner returns the scanner the engine reads from.
func (e *Engine) Scanner() *scanner.Scanner {
	return e.scanner
}

// Search yields one result per matching conversation.
//
// With relevance ordering (the default unless Exhaustive is set) every
// candidate is scored first and results come out best first, cut to
// Limit. Otherwise results are yielded in scan order as they are found
// and scanning stops at Limit unless Exhaustive is set.
//
// A file that fails to parse is reported to the progress tracker and
// skipped. The only errors yielded are an invalid file pattern, a
// failure to enumerate transcripts or a cancelled context.
func (e *Engine) Search(ctx context.Context, opts Options) iter.Seq2[*models.SearchResult, error] {
	return func(yield func(*models.SearchResult, error) bool) {
		if e.tracker != nil {
			e.tracker.Reset()
		}

		keywords := lowerAll(Keywords(opts.Query))
		patterns, err := compilePatterns(opts.FilePatterns)
		if err != nil {
			yield(nil, err)
			return
		}

		files, err := e.scanner.Scan(ctx, scanner.Options{
			Project:    opts.Project,
			Start:      opts.TimeRange.Start,
			End:        opts.TimeRange.End,
			OnProgress: e.report,
		})
		if err != nil {
			yield(nil, fmt.Errorf("failed to scan conversations: %w", err))
			return
		}

		buffered := opts.buffered()
		var results []*models.SearchResult
		matched := 0

		log.Debug("search started", "query", opts.Query, "project", opts.Project,
			"files", len(files), "buffered", buffered, "exhaustive", opts.Exhaustive)

		for i, file := range files {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			started := time.Now()
			result, err := e.searchConversation(ctx, file, keywords, patterns, opts)
			if err != nil {
				if ctx.Err() != nil {
					yield(nil, ctx.Err())
					return
				}
				log.Warn("failed to search conversation", "file", file.Path, "error", err)
				if e.tracker != nil {
					e.tracker.ReportError(fmt.Errorf("%s: %w", file.Path, err))
				}
			} else if e.tracker != nil {
				e.tracker.FileProcessed(time.Since(started))
			}

			e.report(progress.Update{
				FilesProcessed: i + 1,
				TotalFiles:     len(files),
				CurrentFile:    file.Path,
				Stage:          progress.StageSearching,
			})

			if result == nil {
				continue
			}
			matched++

			if buffered {
				results = append(results, result)
				continue
			}
			if !yield(result, nil) {
				return
			}
			if !opts.Exhaustive && opts.Limit > 0 && matched >= opts.Limit {
				break
			}
		}

		if buffered {
			slices.SortStableFunc(results, func(a, b *models.SearchResult) int {
				return cmp.Compare(b.Score, a.Score)
			})
			if opts.Limit > 0 && len(results) > opts.Limit {
				results = results[:opts.Limit]
			}
			for _, r := range results {
				if !yield(r, nil) {
					return
				}
			}
		}

		if e.tracker != nil {
			e.tracker.Complete(matched)
		}
		log.Debug("search finished", "query", opts.Query, "matches", matched)
	}
}

// Collect runs a search and returns every result, ordered by the
// requested sort field and order.
func (e *Engine) Collect(ctx context.Context, opts Options) ([]*models.SearchResult, error) {
	var results []*models.SearchResult
	for r, err := range e.Search(ctx, opts) {
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	Sort(results, opts.SortBy, opts.SortOrder)
	return results, nil
}

// Sort orders results in place. Unknown fields sort by relevance.
func Sort(results []*models.SearchResult, by SortField, order SortOrder) {
	key := func(a, b *models.SearchResult) int {
		switch by {
		case SortDate:
			return a.Timestamp.Compare(b.Timestamp)
		case SortMessageCount:
			return cmp.Compare(a.MatchCount, b.MatchCount)
		default:
			return cmp.Compare(a.Score, b.Score)
		}
	}
	slices.SortStableFunc(results, func(a, b *models.SearchResult) int {
		if order == SortAsc {
			return key(a, b)
		}
		return key(b, a)
	})
}

func (e *Engine) searchConversation(ctx context.Context, file models.ConversationFile, keywords []string, patterns []*regexp.Regexp, opts Options) (*models.SearchResult, error) {
	var (
		matches      []transcript.Message
		total        int
		hasErrors    bool
		hasToolCalls bool
		files        []string
		seenFiles    = make(map[string]bool)
	)

	addFiles := func(list []string) {
		for _, f := range list {
			if !seenFiles[f] {
				seenFiles[f] = true
				files = append(files, f)
			}
		}
	}

	for msg, err := range e.parser.Messages(ctx, file.Path) {
		if err != nil {
			return nil, err
		}
		total++

		if messageMatches(msg, keywords, opts) {
			matches = append(matches, msg)
			addFiles(msg.Files)
		}
		hasErrors = hasErrors || msg.HasError
		hasToolCalls = hasToolCalls || msg.HasToolCall

		if len(patterns) > 0 {
			addFiles(msg.Files)
		}
	}

	if len(patterns) > 0 && !matchesAnyFile(files, patterns) {
		return nil, nil
	}
	if len(matches) == 0 {
		return nil, nil
	}

	score := e.score(matches, total, file.LastModified, keywords, opts)
	if score <= 0 {
		return nil, nil
	}

	return &models.SearchResult{
		SessionID:      file.SessionID,
		Timestamp:      file.LastModified,
		MatchedContent: Preview(matches[0].Content, keywords),
		Files:          files,
		Score:          score,
		ProjectName:    projectOrUnknown(file.ProjectName),
		Branch:         matches[0].GitBranch,
		MatchCount:     len(matches),
		Metadata: &models.ResultMetadata{
			TotalMessages: total,
			HasErrors:     hasErrors,
			HasToolCalls:  hasToolCalls,
			GitBranch:     matches[0].GitBranch,
			ProjectPath:   file.ProjectName,
		},
	}, nil
}

// messageMatches applies the keyword, flag, role and time filters.
// keywords must already be lowercased.
func messageMatches(msg transcript.Message, keywords []string, opts Options) bool {
	if len(keywords) > 0 {
		content := strings.ToLower(msg.Content)
		found := false
		for _, kw := range keywords {
			if strings.Contains(content, kw) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if opts.IncludeErrors != nil && *opts.IncludeErrors != msg.HasError {
		return false
	}
	if opts.IncludeToolCalls != nil && *opts.IncludeToolCalls != msg.HasToolCall {
		return false
	}

	if len(opts.MessageTypes) > 0 {
		role := RoleAssistant
		if msg.Role == RoleUser {
			role = RoleUser
		}
		if !slices.Contains(opts.MessageTypes, role) {
			return false
		}
	}

	return opts.TimeRange.Contains(msg.Timestamp)
}

// FindConversation locates the transcript file for a session id across
// all projects.
func (e *Engine) FindConversation(ctx context.Context, sessionID string) (models.ConversationFile, error) {
	files, err := e.scanner.Scan(ctx, scanner.Options{})
	if err != nil {
		return models.ConversationFile{}, fmt.Errorf("failed to scan conversations: %w", err)
	}
	for _, f := range files {
		if f.SessionID == sessionID {
			return f, nil
		}
	}
	return models.ConversationFile{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
}

// ConversationByID loads one whole conversation. The result carries the
// full transcript in Content and always scores 1.
func (e *Engine) ConversationByID(ctx context.Context, sessionID string) (*models.SearchResult, error) {
	files, err := e.scanner.Scan(ctx, scanner.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversations: %w", err)
	}

	for _, file := range files {
		if file.SessionID != sessionID {
			continue
		}

		messages, err := e.parser.ParseFile(ctx, file.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read conversation %s: %w", sessionID, err)
		}
		if len(messages) == 0 {
			continue
		}
		return buildConversationResult(file, messages), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
}

func buildConversationResult(file models.ConversationFile, messages []transcript.Message) *models.SearchResult {
	var (
		parts     = make([]string, 0, len(messages))
		files     []string
		seenFiles = make(map[string]bool)
		meta      = &models.ResultMetadata{
			TotalMessages: len(messages),
			GitBranch:     messages[0].GitBranch,
			ProjectPath:   file.ProjectName,
		}
	)

	for _, msg := range messages {
		var b strings.Builder
		if msg.Role != "" {
			fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(msg.Role), FormatMessageTime(msg.Timestamp))
		}
		if msg.Content != "" {
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
		if len(msg.Files) > 0 {
			fmt.Fprintf(&b, "Files: %s\n", strings.Join(msg.Files, ", "))
		}
		parts = append(parts, b.String())

		for _, f := range msg.Files {
			if !seenFiles[f] {
				seenFiles[f] = true
				files = append(files, f)
			}
		}
		meta.HasErrors = meta.HasErrors || msg.HasError
		meta.HasToolCalls = meta.HasToolCalls || msg.HasToolCall
	}

	return &models.SearchResult{
		SessionID:      file.SessionID,
		Timestamp:      messages[0].Timestamp,
		MatchedContent: Preview(messages[0].Content, nil),
		Files:          files,
		Score:          1.0,
		ProjectName:    projectOrUnknown(file.ProjectName),
		Branch:         messages[0].GitBranch,
		MatchCount:     len(messages),
		Metadata:       meta,
		Content:        strings.Join(parts, "\n---\n\n"),
	}
}

// FormatMessageTime renders a message timestamp in local time.
func FormatMessageTime(t time.Time) string {
	if t.IsZero() {
		return "unknown time"
	}
	return t.Local().Format("1/2/2006, 3:04:05 PM")
}

func (e *Engine) report(u progress.Update) {
	if e.tracker != nil {
		e.tracker.Report(u)
	}
}

func projectOrUnknown(name string) string {
	if name == "" {
		return "unknown"
	}
	return name
}
