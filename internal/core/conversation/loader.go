package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/neilberkman/claude-grep/internal/core/search"
	"github.com/neilberkman/claude-grep/pkg/transcript"
)

// Details is a whole conversation with summary metadata.
type Details struct {
	SessionID   string
	ProjectName string
	Path        string
	Messages    []transcript.Message
	Metadata    Metadata
}

type Metadata struct {
	TotalMessages int
	Start         time.Time
	End           time.Time
	Files         []string
	Branch        string
	Cwd           string // last working directory recorded
	HasErrors     bool
	HasToolCalls  bool
}

// Loader reads full conversations by session id.
type Loader struct {
	engine *search.Engine
	parser *transcript.Parser
}

func NewLoader(engine *search.Engine) *Loader {
	return &Loader{engine: engine, parser: transcript.NewParser()}
}

// Load finds and parses a conversation. A conversation without messages
// is reported as search.ErrNotFound.
func (l *Loader) Load(ctx context.Context, sessionID string) (*Details, error) {
	file, err := l.engine.FindConversation(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := l.parser.ParseFile(ctx, file.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation %s: %w", sessionID, err)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: %s has no messages", search.ErrNotFound, sessionID)
	}

	project := file.ProjectName
	if project == "" {
		project = "unknown"
	}
	return &Details{
		SessionID:   sessionID,
		ProjectName: project,
		Path:        file.Path,
		Messages:    messages,
		Metadata:    summarize(messages),
	}, nil
}

func summarize(messages []transcript.Message) Metadata {
	meta := Metadata{TotalMessages: len(messages)}
	seen := make(map[string]bool)

	for _, m := range messages {
		for _, f := range m.Files {
			if !seen[f] {
				seen[f] = true
				meta.Files = append(meta.Files, f)
			}
		}
		meta.HasErrors = meta.HasErrors || m.HasError
		meta.HasToolCalls = meta.HasToolCalls || m.HasToolCall
		if meta.Branch == "" {
			meta.Branch = m.GitBranch
		}
		if m.Cwd != "" {
			meta.Cwd = m.Cwd
		}

		if m.Timestamp.IsZero() {
			continue
		}
		if meta.Start.IsZero() || m.Timestamp.Before(meta.Start) {
			meta.Start = m.Timestamp
		}
		if m.Timestamp.After(meta.End) {
			meta.End = m.Timestamp
		}
	}
	return meta
}
