package conversation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cbroglie/mustache"

	"github.com/neilberkman/claude-grep/internal/core/search"
	"github.com/neilberkman/claude-grep/pkg/transcript"
)

// FormatOptions control how a conversation is rendered.
type FormatOptions struct {
	// Highlight wraps Terms in bold.
	Highlight bool
	Terms     []string

	// Context, when positive and Terms are set, limits markdown output
	// to messages within Context messages of one that contains a term.
	Context int
}

const conversationTemplate = `# Conversation: {{{sessionId}}}

**Project:** {{{project}}}
**Messages:** {{total}}
**Time Range:** {{{timeRange}}}
{{#hasFiles}}
**Files:** {{{files}}}
{{/hasFiles}}

---

{{#messages}}
{{#skipped}}
_{{skipped}} messages omitted_

{{/skipped}}
## {{{role}}} ({{{time}}})

{{{content}}}

{{#hasFiles}}
_Files: {{{files}}}_

{{/hasFiles}}
{{#divider}}
---

{{/divider}}
{{#trailing}}
---

_{{trailing}} messages omitted_
{{/trailing}}
{{/messages}}
`

var conversationTmpl = func() *mustache.Template {
	t, err := mustache.ParseString(conversationTemplate)
	if err != nil {
		panic(fmt.Sprintf("invalid conversation template: %v", err))
	}
	return t
}()

// Format renders details as "markdown" or "json".
func Format(d *Details, format string, opts FormatOptions) (string, error) {
	switch format {
	case "json":
		return formatJSON(d)
	case "markdown", "":
		return formatMarkdown(d, opts)
	default:
		return "", fmt.Errorf("unsupported conversation format: %s", format)
	}
}

func formatMarkdown(d *Details, opts FormatOptions) (string, error) {
	highlight := highlighter(opts)
	keep := visible(d.Messages, opts)

	var messages []map[string]any
	last := -1
	for i, m := range d.Messages {
		if !keep[i] {
			continue
		}
		messages = append(messages, map[string]any{
			"skipped":  i - last - 1,
			"role":     roleLabel(m.Role),
			"time":     search.FormatMessageTime(m.Timestamp),
			"content":  highlight(m.Content),
			"hasFiles": len(m.Files) > 0,
			"files":    codeList(m.Files),
		})
		last = i
	}
	for i := range messages {
		messages[i]["divider"] = i < len(messages)-1
	}
	if len(messages) > 0 && last < len(d.Messages)-1 {
		messages[len(messages)-1]["trailing"] = len(d.Messages) - 1 - last
	}

	out, err := conversationTmpl.Render(map[string]any{
		"sessionId": d.SessionID,
		"project":   d.ProjectName,
		"total":     d.Metadata.TotalMessages,
		"timeRange": timeRange(d.Metadata.Start, d.Metadata.End),
		"hasFiles":  len(d.Metadata.Files) > 0,
		"files":     codeList(d.Metadata.Files),
		"messages":  messages,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}

// visible marks the messages to print. Without a context window, or when
// no message mentions a term, everything is shown.
func visible(messages []transcript.Message, opts FormatOptions) []bool {
	keep := make([]bool, len(messages))
	terms := lowerTerms(opts.Terms)
	if opts.Context <= 0 || len(terms) == 0 {
		for i := range keep {
			keep[i] = true
		}
		return keep
	}

	matched := false
	for i, m := range messages {
		if !containsAny(strings.ToLower(m.Content), terms) {
			continue
		}
		matched = true
		for j := max(0, i-opts.Context); j <= min(len(messages)-1, i+opts.Context); j++ {
			keep[j] = true
		}
	}
	if !matched {
		for i := range keep {
			keep[i] = true
		}
	}
	return keep
}

func highlighter(opts FormatOptions) func(string) string {
	terms := lowerTerms(opts.Terms)
	if !opts.Highlight || len(terms) == 0 {
		return func(s string) string { return s }
	}

	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	re := regexp.MustCompile(`(?i)(` + strings.Join(quoted, "|") + `)`)
	return func(s string) string {
		return re.ReplaceAllString(s, "**$1**")
	}
}

func lowerTerms(terms []string) []string {
	var out []string
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func roleLabel(role string) string {
	if role == search.RoleUser {
		return "User"
	}
	return "Assistant"
}

func codeList(files []string) string {
	quoted := make([]string, len(files))
	for i, f := range files {
		quoted[i] = "`" + f + "`"
	}
	return strings.Join(quoted, ", ")
}

func timeRange(start, end time.Time) string {
	if start.IsZero() {
		return "unknown"
	}
	start, end = start.Local(), end.Local()
	if start.Format("2006-01-02") == end.Format("2006-01-02") {
		return fmt.Sprintf("%s (%s - %s)", start.Format("1/2/2006"), start.Format("3:04:05 PM"), end.Format("3:04:05 PM"))
	}
	return search.FormatMessageTime(start) + " - " + search.FormatMessageTime(end)
}

type jsonDetails struct {
	SessionID   string        `json:"sessionId"`
	ProjectName string        `json:"projectName"`
	Messages    []jsonMessage `json:"messages"`
	Metadata    jsonMetadata  `json:"metadata"`
}

type jsonMessage struct {
	UUID        string    `json:"uuid,omitempty"`
	Role        string    `json:"role"`
	Timestamp   time.Time `json:"timestamp"`
	Content     string    `json:"content"`
	Files       []string  `json:"files"`
	HasError    bool      `json:"hasError"`
	HasToolCall bool      `json:"hasToolCall"`
}

type jsonMetadata struct {
	TotalMessages int `json:"totalMessages"`
	TimeRange     struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	} `json:"timeRange"`
	Files        []string `json:"files"`
	GitBranch    string   `json:"gitBranch,omitempty"`
	HasErrors    bool     `json:"hasErrors"`
	HasToolCalls bool     `json:"hasToolCalls"`
}

func formatJSON(d *Details) (string, error) {
	out := jsonDetails{
		SessionID:   d.SessionID,
		ProjectName: d.ProjectName,
		Messages:    make([]jsonMessage, len(d.Messages)),
	}
	for i, m := range d.Messages {
		files := m.Files
		if files == nil {
			files = []string{}
		}
		out.Messages[i] = jsonMessage{
			UUID:        m.UUID,
			Role:        m.Role,
			Timestamp:   m.Timestamp,
			Content:     m.Content,
			Files:       files,
			HasError:    m.HasError,
			HasToolCall: m.HasToolCall,
		}
	}

	meta := &out.Metadata
	meta.TotalMessages = d.Metadata.TotalMessages
	meta.TimeRange.Start = d.Metadata.Start
	meta.TimeRange.End = d.Metadata.End
	meta.Files = d.Metadata.Files
	if meta.Files == nil {
		meta.Files = []string{}
	}
	meta.GitBranch = d.Metadata.Branch
	meta.HasErrors = d.Metadata.HasErrors
	meta.HasToolCalls = d.Metadata.HasToolCalls

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal conversation: %w", err)
	}
	return string(data), nil
}
