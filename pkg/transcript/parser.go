package transcript

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"time"

	"github.com/neilberkman/claude-grep/internal/logging"
)

var log = logging.ForComponent(logging.CompParser)

// Message is one chat turn extracted from a transcript line.
type Message struct {
	SessionID   string
	UUID        string
	Role        string // "user" or "assistant"
	Timestamp   time.Time
	Content     string
	Files       []string
	GitBranch   string
	Cwd         string // working directory Claude Code was started in
	HasError    bool
	HasToolCall bool
}

// rawEntry represents a raw JSONL line
type rawEntry struct {
	Type      string      `json:"type"`
	UUID      string      `json:"uuid,omitempty"`
	SessionID string      `json:"sessionId,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
	GitBranch string      `json:"gitBranch,omitempty"`
	Cwd       string      `json:"cwd,omitempty"`
	Message   *rawMessage `json:"message,omitempty"`
}

type rawMessage struct {
	Content json.RawMessage `json:"content,omitempty"`
}

type contentBlock struct {
	Type      string          `json:"type"`
	Text      json.RawMessage `json:"text,omitempty"`
	Name      string          `json:"name,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
}

// Parser turns transcript files into Messages.
type Parser struct {
	extractor *Extractor
}

// NewParser creates a parser with the default file and error patterns.
func NewParser() *Parser {
	return &Parser{extractor: NewExtractor()}
}

// Messages streams the messages of one transcript file. The file is read
// line by line; nothing beyond the current line is held in memory.
//
// A file that cannot be opened or read yields a single error and stops.
// Blank lines are skipped and malformed lines are logged and skipped.
func (p *Parser) Messages(ctx context.Context, path string) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		file, err := os.Open(path)
		if err != nil {
			yield(Message{}, fmt.Errorf("failed to open file: %w", err))
			return
		}
		defer func() { _ = file.Close() }()

		reader := bufio.NewReaderSize(file, 64*1024)
		lineNum := 0

		for {
			if err := ctx.Err(); err != nil {
				yield(Message{}, err)
				return
			}

			line, readErr := reader.ReadBytes('\n')
			if len(line) > 0 {
				lineNum++
				msg, ok, err := p.parseLine(line)
				switch {
				case err != nil:
					log.Warn("skipping malformed line", "file", path, "line", lineNum, "error", err)
				case ok:
					if !yield(msg, nil) {
						return
					}
				}
			}

			if readErr != nil {
				if !errors.Is(readErr, io.EOF) {
					yield(Message{}, fmt.Errorf("error reading file: %w", readErr))
				}
				return
			}
		}
	}
}

// ParseFile reads a whole transcript into memory.
func (p *Parser) ParseFile(ctx context.Context, path string) ([]Message, error) {
	var messages []Message
	for msg, err := range p.Messages(ctx, path) {
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// parseLine decodes one line. ok is false for blank lines and entries
// without text content.
func (p *Parser) parseLine(line []byte) (msg Message, ok bool, err error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Message{}, false, nil
	}

	var raw rawEntry
	if err := json.Unmarshal(line, &raw); err != nil {
		return Message{}, false, err
	}
	return p.parseEntry(&raw)
}

func (p *Parser) parseEntry(raw *rawEntry) (Message, bool, error) {
	if raw.Message == nil {
		return Message{}, false, nil
	}

	content, blocks, err := extractContent(raw.Message.Content)
	if err != nil {
		return Message{}, false, err
	}
	if content == "" {
		return Message{}, false, nil
	}

	msg := Message{
		SessionID:   raw.SessionID,
		UUID:        raw.UUID,
		Role:        raw.Type,
		Content:     content,
		Files:       p.extractor.ExtractFiles(content),
		GitBranch:   raw.GitBranch,
		Cwd:         raw.Cwd,
		HasError:    p.extractor.DetectError(content),
		HasToolCall: hasToolBlock(blocks),
	}

	if raw.Timestamp != "" {
		t, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
		if err != nil {
			log.Debug("unparseable timestamp", "uuid", raw.UUID, "timestamp", raw.Timestamp)
		} else {
			msg.Timestamp = t
		}
	}

	return msg, true, nil
}

// extractContent flattens message content. A plain string is returned
// verbatim; a block array renders text, tool_use and tool_result blocks
// one per line.
func extractContent(data json.RawMessage) (string, []contentBlock, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", nil, nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", nil, err
		}
		return s, nil, nil

	case '[':
		var blocks []contentBlock
		if err := json.Unmarshal(data, &blocks); err != nil {
			return "", nil, err
		}

		parts := make([]string, 0, len(blocks))
		for _, block := range blocks {
			var part string
			switch block.Type {
			case "text":
				var text string
				if json.Unmarshal(block.Text, &text) == nil {
					part = text
				}
			case "tool_use":
				part = fmt.Sprintf("[Tool: %s]", block.Name)
			case "tool_result":
				part = fmt.Sprintf("[Tool Result: %s]", block.ToolUseID)
			}
			if part != "" {
				parts = append(parts, part)
			}
		}
		return strings.TrimSpace(strings.Join(parts, "\n")), blocks, nil
	}

	return "", nil, nil
}

func hasToolBlock(blocks []contentBlock) bool {
	for _, block := range blocks {
		if block.Type == "tool_use" || block.Type == "tool_result" {
			return true
		}
	}
	return false
}
