package models

import (
	"errors"
	"time"
)

// ConversationFile is a transcript discovered on disk.
type ConversationFile struct {
	Path         string
	SessionID    string // from filename, minus .jsonl and _conversation
	LastModified time.Time
	ProjectName  string
}

// Validate checks if the file has required fields
func (f *ConversationFile) Validate() error {
	if f.Path == "" {
		return errors.New("path is required")
	}
	if f.SessionID == "" {
		return errors.New("session_id is required")
	}
	return nil
}
