package models

import (
	"testing"
	"time"
)

func TestConversationFileValidation(t *testing.T) {
	tests := []struct {
		name    string
		file    ConversationFile
		wantErr bool
	}{
		{
			name: "valid file",
			file: ConversationFile{
				Path:         "/home/u/.claude/projects/app/abc.jsonl",
				SessionID:    "abc",
				LastModified: time.Now(),
				ProjectName:  "app",
			},
			wantErr: false,
		},
		{
			name:    "missing path",
			file:    ConversationFile{SessionID: "abc"},
			wantErr: true,
		},
		{
			name:    "missing session id",
			file:    ConversationFile{Path: "/tmp/x.jsonl"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.file.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSearchResultHasErrors(t *testing.T) {
	var r SearchResult
	if r.HasErrors() {
		t.Error("nil metadata should report no errors")
	}
	r.Metadata = &ResultMetadata{HasErrors: true}
	if !r.HasErrors() {
		t.Error("expected HasErrors() = true")
	}
}
