package transcript

import (
	"reflect"
	"testing"
)

func TestExtractFiles(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "mixed references",
			text: "Please check src/index.ts and package.json. Also look at TASK-001-feature.md",
			want: []string{"src/index.ts", "package.json", "TASK-001-feature.md"},
		},
		{
			name: "tsx is not cut to ts",
			text: "edit components/Button.tsx now",
			want: []string{"components/Button.tsx"},
		},
		{
			name: "task file",
			text: "see TASK-2024-12.1-auth-flow.md",
			want: []string{"TASK-2024-12.1-auth-flow.md"},
		},
		{
			name: "project folder",
			text: "notes live in .project/plans/roadmap",
			want: []string{".project/plans/roadmap"},
		},
		{
			name: "urls are dropped",
			text: "http://example.com/app.js",
			want: nil,
		},
		{
			name: "imports in code blocks",
			text: "```ts\nimport { foo } from './lib/foo'\nconst x = require('lodash')\n```",
			want: []string{"./lib/foo", "lodash"},
		},
		{
			name: "duplicates collapse",
			text: "main.go main.go main.go",
			want: []string{"main.go"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.ExtractFiles(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractFiles(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetectError(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		text string
		want bool
	}{
		{"TypeError: Cannot read property of undefined", true},
		{"No errors found", false},
		{"Traceback (most recent call last):", true},
		{"Build FAILED: exit 1", true},
		{"ReferenceError x is not defined", true},
		{"Error at line 3", true},
		{"all good", false},
	}

	for _, tt := range tests {
		if got := e.DetectError(tt.text); got != tt.want {
			t.Errorf("DetectError(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
