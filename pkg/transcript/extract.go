package transcript

import (
	"regexp"
	"strings"
)

// Extractor finds file references and error markers in message text.
type Extractor struct {
	filePatterns  []*regexp.Regexp
	codeBlock     *regexp.Regexp
	importPattern *regexp.Regexp
	errorPatterns []*regexp.Regexp
}

// NewExtractor creates an extractor with the built-in patterns.
func NewExtractor() *Extractor {
	return &Extractor{
		filePatterns:  compileFilePatterns(),
		codeBlock:     regexp.MustCompile("```[a-zA-Z]*\\s*\\n?([^`]+)```"),
		importPattern: regexp.MustCompile(`(?:import|require)\s*(?:(?:\{[^}]*\}|\w+)\s*from\s*)?(?:\(?\s*)?['"` + "`" + `]([^'"` + "`" + `]+)['"` + "`" + `]`),
		errorPatterns: compileErrorPatterns(),
	}
}

// ExtractFiles returns the distinct file references in text, in the order
// they were first found. URLs are dropped.
func (e *Extractor) ExtractFiles(text string) []string {
	seen := make(map[string]bool)
	var files []string

	add := func(candidate string) {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" || strings.HasPrefix(candidate, "http") || seen[candidate] {
			return
		}
		seen[candidate] = true
		files = append(files, candidate)
	}

	for _, pattern := range e.filePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			if len(match) > 1 && match[1] != "" {
				add(match[1])
			} else {
				add(match[0])
			}
		}
	}

	for _, block := range e.codeBlock.FindAllStringSubmatch(text, -1) {
		for _, imp := range e.importPattern.FindAllStringSubmatch(block[1], -1) {
			add(imp[1])
		}
	}

	return files
}

// DetectError reports whether text looks like it contains an error report.
func (e *Extractor) DetectError(text string) bool {
	lower := strings.ToLower(text)
	for _, pattern := range e.errorPatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}
	return false
}

// File path pattern compilation. Longer extensions come first in each
// alternation so index.tsx is not cut to index.ts.
func compileFilePatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Paths with a known extension, preceded by start or whitespace
		regexp.MustCompile(`(?i)(?:^|\s)([A-Za-z0-9\-_./]+\.(?:tsx|jsx|ts|js|md|json|yml|yaml|toml|txt|py|java|go|rs|cpp|c|h|hpp|css|html|vue|svelte))\b`),

		// Task files: TASK-2024-01.md, TASK-2024-12.1-auth-flow.md
		regexp.MustCompile(`(?i)TASK-\d{4}-\d{1,3}(?:\.\d+)?(?:-[A-Za-z0-9\-]+)?\.md`),

		// Project folder: .project/plans/x.md
		regexp.MustCompile(`(?i)\.project/[A-Za-z0-9\-_./]+`),

		// Well-known config files
		regexp.MustCompile(`(?i)package\.json|tsconfig\.json|\.eslintrc|\.prettierrc|\.gitignore`),
	}
}

func compileErrorPatterns() []*regexp.Regexp {
	sources := []string{
		`error:`,
		`exception:`,
		`failed:`,
		`failure:`,
		`traceback`,
		`stack trace`,
		`typeerror`,
		`referenceerror`,
		`syntaxerror`,
		`error\s+at\s+`,
	}

	patterns := make([]*regexp.Regexp, len(sources))
	for i, src := range sources {
		patterns[i] = regexp.MustCompile(`(?i)` + src)
	}
	return patterns
}
