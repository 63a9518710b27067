package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/neilberkman/claude-grep/internal/core/format"
	"github.com/neilberkman/claude-grep/internal/logging"
)

var log = logging.ForComponent(logging.CompConfig)

var (
	ErrUnknownKey   = errors.New("unknown preference key")
	ErrInvalidValue = errors.New("invalid preference value")
)

// Preferences are the user's persisted defaults.
type Preferences struct {
	Display     DisplayPreferences     `toml:"display" json:"display"`
	Search      SearchPreferences      `toml:"search" json:"search"`
	Performance PerformancePreferences `toml:"performance" json:"performance"`
}

type DisplayPreferences struct {
	DefaultFormat          string `toml:"defaultFormat" json:"defaultFormat"`
	IncludeStats           bool   `toml:"includeStats" json:"includeStats"`
	MaxPreviewLength       int    `toml:"maxPreviewLength" json:"maxPreviewLength"`
	ShowRankingExplanation bool   `toml:"showRankingExplanation" json:"showRankingExplanation"`
}

type SearchPreferences struct {
	MaxResults      int    `toml:"maxResults" json:"maxResults"`
	DefaultDaysBack int    `toml:"defaultDaysBack" json:"defaultDaysBack"`
	Exhaustive      bool   `toml:"exhaustive" json:"exhaustive"`
	DefaultProject  string `toml:"defaultProject,omitempty" json:"defaultProject,omitempty"`
}

type PerformancePreferences struct {
	BatchSize         int  `toml:"batchSize" json:"batchSize"`
	MemoryLimit       int  `toml:"memoryLimit" json:"memoryLimit"` // MB
	EnableProgressBar bool `toml:"enableProgressBar" json:"enableProgressBar"`
}

// Defaults returns the built-in preferences.
func Defaults() Preferences {
	return Preferences{
		Display: DisplayPreferences{
			DefaultFormat:    format.Table,
			IncludeStats:     true,
			MaxPreviewLength: 200,
		},
		Search: SearchPreferences{
			MaxResults:      20,
			DefaultDaysBack: 30,
		},
		Performance: PerformancePreferences{
			BatchSize:         10,
			MemoryLimit:       512,
			EnableProgressBar: true,
		},
	}
}

// Sections are the top-level preference groups.
var Sections = []string{"display", "search", "performance"}

type field struct {
	get func(*Preferences) any
	set func(*Preferences, string) error
}

func stringField(ptr func(*Preferences) *string, valid func(string) bool) field {
	return field{
		get: func(p *Preferences) any { return *ptr(p) },
		set: func(p *Preferences, v string) error {
			if valid != nil && !valid(v) {
				return fmt.Errorf("%w: %q", ErrInvalidValue, v)
			}
			*ptr(p) = v
			return nil
		},
	}
}

func intField(ptr func(*Preferences) *int) field {
	return field{
		get: func(p *Preferences) any { return *ptr(p) },
		set: func(p *Preferences, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < 0 {
				return fmt.Errorf("%w: %q is not a non-negative integer", ErrInvalidValue, v)
			}
			*ptr(p) = n
			return nil
		},
	}
}

func boolField(ptr func(*Preferences) *bool) field {
	return field{
		get: func(p *Preferences) any { return *ptr(p) },
		set: func(p *Preferences, v string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, v)
			}
			*ptr(p) = b
			return nil
		},
	}
}

var fields = map[string]field{
	"display.defaultFormat":          stringField(func(p *Preferences) *string { return &p.Display.DefaultFormat }, format.IsValid),
	"display.includeStats":           boolField(func(p *Preferences) *bool { return &p.Display.IncludeStats }),
	"display.maxPreviewLength":       intField(func(p *Preferences) *int { return &p.Display.MaxPreviewLength }),
	"display.showRankingExplanation": boolField(func(p *Preferences) *bool { return &p.Display.ShowRankingExplanation }),
	"search.maxResults":              intField(func(p *Preferences) *int { return &p.Search.MaxResults }),
	"search.defaultDaysBack":         intField(func(p *Preferences) *int { return &p.Search.DefaultDaysBack }),
	"search.exhaustive":              boolField(func(p *Preferences) *bool { return &p.Search.Exhaustive }),
	"search.defaultProject":          stringField(func(p *Preferences) *string { return &p.Search.DefaultProject }, nil),
	"performance.batchSize":          intField(func(p *Preferences) *int { return &p.Performance.BatchSize }),
	"performance.memoryLimit":        intField(func(p *Preferences) *int { return &p.Performance.MemoryLimit }),
	"performance.enableProgressBar":  boolField(func(p *Preferences) *bool { return &p.Performance.EnableProgressBar }),
}

// Keys lists every settable preference key.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Store persists preferences as TOML. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	path  string
	prefs Preferences
}

// NewStore creates a store backed by path, holding defaults until Load.
func NewStore(path string) *Store {
	return &Store{path: path, prefs: Defaults()}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the file. A missing file is created with defaults; a file
// that cannot be decoded is ignored in favor of defaults. Keys missing
// from the file keep their default values.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := Defaults()
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		s.prefs = prefs
		return s.saveLocked()
	}

	if _, err := toml.DecodeFile(s.path, &prefs); err != nil {
		log.Warn("failed to decode preferences, using defaults", "path", s.path, "error", err)
		s.prefs = Defaults()
		return nil
	}
	if !format.IsValid(prefs.Display.DefaultFormat) {
		prefs.Display.DefaultFormat = format.Table
	}
	s.prefs = prefs
	return nil
}

// Save writes the current preferences.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s.prefs); err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}

// Get returns a copy of the current preferences.
func (s *Store) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// Update applies fn and saves.
func (s *Store) Update(fn func(*Preferences)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.prefs)
	return s.saveLocked()
}

// Set parses value for a dotted key such as "search.maxResults" and saves.
func (s *Store) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.prefs
	if err := f.set(&next, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	s.prefs = next
	return s.saveLocked()
}

// SetAll applies several keys at once. Nothing is changed if any key or
// value is invalid.
func (s *Store) SetAll(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.prefs
	for key, value := range values {
		f, ok := fields[key]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		if err := f.set(&next, value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	s.prefs = next
	return s.saveLocked()
}

// Value returns the current value of a dotted key.
func (s *Store) Value(key string) (any, error) {
	f, ok := fields[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return f.get(&s.prefs), nil
}

// Reset restores one section, or everything when section is empty.
func (s *Store) Reset(section string) error {
	defaults := Defaults()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch section {
	case "":
		s.prefs = defaults
	case "display":
		s.prefs.Display = defaults.Display
	case "search":
		s.prefs.Search = defaults.Search
	case "performance":
		s.prefs.Performance = defaults.Performance
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, section)
	}
	return s.saveLocked()
}
