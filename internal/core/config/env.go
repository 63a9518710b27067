package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Env holds the settings that come from the environment (or a .env file
// in the working directory).
type Env struct {
	ProjectsPath  string `envconfig:"CLAUDE_PROJECTS_PATH"`
	Home          string `envconfig:"CLAUDE_GREP_HOME"`
	Debug         bool   `envconfig:"CLAUDE_GREP_DEBUG" default:"false"`
	LogLevel      string `envconfig:"CLAUDE_GREP_LOG_LEVEL"`
	LogFormat     string `envconfig:"CLAUDE_GREP_LOG_FORMAT" default:"text"`
	Port          int    `envconfig:"CLAUDE_GREP_PORT" default:"3000"`
	ClaudeCode    string `envconfig:"CLAUDE_CODE"`
	MCPServerName string `envconfig:"MCP_SERVER_NAME"`
}

// LoadEnv reads the environment.
func LoadEnv() (*Env, error) {
	_ = godotenv.Load()

	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if env.Home == "" {
		env.Home = DefaultHome()
	}
	return &env, nil
}

// DefaultHome is ~/.claude-grep.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".claude-grep"
	}
	return filepath.Join(home, ".claude-grep")
}

// PreferencesPath is where preferences are stored under home.
func (e *Env) PreferencesPath() string {
	return filepath.Join(e.Home, "config.toml")
}

// ProjectsStatePath is where the project manager keeps its state.
func (e *Env) ProjectsStatePath() string {
	return filepath.Join(e.Home, "projects.toml")
}

// HistoryPath is the search history database.
func (e *Env) HistoryPath() string {
	return filepath.Join(e.Home, "history.db")
}

// LogDir is where debug logs are written.
func (e *Env) LogDir() string {
	return filepath.Join(e.Home, "logs")
}
