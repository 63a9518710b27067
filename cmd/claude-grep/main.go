package main

import (
	"github.com/neilberkman/claude-grep/cmd/claude-grep/mcp"
	"github.com/neilberkman/claude-grep/internal/interface/cli"
)

// Version information (injected by GoReleaser)
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	mcp.Version = Version
	cli.SetVersion(Version, Commit, Date)
	cli.Execute()
}
