// Package main is the entry point for convergectl, the operator CLI
// for the converge configuration agent.
package main

import "os"

// Build information, set via ldflags:
//
//	go build -ldflags "-X main.version=1.2.3 -X main.commit=abc123 -X main.buildTime=2026-01-01T00:00:00Z"
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	Version = version
	Commit = commit
	BuildTime = buildTime

	os.Exit(Execute())
}
