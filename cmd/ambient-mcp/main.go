// Package main is the entry point for the ambient-mcp CLI.
//
// Run without arguments (or with "serve") it starts the MCP server on stdio,
// the way an agent runner launches it as a sidecar subprocess:
//
// 1. Load configuration (defaults, config file, environment)
// 2. Initialize logging on stderr
// 3. Resolve the bearer token and build the backend client
// 4. Register the tools and serve JSON-RPC until stdin closes or a signal arrives
//
// The remaining commands are operator helpers: listing the tool catalog,
// invoking one tool from a shell, managing the stored token and the config
// file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"ambientmcp/internal/ui"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
)

// errSilent marks failures whose output has already been written.
var errSilent = errors.New("command failed")

func main() {
	cmd := newRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintln(os.Stderr, ui.Failure("Error: "+err.Error()))
		}
		os.Exit(1)
	}
}
