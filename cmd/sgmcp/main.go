// sgmcp: structural code search and rewrite over MCP
//
// An MCP server that lets AI coding tools search, rewrite and lint code
// with AST patterns, mediated through a workspace sandbox and delegated
// to the ast-grep engine.
//
// Usage:
//
//	sgmcp serve              # Start MCP server (stdio transport)
//	sgmcp fetch [version]    # Download the ast-grep engine
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/sgmcp/sgmcp/internal/config"
	"github.com/sgmcp/sgmcp/internal/engine"
	sgserver "github.com/sgmcp/sgmcp/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "fetch":
		version := ""
		if len(os.Args) > 2 {
			version = os.Args[2]
		}
		runFetch(version)
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("sgmcp v%s\n", sgserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe() error {
	cfg := config.Load()
	logger := initLogger(cfg)

	s, err := sgserver.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return sgserver.Serve(s)
}

// initLogger builds the process logger. stdout belongs to the MCP stdio
// transport, so logs go to the configured file or stderr.
func initLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stderr
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v\n", cfg.LogFile, err)
		} else {
			output = file
		}
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// runFetch downloads the engine into the managed directory.
func runFetch(version string) {
	if version == "" {
		fmt.Fprintf(os.Stderr, "⬇️  Fetching the latest ast-grep release...\n")
	} else {
		fmt.Fprintf(os.Stderr, "⬇️  Fetching ast-grep %s...\n", version)
	}

	path, err := engine.Fetch(version, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Fetch failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n   You can install ast-grep manually: https://ast-grep.github.io\n")
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "✅ Installed to %s\n", path)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `sgmcp v%s — structural code search and rewrite over MCP

Usage:
  sgmcp serve              Start the MCP server (stdio transport)
  sgmcp fetch [version]    Download the ast-grep engine into ~/.sgmcp/bin

Environment:
  SGMCP_ROOT           Explicit workspace root (default: auto-detect)
  SGMCP_BINARY         Path to the ast-grep executable
  SGMCP_MAX_FILES      File-count ceiling per request (default 100000)
  SGMCP_MAX_FILE_SIZE  Per-file byte ceiling (default 10485760)
  SGMCP_TIMEOUT_MS     Default engine timeout override
  SGMCP_LOG_FILE       Log destination (default stderr)
  SGMCP_LOG_LEVEL      debug | info | warn | error (default info)

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "sgmcp": {
        "command": "sgmcp",
        "args": ["serve"]
      }
    }
  }
`, sgserver.Version)
}
