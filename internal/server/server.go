// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it builds the sandbox, guard, resolver and
// pipeline once and injects them into the tools. No business logic lives
// here — only wiring.
package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/sgmcp/sgmcp/internal/config"
	"github.com/sgmcp/sgmcp/internal/engine"
	"github.com/sgmcp/sgmcp/internal/pipeline"
	"github.com/sgmcp/sgmcp/internal/tools"
	"github.com/sgmcp/sgmcp/internal/workspace"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with the three engine tools
// registered. The sandbox root and blocked-path list are computed here,
// once, and shared read-only by every request.
func New(cfg config.Config, log zerolog.Logger) (*server.MCPServer, error) {
	root, err := workspace.DetectRoot(cfg.WorkspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("detecting workspace root: %w", err)
	}
	sandbox, err := workspace.NewSandbox(root, workspace.DefaultBlockedPaths(), config.DefaultMaxPathDepth)
	if err != nil {
		return nil, fmt.Errorf("building sandbox: %w", err)
	}
	log.Info().Str("root", sandbox.Root()).Msg("workspace detected")

	guard := workspace.NewGuard(cfg.MaxFiles, cfg.MaxFileSize)
	resolver := &engine.Resolver{Override: cfg.EngineBinary}
	p := pipeline.New(sandbox, guard, resolver, engine.ExecRunner{}, cfg, log)

	s := server.NewMCPServer(
		"sgmcp",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	searchTool := tools.NewSearchTool(p)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	replaceTool := tools.NewReplaceTool(p)
	s.AddTool(replaceTool.Definition(), replaceTool.Handle)

	scanTool := tools.NewRuleScanTool(p)
	s.AddTool(scanTool.Definition(), scanTool.Handle)

	return s, nil
}

// Serve runs the server over stdio until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func serverInstructions() string {
	return `sgmcp searches and rewrites code structurally using AST patterns.

Patterns are ordinary code snippets with metavariables:
- $NAME captures exactly one syntax node (uppercase names only)
- $$$ARGS captures a sequence of nodes (argument lists, statements)
- $_ matches one node without capturing it

Tool choice:
- sg_search: find code. Start here. Supports inline code via 'code' + 'language'.
- sg_replace: rewrite code. Dry-run by default; it previews a diff and only
  writes when dry_run is false (targets are backed up first).
- sg_rule_scan: match with relational context (inside/has/not sub-patterns,
  regex constraints on captures) when a plain pattern is not expressive enough.

All paths are confined to the detected workspace root. Results report
1-based lines and 0-based columns.`
}
