package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sgmcp/sgmcp/internal/pipeline"
	"github.com/sgmcp/sgmcp/internal/request"
)

// ReplaceTool handles the sg_replace MCP tool: structural rewrite with a
// dry-run-first contract. Nothing is written unless dry_run is explicitly
// set to false.
type ReplaceTool struct {
	pipeline *pipeline.Pipeline
}

// NewReplaceTool creates a ReplaceTool backed by the given pipeline.
func NewReplaceTool(p *pipeline.Pipeline) *ReplaceTool {
	return &ReplaceTool{pipeline: p}
}

// Definition returns the MCP tool definition for registration.
func (t *ReplaceTool) Definition() mcp.Tool {
	return mcp.NewTool("sg_replace",
		mcp.WithDescription(
			"Rewrite code structurally: every metavariable captured by 'pattern' "+
				"can be reused in 'replacement'. Dry-run by default — the tool previews "+
				"changes as a diff and only writes files when dry_run is false, after "+
				"backing the targets up under the workspace tool directory.",
		),
		mcp.WithString("pattern",
			mcp.Required(),
			mcp.Description("AST pattern to match, e.g. var $NAME = $VALUE"),
		),
		mcp.WithString("replacement",
			mcp.Required(),
			mcp.Description("Rewrite template; may only reference metavariables from the pattern, e.g. let $NAME = $VALUE"),
		),
		mcp.WithString("language",
			mcp.Description("Language hint; inferred from the pattern when omitted, required with inline code"),
		),
		mcp.WithString("paths",
			mcp.Description("Files or directories to rewrite, comma separated. Defaults to the workspace root"),
		),
		mcp.WithString("code",
			mcp.Description("Inline source text to preview the rewrite on; requires 'language'"),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Preview only (default true). Set false to write changes to disk"),
		),
		mcp.WithBoolean("interactive",
			mcp.Description("Apply with the engine's interactive confirmation instead of all at once"),
		),
		mcp.WithNumber("timeout_ms",
			mcp.Description("Engine timeout in milliseconds (1000-180000, default 60000 for applies)"),
		),
		mcp.WithString("include_globs",
			mcp.Description("Globs to include, comma separated"),
		),
		mcp.WithString("exclude_globs",
			mcp.Description("Globs to exclude; defaults to node_modules, build output and VCS internals"),
		),
		mcp.WithBoolean("relative_paths",
			mcp.Description("Report file paths relative to the workspace root"),
		),
	)
}

// Handle processes the sg_replace tool call.
func (t *ReplaceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.pipeline.Replace(ctx, request.Replace{
		Common:      commonArgs(req),
		Replacement: req.GetString("replacement", ""),
		DryRun:      getBool(req, "dry_run", true),
		Interactive: getBool(req, "interactive", false),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(renderChanges(res)), nil
}

// ─── Private Helpers ──────────────────────────────────────────────────────

func renderChanges(res *pipeline.ReplaceResult) string {
	var b strings.Builder
	b.WriteString("# Replace Results\n")

	if len(res.Changes) == 0 {
		b.WriteString("\nNo changes.\n")
	}
	for _, c := range res.Changes {
		verb := "would change"
		if c.Applied {
			verb = "changed"
		}
		fmt.Fprintf(&b, "\n**%s** — %s %d %s\n", c.File, verb, c.MatchCount, plural(c.MatchCount, "place"))
		if c.UnifiedPreview != "" {
			b.WriteString("```diff\n")
			b.WriteString(c.UnifiedPreview + "\n")
			b.WriteString("```\n")
		}
	}

	if res.BackupDir != "" {
		fmt.Fprintf(&b, "\nBackups written to `%s`\n", res.BackupDir)
	}
	b.WriteString(summaryLine(res.Summary.Total, "file", res.Summary.DurationMS, res.Summary.Warnings))
	return b.String()
}
