package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sgmcp/sgmcp/internal/pipeline"
	"github.com/sgmcp/sgmcp/internal/request"
)

// SearchTool handles the sg_search MCP tool: structural code search with
// AST patterns.
type SearchTool struct {
	pipeline *pipeline.Pipeline
}

// NewSearchTool creates a SearchTool backed by the given pipeline.
func NewSearchTool(p *pipeline.Pipeline) *SearchTool {
	return &SearchTool{pipeline: p}
}

// Definition returns the MCP tool definition for registration.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("sg_search",
		mcp.WithDescription(
			"Search code structurally with AST patterns. "+
				"Patterns are code snippets with metavariables: $NAME captures one node, "+
				"$$$ARGS captures a sequence, $_ matches anything without capturing. "+
				"Searches the workspace paths, or inline code when 'code' is given.",
		),
		mcp.WithString("pattern",
			mcp.Required(),
			mcp.Description("AST pattern, e.g. console.log($ARG) or func $NAME($$$PARAMS) error"),
		),
		mcp.WithString("language",
			mcp.Description("Language hint (javascript, typescript, python, go, rust, ...). Inferred from the pattern when omitted; required with inline code"),
		),
		mcp.WithString("paths",
			mcp.Description("Files or directories to search, comma separated. Defaults to the workspace root"),
		),
		mcp.WithString("code",
			mcp.Description("Inline source text to search instead of files; requires 'language'"),
		),
		mcp.WithNumber("context_lines",
			mcp.Description("Lines of context around each match (0-10)"),
		),
		mcp.WithNumber("max_matches",
			mcp.Description("Global match ceiling (default 100)"),
		),
		mcp.WithNumber("per_file_cap",
			mcp.Description("Per-file match ceiling"),
		),
		mcp.WithNumber("timeout_ms",
			mcp.Description("Engine timeout in milliseconds (1000-180000, default 30000)"),
		),
		mcp.WithNumber("threads",
			mcp.Description("Engine thread count (1-64)"),
		),
		mcp.WithString("include_globs",
			mcp.Description("Globs to include, comma separated, e.g. *.ts,src/**"),
		),
		mcp.WithString("exclude_globs",
			mcp.Description("Globs to exclude; defaults to node_modules, build output and VCS internals"),
		),
		mcp.WithBoolean("follow_symlinks",
			mcp.Description("Follow symbolic links while scanning (default false)"),
		),
		mcp.WithBoolean("no_ignore",
			mcp.Description("Also scan files hidden by ignore files (default false)"),
		),
		mcp.WithBoolean("relative_paths",
			mcp.Description("Report file paths relative to the workspace root"),
		),
	)
}

// Handle processes the sg_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.pipeline.Search(ctx, request.Search{Common: commonArgs(req)})
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(renderMatches(res)), nil
}

// ─── Private Helpers ──────────────────────────────────────────────────────

func renderMatches(res *pipeline.SearchResult) string {
	var b strings.Builder
	b.WriteString("# Search Results\n")

	if len(res.Matches) == 0 {
		b.WriteString("\nNo matches found.\n")
	}
	for _, m := range res.Matches {
		fmt.Fprintf(&b, "\n**%s:%d:%d**\n", m.File, m.Line, m.Column)
		b.WriteString("```\n")
		for _, line := range m.ContextBefore {
			b.WriteString(line + "\n")
		}
		b.WriteString(m.Text + "\n")
		for _, line := range m.ContextAfter {
			b.WriteString(line + "\n")
		}
		b.WriteString("```\n")
		for _, c := range m.Captures {
			fmt.Fprintf(&b, "- `$%s` = `%s`\n", c.Name, c.Text)
		}
	}

	b.WriteString(summaryLine(res.Summary.Total, "match", res.Summary.DurationMS, res.Summary.Warnings))
	return b.String()
}
