package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sgmcp/sgmcp/internal/pipeline"
	"github.com/sgmcp/sgmcp/internal/request"
)

// RuleScanTool handles the sg_rule_scan MCP tool: scanning with a
// structured rule that can express relational constraints a plain pattern
// cannot (inside, has, not, regex-constrained metavariables).
type RuleScanTool struct {
	pipeline *pipeline.Pipeline
}

// NewRuleScanTool creates a RuleScanTool backed by the given pipeline.
func NewRuleScanTool(p *pipeline.Pipeline) *RuleScanTool {
	return &RuleScanTool{pipeline: p}
}

// Definition returns the MCP tool definition for registration.
func (t *RuleScanTool) Definition() mcp.Tool {
	return mcp.NewTool("sg_rule_scan",
		mcp.WithDescription(
			"Scan code with a structured rule. Give either 'rule_file' (an existing "+
				"rule inside the workspace) or 'pattern' plus optional relational "+
				"sub-patterns (inside_pattern, has_pattern, not_pattern) and regex "+
				"constraints on metavariables. Findings carry a severity and an "+
				"optional suggested fix.",
		),
		mcp.WithString("pattern",
			mcp.Description("Rule pattern; required unless rule_file is given"),
		),
		mcp.WithString("rule_file",
			mcp.Description("Path to an existing rule file inside the workspace; mutually exclusive with pattern"),
		),
		mcp.WithString("language",
			mcp.Description("Language hint; inferred from the pattern when omitted"),
		),
		mcp.WithString("paths",
			mcp.Description("Files or directories to scan, comma separated. Defaults to the workspace root"),
		),
		mcp.WithString("rule_id",
			mcp.Description("Identifier reported with each finding (default inline-rule)"),
		),
		mcp.WithString("severity",
			mcp.Description("Finding severity: error, warning, info or hint (default warning)"),
		),
		mcp.WithString("message",
			mcp.Description("Message reported with each finding"),
		),
		mcp.WithString("inside_pattern",
			mcp.Description("Only match nodes inside this pattern"),
		),
		mcp.WithString("has_pattern",
			mcp.Description("Only match nodes containing this pattern"),
		),
		mcp.WithString("not_pattern",
			mcp.Description("Exclude nodes matching this pattern"),
		),
		mcp.WithString("constraints",
			mcp.Description("Metavariable regex constraints as NAME=regex pairs, comma separated"),
		),
		mcp.WithString("fix",
			mcp.Description("Rewrite template suggested as the fix for each finding"),
		),
		mcp.WithBoolean("save_rule",
			mcp.Description("Keep the generated rule file under the workspace tool directory"),
		),
		mcp.WithNumber("timeout_ms",
			mcp.Description("Engine timeout in milliseconds (1000-180000, default 60000)"),
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

// Handle processes the sg_rule_scan tool call.
func (t *RuleScanTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.pipeline.Scan(ctx, request.RuleScan{
		Common:        commonArgs(req),
		RuleFile:      req.GetString("rule_file", ""),
		RuleID:        req.GetString("rule_id", ""),
		Severity:      req.GetString("severity", ""),
		Message:       req.GetString("message", ""),
		InsidePattern: req.GetString("inside_pattern", ""),
		HasPattern:    req.GetString("has_pattern", ""),
		NotPattern:    req.GetString("not_pattern", ""),
		Constraints:   parseConstraints(req.GetString("constraints", "")),
		Fix:           req.GetString("fix", ""),
		SaveRule:      getBool(req, "save_rule", false),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(renderFindings(res)), nil
}

// ─── Private Helpers ──────────────────────────────────────────────────────

// parseConstraints splits "NAME=regex,OTHER=regex" pairs.
func parseConstraints(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	constraints := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		name, regex, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name != "" {
			constraints[name] = strings.TrimSpace(regex)
		}
	}
	return constraints
}

func renderFindings(res *pipeline.ScanResult) string {
	var b strings.Builder
	b.WriteString("# Scan Results\n")

	if len(res.Findings) == 0 {
		b.WriteString("\nNo findings.\n")
	}
	for _, f := range res.Findings {
		fmt.Fprintf(&b, "\n**[%s] %s** — %s:%d:%d\n", f.Severity, f.RuleID, f.File, f.Line, f.Column)
		if f.Message != "" {
			b.WriteString(f.Message + "\n")
		}
		if f.Fix != "" {
			fmt.Fprintf(&b, "Suggested fix: `%s`\n", f.Fix)
		}
	}

	if res.RulePath != "" {
		fmt.Fprintf(&b, "\nRule saved to `%s`\n", res.RulePath)
	}
	b.WriteString(summaryLine(res.Summary.Total, "finding", res.Summary.DurationMS, res.Summary.Warnings))
	return b.String()
}
