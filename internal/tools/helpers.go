// Package tools implements the MCP tool handlers.
//
// Each tool is one file: a struct holding its dependencies, a Definition
// for registration, and a Handle compatible with mcp-go's CallToolRequest
// signature. Handlers never return Go errors for bad input — user-facing
// problems become error results so the client sees them.
package tools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sgmcp/sgmcp/internal/errs"
	"github.com/sgmcp/sgmcp/internal/request"
)

// getStringList reads a parameter that may arrive as a JSON array of
// strings or as one comma-separated string.
func getStringList(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key]
	if !ok {
		return nil
	}

	var values []string
	switch v := raw.(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				values = append(values, s)
			}
		}
	case string:
		for _, part := range strings.Split(v, ",") {
			values = append(values, part)
		}
	}

	var cleaned []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	return cleaned
}

// getBool reads a boolean parameter with a default, accepting the JSON
// boolean the protocol delivers.
func getBool(req mcp.CallToolRequest, key string, def bool) bool {
	if v, ok := req.GetArguments()[key].(bool); ok {
		return v
	}
	return def
}

// getInt reads a numeric parameter; JSON numbers arrive as float64.
func getInt(req mcp.CallToolRequest, key string) int {
	if v, ok := req.GetArguments()[key].(float64); ok {
		return int(v)
	}
	return 0
}

// commonArgs decodes the parameters shared by all three tools.
func commonArgs(req mcp.CallToolRequest) request.Common {
	return request.Common{
		Pattern:        req.GetString("pattern", ""),
		Language:       req.GetString("language", ""),
		Paths:          getStringList(req, "paths"),
		Code:           req.GetString("code", ""),
		ContextLines:   getInt(req, "context_lines"),
		MaxMatches:     getInt(req, "max_matches"),
		PerFileCap:     getInt(req, "per_file_cap"),
		TimeoutMS:      getInt(req, "timeout_ms"),
		Threads:        getInt(req, "threads"),
		IncludeGlobs:   getStringList(req, "include_globs"),
		ExcludeGlobs:   getStringList(req, "exclude_globs"),
		FollowSymlinks: getBool(req, "follow_symlinks", false),
		NoIgnore:       getBool(req, "no_ignore", false),
		RelativePaths:  getBool(req, "relative_paths", false),
	}
}

// errorResult renders a pipeline failure for the client: the stable error
// kind, the message, and the remediation hint when one exists.
func errorResult(err error) *mcp.CallToolResult {
	var e *errs.Error
	if errors.As(err, &e) {
		msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
		if e.Hint != "" {
			msg += "\nHint: " + e.Hint
		}
		return mcp.NewToolResultError(msg)
	}
	return mcp.NewToolResultError(err.Error())
}

// summaryLine renders the shared summary footer.
func summaryLine(total int, noun string, durationMS int64, warnings []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n**%d %s** in %dms\n", total, plural(total, noun), durationMS)
	for _, w := range warnings {
		fmt.Fprintf(&b, "\n> ⚠️ %s\n", w)
	}
	return b.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}
