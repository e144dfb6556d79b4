package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/sgmcp/sgmcp/internal/config"
	"github.com/sgmcp/sgmcp/internal/engine"
	"github.com/sgmcp/sgmcp/internal/pipeline"
	"github.com/sgmcp/sgmcp/internal/workspace"
)

// --- Test helpers ---

// scriptedRunner returns a canned engine result and records the call.
type scriptedRunner struct {
	result engine.Result
	calls  int
	args   []string
	opts   engine.Options
}

func (s *scriptedRunner) Run(_ context.Context, _ string, args []string, opts engine.Options) (engine.Result, error) {
	s.calls++
	s.args = args
	s.opts = opts
	return s.result, nil
}

// setupPipeline builds a pipeline over a throwaway project directory with
// the engine replaced by the scripted runner.
func setupPipeline(t *testing.T, runner *scriptedRunner) (*pipeline.Pipeline, string) {
	t.Helper()

	root := t.TempDir()
	root, _ = filepath.EvalSymlinks(root)
	write(t, filepath.Join(root, "package.json"), "{}")
	write(t, filepath.Join(root, "src", "main.js"), "var x = 5;\n")

	sandbox, err := workspace.NewSandbox(root, nil, config.DefaultMaxPathDepth)
	if err != nil {
		t.Fatalf("setup: sandbox: %v", err)
	}
	exe := filepath.Join(t.TempDir(), "engine")
	write(t, exe, "#!/bin/sh\n")

	p := pipeline.New(sandbox,
		workspace.NewGuard(config.DefaultMaxFiles, config.DefaultMaxFileSize),
		&engine.Resolver{Override: exe},
		runner, config.Config{}, zerolog.Nop())
	return p, root
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}
}

func callReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

func getResultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatal("result content is not text")
	}
	return text.Text
}

// --- sg_search ---

func TestSearchTool_RendersMatches(t *testing.T) {
	runner := &scriptedRunner{result: engine.Result{
		Stdout: `{"text":"console.log('a')","file":"src/main.js","range":{"start":{"line":0,"column":0},"end":{"line":0,"column":16}},"metaVariables":{"single":{"ARG":{"text":"'a'","range":{"start":{"line":0,"column":12},"end":{"line":0,"column":15}}}}}}` + "\n",
	}}
	p, root := setupPipeline(t, runner)
	tool := NewSearchTool(p)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"pattern":  "console.log($ARG)",
		"language": "javascript",
		"paths":    filepath.Join(root, "src"),
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("unexpected error result: %s", getResultText(t, result))
	}

	text := getResultText(t, result)
	for _, want := range []string{"src/main.js:1:0", "console.log('a')", "$ARG", "1 match"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestSearchTool_MissingPatternIsAnErrorResult(t *testing.T) {
	runner := &scriptedRunner{}
	p, _ := setupPipeline(t, runner)
	tool := NewSearchTool(p)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("bad input must not be a Go error: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("missing pattern must produce an error result")
	}
	if !strings.Contains(getResultText(t, result), "validation") {
		t.Errorf("error result should carry the kind: %s", getResultText(t, result))
	}
	if runner.calls != 0 {
		t.Error("invalid request must not reach the engine")
	}
}

func TestSearchTool_PathsAcceptArrayAndCommaString(t *testing.T) {
	for name, paths := range map[string]interface{}{
		"array":  []interface{}{"src"},
		"string": "src",
	} {
		t.Run(name, func(t *testing.T) {
			runner := &scriptedRunner{}
			p, _ := setupPipeline(t, runner)
			tool := NewSearchTool(p)

			result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
				"pattern":  "console.log($ARG)",
				"language": "javascript",
				"paths":    paths,
			}))
			if err != nil || isErrorResult(result) {
				t.Fatalf("Handle failed: err=%v result=%v", err, result)
			}
		})
	}
}

func TestSearchTool_EngineFailureCarriesHint(t *testing.T) {
	runner := &scriptedRunner{result: engine.Result{
		ExitCode: 1,
		Stderr:   "Error: Pattern contains an ERROR node",
	}}
	p, root := setupPipeline(t, runner)
	tool := NewSearchTool(p)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"pattern":  "console.log($ARG)",
		"language": "javascript",
		"paths":    root,
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("engine failure must produce an error result")
	}
	text := getResultText(t, result)
	if !strings.Contains(text, "[validation]") || !strings.Contains(text, "Hint:") {
		t.Errorf("error result missing kind or hint:\n%s", text)
	}
}

// --- sg_replace ---

func TestReplaceTool_DryRunByDefault(t *testing.T) {
	runner := &scriptedRunner{result: engine.Result{
		Stdout: "src/main.js\n@@ -1,1 +1,1 @@\n-var x = 5;\n+let x = 5;\n",
	}}
	p, root := setupPipeline(t, runner)
	tool := NewReplaceTool(p)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"pattern":     "var $NAME = $VALUE",
		"replacement": "let $NAME = $VALUE",
		"language":    "javascript",
		"paths":       root,
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("Handle failed: err=%v result=%v", err, result)
	}

	for _, a := range runner.args {
		if a == "--update-all" || a == "--interactive" {
			t.Errorf("default dry run must not pass an apply flag: %v", runner.args)
		}
	}
	text := getResultText(t, result)
	if !strings.Contains(text, "would change") || !strings.Contains(text, "```diff") {
		t.Errorf("dry run output missing preview:\n%s", text)
	}
}

func TestReplaceTool_ApplyReportsBackups(t *testing.T) {
	runner := &scriptedRunner{result: engine.Result{
		Stdout: "src/main.js\n@@ -1,1 +1,1 @@\n-var x = 5;\n+let x = 5;\n",
	}}
	p, root := setupPipeline(t, runner)
	tool := NewReplaceTool(p)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"pattern":     "var $NAME = $VALUE",
		"replacement": "let $NAME = $VALUE",
		"language":    "javascript",
		"paths":       root,
		"dry_run":     false,
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("Handle failed: err=%v result=%v", err, result)
	}

	found := false
	for _, a := range runner.args {
		if a == "--update-all" {
			found = true
		}
	}
	if !found {
		t.Errorf("apply must pass --update-all: %v", runner.args)
	}
	if !strings.Contains(getResultText(t, result), "Backups written to") {
		t.Errorf("apply output missing backup location:\n%s", getResultText(t, result))
	}
}

func TestReplaceTool_TemplateMismatchListsNames(t *testing.T) {
	runner := &scriptedRunner{}
	p, root := setupPipeline(t, runner)
	tool := NewReplaceTool(p)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"pattern":     "var $NAME = $VALUE",
		"replacement": "let $WRONG = $VALUE",
		"language":    "javascript",
		"paths":       root,
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !isErrorResult(result) || !strings.Contains(getResultText(t, result), "$WRONG") {
		t.Errorf("error must name the offending variable: %v", result)
	}
}

// --- sg_rule_scan ---

func TestRuleScanTool_InlineRule(t *testing.T) {
	runner := &scriptedRunner{result: engine.Result{
		Stdout: `{"ruleId":"no-console","severity":"warning","message":"no console calls","file":"src/main.js","text":"console.log(1)","range":{"start":{"line":2,"column":4},"end":{"line":2,"column":18}}}`,
	}}
	p, root := setupPipeline(t, runner)
	tool := NewRuleScanTool(p)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"pattern":  "console.log($ARG)",
		"language": "javascript",
		"paths":    root,
		"rule_id":  "no-console",
		"severity": "warning",
		"message":  "no console calls",
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("Handle failed: err=%v result=%v", err, result)
	}

	text := getResultText(t, result)
	for _, want := range []string{"[warning] no-console", "src/main.js:3:4", "no console calls", "1 finding"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRuleScanTool_PatternAndRuleFileAreExclusive(t *testing.T) {
	runner := &scriptedRunner{}
	p, root := setupPipeline(t, runner)
	tool := NewRuleScanTool(p)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"pattern":   "console.log($ARG)",
		"rule_file": filepath.Join(root, "rule.yml"),
		"paths":     root,
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("pattern plus rule_file must be rejected")
	}
}

func TestRuleScanTool_ConstraintsParsed(t *testing.T) {
	runner := &scriptedRunner{result: engine.Result{}}
	p, root := setupPipeline(t, runner)
	tool := NewRuleScanTool(p)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"pattern":     "console.log($ARG)",
		"language":    "javascript",
		"paths":       root,
		"constraints": "ARG=^'.*'$",
		"save_rule":   true,
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("Handle failed: err=%v result=%v", err, result)
	}

	text := getResultText(t, result)
	if !strings.Contains(text, "Rule saved to") {
		t.Fatalf("saved rule missing from output:\n%s", text)
	}
	rulePath := strings.TrimSpace(strings.Trim(strings.Split(strings.SplitAfter(text, "Rule saved to ")[1], "\n")[0], "`"))
	data, readErr := os.ReadFile(rulePath)
	if readErr != nil {
		t.Fatalf("read saved rule: %v", readErr)
	}
	if !strings.Contains(string(data), "regex") || !strings.Contains(string(data), "ARG") {
		t.Errorf("saved rule missing constraint:\n%s", data)
	}
}
