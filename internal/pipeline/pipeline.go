// Package pipeline composes validation, sandboxing, resource checks,
// command construction, bounded execution and output normalization into
// one invocation per inbound request. Each invocation owns its state; the
// only shared values are the read-only sandbox and configuration built at
// startup.
package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sgmcp/sgmcp/internal/config"
	"github.com/sgmcp/sgmcp/internal/engine"
	"github.com/sgmcp/sgmcp/internal/errs"
	"github.com/sgmcp/sgmcp/internal/output"
	"github.com/sgmcp/sgmcp/internal/request"
	"github.com/sgmcp/sgmcp/internal/rules"
	"github.com/sgmcp/sgmcp/internal/workspace"
)

// Pipeline wires the request stages together. Safe for concurrent use:
// every field is read-only after construction.
type Pipeline struct {
	sandbox  *workspace.Sandbox
	guard    *workspace.Guard
	resolver *engine.Resolver
	runner   engine.Runner
	cfg      config.Config
	log      zerolog.Logger
}

// New builds a pipeline over a constructed sandbox and guard. runner is an
// interface so tests can script the engine.
func New(sandbox *workspace.Sandbox, guard *workspace.Guard, resolver *engine.Resolver,
	runner engine.Runner, cfg config.Config, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		sandbox:  sandbox,
		guard:    guard,
		resolver: resolver,
		runner:   runner,
		cfg:      cfg,
		log:      log,
	}
}

// Summary accompanies every successful response.
type Summary struct {
	Total      int      `json:"total"`
	DurationMS int64    `json:"durationMs"`
	Warnings   []string `json:"warnings,omitempty"`
}

// SearchResult is the response shape for a search request.
type SearchResult struct {
	Matches []output.Match `json:"matches"`
	Summary Summary        `json:"summary"`
}

// ReplaceResult is the response shape for a replace request. BackupDir is
// set only for applied (non-dry-run) operations that touched files.
type ReplaceResult struct {
	Changes   []output.Change `json:"changes"`
	BackupDir string          `json:"backupDir,omitempty"`
	Summary   Summary         `json:"summary"`
}

// ScanResult is the response shape for a rule scan. RulePath is set when
// the caller asked to keep the generated rule file.
type ScanResult struct {
	Findings []output.Finding `json:"findings"`
	RulePath string           `json:"rulePath,omitempty"`
	Summary  Summary          `json:"summary"`
}

// Search runs a search request end to end.
func (p *Pipeline) Search(ctx context.Context, req request.Search) (*SearchResult, error) {
	out := request.ValidateSearch(req)
	if !out.Valid {
		return nil, validationError(out.Errors)
	}
	s := out.Sanitized
	warnings := out.Warnings

	paths, err := p.resolveTargets(s, &warnings)
	if err != nil {
		return nil, err
	}
	exe, err := p.resolver.Resolve()
	if err != nil {
		return nil, err
	}

	args, opts := engine.BuildSearch(s, paths)
	p.finishOptions(&opts, false)

	res, err := p.runner.Run(ctx, exe, args, opts)
	if err != nil {
		return nil, err
	}
	if failed(res) {
		return nil, errs.Translate(res.Stderr, p.sandbox.Root())
	}

	matches := output.Matches(res.Stdout, s, p.sandbox.Root())
	if s.RelativePaths {
		for i := range matches {
			matches[i].File = p.relativize(matches[i].File)
		}
	}

	p.log.Debug().Int("matches", len(matches)).Dur("took", res.Duration).Msg("search finished")
	return &SearchResult{
		Matches: matches,
		Summary: summarize(len(matches), res.Duration, warnings),
	}, nil
}

// Replace runs a replace request end to end. For applied (non-dry-run)
// runs every resolved target is backed up first; backup problems are
// warnings and never block the operation.
func (p *Pipeline) Replace(ctx context.Context, req request.Replace) (*ReplaceResult, error) {
	out := request.ValidateReplace(req)
	if !out.Valid {
		return nil, validationError(out.Errors)
	}
	s := out.Sanitized
	warnings := out.Warnings

	paths, err := p.resolveTargets(s, &warnings)
	if err != nil {
		return nil, err
	}
	exe, err := p.resolver.Resolve()
	if err != nil {
		return nil, err
	}

	var backupDir string
	if !s.DryRun && !s.InlineMode() {
		var backupWarnings []string
		backupDir, backupWarnings = workspace.BackupFiles(p.sandbox.Root(), paths)
		warnings = append(warnings, backupWarnings...)
	}

	args, opts := engine.BuildReplace(s, paths)
	p.finishOptions(&opts, !s.DryRun)

	res, err := p.runner.Run(ctx, exe, args, opts)
	if err != nil {
		return nil, err
	}
	if failed(res) {
		return nil, errs.Translate(res.Stderr, p.sandbox.Root())
	}

	changes := output.Changes(res.Stdout, !s.DryRun, p.log)
	if s.RelativePaths {
		for i := range changes {
			changes[i].File = p.relativize(changes[i].File)
		}
	}

	p.log.Debug().Int("changes", len(changes)).Bool("dry_run", s.DryRun).
		Dur("took", res.Duration).Msg("replace finished")
	result := &ReplaceResult{
		Changes: changes,
		Summary: summarize(len(changes), res.Duration, warnings),
	}
	if len(changes) > 0 {
		result.BackupDir = backupDir
	}
	return result, nil
}

// Scan runs a rule-scan request end to end, materializing the rule
// document first when the request carries an inline rule.
func (p *Pipeline) Scan(ctx context.Context, req request.RuleScan) (*ScanResult, error) {
	out := request.ValidateRuleScan(req)
	if !out.Valid {
		return nil, validationError(out.Errors)
	}
	s := out.Sanitized
	warnings := out.Warnings

	rulePath, cleanup, err := p.materializeRule(s)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	paths, err := p.resolveTargets(s, &warnings)
	if err != nil {
		return nil, err
	}
	exe, err := p.resolver.Resolve()
	if err != nil {
		return nil, err
	}

	args, opts := engine.BuildScan(s, rulePath, paths)
	p.finishOptions(&opts, true)

	res, err := p.runner.Run(ctx, exe, args, opts)
	if err != nil {
		return nil, err
	}
	if failed(res) {
		return nil, errs.Translate(res.Stderr, p.sandbox.Root())
	}

	findings := output.Findings(res.Stdout)
	if s.RelativePaths {
		for i := range findings {
			findings[i].File = p.relativize(findings[i].File)
		}
	}

	p.log.Debug().Int("findings", len(findings)).Dur("took", res.Duration).Msg("scan finished")
	result := &ScanResult{
		Findings: findings,
		Summary:  summarize(len(findings), res.Duration, warnings),
	}
	if s.SaveRule {
		result.RulePath = rulePath
	}
	return result, nil
}

// ─── Private Helpers ──────────────────────────────────────────────────────

// resolveTargets sandboxes and resource-checks the request's paths. Inline
// code suppresses both: there is nothing on disk to validate.
func (p *Pipeline) resolveTargets(s *request.Sanitized, warnings *[]string) ([]string, error) {
	if s.InlineMode() {
		return nil, nil
	}
	paths, err := p.sandbox.ResolvePaths(s.Paths)
	if err != nil {
		return nil, err
	}
	guardWarnings, err := p.guard.CheckLimits(paths)
	if err != nil {
		return nil, err
	}
	*warnings = append(*warnings, guardWarnings...)
	return paths, nil
}

// materializeRule produces the rule file path the scan command references:
// an existing file validated against the sandbox, or a freshly serialized
// document from the request's inline rule fields.
func (p *Pipeline) materializeRule(s *request.Sanitized) (string, func(), error) {
	if s.RuleFile != "" {
		resolved, err := p.sandbox.Validate(s.RuleFile)
		if err != nil {
			return "", nil, err
		}
		return resolved, func() {}, nil
	}
	return rules.FromRequest(s).Materialize(p.sandbox.Root(), s.SaveRule)
}

// finishOptions pins the working directory to the sandbox root and applies
// the default timeout when the request set none. Applied replaces and
// scans get the longer default.
func (p *Pipeline) finishOptions(opts *engine.Options, slow bool) {
	opts.Cwd = p.sandbox.Root()
	if opts.Timeout > 0 {
		return
	}
	if p.cfg.DefaultTimeout > 0 {
		opts.Timeout = p.cfg.DefaultTimeout
		return
	}
	if slow {
		opts.Timeout = config.DefaultApplyTimeout
	} else {
		opts.Timeout = config.DefaultSearchTimeout
	}
}

func (p *Pipeline) relativize(path string) string {
	if path == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(p.sandbox.Root(), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// failed reports whether the engine run should be treated as an error. A
// non-zero exit alone is not enough — "no matches" exits non-zero with
// empty output and must surface as a valid empty result.
func failed(res engine.Result) bool {
	return res.ExitCode != 0 &&
		strings.TrimSpace(res.Stdout) == "" &&
		strings.TrimSpace(res.Stderr) != ""
}

func validationError(errors []string) error {
	return errs.New(errs.KindValidation, strings.Join(errors, "; ")).
		WithHint("Correct the listed fields and retry.")
}

func summarize(total int, took time.Duration, warnings []string) Summary {
	return Summary{
		Total:      total,
		DurationMS: took.Milliseconds(),
		Warnings:   warnings,
	}
}
