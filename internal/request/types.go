// Package request defines the closed set of inbound request shapes and the
// validator that turns them into sanitized, fully-defaulted requests.
//
// There are exactly three kinds — Search, Replace, RuleScan — as fixed
// record types. Validation is a total function from a request to an
// Outcome: it never mutates external state and never panics on malformed
// input values.
package request

// Kind discriminates the request union.
type Kind string

const (
	KindSearch   Kind = "search"
	KindReplace  Kind = "replace"
	KindRuleScan Kind = "rule-scan"
)

// Numeric knob ranges. Zero means "unset" for knobs with engine or
// pipeline defaults (timeout, threads, per-file cap).
const (
	MaxContextLines = 10
	MinTimeoutMS    = 1_000
	MaxTimeoutMS    = 180_000
	MaxThreads      = 64
	MaxMaxMatches   = 10_000
	MaxPerFileCap   = 1_000

	DefaultMaxMatches = 100
)

// JSON output styles accepted for search.
var JSONStyles = []string{"stream", "compact", "pretty"}

// Severities accepted for rule-scan rules and findings.
var Severities = []string{"error", "warning", "info", "hint"}

// Common holds the fields shared by all three request kinds.
type Common struct {
	// Pattern is the structural pattern, non-empty after trimming.
	Pattern string

	// Language hints the engine's parser. Optional for path targets
	// (the engine infers from extensions); required for inline code.
	Language string

	// Paths are file or directory targets, workspace-relative or
	// absolute. Mutually informative with Code.
	Paths []string

	// Code is inline source text searched via stdin instead of paths.
	Code string

	ContextLines int
	MaxMatches   int
	PerFileCap   int
	TimeoutMS    int
	Threads      int

	IncludeGlobs []string
	ExcludeGlobs []string

	FollowSymlinks bool
	NoIgnore       bool
	RelativePaths  bool
}

// Search finds pattern matches without modifying anything.
type Search struct {
	Common

	// JSONStyle selects the engine's JSON output shape. Default "stream".
	JSONStyle string
}

// Replace rewrites matches using a replacement template. DryRun defaults
// to true: previews are computed but nothing is written.
type Replace struct {
	Common

	Replacement string
	DryRun      bool
	Interactive bool
}

// RuleScan runs a structured rule. Either RuleFile points at an existing
// rule document, or a rule is materialized from the pattern fields below.
type RuleScan struct {
	Common

	RuleFile string

	RuleID        string
	Severity      string
	Message       string
	InsidePattern string
	HasPattern    string
	NotPattern    string

	// Constraints maps metavariable names to regex constraints applied
	// in the rule's constraints block.
	Constraints map[string]string

	// Fix is an optional rewrite template attached to the rule.
	Fix string

	// SaveRule keeps the materialized rule file under the tool directory
	// instead of deleting it after the run.
	SaveRule bool
}

// Sanitized is a fully-defaulted request: trimmed pattern, populated
// exclude globs, numeric defaults applied. It is immutable by convention —
// owned exclusively by the pipeline invocation that produced it.
type Sanitized struct {
	Kind Kind
	Common

	// Search
	JSONStyle string

	// Replace
	Replacement string
	DryRun      bool
	Interactive bool

	// RuleScan
	RuleFile      string
	RuleID        string
	Severity      string
	Message       string
	InsidePattern string
	HasPattern    string
	NotPattern    string
	Constraints   map[string]string
	Fix           string
	SaveRule      bool
}

// Outcome is the result of validation. Errors accumulate; validation only
// stops early for structural preconditions such as an empty pattern.
type Outcome struct {
	Valid     bool
	Errors    []string
	Warnings  []string
	Sanitized *Sanitized
}

// InlineMode reports whether the request operates on inline code via stdin
// rather than on filesystem paths.
func (s *Sanitized) InlineMode() bool {
	return s.Code != ""
}

// DefaultExcludeGlobs is the standard denylist applied when a request
// supplies no exclude globs: build output, dependency trees, and
// version-control internals.
var DefaultExcludeGlobs = []string{
	"node_modules/**",
	".git/**",
	"dist/**",
	"build/**",
	"target/**",
	"vendor/**",
	"__pycache__/**",
	".venv/**",
	"coverage/**",
	"*.min.js",
}
