// Package engine prepares and executes invocations of the external
// structural search tool. The engine itself is a black box: it gets an
// argument vector, optionally stdin, a working directory, and a deadline,
// and hands back stdout/stderr.
package engine

import (
	"fmt"
	"time"

	"github.com/sgmcp/sgmcp/internal/request"
)

// Options carries everything about an invocation besides the argument
// vector itself.
type Options struct {
	// Cwd is the working directory, always the sandbox root.
	Cwd string

	// Timeout bounds the run; zero means the pipeline's per-kind default.
	Timeout time.Duration

	// Stdin is the inline source payload; empty means no stdin.
	Stdin string
}

// BuildSearch maps a sanitized search request to a `run` invocation with
// stream-JSON output.
func BuildSearch(s *request.Sanitized, paths []string) ([]string, Options) {
	args := []string{"run", "--pattern", s.Pattern}
	args = appendLanguage(args, s)
	args = appendContext(args, s)
	args = appendGlobs(args, s)
	args = appendIgnoreFlags(args, s)
	args = appendRunFlags(args, s)
	args = append(args, "--json="+s.JSONStyle)
	args = appendTargets(args, s, paths)
	return args, buildOptions(s)
}

// BuildReplace maps a sanitized replace request to a `run` invocation with
// a rewrite template. A dry run adds no apply flag — the engine's default
// preview behavior carries the diff; otherwise --update-all (batch) or
// --interactive is appended.
func BuildReplace(s *request.Sanitized, paths []string) ([]string, Options) {
	args := []string{"run", "--pattern", s.Pattern, "--rewrite", s.Replacement}
	args = appendLanguage(args, s)
	args = appendContext(args, s)
	args = appendGlobs(args, s)
	args = appendIgnoreFlags(args, s)
	args = appendRunFlags(args, s)
	if !s.DryRun {
		if s.Interactive {
			args = append(args, "--interactive")
		} else {
			args = append(args, "--update-all")
		}
	}
	args = appendTargets(args, s, paths)
	return args, buildOptions(s)
}

// BuildScan maps a sanitized rule-scan request to a `scan` invocation
// against a materialized rule file.
func BuildScan(s *request.Sanitized, rulePath string, paths []string) ([]string, Options) {
	args := []string{"scan", "--rule", rulePath}
	args = appendGlobs(args, s)
	args = appendIgnoreFlags(args, s)
	args = appendRunFlags(args, s)
	args = append(args, "--json=stream")
	args = appendTargets(args, s, paths)
	return args, buildOptions(s)
}

// ─── Flag assembly ──────────────────────────────────────────────────────────
//
// Shared ordering convention: subcommand → match flags → language →
// context/format → include globs → exclude globs (negated) → ignore
// toggles → symlink/thread flags → output format → positional paths or
// stdin flag, always last.

func appendLanguage(args []string, s *request.Sanitized) []string {
	if s.Language != "" {
		args = append(args, "--lang", s.Language)
	}
	return args
}

func appendContext(args []string, s *request.Sanitized) []string {
	if s.ContextLines > 0 {
		args = append(args, "--context", fmt.Sprintf("%d", s.ContextLines))
	}
	return args
}

func appendGlobs(args []string, s *request.Sanitized) []string {
	for _, g := range s.IncludeGlobs {
		args = append(args, "--globs", g)
	}
	for _, g := range s.ExcludeGlobs {
		// The engine expresses exclusion as a negated glob.
		args = append(args, "--globs", "!"+g)
	}
	return args
}

func appendIgnoreFlags(args []string, s *request.Sanitized) []string {
	if s.NoIgnore {
		// The engine takes one category per flag; vcs covers .gitignore,
		// dot covers .ignore files. Both are needed to actually scan
		// files hidden by ignore rules.
		args = append(args, "--no-ignore", "vcs", "--no-ignore", "dot")
	}
	return args
}

func appendRunFlags(args []string, s *request.Sanitized) []string {
	if s.FollowSymlinks {
		args = append(args, "--follow")
	}
	if s.Threads > 0 {
		args = append(args, "--threads", fmt.Sprintf("%d", s.Threads))
	}
	return args
}

func appendTargets(args []string, s *request.Sanitized, paths []string) []string {
	if s.InlineMode() {
		return append(args, "--stdin")
	}
	return append(args, paths...)
}

func buildOptions(s *request.Sanitized) Options {
	opts := Options{Stdin: s.Code}
	if s.TimeoutMS > 0 {
		opts.Timeout = time.Duration(s.TimeoutMS) * time.Millisecond
	}
	return opts
}
