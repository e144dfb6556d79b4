package request

import (
	"fmt"
	"sort"
	"strings"
)

// ValidateSearch checks and sanitizes a search request.
func ValidateSearch(req Search) Outcome {
	var out Outcome

	c, ok := sanitizeCommon(req.Common, &out)
	if !ok {
		return out
	}

	style := strings.TrimSpace(req.JSONStyle)
	if style == "" {
		style = "stream"
	}
	if !contains(JSONStyles, style) {
		out.Errors = append(out.Errors, fmt.Sprintf(
			"json_style %q is not one of %s", style, strings.Join(JSONStyles, ", ")))
	}

	if len(out.Errors) > 0 {
		return out
	}
	out.Valid = true
	out.Sanitized = &Sanitized{Kind: KindSearch, Common: c, JSONStyle: style}
	return out
}

// ValidateReplace checks and sanitizes a replace request, including the
// cross-field rule that every metavariable referenced in the replacement
// template also appears in the pattern.
func ValidateReplace(req Replace) Outcome {
	var out Outcome

	c, ok := sanitizeCommon(req.Common, &out)
	if !ok {
		return out
	}

	replacement := strings.TrimSpace(req.Replacement)
	checkTemplateVariables(c.Pattern, replacement, "replacement", &out)

	if req.DryRun && req.Interactive {
		out.Warnings = append(out.Warnings, "interactive mode has no effect during a dry run")
	}

	if len(out.Errors) > 0 {
		return out
	}
	out.Valid = true
	out.Sanitized = &Sanitized{
		Kind:        KindReplace,
		Common:      c,
		Replacement: replacement,
		DryRun:      req.DryRun,
		Interactive: req.Interactive,
	}
	return out
}

// ValidateRuleScan checks and sanitizes a rule-scan request. The request
// either references an existing rule file or carries the fields to
// materialize one; exactly one of the two forms is required.
func ValidateRuleScan(req RuleScan) Outcome {
	var out Outcome

	ruleFile := strings.TrimSpace(req.RuleFile)
	pattern := strings.TrimSpace(req.Pattern)

	// Structural precondition: a rule source must exist.
	if ruleFile == "" && pattern == "" {
		out.Errors = append(out.Errors, "either pattern or rule_file is required")
		return out
	}
	if ruleFile != "" && pattern != "" {
		out.Errors = append(out.Errors, "provide pattern or rule_file, not both")
		return out
	}

	var c Common
	if ruleFile != "" {
		// File-based rules skip pattern validation; only the shared
		// knobs and targets are checked.
		c2 := req.Common
		c2.Pattern = "-" // placeholder passes the non-empty precondition
		sc, ok := sanitizeCommon(c2, &out)
		if !ok {
			return out
		}
		sc.Pattern = ""
		c = sc
	} else {
		sc, ok := sanitizeCommon(req.Common, &out)
		if !ok {
			return out
		}
		c = sc

		for _, sub := range []struct{ name, pattern string }{
			{"inside_pattern", req.InsidePattern},
			{"has_pattern", req.HasPattern},
			{"not_pattern", req.NotPattern},
		} {
			p := strings.TrimSpace(sub.pattern)
			if p == "" {
				continue
			}
			if err := checkBrackets(p); err != nil {
				out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", sub.name, err))
			}
			out.Errors = append(out.Errors, prefixAll(sub.name, checkMetavariables(p))...)
		}

		if fix := strings.TrimSpace(req.Fix); fix != "" {
			checkTemplateVariables(c.Pattern, fix, "fix", &out)
		}

		for name := range req.Constraints {
			if !upperIdent.MatchString(name) {
				out.Errors = append(out.Errors, fmt.Sprintf(
					"constraint key %q is not a metavariable name", name))
			} else if !extractMetavariables(c.Pattern)[name] {
				out.Warnings = append(out.Warnings, fmt.Sprintf(
					"constraint on $%s has no matching metavariable in the pattern", name))
			}
		}
	}

	severity := strings.ToLower(strings.TrimSpace(req.Severity))
	if severity == "" {
		severity = "warning"
	}
	if !contains(Severities, severity) {
		out.Errors = append(out.Errors, fmt.Sprintf(
			"severity %q is not one of %s", severity, strings.Join(Severities, ", ")))
	}

	ruleID := strings.TrimSpace(req.RuleID)
	if ruleID == "" {
		ruleID = "inline-rule"
	}

	if len(out.Errors) > 0 {
		return out
	}
	out.Valid = true
	out.Sanitized = &Sanitized{
		Kind:          KindRuleScan,
		Common:        c,
		RuleFile:      ruleFile,
		RuleID:        ruleID,
		Severity:      severity,
		Message:       strings.TrimSpace(req.Message),
		InsidePattern: strings.TrimSpace(req.InsidePattern),
		HasPattern:    strings.TrimSpace(req.HasPattern),
		NotPattern:    strings.TrimSpace(req.NotPattern),
		Constraints:   req.Constraints,
		Fix:           strings.TrimSpace(req.Fix),
		SaveRule:      req.SaveRule,
	}
	return out
}

// Revalidate re-runs validation for an already-sanitized request. It is
// used by tests to assert idempotence and by the pipeline as a debug
// assertion; a sanitized request always re-validates cleanly.
func Revalidate(s *Sanitized) Outcome {
	switch s.Kind {
	case KindSearch:
		return ValidateSearch(Search{Common: s.Common, JSONStyle: s.JSONStyle})
	case KindReplace:
		return ValidateReplace(Replace{
			Common: s.Common, Replacement: s.Replacement,
			DryRun: s.DryRun, Interactive: s.Interactive,
		})
	case KindRuleScan:
		return ValidateRuleScan(RuleScan{
			Common: s.Common, RuleFile: s.RuleFile, RuleID: s.RuleID,
			Severity: s.Severity, Message: s.Message,
			InsidePattern: s.InsidePattern, HasPattern: s.HasPattern,
			NotPattern: s.NotPattern, Constraints: s.Constraints,
			Fix: s.Fix, SaveRule: s.SaveRule,
		})
	default:
		return Outcome{Errors: []string{fmt.Sprintf("unknown request kind %q", s.Kind)}}
	}
}

// ─── Shared checks ──────────────────────────────────────────────────────────

// sanitizeCommon applies the checks and defaults shared by all kinds. The
// returned bool is false only for structural preconditions (empty pattern),
// where further checks would be noise; all other problems accumulate.
func sanitizeCommon(c Common, out *Outcome) (Common, bool) {
	c.Pattern = strings.TrimSpace(c.Pattern)
	if c.Pattern == "" {
		out.Errors = append(out.Errors, "pattern is required and must be non-empty")
		return c, false
	}

	if err := checkBrackets(c.Pattern); err != nil {
		out.Errors = append(out.Errors, err.Error())
	}
	out.Errors = append(out.Errors, checkMetavariables(c.Pattern)...)

	checkRange(out, "context_lines", c.ContextLines, 0, MaxContextLines)
	if c.MaxMatches == 0 {
		c.MaxMatches = DefaultMaxMatches
	}
	checkRange(out, "max_matches", c.MaxMatches, 1, MaxMaxMatches)
	checkRange(out, "per_file_cap", c.PerFileCap, 0, MaxPerFileCap)
	if c.TimeoutMS != 0 {
		checkRange(out, "timeout_ms", c.TimeoutMS, MinTimeoutMS, MaxTimeoutMS)
	}
	if c.Threads != 0 {
		checkRange(out, "threads", c.Threads, 1, MaxThreads)
	}

	c.Code = strings.TrimSpace(c.Code)
	c.Paths = trimAll(c.Paths)
	if c.Code != "" && len(c.Paths) > 0 {
		out.Errors = append(out.Errors, "provide code or paths, not both")
	}

	c.Language = sanitizeLanguage(c, out)

	c.IncludeGlobs = trimAll(c.IncludeGlobs)
	if len(c.ExcludeGlobs) == 0 {
		c.ExcludeGlobs = append([]string(nil), DefaultExcludeGlobs...)
	} else {
		c.ExcludeGlobs = trimAll(c.ExcludeGlobs)
	}

	return c, true
}

// sanitizeLanguage normalizes an explicit hint or infers one from the
// pattern. Inline code requires a language — the engine cannot infer one
// for a virtual file.
func sanitizeLanguage(c Common, out *Outcome) string {
	if hint := strings.TrimSpace(c.Language); hint != "" {
		lang, known := normalizeLanguage(hint)
		if !known {
			out.Errors = append(out.Errors, fmt.Sprintf(
				"language %q is not supported; use e.g. javascript, typescript, python, go, rust", hint))
		}
		return lang
	}

	inferred := inferLanguage(c.Pattern)
	switch {
	case inferred != "":
		out.Warnings = append(out.Warnings, fmt.Sprintf(
			"no language hint given; inferred %q from the pattern — an explicit hint is more reliable", inferred))
		return inferred
	case c.Code != "":
		out.Errors = append(out.Errors, "language is required when searching inline code")
		return ""
	default:
		out.Warnings = append(out.Warnings,
			"no language hint given; the engine will infer one per file extension")
		return ""
	}
}

// checkTemplateVariables enforces that every metavariable in a rewrite
// template appears in the pattern; unreferenced pattern variables are
// only a warning.
func checkTemplateVariables(pattern, template, field string, out *Outcome) {
	patternVars := extractMetavariables(pattern)
	templateVars := extractMetavariables(template)

	var missing []string
	for name := range templateVars {
		if !patternVars[name] {
			missing = append(missing, "$"+name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		out.Errors = append(out.Errors, fmt.Sprintf(
			"%s references metavariables not present in the pattern: %s",
			field, strings.Join(missing, ", ")))
	}

	var unused []string
	for name := range patternVars {
		if !templateVars[name] {
			unused = append(unused, "$"+name)
		}
	}
	if len(unused) > 0 && template != "" {
		sort.Strings(unused)
		out.Warnings = append(out.Warnings, fmt.Sprintf(
			"pattern metavariables unused in %s: %s", field, strings.Join(unused, ", ")))
	}
}

func checkRange(out *Outcome, name string, v, minVal, maxVal int) {
	if v < minVal || v > maxVal {
		out.Errors = append(out.Errors, fmt.Sprintf(
			"%s must be between %d and %d, got %d", name, minVal, maxVal, v))
	}
}

func trimAll(values []string) []string {
	var result []string
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			result = append(result, t)
		}
	}
	return result
}

func contains(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

func prefixAll(prefix string, msgs []string) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = prefix + ": " + m
	}
	return out
}
