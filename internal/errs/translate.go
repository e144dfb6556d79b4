package errs

import (
	"fmt"
	"strings"
)

// TranslationRule maps a stderr substring onto an error kind and a message
// template. The %s verb in Template receives the workspace root.
type TranslationRule struct {
	Substring string
	Kind      Kind
	Template  string
	Hint      string
}

// TranslationRules is the ordered stderr classification table. First match
// wins, so more specific substrings come before generic ones. Exported so
// tests can assert the table stays consistent with the taxonomy.
var TranslationRules = []TranslationRule{
	{
		Substring: "No such file or directory",
		Kind:      KindExecution,
		Template:  "the engine could not find a target file under %s",
		Hint:      "Check that the requested paths exist inside the workspace.",
	},
	{
		Substring: "os error 2",
		Kind:      KindExecution,
		Template:  "the engine could not find a target file under %s",
		Hint:      "Check that the requested paths exist inside the workspace.",
	},
	{
		Substring: "Permission denied",
		Kind:      KindExecution,
		Template:  "the engine was denied read access under %s",
		Hint:      "Exclude unreadable directories with exclude globs, or fix file permissions.",
	},
	{
		Substring: "Pattern contains an ERROR node",
		Kind:      KindValidation,
		Template:  "the pattern does not parse as valid code for the selected language (workspace %s)",
		Hint:      "Patterns must be syntactically complete snippets. Try a smaller pattern or another language hint.",
	},
	{
		Substring: "Fail to parse query",
		Kind:      KindValidation,
		Template:  "the pattern could not be compiled (workspace %s)",
		Hint:      "Check metavariable syntax: $NAME for one node, $$$NAME for a sequence.",
	},
	{
		Substring: "unsupported language",
		Kind:      KindValidation,
		Template:  "the requested language is not supported by the engine (workspace %s)",
		Hint:      "Use one of the engine's built-in language names, e.g. javascript, typescript, python, go, rust.",
	},
	{
		Substring: "invalid value for '--lang'",
		Kind:      KindValidation,
		Template:  "the requested language is not supported by the engine (workspace %s)",
		Hint:      "Use one of the engine's built-in language names, e.g. javascript, typescript, python, go, rust.",
	},
	{
		Substring: "YAML",
		Kind:      KindValidation,
		Template:  "the generated rule file was rejected by the engine (workspace %s)",
		Hint:      "Simplify the rule: check inside/has/not sub-patterns and constraint syntax.",
	},
	{
		Substring: "deserialize",
		Kind:      KindValidation,
		Template:  "the generated rule file was rejected by the engine (workspace %s)",
		Hint:      "Simplify the rule: check inside/has/not sub-patterns and constraint syntax.",
	},
	{
		Substring: "timed out",
		Kind:      KindTimeout,
		Template:  "the engine timed out while scanning %s",
		Hint:      "Narrow the paths or raise timeout_ms.",
	},
	{
		Substring: "Cannot allocate memory",
		Kind:      KindResource,
		Template:  "the engine ran out of memory while scanning %s",
		Hint:      "Narrow the paths or add exclude globs for large generated directories.",
	},
	{
		Substring: "too many open files",
		Kind:      KindResource,
		Template:  "the engine exhausted file descriptors while scanning %s",
		Hint:      "Narrow the paths or lower the thread count.",
	},
}

// Translate classifies raw engine stderr into the closed taxonomy.
// Unmatched stderr passes through with workspace context appended — it is
// never swallowed. Empty stderr yields a generic execution error so a
// failed run always produces a visible message.
func Translate(stderr, workspace string) *Error {
	trimmed := strings.TrimSpace(stderr)
	if trimmed == "" {
		return New(KindExecution, fmt.Sprintf("the engine reported failure without diagnostics (workspace %s)", workspace)).
			WithHint("Re-run with a narrower scope; if it persists, check the engine installation.")
	}

	for _, rule := range TranslationRules {
		if strings.Contains(trimmed, rule.Substring) {
			e := Newf(rule.Kind, rule.Template, workspace)
			e.Hint = rule.Hint
			e.Err = fmt.Errorf("%s", firstLine(trimmed))
			return e
		}
	}

	return New(KindExecution, fmt.Sprintf("%s (workspace %s)", firstLine(trimmed), workspace)).
		WithHint("This message comes straight from the engine.")
}

// firstLine keeps stderr payloads readable in single-line error chains.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
