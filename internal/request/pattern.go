package request

import (
	"fmt"
	"regexp"
	"strings"
)

// metavarToken matches any sigil-led token in a pattern: $$$NAME, $$$,
// $NAME, $_, or malformed lowercase forms that we want to diagnose.
var metavarToken = regexp.MustCompile(`\${1,3}[A-Za-z_][A-Za-z0-9_]*|\${3}`)

// upperIdent is the accepted shape for a named metavariable.
var upperIdent = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)

// checkBrackets verifies that (), [] and {} nest correctly in the pattern
// text. This is a cheap structural sanity check, not a parse: string
// literals are not interpreted, which matches how the engine treats a
// pattern that is a fragment of real code.
func checkBrackets(pattern string) error {
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	var stack []rune

	for _, ch := range pattern {
		switch ch {
		case '(', '[', '{':
			stack = append(stack, ch)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[ch] {
				return fmt.Errorf("unbalanced %q in pattern", ch)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return fmt.Errorf("unclosed %q in pattern", stack[len(stack)-1])
	}
	return nil
}

// checkMetavariables validates every sigil token in the pattern. Accepted
// forms: $NAME (single node, uppercase-led), $_ (wildcard), $$$NAME and
// bare $$$ (multi-node capture). A lowercase-led single-sigil token is a
// syntax error with a corrective message.
func checkMetavariables(pattern string) []string {
	var errors []string
	for _, tok := range metavarToken.FindAllString(pattern, -1) {
		if strings.HasPrefix(tok, "$$$") {
			name := strings.TrimPrefix(tok, "$$$")
			if name != "" && !upperIdent.MatchString(name) {
				errors = append(errors, fmt.Sprintf(
					"invalid multi-node metavariable %q: use $$$NAME with an uppercase name", tok))
			}
			continue
		}
		if strings.HasPrefix(tok, "$$") {
			errors = append(errors, fmt.Sprintf(
				"invalid metavariable %q: use $NAME for one node or $$$NAME for a sequence", tok))
			continue
		}
		name := strings.TrimPrefix(tok, "$")
		if name == "_" || upperIdent.MatchString(name) {
			continue
		}
		errors = append(errors, fmt.Sprintf(
			"invalid metavariable %q: metavariable names must start uppercase, e.g. $%s",
			tok, strings.ToUpper(name)))
	}
	return errors
}

// extractMetavariables returns the set of named metavariables in a pattern
// or template, normalized to bare names (no sigils). The $_ wildcard and
// anonymous $$$ are not captured and are excluded.
func extractMetavariables(pattern string) map[string]bool {
	names := make(map[string]bool)
	for _, tok := range metavarToken.FindAllString(pattern, -1) {
		name := strings.TrimLeft(tok, "$")
		if name == "" || name == "_" {
			continue
		}
		if upperIdent.MatchString(name) {
			names[name] = true
		}
	}
	return names
}
