// Package output turns the engine's heterogeneous stdout — stream JSON,
// diff-like text, or plain text — into stable result shapes. Every parser
// here is a total function: malformed input degrades to an empty or
// best-effort result, never an error, because engine failures travel on
// stderr and are translated elsewhere.
package output

// Match is one pattern hit. Line is 1-based; Column stays 0-based as the
// engine reports it.
type Match struct {
	File          string    `json:"file"`
	Line          int       `json:"line"`
	Column        int       `json:"column"`
	EndLine       int       `json:"endLine,omitempty"`
	EndColumn     int       `json:"endColumn,omitempty"`
	Text          string    `json:"text"`
	ContextBefore []string  `json:"contextBefore,omitempty"`
	ContextAfter  []string  `json:"contextAfter,omitempty"`
	Captures      []Capture `json:"captures,omitempty"`
}

// Capture is one metavariable binding inside a match.
type Capture struct {
	Name      string `json:"name"`
	Text      string `json:"text"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startColumn"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endColumn"`
}

// Change is one file touched by a replace. UnifiedPreview is present only
// for dry runs.
type Change struct {
	File           string `json:"file"`
	MatchCount     int    `json:"matchCount"`
	UnifiedPreview string `json:"unifiedPreview,omitempty"`
	Applied        bool   `json:"applied"`
}

// Finding is one rule-scan result.
type Finding struct {
	RuleID   string `json:"ruleId"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Fix      string `json:"fix,omitempty"`
}
