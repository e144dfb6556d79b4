package output

import (
	"encoding/json"
	"strings"
)

// findingRecord is one stream-JSON line from a rule-scan run.
type findingRecord struct {
	RuleID      string     `json:"ruleId"`
	Severity    string     `json:"severity"`
	Message     string     `json:"message"`
	File        string     `json:"file"`
	Text        string     `json:"text"`
	Range       matchRange `json:"range"`
	Replacement string     `json:"replacement"`
}

// Findings parses rule-scan stdout. Missing or unknown fields default
// rather than fail: rule id "unknown", severity "info", line clamped to 1.
func Findings(stdout string) []Finding {
	var findings []Finding
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec findingRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if rec.File == "" && rec.Message == "" && rec.Text == "" {
			continue
		}
		findings = append(findings, toFinding(rec))
	}
	return findings
}

func toFinding(rec findingRecord) Finding {
	return Finding{
		RuleID:   defaultString(rec.RuleID, "unknown"),
		Severity: normalizeSeverity(rec.Severity),
		Message:  rec.Message,
		File:     rec.File,
		Line:     oneBased(rec.Range.Start.Line),
		Column:   rec.Range.Start.Column,
		Fix:      rec.Replacement,
	}
}

func normalizeSeverity(s string) string {
	switch strings.ToLower(s) {
	case "error", "warning", "info", "hint":
		return strings.ToLower(s)
	default:
		return "info"
	}
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
