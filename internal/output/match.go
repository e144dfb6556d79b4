package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/sgmcp/sgmcp/internal/request"
)

// position mirrors the engine's zero-based line/column pairs.
type position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type matchRange struct {
	Start position `json:"start"`
	End   position `json:"end"`
}

type metaVariable struct {
	Text  string     `json:"text"`
	Range matchRange `json:"range"`
}

// matchRecord is one stream-JSON line from a search run.
type matchRecord struct {
	Text          string     `json:"text"`
	File          string     `json:"file"`
	Lines         string     `json:"lines"`
	Range         matchRange `json:"range"`
	MetaVariables struct {
		Single map[string]metaVariable   `json:"single"`
		Multi  map[string][]metaVariable `json:"multi"`
	} `json:"metaVariables"`
}

// Matches parses search stdout into the canonical match list. stdout is
// stream JSON (one record per line) or a single JSON array; anything else
// yields an empty list. root resolves relative file paths when context has
// to be synthesized from disk.
func Matches(stdout string, s *request.Sanitized, root string) []Match {
	records := parseMatchRecords(stdout)
	if len(records) == 0 {
		return nil
	}

	sources := newSourceCache(s, root)
	matches := make([]Match, 0, len(records))
	for _, rec := range records {
		matches = append(matches, toMatch(rec, s, sources))
	}
	return capMatches(matches, s.PerFileCap, s.MaxMatches)
}

func parseMatchRecords(stdout string) []matchRecord {
	var records []matchRecord
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec matchRecord
		if err := json.Unmarshal([]byte(line), &rec); err == nil && isMatchRecord(rec) {
			records = append(records, rec)
		}
	}
	if records != nil {
		return records
	}

	// Compact and pretty modes emit one array for the whole run.
	trimmed := strings.TrimSpace(stdout)
	if strings.HasPrefix(trimmed, "[") {
		_ = json.Unmarshal([]byte(trimmed), &records)
	}
	return records
}

// isMatchRecord separates real match records from other JSON lines the
// engine may emit. Presence of a file or a range identifies a match; the
// matched text itself may legitimately be empty.
func isMatchRecord(rec matchRecord) bool {
	return rec.File != "" || rec.Range != (matchRange{})
}

func toMatch(rec matchRecord, s *request.Sanitized, sources *sourceCache) Match {
	m := Match{
		File:      rec.File,
		Line:      oneBased(rec.Range.Start.Line),
		Column:    rec.Range.Start.Column,
		EndLine:   oneBased(rec.Range.End.Line),
		EndColumn: rec.Range.End.Column,
		Text:      rec.Text,
	}

	for name, mv := range rec.MetaVariables.Single {
		m.Captures = append(m.Captures, Capture{
			Name:      name,
			Text:      mv.Text,
			StartLine: oneBased(mv.Range.Start.Line),
			StartCol:  mv.Range.Start.Column,
			EndLine:   oneBased(mv.Range.End.Line),
			EndCol:    mv.Range.End.Column,
		})
	}

	if s.ContextLines > 0 {
		m.ContextBefore, m.ContextAfter = sources.context(rec.File,
			rec.Range.Start.Line, rec.Range.End.Line, s.ContextLines)
	}
	return m
}

// oneBased converts the engine's zero-based line numbering and absorbs
// missing or negative values.
func oneBased(line int) int {
	if line < 0 {
		return 1
	}
	return line + 1
}

// capMatches applies the per-file cap first, then the global ceiling,
// preserving engine order.
func capMatches(matches []Match, perFile, max int) []Match {
	if perFile > 0 {
		seen := make(map[string]int)
		kept := matches[:0]
		for _, m := range matches {
			if seen[m.File] >= perFile {
				continue
			}
			seen[m.File]++
			kept = append(kept, m)
		}
		matches = kept
	}
	if max > 0 && len(matches) > max {
		matches = matches[:max]
	}
	return matches
}

// sourceCache lazily loads file contents so context can be synthesized
// when the engine reports none (stdin mode never includes it).
type sourceCache struct {
	inline string
	root   string
	files  map[string][]string
}

func newSourceCache(s *request.Sanitized, root string) *sourceCache {
	return &sourceCache{inline: s.Code, root: root, files: make(map[string][]string)}
}

func (c *sourceCache) context(file string, startLine, endLine, want int) (before, after []string) {
	lines := c.lines(file)
	if lines == nil {
		return nil, nil
	}

	// The engine's line numbers and the source on disk can disagree (a
	// file shortened after the run, or inconsistent engine output). A
	// start line past the end of the source has no meaningful context;
	// every other bound is clamped before slicing.
	if startLine < 0 {
		startLine = 0
	}
	if startLine >= len(lines) {
		return nil, nil
	}
	if endLine < startLine {
		endLine = startLine
	}
	if endLine > len(lines)-1 {
		endLine = len(lines) - 1
	}

	from := startLine - want
	if from < 0 {
		from = 0
	}
	if from < startLine {
		before = lines[from:startLine]
	}

	to := endLine + 1 + want
	if to > len(lines) {
		to = len(lines)
	}
	if endLine+1 < to {
		after = lines[endLine+1 : to]
	}
	return before, after
}

func (c *sourceCache) lines(file string) []string {
	if c.inline != "" {
		return strings.Split(c.inline, "\n")
	}
	if cached, ok := c.files[file]; ok {
		return cached
	}

	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		c.files[file] = nil
		return nil
	}
	lines := strings.Split(string(data), "\n")
	c.files[file] = lines
	return lines
}
