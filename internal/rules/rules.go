// Package rules materializes structured rule documents for the engine's
// scan subcommand. A rule is plain YAML; requests either reference an
// existing rule file or carry the fields to build one here.
package rules

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/sgmcp/sgmcp/internal/request"
)

// Relation expresses a structural sub-pattern inside the rule body.
type Relation struct {
	Pattern string `yaml:"pattern"`
}

// Body is the rule's matching logic.
type Body struct {
	Pattern string    `yaml:"pattern"`
	Inside  *Relation `yaml:"inside,omitempty"`
	Has     *Relation `yaml:"has,omitempty"`
	Not     *Relation `yaml:"not,omitempty"`
}

// Constraint restricts what a metavariable may capture.
type Constraint struct {
	Regex string `yaml:"regex"`
}

// Document is one complete rule as the engine consumes it.
type Document struct {
	ID          string                `yaml:"id"`
	Language    string                `yaml:"language"`
	Severity    string                `yaml:"severity"`
	Message     string                `yaml:"message,omitempty"`
	Rule        Body                  `yaml:"rule"`
	Constraints map[string]Constraint `yaml:"constraints,omitempty"`
	Fix         string                `yaml:"fix,omitempty"`
}

// FromRequest builds a rule document from a sanitized rule-scan request.
// The caller has already validated the fields; this is pure assembly.
func FromRequest(s *request.Sanitized) *Document {
	doc := &Document{
		ID:       s.RuleID,
		Language: s.Language,
		Severity: s.Severity,
		Message:  s.Message,
		Rule:     Body{Pattern: s.Pattern},
		Fix:      s.Fix,
	}
	if doc.Message == "" {
		doc.Message = fmt.Sprintf("pattern %q matched", s.Pattern)
	}
	if s.InsidePattern != "" {
		doc.Rule.Inside = &Relation{Pattern: s.InsidePattern}
	}
	if s.HasPattern != "" {
		doc.Rule.Has = &Relation{Pattern: s.HasPattern}
	}
	if s.NotPattern != "" {
		doc.Rule.Not = &Relation{Pattern: s.NotPattern}
	}
	if len(s.Constraints) > 0 {
		doc.Constraints = make(map[string]Constraint, len(s.Constraints))
		for name, re := range s.Constraints {
			doc.Constraints[name] = Constraint{Regex: re}
		}
	}
	return doc
}

// Marshal serializes the document as engine-ready YAML.
func (d *Document) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("serializing rule %s: %w", d.ID, err)
	}
	return data, nil
}

// Materialize writes the document to disk and returns the file path.
// When keep is true the rule lands under <root>/.sgmcp/rules/<id>.yml for
// later reuse; otherwise it goes to a temp file the caller removes after
// the run (see the returned cleanup func, a no-op for kept rules).
func (d *Document) Materialize(root string, keep bool) (string, func(), error) {
	data, err := d.Marshal()
	if err != nil {
		return "", nil, err
	}

	if keep {
		dir := filepath.Join(root, ".sgmcp", "rules")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", nil, fmt.Errorf("creating rules directory: %w", err)
		}
		path := filepath.Join(dir, d.ID+".yml")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", nil, fmt.Errorf("writing rule file: %w", err)
		}
		return path, func() {}, nil
	}

	tmp, err := os.CreateTemp("", "sgmcp-rule-*.yml")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp rule file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("writing temp rule file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("closing temp rule file: %w", err)
	}
	path := tmp.Name()
	return path, func() { _ = os.Remove(path) }, nil
}
