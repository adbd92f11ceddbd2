package sarif

import (
	"encoding/json"
	"io"
	"path/filepath"
)

// Builder constructs a single-run SARIF document.
type Builder struct {
	doc   *Document
	rules map[string]int
}

// NewBuilder creates a SARIF builder for the given tool.
func NewBuilder(toolName, toolVersion string) *Builder {
	return &Builder{
		doc: &Document{
			Version: Version,
			Schema:  Schema,
			Runs: []Run{{
				Tool:    Tool{Driver: Driver{Name: toolName, Version: toolVersion}},
				Results: []Result{},
			}},
		},
		rules: make(map[string]int),
	}
}

func (b *Builder) run() *Run { return &b.doc.Runs[0] }

// InformationURI sets the tool's home page.
func (b *Builder) InformationURI(uri string) *Builder {
	b.run().Tool.Driver.InformationURI = uri
	return b
}

// AddRule registers a rule. Registering the same id twice is a no-op.
func (b *Builder) AddRule(id, description string) *Builder {
	b.ruleIndex(id, description)
	return b
}

func (b *Builder) ruleIndex(id, description string) int {
	if idx, ok := b.rules[id]; ok {
		return idx
	}
	rule := Rule{ID: id}
	if description != "" {
		rule.ShortDescription = &Message{Text: description}
	}
	driver := &b.run().Tool.Driver
	driver.Rules = append(driver.Rules, rule)
	idx := len(driver.Rules) - 1
	b.rules[id] = idx
	return idx
}

// AddResult adds a diagnostic. Unknown rule ids are registered on the fly.
// Paths are emitted with forward slashes.
func (b *Builder) AddResult(ruleID, level, message, file string, line, col int) *Builder {
	r := Result{
		RuleID:    ruleID,
		RuleIndex: b.ruleIndex(ruleID, ""),
		Level:     level,
		Message:   Message{Text: message},
	}
	if file != "" {
		r.Locations = []Location{{
			PhysicalLocation: PhysicalLocation{
				ArtifactLocation: ArtifactLocation{URI: filepath.ToSlash(file)},
				Region:           Region{StartLine: line, StartColumn: col},
			},
		}}
	}
	run := b.run()
	run.Results = append(run.Results, r)
	return b
}

// Document returns the constructed SARIF document.
func (b *Builder) Document() *Document {
	return b.doc
}

// WriteTo writes the SARIF document as indented JSON to w.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	data, err := json.MarshalIndent(b.doc, "", "  ")
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	n, err := w.Write(data)
	return int64(n), err
}
