package present

import (
	"io"

	"github.com/dkoosis/svcheck/pkg/machine"
	"github.com/dkoosis/svcheck/pkg/report"
	"github.com/dkoosis/svcheck/pkg/sarif"
)

const svelteCheckURI = "https://github.com/sveltejs/language-tools/tree/master/packages/svelte-check"

// SARIF writes each presented set as a SARIF 2.1.0 document.
type SARIF struct {
	w       io.Writer
	tool    string
	version string
}

// NewSARIF creates a SARIF presenter reporting results under tool.
func NewSARIF(w io.Writer, tool, version string) *SARIF {
	return &SARIF{w: w, tool: tool, version: version}
}

// RuleID names the SARIF rule for a severity, e.g. "svelte-check/error".
func RuleID(tool string, s machine.Severity) string {
	return tool + "/" + s.String()
}

func (s *SARIF) Present(_ string, diags []report.Diagnostic) error {
	b := sarif.NewBuilder(s.tool, s.version).InformationURI(svelteCheckURI)
	for _, d := range diags {
		b.AddResult(RuleID(s.tool, d.Severity), d.Severity.String(), d.Message, d.File, d.Line, d.Column)
	}
	_, err := b.WriteTo(s.w)
	return err
}
