// Package present shows check results: styled terminal lines, machine
// formats (JSON, SARIF, quickfix) and an interactive results browser.
package present

import (
	"errors"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dkoosis/svcheck/pkg/machine"
	"github.com/dkoosis/svcheck/pkg/report"
)

// Presenter displays a titled diagnostics list. An empty list clears what
// the presenter showed last, where that applies.
type Presenter interface {
	Present(title string, diags []report.Diagnostic) error
}

// Multi fans out to several presenters and joins their errors.
type Multi []Presenter

func (m Multi) Present(title string, diags []report.Diagnostic) error {
	var errs []error
	for _, p := range m {
		if err := p.Present(title, diags); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// severityLabel returns "Error" or "Warning". A Caser keeps state, so each
// call gets its own.
func severityLabel(s machine.Severity) string {
	return cases.Title(language.English).String(s.String())
}
