package present

import (
	"encoding/json"
	"io"

	"github.com/dkoosis/svcheck/pkg/report"
)

// JSON writes each presented set as one indented JSON document.
type JSON struct {
	w io.Writer
}

// NewJSON creates a JSON presenter.
func NewJSON(w io.Writer) *JSON {
	return &JSON{w: w}
}

type jsonOutput struct {
	Version     string              `json:"version"`
	Title       string              `json:"title"`
	Errors      int                 `json:"errors"`
	Warnings    int                 `json:"warnings"`
	Diagnostics []report.Diagnostic `json:"diagnostics"`
}

func (j *JSON) Present(title string, diags []report.Diagnostic) error {
	errs, warns := report.Tally(diags)
	out := jsonOutput{
		Version:     "1",
		Title:       title,
		Errors:      errs,
		Warnings:    warns,
		Diagnostics: append(make([]report.Diagnostic, 0, len(diags)), diags...),
	}
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
