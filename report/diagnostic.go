// Package report turns custom element failures into positioned diagnostics and
// renders them for people (code frames) or tools (JSON).
package report

import (
	"cmp"
	"context"
	"errors"
	"slices"

	customelements "github.com/agentflare-ai/go-customelements"
	"github.com/agentflare-ai/go-customelements/reactions"
	"github.com/agentflare-ai/go-xmldom"
)

// Severity represents the severity level of a diagnostic
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Position is a location in the source document.
type Position struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Offset int64  `json:"offset"`
}

// Diagnostic describes a failure tied to an element of the document.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Position Position `json:"position"`
	Tag      string   `json:"tag"`
	Hints    []string `json:"hints,omitempty"`
}

// Result is an ordered set of diagnostics.
type Result struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// HasErrors reports whether any diagnostic has error severity.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Report returns r, so a Result can be printed on its own or embedded in a larger
// document given to JSONReporter.
func (r *Result) Report() *Result { return r }

// Add appends a diagnostic.
func (r *Result) Add(d Diagnostic) { r.Diagnostics = append(r.Diagnostics, d) }

// Collector returns a reactions.Options.OnError hook that records every reaction
// failure in r.
func (r *Result) Collector(file string) func(context.Context, xmldom.Element, error) {
	return func(_ context.Context, el xmldom.Element, err error) {
		r.Add(FromError(file, el, err))
	}
}

// FromError builds an error diagnostic for err raised while handling el.
func FromError(file string, el xmldom.Element, err error) Diagnostic {
	code, hints := classify(err)
	d := Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  err.Error(),
		Position: Position{File: file},
		Hints:    hints,
	}
	if el != nil {
		line, col, off := el.Position()
		d.Position.Line, d.Position.Column, d.Position.Offset = line, col, off
		d.Tag = string(el.TagName())
	}
	return d
}

func classify(err error) (string, []string) {
	var re *reactions.Error
	if errors.As(err, &re) {
		switch re.Kind {
		case reactions.ConstructorMismatch:
			return "E_CONSTRUCTOR_MISMATCH", []string{"A constructor must return the element it is upgrading"}
		case reactions.IllegalConstructor:
			return "E_ILLEGAL_CONSTRUCTOR", []string{"Constructors may only run while an element is being upgraded"}
		case reactions.InvalidState:
			return "E_INVALID_STATE", []string{"An element can only be constructed once per upgrade"}
		}
	}
	if kind := customelements.KindOf(err); kind != "" {
		return "E_" + string(kind), nil
	}
	return "E_REACTION", nil
}

// Sorted returns diagnostics ordered by file, line, column and code.
func Sorted(diags []Diagnostic) []Diagnostic {
	out := slices.Clone(diags)
	slices.SortStableFunc(out, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Position.File, b.Position.File),
			cmp.Compare(a.Position.Line, b.Position.Line),
			cmp.Compare(a.Position.Column, b.Position.Column),
			cmp.Compare(a.Code, b.Code),
		)
	})
	return out
}
