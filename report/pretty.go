package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// PrettyReporter renders diagnostics with a code frame around each element.
type PrettyReporter struct {
	w     io.Writer
	color bool

	contextBefore int
	contextAfter  int
}

// PrettyConfig configures PrettyReporter construction.
type PrettyConfig struct {
	Color         bool
	ContextBefore int
	ContextAfter  int
}

func NewPrettyReporter(w io.Writer, maybeCfg ...PrettyConfig) *PrettyReporter {
	cfg := PrettyConfig{ContextBefore: 1, ContextAfter: 1}
	for _, c := range maybeCfg {
		cfg = c
	}
	return &PrettyReporter{
		w:             w,
		color:         cfg.Color,
		contextBefore: cfg.ContextBefore,
		contextAfter:  cfg.ContextAfter,
	}
}

// Print writes every diagnostic in position order followed by a summary line.
func (r *PrettyReporter) Print(sourceName, source string, diags []Diagnostic) error {
	if len(diags) == 0 {
		_, err := fmt.Fprintf(r.w, "%s: ok (no issues)\n", nonEmpty(sourceName, "<input>"))
		return err
	}

	src := newSourceIndex(source)
	errs, warns := 0, 0
	for _, d := range Sorted(diags) {
		switch d.Severity {
		case SeverityError:
			errs++
		case SeverityWarning:
			warns++
		}
		loc := location(nonEmpty(d.Position.File, sourceName), d.Position.Line, d.Position.Column)
		head := fmt.Sprintf("%s: %s[%s] %s", loc, strings.ToUpper(string(d.Severity)), d.Code, d.Message)
		fmt.Fprintln(r.w, r.style(head, d.Severity))
		if d.Position.Line > 0 {
			r.frame(src, d.Position.Line, d.Position.Column)
		}
		for _, h := range d.Hints {
			fmt.Fprintln(r.w, r.paint("  hint: "+h, "36"))
		}
		fmt.Fprintln(r.w)
	}
	_, err := fmt.Fprintf(r.w, "summary: %d error(s), %d warning(s), %d total\n", errs, warns, len(diags))
	return err
}

func (r *PrettyReporter) frame(src *sourceIndex, line, col int) {
	start := max(1, line-r.contextBefore)
	end := line + r.contextAfter
	for ln := start; ln <= end; ln++ {
		text, ok := src.line(ln)
		if !ok {
			break
		}
		prefix := fmt.Sprintf("  %6d | ", ln)
		fmt.Fprintf(r.w, "%s%s\n", prefix, strings.TrimRight(text, " \t"))
		if ln != line {
			continue
		}
		c := col
		if c <= 0 {
			c = firstNonSpace(text) + 1
		}
		indent := visualIndent(text, c, 8)
		fmt.Fprintf(r.w, "%s%s%s\n", strings.Repeat(" ", len(prefix)), strings.Repeat(" ", indent), r.paint("^", "31"))
	}
}

func (r *PrettyReporter) style(s string, sev Severity) string {
	switch sev {
	case SeverityError:
		return r.paint(s, "31")
	case SeverityWarning:
		return r.paint(s, "33")
	}
	return s
}

func (r *PrettyReporter) paint(s, code string) string {
	if !r.color {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

// Reportable is a document carrying a Result, such as a Result itself or a struct
// embedding one.
type Reportable interface {
	Report() *Result
}

// JSONReporter emits a document as indented JSON with its diagnostics sorted.
type JSONReporter struct{ w io.Writer }

func NewJSONReporter(w io.Writer) *JSONReporter { return &JSONReporter{w: w} }

// Print sorts the document's diagnostics in place and encodes it. A nil diagnostic
// list is written as [].
func (r *JSONReporter) Print(doc Reportable) error {
	if res := doc.Report(); res != nil {
		res.Diagnostics = Sorted(res.Diagnostics)
		if res.Diagnostics == nil {
			res.Diagnostics = []Diagnostic{}
		}
	}
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func location(file string, line, col int) string {
	switch {
	case line <= 0:
		return file
	case col <= 0:
		return fmt.Sprintf("%s:%d", file, line)
	}
	return fmt.Sprintf("%s:%d:%d", file, line, col)
}

func firstNonSpace(s string) int {
	for i, r := range s {
		if r != ' ' && r != '\t' {
			return i
		}
	}
	return 0
}

// visualIndent returns the columns needed to reach 1-based rune column col, with
// tabs expanded to tabWidth.
func visualIndent(line string, col, tabWidth int) int {
	visible, pos := 0, 1
	for _, r := range line {
		if pos >= col {
			break
		}
		if r == '\t' {
			visible += tabWidth - visible%tabWidth
		} else {
			visible++
		}
		pos++
	}
	return visible
}

// sourceIndex gives 1-based access to the lines of a document.
type sourceIndex struct {
	lines []string
}

func newSourceIndex(src string) *sourceIndex {
	norm := strings.ReplaceAll(src, "\r\n", "\n")
	norm = strings.ReplaceAll(norm, "\r", "\n")
	return &sourceIndex{lines: append([]string{""}, strings.Split(norm, "\n")...)}
}

func (s *sourceIndex) line(n int) (string, bool) {
	if n <= 0 || n >= len(s.lines) {
		return "", false
	}
	return s.lines[n], true
}
