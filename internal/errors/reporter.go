package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Reporter renders CompilerErrors against their source text, grounded on the
// teacher's ErrorReporter (internal/errors/reporter.go): a caret-style
// pointer at the offending column, with the source line shown for context.
type Reporter struct {
	Filename string
	lines    []string
}

// NewReporter builds a Reporter over one file's source text.
func NewReporter(filename, source string) *Reporter {
	return &Reporter{Filename: filename, lines: strings.Split(source, "\n")}
}

// Minimal renders the required CLI contract form: "coord: error: reason".
func (r *Reporter) Minimal(err *CompilerError) string {
	return err.Error()
}

// Pretty renders a colorized, multi-line diagnostic with a caret under the
// offending column, for interactive terminal use.
func (r *Reporter) Pretty(err *CompilerError) string {
	var b strings.Builder
	bold := color.New(color.Bold).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(&b, "%s: %s\n", red("error"), err.Message)
	fmt.Fprintf(&b, "  %s %s\n", dim("-->"), err.Position)

	line := err.Position.Line
	if line > 0 && line <= len(r.lines) {
		fmt.Fprintf(&b, "%s %s %s\n", bold(fmt.Sprintf("%4d", line)), dim("|"), r.lines[line-1])
		col := err.Position.Column
		if col < 1 {
			col = 1
		}
		marker := strings.Repeat(" ", col-1) + red("^")
		fmt.Fprintf(&b, "     %s %s\n", dim("|"), marker)
	}
	for _, note := range err.Notes {
		fmt.Fprintf(&b, "     %s %s %s\n", dim("|"), color.New(color.FgBlue).Sprint("note:"), note)
	}
	return b.String()
}
