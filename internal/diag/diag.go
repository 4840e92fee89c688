// Package diag formats the diagnostics internal/lexer accumulates
// (ParseError/ParseWarning) for human consumption, used by
// cmd/glintc (SPEC_FULL.md §4.L).
package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/glint-lang/glint/internal/lexer"
)

const (
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorReset  = "\x1b[0m"
)

// Printer writes formatted diagnostics to an output stream,
// colorizing only when that stream is a terminal.
type Printer struct {
	w        io.Writer
	colorize bool
}

// NewPrinter returns a Printer writing to w. If w is os.Stdout (or any
// *os.File), colorization is enabled only when isatty reports it is
// attached to a terminal.
func NewPrinter(w io.Writer) *Printer {
	colorize := false
	if f, ok := w.(*os.File); ok {
		colorize = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Printer{w: w, colorize: colorize}
}

func (p *Printer) paint(color, s string) string {
	if !p.colorize {
		return s
	}
	return color + s + colorReset
}

// PrintAll writes every error then every warning from l, and returns
// the count of errors printed (the CLI driver uses this as its exit
// status signal).
func (p *Printer) PrintAll(l *lexer.Lexer) int {
	errs := l.Errors()
	warns := l.Warnings()

	for _, e := range errs {
		fmt.Fprintf(p.w, "%s %s\n", p.paint(colorRed, "error:"), fmt.Sprintf("%s: %s", e.Pos, e.Msg))
	}
	for _, w := range warns {
		fmt.Fprintf(p.w, "%s %s\n", p.paint(colorYellow, "warning:"), fmt.Sprintf("%s: %s", w.Pos, w.Msg))
	}

	if len(errs) > 0 || len(warns) > 0 {
		fmt.Fprintf(p.w, "%s, %s\n",
			humanize.Comma(int64(len(errs)))+" "+plural(len(errs), "error", "errors"),
			humanize.Comma(int64(len(warns)))+" "+plural(len(warns), "warning", "warnings"))
	}

	return len(errs)
}

func plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// Ordinal formats n as "1st", "2nd", "3rd", ... for messages like
// "3rd field already has a default".
func Ordinal(n int) string {
	return humanize.Ordinal(n)
}
