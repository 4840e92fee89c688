package diag_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/glint-lang/glint/internal/diag"
	"github.com/glint-lang/glint/internal/lexer"
)

func TestPrintAll_ReportsErrorsAndWarnings(t *testing.T) {
	l := lexer.New("test.glint", "")
	l.Error(l.Next().Pos, "something broke")
	l.Warn(l.Next().Pos, "something smells")

	var buf bytes.Buffer
	p := diag.NewPrinter(&buf)
	n := p.PrintAll(l)

	if n != 1 {
		t.Fatalf("expected 1 error counted, got %d", n)
	}
	out := buf.String()
	if !strings.Contains(out, "something broke") || !strings.Contains(out, "something smells") {
		t.Fatalf("expected both messages in output, got %q", out)
	}
	if !strings.Contains(out, "1 error") || !strings.Contains(out, "1 warning") {
		t.Fatalf("expected singular counts in summary line, got %q", out)
	}
}

func TestPrintAll_NoDiagnosticsNoSummary(t *testing.T) {
	l := lexer.New("test.glint", "")
	var buf bytes.Buffer
	p := diag.NewPrinter(&buf)
	n := p.PrintAll(l)

	if n != 0 {
		t.Fatalf("expected 0 errors, got %d", n)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output for a clean run, got %q", buf.String())
	}
}

func TestOrdinal(t *testing.T) {
	if got := diag.Ordinal(3); got != "3rd" {
		t.Errorf("Ordinal(3) = %q, want %q", got, "3rd")
	}
	if got := diag.Ordinal(1); got != "1st" {
		t.Errorf("Ordinal(1) = %q, want %q", got, "1st")
	}
}
