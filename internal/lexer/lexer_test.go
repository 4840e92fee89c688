package lexer_test

import (
	"testing"

	"github.com/glint-lang/glint/internal/lexer"
	"github.com/glint-lang/glint/internal/token"
)

func TestNext_BasicProgram(t *testing.T) {
	input := "fun main():\n    var a = 10\n    print(a)\n"

	tests := []struct {
		kind token.Kind
		lit  string
	}{
		{token.Fun, "fun"},
		{token.Ident, "main"},
		{token.LParen, "("},
		{token.RParen, ")"},
		{token.Colon, ":"},
		{token.Linefeed, ""},
		{token.Indent, ""},
		{token.Var, "var"},
		{token.Ident, "a"},
		{token.Assign, "="},
		{token.Int, "10"},
		{token.Linefeed, ""},
		{token.Ident, "print"},
		{token.LParen, "("},
		{token.Ident, "a"},
		{token.RParen, ")"},
		{token.Linefeed, ""},
		{token.Dedent, ""},
		{token.EOF, ""},
	}

	l := lexer.New("test.glint", input)
	for i, tt := range tests {
		tok := l.Next()
		if tok.Kind != tt.kind {
			t.Fatalf("tests[%d] - kind wrong. expected=%s, got=%s (lexeme=%q, pos=%s)",
				i, tt.kind, tok.Kind, tok.Lexeme, tok.Pos)
		}
		if tt.lit != "" && tok.Lexeme != tt.lit {
			t.Fatalf("tests[%d] - lexeme wrong. expected=%q, got=%q", i, tt.lit, tok.Lexeme)
		}
	}
	if len(l.Errors()) != 0 {
		t.Fatalf("unexpected lexer errors: %v", l.Errors())
	}
}

func TestNext_BlankAndCommentLinesIgnored(t *testing.T) {
	input := "fun f():\n\n    // a comment\n    return 1\n"
	l := lexer.New("test.glint", input)

	var kinds []token.Kind
	for {
		tok := l.Next()
		kinds = append(kinds, tok.Kind)
		if tok.Kind == token.EOF {
			break
		}
	}

	wantIndents := 0
	for _, k := range kinds {
		if k == token.Indent {
			wantIndents++
		}
	}
	if wantIndents != 1 {
		t.Fatalf("expected exactly 1 Indent token (blank/comment lines must not emit one), got %d in %v", wantIndents, kinds)
	}
}

func TestNext_MismatchedDedentErrors(t *testing.T) {
	input := "fun f():\n    if true:\n        return 1\n   return 2\n"
	l := lexer.New("test.glint", input)
	for {
		tok := l.Next()
		if tok.Kind == token.EOF {
			break
		}
	}
	if len(l.Errors()) == 0 {
		t.Fatal("expected a lexer error for an unindent that matches no outer level")
	}
	if !l.Poisoned() {
		t.Fatal("expected lexer to be marked poisoned after an error")
	}
}

func TestNext_ContinuationInsideParens(t *testing.T) {
	input := "fun f():\n    print(1,\n          2)\n"
	l := lexer.New("test.glint", input)

	var kinds []token.Kind
	for {
		tok := l.Next()
		kinds = append(kinds, tok.Kind)
		if tok.Kind == token.EOF {
			break
		}
	}

	linefeeds := 0
	for _, k := range kinds {
		if k == token.Linefeed {
			linefeeds++
		}
	}
	// The linefeeds after the `:` block-opener and after the closing
	// `)`; the one inside the open paren must be swallowed as a
	// continuation.
	if linefeeds != 2 {
		t.Fatalf("expected 2 Linefeeds (continuation inside parens swallows the inner one), got %d in %v", linefeeds, kinds)
	}
}

func TestNext_StringEscapes(t *testing.T) {
	l := lexer.New("test.glint", `"a\nb\tc\"d"`)
	tok := l.Next()
	if tok.Kind != token.Str {
		t.Fatalf("expected Str token, got %s", tok.Kind)
	}
	want := "a\nb\tc\"d"
	if tok.Lexeme != want {
		t.Fatalf("escape decoding wrong: got %q, want %q", tok.Lexeme, want)
	}
}

func TestNext_HexAndFloatLiterals(t *testing.T) {
	tests := []struct {
		input string
		kind  token.Kind
		lex   string
	}{
		{"0x1F", token.Int, "0x1F"},
		{"3.14", token.Float, "3.14"},
		{"1e10", token.Float, "1e10"},
		{"42", token.Int, "42"},
	}
	for _, tt := range tests {
		l := lexer.New("test.glint", tt.input)
		tok := l.Next()
		if tok.Kind != tt.kind || tok.Lexeme != tt.lex {
			t.Errorf("input %q: got kind=%s lex=%q, want kind=%s lex=%q", tt.input, tok.Kind, tok.Lexeme, tt.kind, tt.lex)
		}
	}
}

func TestNext_OverrideContSwallowsLinefeedAfterGt(t *testing.T) {
	input := "List<int>\n"
	l := lexer.New("test.glint", input)

	var kinds []token.Kind
	for i := 0; i < 4; i++ {
		tok := l.Next()
		kinds = append(kinds, tok.Kind)
	}
	if kinds[3] != token.Gt {
		t.Fatalf("setup wrong, expected Gt fourth, got %v", kinds)
	}
	// Without OverrideCont(false), the following linefeed is a
	// continuation point and gets swallowed.
	next := l.Next()
	if next.Kind == token.Linefeed {
		t.Fatalf("expected linefeed after `>` to be swallowed by default, got explicit Linefeed")
	}
}

type fakeResolver struct {
	name, content string
}

func (f fakeResolver) Resolve(fromFile, path string) (string, string, bool, error) {
	return f.name, f.content, false, nil
}

func TestInclude_PushAndPop(t *testing.T) {
	l := lexer.NewWithResolver("main.glint", "fun f():\n    return 1\n", fakeResolver{"inc.glint", "var x = 1\n"})
	l.Include("inc")
	if l.IncludeDepth() != 1 {
		t.Fatalf("expected include depth 1, got %d", l.IncludeDepth())
	}

	var sawEndOfInclude bool
	for i := 0; i < 20; i++ {
		tok := l.Next()
		if tok.Kind == token.EndOfInclude {
			sawEndOfInclude = true
			l.PopIncludeContinue()
			break
		}
	}
	if !sawEndOfInclude {
		t.Fatal("expected an EndOfInclude token before the included buffer ran out")
	}
	if l.IncludeDepth() != 0 {
		t.Fatalf("expected include depth 0 after PopIncludeContinue, got %d", l.IncludeDepth())
	}
}
