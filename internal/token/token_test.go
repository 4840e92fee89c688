package token_test

import (
	"testing"

	"github.com/glint-lang/glint/internal/token"
)

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		lit  string
		kind token.Kind
	}{
		{"fun", token.Fun},
		{"struct", token.Struct},
		{"class", token.Class},
		{"enum_flags", token.EnumFlags},
		{"coroutine", token.Coroutine},
		{"pakfile", token.Pakfile},
		{"int", token.IntType},
		{"hello", token.Ident},
		{"Foo123", token.Ident},
	}
	for _, tt := range tests {
		if got := token.LookupIdent(tt.lit); got != tt.kind {
			t.Errorf("LookupIdent(%q) = %s, want %s", tt.lit, got, tt.kind)
		}
	}
}

func TestKindString(t *testing.T) {
	if got := token.Fun.String(); got != "fun" {
		t.Errorf("Fun.String() = %q, want %q", got, "fun")
	}
	unknown := token.Kind(9999)
	if got := unknown.String(); got != "Kind(9999)" {
		t.Errorf("unknown Kind.String() = %q, want %q", got, "Kind(9999)")
	}
}

func TestPositionString(t *testing.T) {
	p := token.Position{Line: 3, Column: 7}
	if got := p.String(); got != "3:7" {
		t.Errorf("Position.String() = %q, want %q", got, "3:7")
	}
}
