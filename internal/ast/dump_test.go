package ast_test

import (
	"strings"
	"testing"

	"github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/token"
)

func TestDump_Block(t *testing.T) {
	pos := token.Position{Line: 1, Column: 1}
	block := ast.NewBlock(pos)
	block.Stmts = append(block.Stmts, &ast.Return{
		Base: ast.Base{P: pos},
		Expr: ast.NewIntConstant(pos, 42),
	})

	out := ast.Dump(block)
	if !strings.Contains(out, "Block") || !strings.Contains(out, "Return") || !strings.Contains(out, "IntConstant 42") {
		t.Fatalf("dump missing expected nodes: %q", out)
	}
}

func TestDump_BinaryExprShowsOperator(t *testing.T) {
	pos := token.Position{}
	expr := &ast.BinaryExpr{
		Base:  ast.Base{P: pos},
		Op:    ast.OpAdd,
		Left:  ast.NewIntConstant(pos, 1),
		Right: ast.NewIntConstant(pos, 2),
	}
	out := ast.Dump(expr)
	if !strings.Contains(out, "BinaryExpr op=+") {
		t.Fatalf("expected binary op rendered as +, got %q", out)
	}
}

func TestDumpAll_ListsEveryOverload(t *testing.T) {
	pos := token.Position{}
	fn := &ast.Function{
		Name: "add",
		Overloads: []*ast.SubFunction{
			{
				Args: []ast.Param{
					{Name: "a", Type: &ast.SimpleType{Name: "int"}},
					{Name: "b", Type: &ast.SimpleType{Name: "int"}},
				},
				GivenRet: []ast.TypeNode{&ast.SimpleType{Name: "int"}},
				Body:     ast.NewBlock(pos),
			},
		},
	}

	out := ast.DumpAll(fn, false)
	if !strings.Contains(out, "function add") || !strings.Contains(out, "arg a: int") || !strings.Contains(out, "returns: int") {
		t.Fatalf("DumpAll missing expected signature details: %q", out)
	}
}

func TestDumpAll_OnlyTypeCheckedFiltersOverloads(t *testing.T) {
	fn := &ast.Function{
		Name: "f",
		Overloads: []*ast.SubFunction{
			{TypeChecked: false},
			{TypeChecked: true},
		},
	}

	out := ast.DumpAll(fn, true)
	if strings.Contains(out, "overload 0:") {
		t.Fatalf("expected the non-type-checked overload 0 to be filtered out, got %q", out)
	}
	if !strings.Contains(out, "overload 1:") {
		t.Fatalf("expected the type-checked overload 1 to be listed, got %q", out)
	}
}
