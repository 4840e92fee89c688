package parser_test

import (
	"strings"
	"testing"

	"github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/lexer"
	"github.com/glint-lang/glint/internal/natives"
	"github.com/glint-lang/glint/internal/parser"
	"github.com/glint-lang/glint/internal/symbols"
)

// parse is the shared test harness: a fresh lexer/symbol-table/native
// registry per call, mirroring how cmd/glintc wires the three together.
func parse(t *testing.T, src string) (*ast.Program, *lexer.Lexer) {
	t.Helper()
	lex := lexer.New("test.glint", src)
	sym := symbols.New()
	nat := natives.NewMapRegistry()
	p := parser.New(lex, sym, nat)
	prog := p.Parse()
	return prog, lex
}

func requireNoErrors(t *testing.T, lex *lexer.Lexer) {
	t.Helper()
	if errs := lex.Errors(); len(errs) > 0 {
		for _, e := range errs {
			t.Logf("parser error: %s", e)
		}
		t.Fatalf("expected no parser errors, got %d", len(errs))
	}
}

func TestParse_SimpleProgram(t *testing.T) {
	src := "fun main():\n    var x = 1\n    print(x)\n"
	prog, lex := parse(t, src)
	requireNoErrors(t, lex)

	if prog.Root == nil || prog.Root.SF == nil || prog.Root.SF.Body == nil {
		t.Fatal("expected a non-nil top-level body")
	}
	if len(prog.Root.SF.Body.Stmts) == 0 {
		t.Fatal("expected at least one top-level statement")
	}
}

func TestParse_ForWithArgAndTrailingBlock(t *testing.T) {
	src := "fun main():\n    for(3) i:\n        print(i)\n"
	_, lex := parse(t, src)
	requireNoErrors(t, lex)
}

func TestParse_ParenlessCallWithTrailingLambdaArg(t *testing.T) {
	src := "fun fn(x, f):\n    return f()\n\nvar x = 1\nvar y = fn x: 42\n"
	prog, lex := parse(t, src)
	requireNoErrors(t, lex)

	var call *ast.GenericCall
	for _, s := range prog.Root.SF.Body.Stmts {
		if def, ok := s.(*ast.Define); ok {
			if gc, ok := def.RHS.(*ast.GenericCall); ok && gc.Name == "fn" {
				call = gc
			}
		}
	}
	if call == nil {
		t.Fatalf("expected to find a call to fn among top-level statements, got: %#v", prog.Root.SF.Body.Stmts)
	}
	if len(call.Args) != 2 {
		t.Fatalf("expected 2 args (callee + trailing lambda), got %d: %#v", len(call.Args), call.Args)
	}
	if _, ok := call.Args[0].(*ast.IdentRef); !ok {
		t.Errorf("expected first arg to be an IdentRef, got %T", call.Args[0])
	}
	fr, ok := call.Args[1].(*ast.FunRef)
	if !ok {
		t.Fatalf("expected second arg to be a trailing FunRef lambda, got %T", call.Args[1])
	}
	if fr.SF == nil || fr.SF.Body == nil || len(fr.SF.Body.Stmts) == 0 {
		t.Fatalf("expected trailing lambda to have a parsed body")
	}
	ret, ok := fr.SF.Body.Stmts[len(fr.SF.Body.Stmts)-1].(*ast.Return)
	if !ok {
		t.Fatalf("expected the trailing lambda's body to end in a Return, got %T", fr.SF.Body.Stmts[len(fr.SF.Body.Stmts)-1])
	}
	ic, ok := ret.Expr.(*ast.IntConstant)
	if !ok || ic.Value != 42 {
		t.Fatalf("expected the trailing lambda to implicitly return 42, got %#v", ret.Expr)
	}
	if ret.VoidMarker {
		t.Errorf("expected the trailing lambda's implicit return to keep its value (anonymous), got VoidMarker=true")
	}
}

func TestParse_MultipleReturnDefine(t *testing.T) {
	src := "fun pair(): return 1, 2\n\nfun main():\n    var a, b = pair()\n    print(a)\n"
	_, lex := parse(t, src)
	requireNoErrors(t, lex)
}

func TestParse_StructSpecialization(t *testing.T) {
	src := "struct Box<T>:\n    value: T\n\nstruct IntBox = Box<int>\n"
	prog, lex := parse(t, src)
	requireNoErrors(t, lex)

	udt := findUDT(t, prog, "IntBox")
	if udt.IsGeneric {
		t.Fatal("expected IntBox to be fully specialized (not generic)")
	}
	if len(udt.Fields) != 1 {
		t.Fatalf("expected IntBox to inherit Box's one field, got %d", len(udt.Fields))
	}
	st, ok := udt.Fields[0].Type.(*ast.SimpleType)
	if !ok || st.Name != "int" {
		t.Fatalf("expected IntBox.value to be specialized to int, got %+v", udt.Fields[0].Type)
	}
	if udt.ResolvedSuperclass == nil || udt.ResolvedSuperclass.Name != "Box" {
		t.Fatalf("expected IntBox's resolved superclass to be Box, got %+v", udt.ResolvedSuperclass)
	}
}

func TestParse_StructSpecializationRejectsUnknownParent(t *testing.T) {
	src := "struct Derived = NoSuchType<int>\n"
	_, lex := parse(t, src)
	if len(lex.Errors()) == 0 {
		t.Fatal("expected an error specializing an unknown parent type")
	}
}

func TestParse_MethodOverloadSameReceiverRejected(t *testing.T) {
	src := "struct Vec:\n    x: int\n\n" +
		"fun length(self :: Vec):\n    return self.x\n\n" +
		"fun length(self :: Vec, extra: int):\n    return self.x\n"
	_, lex := parse(t, src)

	found := false
	for _, e := range lex.Errors() {
		if strings.Contains(e.Msg, "already declared") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a 'method already declared' error, got errors: %v", lex.Errors())
	}
}

func TestParse_StructBodyMethodsParse(t *testing.T) {
	src := "struct Vec:\n    x: int\n    y: int\n" +
		"    fun length():\n        return x\n" +
		"    fun scaled(f: int):\n        return x * f\n"
	prog, lex := parse(t, src)
	requireNoErrors(t, lex)

	udt := findUDT(t, prog, "Vec")
	if len(udt.Fields) != 2 {
		t.Fatalf("expected Vec to keep its 2 fields, got %d", len(udt.Fields))
	}

	var methods []*ast.FunRef
	for _, s := range prog.Root.SF.Body.Stmts {
		if fr, ok := s.(*ast.FunRef); ok && fr.SF != nil && fr.SF.Method && fr.SF.MethodOf == udt {
			methods = append(methods, fr)
		}
	}
	if len(methods) != 2 {
		t.Fatalf("expected 2 methods registered against Vec, got %d", len(methods))
	}
	for _, m := range methods {
		name := ""
		if m.SF.Parent != nil {
			name = m.SF.Parent.Name
		}
		if len(m.SF.Args) == 0 || m.SF.Args[0].Name != "this" {
			t.Errorf("expected method %s to have an implicit this arg, got args %+v", name, m.SF.Args)
		}
	}
}

func TestParse_StructBodyFieldAfterMethodRejected(t *testing.T) {
	src := "struct Vec:\n    x: int\n" +
		"    fun length():\n        return x\n" +
		"    y: int\n"
	_, lex := parse(t, src)
	found := false
	for _, e := range lex.Errors() {
		if strings.Contains(e.Msg, "fields must be declared before methods") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a fields-before-methods error, got: %v", lex.Errors())
	}
}

func TestParse_StructBodyMethodOverloadSameReceiverRejected(t *testing.T) {
	src := "struct Vec:\n    x: int\n" +
		"    fun length():\n        return x\n" +
		"    fun length(extra: int):\n        return x\n"
	_, lex := parse(t, src)
	found := false
	for _, e := range lex.Errors() {
		if strings.Contains(e.Msg, "already declared") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a 'method already declared' error, got errors: %v", lex.Errors())
	}
}

func TestParse_FieldRequiresTypeOrDefault(t *testing.T) {
	src := "struct Bad:\n    x\n"
	_, lex := parse(t, src)
	found := false
	for _, e := range lex.Errors() {
		if strings.Contains(e.Msg, "needs a type or a default value") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a field-needs-type-or-default error, got: %v", lex.Errors())
	}
}

func TestParse_ForwardCallAcrossTopLevelDeclarations(t *testing.T) {
	src := "fun main():\n    helper()\n\nfun helper():\n    return 1\n"
	_, lex := parse(t, src)
	requireNoErrors(t, lex)
}

func TestParse_ForwardCallNeverDefinedErrors(t *testing.T) {
	src := "fun main():\n    neverDefined()\n"
	_, lex := parse(t, src)
	found := false
	for _, e := range lex.Errors() {
		if strings.Contains(e.Msg, "unknown function") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a call-to-unknown-function error, got: %v", lex.Errors())
	}
}

func TestParse_EnumFlagsValuesDouble(t *testing.T) {
	src := "enum_flags Flags:\n    A\n    B\n    C\n"
	prog, lex := parse(t, src)
	requireNoErrors(t, lex)

	var flags *ast.Enum
	for _, s := range prog.Root.SF.Body.Stmts {
		if er, ok := s.(*ast.EnumRef); ok && er.Enum.Name == "Flags" {
			flags = er.Enum
		}
	}
	if flags == nil {
		t.Fatal("expected to find the Flags enum among top-level statements")
	}
	want := []int{1, 2, 4}
	if len(flags.Vals) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(flags.Vals))
	}
	for i, v := range flags.Vals {
		if v.Value != want[i] {
			t.Errorf("Flags.%s = %d, want %d", v.Name, v.Value, want[i])
		}
	}
}

func TestParse_CallWrongArityRejected(t *testing.T) {
	src := "fun addOne(x):\n    return x\n\nfun main():\n    addOne(1, 2)\n"
	_, lex := parse(t, src)
	found := false
	for _, e := range lex.Errors() {
		if strings.Contains(e.Msg, "no version of function addOne takes 2 arguments") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an arity-mismatch error, got: %v", lex.Errors())
	}
}

func TestParse_ForwardCallWrongArityRejected(t *testing.T) {
	src := "fun main():\n    addOne(1, 2)\n\nfun addOne(x):\n    return x\n"
	_, lex := parse(t, src)
	found := false
	for _, e := range lex.Errors() {
		if strings.Contains(e.Msg, "no version of function addOne takes 2 arguments") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an arity-mismatch error for a forward call, got: %v", lex.Errors())
	}
}

func TestParse_VarDeclWithTypeAnnotation(t *testing.T) {
	src := "var x: int = 5\n"
	prog, lex := parse(t, src)
	requireNoErrors(t, lex)

	var def *ast.Define
	for _, s := range prog.Root.SF.Body.Stmts {
		if d, ok := s.(*ast.Define); ok {
			def = d
		}
	}
	if def == nil {
		t.Fatalf("expected to find a Define among top-level statements, got: %#v", prog.Root.SF.Body.Stmts)
	}
	if len(def.Types) != 1 || def.Types[0] == nil {
		t.Fatalf("expected a declared type for x, got %#v", def.Types)
	}
	st, ok := def.Types[0].(*ast.SimpleType)
	if !ok || st.Name != "int" {
		t.Fatalf("expected x's declared type to be int, got %#v", def.Types[0])
	}
	if len(def.WithStruct) != 1 || def.WithStruct[0] {
		t.Errorf("expected x's annotation to use ':' not '::', got %#v", def.WithStruct)
	}
}

func TestParse_VarDeclWithTypeInAnnotation(t *testing.T) {
	src := "struct Vec:\n    x: int\n\nvar v :: Vec = 0\n"
	prog, lex := parse(t, src)
	requireNoErrors(t, lex)

	var def *ast.Define
	for _, s := range prog.Root.SF.Body.Stmts {
		if d, ok := s.(*ast.Define); ok {
			def = d
		}
	}
	if def == nil {
		t.Fatalf("expected to find a Define among top-level statements")
	}
	if len(def.WithStruct) != 1 || !def.WithStruct[0] {
		t.Fatalf("expected v's annotation to use '::', got %#v", def.WithStruct)
	}
	st, ok := def.Types[0].(*ast.SimpleType)
	if !ok || st.Name != "Vec" {
		t.Fatalf("expected v's declared type to be Vec, got %#v", def.Types[0])
	}
}

func TestParse_FunctionTypeDeclarationRequiresReturnType(t *testing.T) {
	src := "fun callback(x: int)\n"
	_, lex := parse(t, src)
	found := false
	for _, e := range lex.Errors() {
		if strings.Contains(e.Msg, "requires a return type") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a return-type-required error, got: %v", lex.Errors())
	}
}

func TestParse_FunctionTypeDeclarationForbidsGenerics(t *testing.T) {
	src := "fun callback<T>(x: T) -> int\n"
	_, lex := parse(t, src)
	found := false
	for _, e := range lex.Errors() {
		if strings.Contains(e.Msg, "cannot have generics") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a generics-forbidden error, got: %v", lex.Errors())
	}
}

func TestParse_FunctionTypeDeclarationMarksTypeCheckedAndBorrow(t *testing.T) {
	src := "fun callback(x: int) -> int\n"
	prog, lex := parse(t, src)
	requireNoErrors(t, lex)

	var fr *ast.FunRef
	for _, s := range prog.Root.SF.Body.Stmts {
		if f, ok := s.(*ast.FunRef); ok && f.SF != nil && f.SF.Parent != nil && f.SF.Parent.Name == "callback" {
			fr = f
		}
	}
	if fr == nil {
		t.Fatalf("expected to find callback's FunRef among top-level statements")
	}
	if !fr.SF.TypeChecked {
		t.Errorf("expected a function-type-declaration's SF to be marked TypeChecked")
	}
	if len(fr.SF.Args) != 1 || !fr.SF.Args[0].Borrow {
		t.Errorf("expected a function-type-declaration's args to be marked Borrow, got %+v", fr.SF.Args)
	}
}

func TestParse_StructSpecializationDuplicateDefaultUsesOrdinal(t *testing.T) {
	src := "struct Box<T>:\n    value: T = 1\n\nstruct IntBox = Box<int=5>\n"
	_, lex := parse(t, src)
	found := false
	for _, e := range lex.Errors() {
		if strings.Contains(e.Msg, "1st field already has a default") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a '1st field already has a default' error, got: %v", lex.Errors())
	}
}

func TestParse_BareDefinitionCannotEndNonFileBlock(t *testing.T) {
	src := "fun main():\n    print(1)\n    var x = 1\n"
	_, lex := parse(t, src)
	found := false
	for _, e := range lex.Errors() {
		if strings.Contains(e.Msg, "bare definition") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a trailing-bare-definition error inside a function body, got: %v", lex.Errors())
	}
}

func TestParse_ReturnMustBeLastStatement(t *testing.T) {
	src := "fun main():\n    return 1\n    print(2)\n"
	_, lex := parse(t, src)
	found := false
	for _, e := range lex.Errors() {
		if strings.Contains(e.Msg, "only allowed as the last statement") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a return-not-last error, got: %v", lex.Errors())
	}
}

func findUDT(t *testing.T, prog *ast.Program, name string) *ast.UDT {
	t.Helper()
	for _, s := range prog.Root.SF.Body.Stmts {
		if ref, ok := s.(*ast.UDTRef); ok && ref.UDT.Name == name {
			return ref.UDT
		}
	}
	t.Fatalf("no UDT named %s found among top-level statements", name)
	return nil
}
