// Package symbols implements the symbol-table facade the parser
// consults for scope stacks, identifier/function/enum/UDT lookup and
// registration, the with-struct stack, and the bound-typevars stack
// (spec component C).
package symbols

import (
	"fmt"
	"sort"

	"github.com/glint-lang/glint/internal/ast"
)

// Sid is an opaque handle identifying one bound identifier. The ast
// package stores it as `any` on IdentRef/ForLoopElem/etc. to avoid an
// import cycle; callers that need to compare identity should compare
// Sid values directly.
type Sid int

// Symbol is one entry in a scope: a declared name plus the flags
// §4.B.4 and §4.H.4 attach to it during and after parsing.
type Symbol struct {
	Name             string
	Sid              Sid
	Const            bool
	LogVar           bool
	Private          bool
	SingleAssignment bool
	StaticConstant   bool
}

// WithStructElem is one entry on the with-struct stack: a `::`-typed
// argument whose fields are in scope for the remainder of its body.
type WithStructElem struct {
	Sid  Sid
	UDT  *ast.UDT
}

// ForwardFunctionCall is a queued, not-yet-resolved named call site,
// per §3.
type ForwardFunctionCall struct {
	MaxScopeLevel  int
	CallNamespace  string
	Node           *ast.GenericCall
	HasFirstArg    bool
	WithStructElem *WithStructElem
}

// BlockScope tracks the current block for implicit `_`-argument
// injection and the current for-loop's declared argument count, per
// §3 and §4.G.
type BlockScope struct {
	Block    *ast.Block
	ForNargs int
}

// Table is the symbol-table facade. It owns no AST; it only indexes
// declarations the parser has already built so that later lookups
// (and the forward-call queue) can resolve them.
type Table struct {
	scopes []map[string]*Symbol

	funcs      map[string]*ast.Function
	funcScope  map[string]int
	// defined keeps every function ever passed to DefineFunction, even
	// after UnregisterScopeLocal drops it from funcs.
	defined []*ast.Function
	enums map[string]*ast.Enum
	udts  map[string]*ast.UDT

	withStack     []WithStructElem
	boundTypevars [][]ast.GenericParam

	forwardCalls []ForwardFunctionCall
	blockStack   []BlockScope

	namespace string
	nextSid   Sid
}

// New returns an empty table with one (global) scope pushed.
func New() *Table {
	return &Table{
		scopes:    []map[string]*Symbol{make(map[string]*Symbol)},
		funcs:     make(map[string]*ast.Function),
		funcScope: make(map[string]int),
		enums:  make(map[string]*ast.Enum),
		udts:   make(map[string]*ast.UDT),
	}
}

// ---------------------------------------------------------------------
// Scope stack
// ---------------------------------------------------------------------

// PushScope opens a new nested identifier scope (function or block).
func (t *Table) PushScope() {
	t.scopes = append(t.scopes, make(map[string]*Symbol))
}

// PopScope closes the innermost identifier scope.
func (t *Table) PopScope() {
	if len(t.scopes) > 1 {
		t.scopes = t.scopes[:len(t.scopes)-1]
	}
}

// ScopeDepth reports how many scopes are currently pushed, used as
// the `current_scope_count` the forward-call queue compares against.
func (t *Table) ScopeDepth() int { return len(t.scopes) }

// qualify namespaces a name for registration/lookup unless private.
func (t *Table) qualify(name string, private bool) string {
	if private || t.namespace == "" {
		return name
	}
	return t.namespace + "." + name
}

// Namespace returns the currently active namespace ("" at file scope
// before any `namespace` directive).
func (t *Table) Namespace() string { return t.namespace }

// SetNamespace changes the active namespace, returning the previous
// one so a caller can restore it (used by forward-call resolution,
// which must briefly switch back to the call site's namespace).
func (t *Table) SetNamespace(ns string) (prev string) {
	prev = t.namespace
	t.namespace = ns
	return prev
}

// ---------------------------------------------------------------------
// Identifiers
// ---------------------------------------------------------------------

// Define registers a new identifier in the innermost scope and
// returns its Sid. Redeclaration in the same scope is an error the
// caller surfaces via the lexer's diagnostic path; Define itself just
// reports ok=false so the parser can decide the wording.
func (t *Table) Define(name string, opts Symbol) (Sid, bool) {
	scope := t.scopes[len(t.scopes)-1]
	if _, exists := scope[name]; exists {
		return 0, false
	}
	t.nextSid++
	opts.Name = name
	opts.Sid = t.nextSid
	scope[name] = &opts
	return opts.Sid, true
}

// LookupIdent searches scopes innermost-first for name.
func (t *Table) LookupIdent(name string) (*Symbol, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if s, ok := t.scopes[i][name]; ok {
			return s, true
		}
	}
	return nil, false
}

// ScopeLevelOf reports the scope index (0 = outermost) at which name
// is bound, used to compare a user-function binding's depth against
// any shadowing variable's depth (§4.E selection rule).
func (t *Table) ScopeLevelOf(name string) (int, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if _, ok := t.scopes[i][name]; ok {
			return i, true
		}
	}
	return -1, false
}

// UnregisterScopeLocal removes a declaration from the current scope's
// visibility without touching the AST, per §4.H.5 (enums, UDTs, and
// non-anonymous functions go out of scope at block end but their
// declarations remain live in the tree).
func (t *Table) UnregisterScopeLocal(name string) {
	delete(t.funcs, t.qualify(name, false))
	delete(t.funcs, name)
	delete(t.enums, t.qualify(name, false))
	delete(t.enums, name)
	delete(t.udts, t.qualify(name, false))
	delete(t.udts, name)
}

// ---------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------

// DefineFunction registers fn (or adds an overload to an existing
// Function of the same name via Sibf chaining, left to the caller —
// this just indexes fn by its lookup key).
func (t *Table) DefineFunction(fn *ast.Function) {
	key := t.qualify(fn.Name, fn.Private)
	t.funcs[key] = fn
	t.defined = append(t.defined, fn)
	if _, exists := t.funcScope[key]; !exists {
		t.funcScope[key] = t.ScopeDepth()
	}
}

// Functions returns every named function this table has recorded,
// used by the CLI's `dump` subcommand to walk the whole program
// rather than one function at a time.
func (t *Table) Functions() []*ast.Function {
	out := make([]*ast.Function, 0, len(t.defined))
	seen := make(map[*ast.Function]bool, len(t.defined))
	for _, fn := range t.defined {
		if seen[fn] {
			continue
		}
		seen[fn] = true
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupFunction finds a function by name, trying the active
// namespace first, then the bare (global) name.
func (t *Table) LookupFunction(name string) (*ast.Function, bool) {
	if f, ok := t.funcs[t.qualify(name, false)]; ok {
		return f, true
	}
	f, ok := t.funcs[name]
	return f, ok
}

// FunctionScopeLevel reports the scope depth a named function was
// declared at, used to decide whether a same-named variable shadows
// it (§4.E selection rule: the deeper declaration wins).
func (t *Table) FunctionScopeLevel(name string) (int, bool) {
	if lvl, ok := t.funcScope[t.qualify(name, false)]; ok {
		return lvl, true
	}
	lvl, ok := t.funcScope[name]
	return lvl, ok
}

// LookupField searches every registered UDT's fields for name,
// mirroring the reference parser's global field-name registry used to
// decide field-access-vs-call precedence in a dotted expression
// (§4.D.7).
func (t *Table) LookupField(name string) (*ast.FieldDecl, bool) {
	for _, u := range t.udts {
		for i := range u.Fields {
			if u.Fields[i].Name == name {
				return &u.Fields[i], true
			}
		}
	}
	return nil, false
}

// ---------------------------------------------------------------------
// Enums
// ---------------------------------------------------------------------

func (t *Table) DefineEnum(e *ast.Enum) {
	t.enums[t.qualify(e.Name, e.Private)] = e
}

func (t *Table) LookupEnum(name string) (*ast.Enum, bool) {
	if e, ok := t.enums[t.qualify(name, false)]; ok {
		return e, true
	}
	e, ok := t.enums[name]
	return e, ok
}

// LookupEnumVal finds an enum value by its bare name across every
// registered enum, returning the owning enum and the matched value
// (§4.D.5).
func (t *Table) LookupEnumVal(name string) (*ast.Enum, ast.EnumVal, bool) {
	for _, e := range t.enums {
		for _, v := range e.Vals {
			if v.Name == name {
				return e, v, true
			}
		}
	}
	return nil, ast.EnumVal{}, false
}

// ---------------------------------------------------------------------
// UDTs
// ---------------------------------------------------------------------

func (t *Table) DefineUDT(u *ast.UDT) {
	t.udts[t.qualify(u.Name, u.Private)] = u
}

func (t *Table) LookupUDT(name string) (*ast.UDT, bool) {
	if u, ok := t.udts[t.qualify(name, false)]; ok {
		return u, true
	}
	u, ok := t.udts[name]
	return u, ok
}

// ---------------------------------------------------------------------
// With-struct stack
// ---------------------------------------------------------------------

// PushWithStruct enters a `::`-typed argument's scope.
func (t *Table) PushWithStruct(sid Sid, udt *ast.UDT) {
	t.withStack = append(t.withStack, WithStructElem{Sid: sid, UDT: udt})
}

// PopWithStruct leaves the innermost with-struct scope.
func (t *Table) PopWithStruct() {
	if len(t.withStack) > 0 {
		t.withStack = t.withStack[:len(t.withStack)-1]
	}
}

// CurrentWithStruct returns the innermost with-struct context, if any.
func (t *Table) CurrentWithStruct() (WithStructElem, bool) {
	if len(t.withStack) == 0 {
		return WithStructElem{}, false
	}
	return t.withStack[len(t.withStack)-1], true
}

// LookupWithStructField searches the with-struct stack innermost-first
// for a field named name, per §4.D.7.
func (t *Table) LookupWithStructField(name string) (WithStructElem, *ast.FieldDecl, bool) {
	for i := len(t.withStack) - 1; i >= 0; i-- {
		wse := t.withStack[i]
		for fi := range wse.UDT.Fields {
			if wse.UDT.Fields[fi].Name == name {
				return wse, &wse.UDT.Fields[fi], true
			}
		}
	}
	return WithStructElem{}, nil, false
}

// ---------------------------------------------------------------------
// Bound typevars stack
// ---------------------------------------------------------------------

// PushBoundTypevars enters a UDT's or generic function's type-
// parameter scope.
func (t *Table) PushBoundTypevars(params []ast.GenericParam) {
	t.boundTypevars = append(t.boundTypevars, params)
}

// PopBoundTypevars leaves the innermost type-parameter scope.
func (t *Table) PopBoundTypevars() {
	if len(t.boundTypevars) > 0 {
		t.boundTypevars = t.boundTypevars[:len(t.boundTypevars)-1]
	}
}

// LookupBoundTypevar resolves a bare type name against the innermost
// scopes of bound generics first, as `ParseType` does for unqualified
// identifiers inside a generic body.
func (t *Table) LookupBoundTypevar(name string) (ast.GenericParam, bool) {
	for i := len(t.boundTypevars) - 1; i >= 0; i-- {
		for _, p := range t.boundTypevars[i] {
			if p.Name == name {
				return p, true
			}
		}
	}
	return ast.GenericParam{}, false
}

// ---------------------------------------------------------------------
// Forward-call queue (§4.F)
// ---------------------------------------------------------------------

// PushForwardCall enqueues an unresolved named call site.
func (t *Table) PushForwardCall(f ForwardFunctionCall) {
	t.forwardCalls = append(t.forwardCalls, f)
}

// PendingForwardCalls reports the current queue length. The parser
// does not consult it; it is exposed for callers and tests.
func (t *Table) PendingForwardCalls() int { return len(t.forwardCalls) }

// ResolveForwardFunctionCalls walks the queue at a block boundary. An
// entry is reconsidered only while its MaxScopeLevel is at least the
// caller-supplied current scope depth; entries whose function is now
// found are resolved and removed, entries found missing at the
// outermost scope produce an error via errf, and entries found
// missing at an inner scope have their MaxScopeLevel lowered so they
// are not retried in a sibling scope at the same depth (§4.F).
func (t *Table) ResolveForwardFunctionCalls(currentScopeCount int, errf func(msg string)) {
	remaining := t.forwardCalls[:0]
	for _, fc := range t.forwardCalls {
		if fc.MaxScopeLevel < currentScopeCount {
			remaining = append(remaining, fc)
			continue
		}
		prevNS := t.SetNamespace(fc.CallNamespace)
		fn, found := t.LookupFunction(fc.Node.Name)
		t.SetNamespace(prevNS)

		if found {
			if !fc.HasFirstArg && fc.WithStructElem != nil && len(fn.Overloads) > 0 {
				first := fn.Overloads[0]
				if len(first.Args) > 0 && first.Args[0].WithStruct {
					if st, ok := first.Args[0].Type.(*ast.SimpleType); ok && st.Name == fc.WithStructElem.UDT.Name {
						fc.Node.Args = append([]ast.Expr{&ast.IdentRef{Name: "this", Sid: fc.WithStructElem.Sid}}, fc.Node.Args...)
					}
				}
			}
			sf := FindOverloadByArity(fn, len(fc.Node.Args))
			if sf == nil {
				errf(fmt.Sprintf("no version of function %s takes %d arguments", fc.Node.Name, len(fc.Node.Args)))
				continue
			}
			fc.Node.SF = sf
			fc.Node.Unresolved = false
			continue
		}

		if currentScopeCount <= 1 {
			errf(fmt.Sprintf("call to unknown function: %s", fc.Node.Name))
			continue
		}

		fc.MaxScopeLevel = currentScopeCount - 1
		remaining = append(remaining, fc)
	}
	t.forwardCalls = remaining
}

// FindOverloadByArity walks fn's Sibf chain for the first overload
// accepting exactly nargs arguments, mirroring
// `Parser::FindFunctionWithNargs`. Returns nil when no overload takes
// nargs arguments; callers must report that themselves, matching
// `FindFunctionWithNargs`'s own `Error("no version of function ...
// takes ... arguments")` rather than silently binding to an arbitrary
// overload.
func FindOverloadByArity(fn *ast.Function, nargs int) *ast.SubFunction {
	for f := fn; f != nil; f = f.Sibf {
		for _, sf := range f.Overloads {
			if len(sf.Args) == nargs {
				return sf
			}
		}
	}
	return nil
}

// ---------------------------------------------------------------------
// Block stack (§4.G implicit arguments)
// ---------------------------------------------------------------------

func (t *Table) PushBlockScope(block *ast.Block, forNargs int) {
	t.blockStack = append(t.blockStack, BlockScope{Block: block, ForNargs: forNargs})
}

func (t *Table) PopBlockScope() {
	if len(t.blockStack) > 0 {
		t.blockStack = t.blockStack[:len(t.blockStack)-1]
	}
}

// CurrentBlockScope returns the innermost block scope, if any.
func (t *Table) CurrentBlockScope() (*BlockScope, bool) {
	if len(t.blockStack) == 0 {
		return nil, false
	}
	return &t.blockStack[len(t.blockStack)-1], true
}
