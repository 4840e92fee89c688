// Package ast defines the abstract syntax tree produced by the parser:
// value-typed, tree-owned nodes for every syntactic form the language
// supports, plus the symbol-table-adjacent entities (SubFunction,
// Function, UDT, Enum) that AST reference nodes point back into.
package ast

import "github.com/glint-lang/glint/internal/token"

// Node is implemented by every tree member; Pos reports where in the
// source the construct began.
type Node interface {
	Pos() token.Position
}

// Stmt is a statement-position node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression-position node.
type Expr interface {
	Node
	exprNode()
}

// TypeNode is a parsed (but unresolved) type reference.
type TypeNode interface {
	Node
	typeNode()
}

type Base struct{ P token.Position }

func (b Base) Pos() token.Position { return b.P }

// ---------------------------------------------------------------------
// Type references (component D)
// ---------------------------------------------------------------------

// SimpleType names a built-in type or an as-yet-unresolved UDT/enum by
// name; resolution into a concrete UDT/Enum pointer is a downstream
// phase's job (§1 scope).
type SimpleType struct {
	Base
	Name string
}

func (*SimpleType) typeNode() {}

// GenericType is NAME<T1,...> — a specialized reference to a generic
// UDT or to bound type variables inside a generic function body.
type GenericType struct {
	Base
	Name         string
	Specializers []TypeNode
}

func (*GenericType) typeNode() {}

// ListType is `[ T ]`, a vector of T.
type ListType struct {
	Base
	Elem TypeNode
}

func (*ListType) typeNode() {}

// TupleType is a parenthesized multi-type return annotation.
type TupleType struct {
	Base
	Elems []TypeNode
}

func (*TupleType) typeNode() {}

// NilableType is `T?`.
type NilableType struct {
	Base
	Elem TypeNode
}

func (*NilableType) typeNode() {}

// FuncType is a function-value type: `(args) -> ret`, produced by the
// function-type-declaration form in §4.B.2.
type FuncType struct {
	Base
	Params []TypeNode
	Return TypeNode
}

func (*FuncType) typeNode() {}

// ---------------------------------------------------------------------
// Symbol-table-adjacent entities (§3)
// ---------------------------------------------------------------------

// GenericParam is one declared generic slot on a UDT or SubFunction:
// an ordered name with an optional given specialization and, once
// bound, a resolved type.
type GenericParam struct {
	Name   string
	Given  TypeNode
	Bound  TypeNode
}

// Param is one formal argument: a name, its given type (nil if
// implicit-generic, populated by the parser once a fresh generic
// letter is assigned), and whether it was declared with `::`
// (with-struct / type-in-place).
type Param struct {
	Name       string
	Type       TypeNode
	WithStruct bool
	Borrow     bool
}

// SubFunction is one overload's body plus its signature, per §3.
type SubFunction struct {
	Parent    *Function
	Generics  []GenericParam
	Args      []Param
	GivenRet  []TypeNode
	ResolvedRet []TypeNode
	ReqRet    int
	Body      *Block
	TypeChecked bool
	Method    bool
	MethodOf  *UDT
	// AllowImplicitArgs is true only for lambda bodies with no
	// explicitly declared arguments; named functions, the top-level
	// function, and lambdas that already declared non-`_` args reject
	// implicit `_*` arguments (§4.G).
	AllowImplicitArgs bool
}

// Function is named or anonymous and holds one SubFunction per
// overload, per §3. Anonymous is true for lambdas and the implicit
// top-level function; it decides whether ImplicitReturn makes the
// synthesized trailing Return void (named functions) or keeps the
// last statement's value (anonymous ones).
type Function struct {
	Name      string
	Private   bool
	IsType    bool
	Anonymous bool
	Overloads []*SubFunction
	Sibf      *Function
}

// FieldDecl is one struct/class field: a name, given type, and
// optional default-value expression.
type FieldDecl struct {
	Name    string
	Type    TypeNode
	Default Expr
}

// UDT is a struct or class declaration, per §3.
type UDT struct {
	Name              string
	IsClass           bool
	Fields            []FieldDecl
	Generics          []GenericParam
	GivenSuperclass   TypeNode
	ResolvedSuperclass *UDT
	IsGeneric         bool
	Predeclaration    bool
	Private           bool
	Unspecialized     *UDT
}

// EnumVal is one member of an Enum.
type EnumVal struct {
	Name  string
	Value int
	Given bool // true if an explicit `= N` was written
}

// Enum is an `enum`/`enum_flags` declaration, per §3.
type Enum struct {
	Name    string
	Flags   bool
	Vals    []EnumVal
	Private bool
}

// ---------------------------------------------------------------------
// Literals
// ---------------------------------------------------------------------

type IntConstant struct {
	Base
	Value int64
}

func (*IntConstant) exprNode() {}

type FloatConstant struct {
	Base
	Value float64
}

func (*FloatConstant) exprNode() {}

type StringConstant struct {
	Base
	Value string
}

func (*StringConstant) exprNode() {}

// NilLit is the `nil` literal.
type NilLit struct{ Base }

func (*NilLit) exprNode() {}

// DefaultVal fills a missing call argument whose declared type is
// nilable (§4.E), or a missing constructor field with a default.
type DefaultVal struct{ Base }

func (*DefaultVal) exprNode() {}

// ---------------------------------------------------------------------
// References
// ---------------------------------------------------------------------

// IdentRef is a bound reference to a variable by symbol-table id; Sid
// is an opaque handle owned by the symbols package (stored as any to
// avoid an import cycle between ast and symbols).
type IdentRef struct {
	Base
	Name string
	Sid  any
}

func (*IdentRef) exprNode() {}

// TypeAnnotation wraps a parsed type used in expression position (the
// operand of `typeof`, or a type-as-value factor).
type TypeAnnotation struct {
	Base
	Type TypeNode
}

func (*TypeAnnotation) exprNode() {}

// EnumRef names an enum value by origin enum and ordinal.
type EnumRef struct {
	Base
	Enum *Enum
	Val  EnumVal
}

func (*EnumRef) exprNode() {}
func (*EnumRef) stmtNode() {}

// UDTRef names a UDT declaration site; also usable as a type-level
// reference when a UDT name is used as a type.
type UDTRef struct {
	Base
	UDT *UDT
}

func (*UDTRef) exprNode() {}
func (*UDTRef) typeNode() {}
func (*UDTRef) stmtNode() {}

// FunRef wraps a function-literal's SubFunction as a first-class
// value (a lambda, trailing-block argument, or a named-function
// reference disambiguated at bind time).
type FunRef struct {
	Base
	SF *SubFunction
}

func (*FunRef) exprNode() {}
func (*FunRef) stmtNode() {}

// ---------------------------------------------------------------------
// Composite values
// ---------------------------------------------------------------------

// FieldInit is one constructor field initializer, positional (Name
// empty) or keyed.
type FieldInit struct {
	Name  string
	Value Expr
}

// Constructor builds a UDT value: `NAME[<specializers>]{ field-init* }`.
// Extra holds positional initializers past the declared field count,
// left unvalidated for a downstream phase (§9 open question 3).
type Constructor struct {
	Base
	Type   TypeNode
	Fields []FieldInit
	Extra  []Expr
}

func (*Constructor) exprNode() {}

// ---------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------

type BinaryOp int

const (
	OpMul BinaryOp = iota
	OpDiv
	OpMod
	OpAdd
	OpSub
	OpShl
	OpShr
	OpBitAnd
	OpBitOr
	OpXor
	OpLt
	OpGt
	OpLtEq
	OpGtEq
	OpEq
	OpNeq
	OpAnd
	OpOr
)

type BinaryExpr struct {
	Base
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}

type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
	OpBitNot
	OpPreIncr
	OpPreDecr
	OpPostIncr
	OpPostDecr
)

type UnaryExpr struct {
	Base
	Op      UnaryOp
	Operand Expr
}

func (*UnaryExpr) exprNode() {}

// CompoundAssignOp is the family of `+= -= *= /= %= &= |= ^= <<= >>=`.
type CompoundAssignOp int

const (
	CAPlusEq CompoundAssignOp = iota
	CAMinusEq
	CAMultEq
	CADivEq
	CAModEq
	CAAndEq
	CAOrEq
	CAXorEq
	CAASLEq
	CAASREq
)

// CompoundAssign is legal only when LHS is an IdentRef, CoDot,
// Indexing, or dotted GenericCall (§4.C).
type CompoundAssign struct {
	Base
	Op  CompoundAssignOp
	LHS Expr
	RHS Expr
}

func (*CompoundAssign) exprNode() {}

// ---------------------------------------------------------------------
// Access
// ---------------------------------------------------------------------

type Indexing struct {
	Base
	Receiver Expr
	Index    Expr
}

func (*Indexing) exprNode() {}

// CoDot reads a field from a coroutine's suspended frame: `receiver
// -> field` (or the `:field` surface form).
type CoDot struct {
	Base
	Receiver Expr
	Field    string
}

func (*CoDot) exprNode() {}

// ---------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------

// GenericCall is the workhorse call/dot-access node: a resolved or
// still-unresolved user call, a native call (SF left nil, tagged
// native at bind time), or a dotted field/method access when Dotted is
// true and no `(` followed (§4.C, §4.E).
type GenericCall struct {
	Base
	Name         string
	SF           *SubFunction
	Dotted       bool
	MaybeMethod  bool
	Specializers []TypeNode
	Args         []Expr
	Native       bool
	Unresolved   bool
}

func (*GenericCall) exprNode() {}

// DynCall invokes a variable holding a function value.
type DynCall struct {
	Base
	Sid  any
	Name string
	Args []Expr
}

func (*DynCall) exprNode() {}

// EnumCoercion is `NAME(expr)` where NAME names only an enum, no
// function or native (§9 open question 2, §4.D.2).
type EnumCoercion struct {
	Base
	Enum *Enum
	Expr Expr
}

func (*EnumCoercion) exprNode() {}

// ---------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------

// If is a single-branch conditional, produced when no elif/else
// chain follows a trailing linefeed (§8 boundary behavior).
type If struct {
	Base
	Cond Expr
	Then *Block
}

func (*If) exprNode() {}
func (*If) stmtNode() {}

// IfElse is the full if/elif-chain/else conditional. Elif chains
// desugar into nested IfElse in Else.
type IfElse struct {
	Base
	Cond Expr
	Then *Block
	Else Node // *Block, *IfElse, or nil
}

func (*IfElse) exprNode() {}
func (*IfElse) stmtNode() {}

type While struct {
	Base
	Cond Expr
	Body *Block
}

func (*While) exprNode() {}
func (*While) stmtNode() {}

// ForLoopElem is the implicit or explicit per-iteration element
// binding of a for-loop body.
type ForLoopElem struct {
	Base
	Name string
	Sid  any
}

func (*ForLoopElem) exprNode() {}

// ForLoopCounter is the implicit or explicit per-iteration index
// binding.
type ForLoopCounter struct {
	Base
	Name string
	Sid  any
}

func (*ForLoopCounter) exprNode() {}

// For is `for(EXPR) BLOCK` or `for EXPR BLOCK` (§4.C, §9 open
// question 1); Parenthesized records which surface form was used.
type For struct {
	Base
	Iter          Expr
	Body          *Block
	Parenthesized bool
	Elem          *ForLoopElem
	Counter       *ForLoopCounter
}

func (*For) exprNode() {}
func (*For) stmtNode() {}

// Range is `lo..hi`, used inside switch-case patterns.
type Range struct {
	Base
	Lo Expr
	Hi Expr
}

func (*Range) exprNode() {}

// Case is one `case PATTERN(,PATTERN)*: BLOCK` or `default: BLOCK` arm.
// Patterns is empty for the default arm.
type Case struct {
	Base
	Patterns []Expr
	Default  bool
	Body     *Block
}

// Switch is `switch VALUE: (case|default)+`.
type Switch struct {
	Base
	Value Expr
	Cases []*Case
}

func (*Switch) exprNode() {}
func (*Switch) stmtNode() {}

// ---------------------------------------------------------------------
// Sequencing
// ---------------------------------------------------------------------

// Block is an ordered list of statements sharing one indentation
// level, i.e. the body of a function, loop, or conditional branch.
type Block struct {
	Base
	Stmts []Stmt
}

func (*Block) exprNode() {}
func (*Block) stmtNode() {}

// Seq chains two expressions for evaluation in order, used where the
// grammar produces a pair rather than a full Block.
type Seq struct {
	Base
	A Expr
	B Expr
}

func (*Seq) exprNode() {}

// MultipleReturn wraps the right-hand side of a Define/AssignList
// whose declared target count is greater than one and whose RHS is an
// explicit comma list rather than a single multi-valued call.
type MultipleReturn struct {
	Base
	Exprs []Expr
}

func (*MultipleReturn) exprNode() {}

// AssignList is `target(,target)+ = rhs`; the last entry of Targets
// is never the RHS — RHS is separate per the property in §8.
type AssignList struct {
	Base
	Targets []Expr
	RHS     Expr
}

func (*AssignList) exprNode() {}
func (*AssignList) stmtNode() {}

// Define introduces one or more new identifiers bound to RHS (a
// single expression, a call, or a MultipleReturn of matching arity).
type Define struct {
	Base
	Names []string
	Sids  []any
	// Types and WithStruct are parallel to Names: Types[i] is the
	// declared type for Names[i] (nil if none was given), and
	// WithStruct[i] is true when it was introduced with `::` rather
	// than `:` (§4.B.4).
	Types            []TypeNode
	WithStruct       []bool
	Const            bool
	LogVar           bool
	RHS              Expr
	SingleAssignment bool
	StaticConstant   bool
}

func (*Define) exprNode() {}
func (*Define) stmtNode() {}

// Assign is a plain `lhs = rhs` to an already-defined identifier or
// l-value.
type Assign struct {
	Base
	LHS Expr
	RHS Expr
}

func (*Assign) exprNode() {}
func (*Assign) stmtNode() {}

// Return exits SF's body with Expr's value (possibly multi-valued via
// a MultipleReturn). VoidMarker is true for a bare `return` with no
// expression, and for the return the parser synthesizes at the end of
// a named (non-anonymous) function's body.
type Return struct {
	Base
	Expr       Expr
	SF         *SubFunction
	VoidMarker bool
}

func (*Return) exprNode() {}
func (*Return) stmtNode() {}

// ---------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------

// CoClosure is the synthetic final argument appended to a coroutine
// call's argument list, representing the suspend point.
type CoClosure struct{ Base }

func (*CoClosure) exprNode() {}

// CoRoutine wraps a call to a coroutine-declared function, desugared
// from `coroutine NAME(args)` with a CoClosure appended to Call's Args.
type CoRoutine struct {
	Base
	Call *GenericCall
}

func (*CoRoutine) exprNode() {}

// ---------------------------------------------------------------------
// Type introspection
// ---------------------------------------------------------------------

type IsType struct {
	Base
	Expr Expr
	Type TypeNode
}

func (*IsType) exprNode() {}

type TypeOf struct {
	Base
	Expr Expr // nil when the operand was `return` or a bare type name
	Type TypeNode
}

func (*TypeOf) exprNode() {}

// ---------------------------------------------------------------------
// Top level
// ---------------------------------------------------------------------

// Call is the root node: the program wrapped as an invocation of the
// synthetic top-level SubFunction (§3, §6 output).
type Call struct {
	Base
	SF *SubFunction
}

func (*Call) exprNode() {}

// Program is the parser's full output: the root Call plus the set of
// pakfile paths referenced via the `pakfile` factor (§6).
type Program struct {
	Base
	Root     *Call
	Pakfiles []string
}

// NewBlock constructs an empty block positioned at pos.
func NewBlock(pos token.Position) *Block {
	return &Block{Base: Base{P: pos}}
}

// ---------------------------------------------------------------------
// Positioned constructors for literal/reference nodes that need one,
// kept small and explicit in the teacher's style rather than a
// generic factory.
// ---------------------------------------------------------------------

func NewIntConstant(pos token.Position, v int64) *IntConstant {
	return &IntConstant{Base: Base{P: pos}, Value: v}
}

func NewFloatConstant(pos token.Position, v float64) *FloatConstant {
	return &FloatConstant{Base: Base{P: pos}, Value: v}
}

func NewStringConstant(pos token.Position, v string) *StringConstant {
	return &StringConstant{Base: Base{P: pos}, Value: v}
}

func NewNil(pos token.Position) *NilLit { return &NilLit{Base: Base{P: pos}} }

func NewDefaultVal(pos token.Position) *DefaultVal { return &DefaultVal{Base: Base{P: pos}} }

// ExprStatement adapts a bare expression to statement position (the
// "any other token... possibly an expression-statement" branch of
// §4.B).
type ExprStatement struct {
	Base
	Expr Expr
}

func (*ExprStatement) stmtNode() {}

// NamespaceStmt records a `namespace` directive (§4.A).
type NamespaceStmt struct {
	Base
	Name string
}

func (*NamespaceStmt) stmtNode() {}

// IncludeDirective records an `include` directive (§4.A), either a
// file path or an AddDataDir request.
type IncludeDirective struct {
	Base
	Path    string
	DataDir string
}

func (*IncludeDirective) stmtNode() {}
