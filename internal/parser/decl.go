// Component F: top-level declarations — struct/class (with
// specialization, full-declaration, and pre-declaration forms), named
// function definitions (including the function-type-declaration form
// and method first-args), enum/enum_flags, var/const, and multi-target
// assignment lists. Grounded on `parser.h`'s ParseTypeDecl/
// ParseFunction/ParseEnum/ParseVarDecl (lines ~120-620).
package parser

import (
	"strconv"

	"github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/diag"
	"github.com/glint-lang/glint/internal/symbols"
	"github.com/glint-lang/glint/internal/token"
)

// parseTypeDecl parses `struct|class NAME [<generics>] [: super]:
// (field(:type)? (= default)? | fun ...)*`, or a pre-declaration with
// no body at all, matching ParseTypeDecl. The result is the UDT's
// methods (in declaration order, each injected with an implicit
// `this` arg) followed by the UDTRef itself, matching ParseTypeDecl's
// direct appends to `parent_list` as it walks the INDENT block.
func (p *Parser) parseTypeDecl() []ast.Stmt {
	pos := p.cur.Pos
	isClass := p.cur.Kind == token.Class
	p.advance()
	isPrivate := p.takePrivate()
	name := p.expectID()

	udt := &ast.UDT{Name: name, IsClass: isClass, Private: isPrivate}

	if p.cur.Kind == token.Assign {
		return one(p.parseTypeSpecialization(pos, udt))
	}

	if p.cur.Kind == token.Lt {
		p.advance()
		for {
			gname := p.expectID()
			gp := ast.GenericParam{Name: gname}
			if p.match(token.Colon) {
				gp.Given = p.parseType()
			}
			udt.Generics = append(udt.Generics, gp)
			if p.match(token.Gt) {
				p.overrideCont(false)
				break
			}
			p.expect(token.Comma)
		}
		udt.IsGeneric = true
	}

	if p.cur.Kind == token.Colon && p.peekKind() == token.Ident {
		p.advance()
		udt.GivenSuperclass = p.parseType()
		if superName := typeName(udt.GivenSuperclass); superName != "" {
			if super, sok := p.sym.LookupUDT(superName); sok {
				udt.ResolvedSuperclass = super
				udt.Fields = append(udt.Fields, super.Fields...)
				udt.Generics = append(udt.Generics, super.Generics...)
			}
		}
	}

	if p.cur.Kind != token.Colon {
		udt.Predeclaration = true
		p.sym.DefineUDT(udt)
		return []ast.Stmt{&ast.UDTRef{Base: ast.Base{P: pos}, UDT: udt}}
	}
	p.advance()
	if prev, ok := p.sym.LookupUDT(name); ok && prev.Predeclaration {
		prev.Predeclaration = false
	}

	p.sym.PushBoundTypevars(udt.Generics)
	parseField := func() {
		fname := p.expectID()
		fd := ast.FieldDecl{Name: fname}
		if p.match(token.Colon) {
			fd.Type = p.parseType()
		}
		if p.match(token.Assign) {
			fd.Default = p.parseExp()
		}
		if fd.Type == nil && fd.Default == nil {
			p.errorf(pos, "field %s needs a type or a default value", fname)
		}
		udt.Fields = append(udt.Fields, fd)
	}
	var methods []ast.Stmt
	if p.match(token.Indent) {
		fieldsDone := false
		for {
			if p.cur.Kind == token.Fun {
				fieldsDone = true
				methods = append(methods, p.parseMethodDecl(udt))
			} else {
				if fieldsDone {
					p.errorf(p.cur.Pos, "fields must be declared before methods: %s", name)
				}
				parseField()
			}
			if !p.match(token.Linefeed) {
				break
			}
			if p.cur.Kind == token.Dedent {
				break
			}
		}
		p.expect(token.Dedent)
	} else {
		parseField()
	}
	p.sym.PopBoundTypevars()

	if len(udt.Fields) == 0 && !isClass {
		p.errorf(pos, "struct must declare at least one field: %s", name)
	}

	p.sym.DefineUDT(udt)
	return append(methods, &ast.UDTRef{Base: ast.Base{P: pos}, UDT: udt})
}

// parseMethodDecl parses one `fun NAME(...): BODY` method declaration
// nested in a struct/class body (§4.B.1 form 2), injecting an
// implicit `this` arg of udt's type ahead of any explicit args,
// matching `if (IsNext(T_FUN)) ... ParseNamedFunctionDefinition(false,
// udt)` inside ParseTypeDecl's field loop (parser.h:344-349).
func (p *Parser) parseMethodDecl(udt *ast.UDT) ast.Stmt {
	p.expect(token.Fun)
	name := p.expectID()
	return asStmt(p.parseFunction(&name, false, true, true, udt))
}

// parseTypeSpecialization parses the `struct NAME = PARENT[<T1,...>]`
// form (§4.B.1 form 1): clones the parent UDT's fields and generics,
// binds the given specializers to the parent's free generic slots in
// order, and applies a `= expr` default suffix (when present) to the
// first parent field whose declared type is that generic.
func (p *Parser) parseTypeSpecialization(pos token.Position, udt *ast.UDT) ast.Stmt {
	p.advance()
	parentName := p.expectID()
	parent, ok := p.sym.LookupUDT(parentName)
	if !ok {
		p.errorf(pos, "unknown type: %s", parentName)
		p.sym.DefineUDT(udt)
		return &ast.UDTRef{Base: ast.Base{P: pos}, UDT: udt}
	}
	if parent.Predeclaration {
		p.errorf(pos, "cannot specialize pre-declared type: %s", parentName)
	}
	if parent.Private != udt.Private {
		p.errorf(pos, "privacy mismatch specializing: %s", parentName)
	}

	udt.IsClass = parent.IsClass
	udt.Fields = append([]ast.FieldDecl(nil), parent.Fields...)
	udt.Generics = append([]ast.GenericParam(nil), parent.Generics...)
	if parent.Unspecialized != nil {
		udt.Unspecialized = parent.Unspecialized
	} else {
		udt.Unspecialized = parent
	}

	var specs []ast.TypeNode
	if p.match(token.Lt) {
		idx := 0
		for {
			spec := p.parseType()
			specs = append(specs, spec)
			if idx < len(udt.Generics) {
				udt.Generics[idx].Bound = spec
				gname := udt.Generics[idx].Name
				for fi := range udt.Fields {
					if st, sok := udt.Fields[fi].Type.(*ast.SimpleType); sok && st.Name == gname {
						udt.Fields[fi].Type = spec
					}
				}
				if p.match(token.Assign) {
					// Comparison operators and looser are left out so the
					// closing `>` of the specializer list is not read as
					// greater-than.
					defExpr := p.parseOpExp(3)
					applied := false
					for fi := range udt.Fields {
						if applied {
							break
						}
						if udt.Fields[fi].Type == spec {
							if udt.Fields[fi].Default != nil {
								p.errorf(pos, "%s field already has a default", diag.Ordinal(fi+1))
							}
							udt.Fields[fi].Default = defExpr
							applied = true
						}
					}
				}
			} else {
				p.errorf(pos, "too many specializers for: %s", parentName)
			}
			idx++
			if p.match(token.Gt) {
				p.overrideCont(false)
				break
			}
			p.expect(token.Comma)
		}
	} else {
		p.errorf(pos, "specialization of %s requires at least one specializer", parentName)
	}

	udt.GivenSuperclass = &ast.GenericType{Base: ast.Base{P: pos}, Name: parentName, Specializers: specs}
	udt.ResolvedSuperclass = parent
	udt.IsGeneric = isStillGeneric(udt.Generics)

	p.sym.DefineUDT(udt)
	return &ast.UDTRef{Base: ast.Base{P: pos}, UDT: udt}
}

// isStillGeneric recomputes the is_generic flag (§4.B.1): true iff any
// generic slot is unbound.
func isStillGeneric(gs []ast.GenericParam) bool {
	for _, g := range gs {
		if g.Bound == nil {
			return true
		}
	}
	return false
}

// parseNamedFunctionDefinition parses `fun NAME[<generics>](args) [->
// rettypes]: BODY`, or the bodyless function-type-declaration form,
// matching the T_FUN branch of ParseTopExp.
func (p *Parser) parseNamedFunctionDefinition() ast.Stmt {
	p.advance()
	isPrivate := p.takePrivate()
	name := p.expectID()
	result := p.parseFunction(&name, isPrivate, true, true, nil)
	return asStmt(result)
}

// parseFunction parses one function header and (unless it is a bare
// function-type declaration) its body, covering both named
// definitions and anonymous lambdas/trailing-block arguments, matching
// ParseFunction. self, when non-nil, is the enclosing UDT of a
// struct/class-body method (§4.B.1 form 2): an implicit `this` arg of
// self's type is injected ahead of any explicit args, matching
// ParseFunction's own `if (self) { ... st.AddWithStruct(...) }` block
// (parser.h:464-469). A top-level `fun m(this :: C):` declaration
// instead derives method-ness from the explicit `::` first arg,
// handled further down in the args loop.
func (p *Parser) parseFunction(name *string, isPrivate, parens, parseArgs bool, self *ast.UDT) ast.Expr {
	pos := p.cur.Pos
	sf := &ast.SubFunction{ReqRet: -1}

	if name != nil && p.cur.Kind == token.Lt {
		p.advance()
		for {
			gname := p.expectID()
			gp := ast.GenericParam{Name: gname}
			if p.match(token.Colon) {
				gp.Given = p.parseType()
			}
			sf.Generics = append(sf.Generics, gp)
			if p.match(token.Gt) {
				p.overrideCont(false)
				break
			}
			p.expect(token.Comma)
		}
	}

	fn := &ast.Function{Overloads: []*ast.SubFunction{sf}}
	if name != nil {
		fn.Name = *name
		fn.Private = isPrivate
	} else {
		fn.Anonymous = true
		sf.AllowImplicitArgs = true
	}
	sf.Parent = fn

	p.functionStack = append(p.functionStack, sf)
	p.sym.PushScope()
	p.funcBaseScope = append(p.funcBaseScope, p.sym.ScopeDepth())
	p.sym.PushBoundTypevars(sf.Generics)

	withPushes := 0
	if parens {
		p.expect(token.LParen)
	}
	if self != nil {
		sid, ok := p.sym.Define("this", symbols.Symbol{})
		if !ok {
			p.errorf(pos, "redefinition of argument: this")
		}
		sf.Args = append(sf.Args, ast.Param{Name: "this", WithStruct: true, Type: &ast.SimpleType{Base: ast.Base{P: pos}, Name: self.Name}})
		p.sym.PushWithStruct(sid, self)
		withPushes++
		sf.Method = true
		sf.MethodOf = self
	}
	if parseArgs && p.cur.Kind == token.Ident && !(parens && p.cur.Kind == token.RParen) {
		sf.AllowImplicitArgs = false
		for {
			argName := p.expectID()
			param := ast.Param{Name: argName}
			switch {
			case p.match(token.TypeIn):
				param.WithStruct = true
				param.Type = p.parseType()
			case p.match(token.Colon):
				param.Type = p.parseType()
			default:
				param.Type = p.freshImplicitGeneric(sf, pos)
			}
			sid, ok := p.sym.Define(argName, symbols.Symbol{})
			if !ok {
				p.errorf(pos, "redefinition of argument: %s", argName)
			}
			if param.WithStruct {
				if ut, uok := p.sym.LookupUDT(typeName(param.Type)); uok {
					p.sym.PushWithStruct(sid, ut)
					withPushes++
					if fn.Name != "" && len(sf.Args) == 0 {
						sf.Method = true
						sf.MethodOf = ut
					}
				} else {
					p.errorf(pos, ":: must name a class/struct type: %s", argName)
				}
			}
			sf.Args = append(sf.Args, param)
			if !p.match(token.Comma) {
				break
			}
		}
	}
	if parens {
		p.expect(token.RParen)
	}

	if p.match(token.CoDot) {
		sf.GivenRet = p.parseTypes()
	}

	isTypeDecl := fn.Name != "" && p.cur.Kind != token.Colon
	fn.IsType = isTypeDecl

	if isTypeDecl {
		if len(sf.GivenRet) == 0 {
			p.errorf(pos, "function type declaration requires a return type: %s", fn.Name)
		}
		if len(sf.Generics) > 0 {
			p.errorf(pos, "function type declaration cannot have generics or generic argument types: %s", fn.Name)
		}
		sf.TypeChecked = true
		for i := range sf.Args {
			sf.Args[i].Borrow = true
		}
	}

	var result ast.Expr = &ast.FunRef{Base: ast.Base{P: pos}, SF: sf}
	if name != nil {
		if existing, ok := p.sym.LookupFunction(fn.Name); ok {
			sf.Parent = existing
			existing.Overloads = append(existing.Overloads, sf)
			if sf.Method {
				for _, other := range existing.Overloads {
					if other != sf && other.Method && other.MethodOf == sf.MethodOf {
						p.errorf(pos, "method %s already declared for type: %s", fn.Name, sf.MethodOf.Name)
						break
					}
				}
			}
		} else {
			p.sym.DefineFunction(fn)
		}
	}

	if !isTypeDecl {
		block := ast.NewBlock(p.cur.Pos)
		p.expect(token.Colon)
		p.parseBody(block, -1)
		sf.Body = block
		p.implicitReturn(sf)
	}

	for i := 0; i < withPushes; i++ {
		p.sym.PopWithStruct()
	}
	p.sym.PopBoundTypevars()
	p.sym.PopScope()
	p.functionStack = p.functionStack[:len(p.functionStack)-1]
	p.funcBaseScope = p.funcBaseScope[:len(p.funcBaseScope)-1]

	return result
}

// parseEnumDecl parses `enum|enum_flags NAME: val(= N)? ...`, assigning
// values incrementally (by 1 for enum, by doubling from 1 for
// enum_flags) when no explicit `= N` is given, matching ParseEnum.
func (p *Parser) parseEnumDecl() ast.Stmt {
	pos := p.cur.Pos
	isFlags := p.cur.Kind == token.EnumFlags
	p.advance()
	isPrivate := p.takePrivate()
	name := p.expectID()
	e := &ast.Enum{Name: name, Flags: isFlags, Private: isPrivate}

	p.expect(token.Colon)
	p.expect(token.Indent)

	next := 0
	if isFlags {
		next = 1
	}
	for {
		vname := p.expectID()
		ev := ast.EnumVal{Name: vname, Value: next}
		if p.match(token.Assign) {
			tok := p.expect(token.Int)
			v, err := strconv.ParseInt(tok.Lexeme, 0, 64)
			if err != nil {
				p.errorf(pos, "malformed enum value: %s", tok.Lexeme)
			}
			ev.Value = int(v)
			ev.Given = true
		}
		e.Vals = append(e.Vals, ev)
		if isFlags {
			next = ev.Value * 2
		} else {
			next = ev.Value + 1
		}
		if !p.match(token.Linefeed) {
			break
		}
		if p.cur.Kind == token.Dedent {
			break
		}
	}
	p.expect(token.Dedent)

	p.sym.DefineEnum(e)
	var first ast.EnumVal
	if len(e.Vals) > 0 {
		first = e.Vals[0]
	}
	return &ast.EnumRef{Base: ast.Base{P: pos}, Enum: e, Val: first}
}

// parseVarDecl parses `var|const (ident [':' type | '::' type])
// (',' ...)* (= | |=) rhs`, matching the T_VAR/T_CONST branch of
// ParseTopExp. `::` and `:` both accept a per-id type annotation; `::`
// is a parse-time hint only (ParseVarDecl never pushes a with-struct
// entry for it, unlike a `::`-typed function argument).
func (p *Parser) parseVarDecl() ast.Stmt {
	pos := p.cur.Pos
	isConst := p.cur.Kind == token.Const
	p.advance()
	isPrivate := p.takePrivate()

	var names []string
	var types []ast.TypeNode
	var withStruct []bool
	for {
		names = append(names, p.expectID())
		switch {
		case p.match(token.TypeIn):
			withStruct = append(withStruct, true)
			types = append(types, p.parseType())
		case p.match(token.Colon):
			withStruct = append(withStruct, false)
			types = append(types, p.parseType())
		default:
			withStruct = append(withStruct, false)
			types = append(types, nil)
		}
		if !p.match(token.Comma) {
			break
		}
	}

	logVar := p.match(token.LogAssign)
	if !logVar {
		p.expect(token.Assign)
	}
	rhs := p.parseMultiRet(p.parseOpExp(6))

	sids := make([]any, len(names))
	for i, n := range names {
		sid, ok := p.sym.Define(n, symbols.Symbol{Const: isConst, LogVar: logVar, Private: isPrivate})
		if !ok {
			p.errorf(pos, "redefinition of: %s", n)
		}
		sids[i] = sid
	}
	return &ast.Define{Base: ast.Base{P: pos}, Names: names, Sids: sids, Types: types, WithStruct: withStruct, Const: isConst, LogVar: logVar, RHS: rhs}
}

// parseAssignList parses `target(,target)+ = rhs`, where each target
// is re-derefed against an existing binding rather than declared,
// matching the `T_IDENT` + lookahead-comma branch of ParseTopExp.
func (p *Parser) parseAssignList() ast.Stmt {
	pos := p.cur.Pos
	var targets []ast.Expr
	for {
		targets = append(targets, p.parseDeref())
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.Assign)
	rhs := p.parseMultiRet(p.parseOpExp(6))

	for _, t := range targets {
		if !isLegalLValue(t) {
			p.errorf(pos, "illegal left hand side in assignment list")
		}
	}
	return &ast.AssignList{Base: ast.Base{P: pos}, Targets: targets, RHS: rhs}
}
