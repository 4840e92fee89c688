// Component E: the expression grammar (§4.C) — precedence-climbing
// binary operators over a unary/postfix/factor chain, plus every
// factor alternative (literals, grouping, list literals, lambdas,
// coroutines, typeof, if/while/for/switch-as-expression, and the big
// identifier-disambiguation routine in identFactor). Grounded on
// `parser.h`'s ParseExpStat/ParseExp/ParseOpExp/ParseUnary/ParseDeref/
// ParseFactor/IdentFactor/IdentUseOrWithStruct/ParseIf/ParseBlock/
// ParseVector/ParseSpecializers (lines ~718-1421).
package parser

import (
	"strconv"
	"strings"

	"github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/symbols"
	"github.com/glint-lang/glint/internal/token"
)

// ---------------------------------------------------------------------
// Statement-position entry points
// ---------------------------------------------------------------------

// parseExpStat parses one statement-position expression: a `return`,
// or an expression possibly chained with `;`-separated siblings into
// a Seq, matching ParseExpStat.
func (p *Parser) parseExpStat() ast.Stmt {
	if p.cur.Kind == token.Return {
		return p.parseReturn()
	}
	e := p.parseExp()
	for p.match(token.Semicolon) {
		rhs := p.parseExp()
		e = &ast.Seq{Base: ast.Base{P: e.Pos()}, A: e, B: rhs}
	}
	return asStmt(e)
}

// parseReturn parses `return [from NAME|program] [expr]`.
func (p *Parser) parseReturn() ast.Stmt {
	pos := p.cur.Pos
	p.advance()

	sf := p.currentSF()
	if p.match(token.From) {
		if p.match(token.Program) {
			sf = p.functionStack[0]
		} else {
			name := p.expectID()
			if fn, ok := p.sym.LookupFunction(name); ok {
				if len(fn.Overloads) != 1 {
					p.errorf(pos, "function has multiple overloads, return from is ambiguous: %s", name)
				} else {
					sf = fn.Overloads[0]
				}
			} else {
				p.errorf(pos, "return from: unknown function: %s", name)
			}
		}
	}

	if p.either(token.Linefeed, token.Dedent, token.EOF, token.Semicolon) {
		return &ast.Return{Base: ast.Base{P: pos}, Expr: ast.NewDefaultVal(pos), SF: sf, VoidMarker: true}
	}
	e := p.parseMultiRet(p.parseOpExp(6))
	return &ast.Return{Base: ast.Base{P: pos}, Expr: e, SF: sf}
}

// parseMultiRet collects additional comma-separated return values
// into a MultipleReturn, matching ParseMultipleReturn.
func (p *Parser) parseMultiRet(first ast.Expr) ast.Expr {
	if p.cur.Kind != token.Comma {
		return first
	}
	exprs := []ast.Expr{first}
	for p.match(token.Comma) {
		exprs = append(exprs, p.parseOpExp(6))
	}
	return &ast.MultipleReturn{Base: ast.Base{P: first.Pos()}, Exprs: exprs}
}

// ---------------------------------------------------------------------
// Expression entry points
// ---------------------------------------------------------------------

// parseExp parses a full expression: either an `lhs = rhs` or
// compound-assign form, or a plain operator expression, matching
// ParseExp. Multi-target `a, b = rhs` is not handled here.
func (p *Parser) parseExp() ast.Expr {
	return p.parseExpParens(false)
}

// parseExpParens is parseExp with the `call_noparens` context threaded
// through, restored on return (mirrors the save/restore around
// ParseExp's recursive calls from inside a parenless argument list).
func (p *Parser) parseExpParens(noParens bool) ast.Expr {
	saved := p.callNoParens
	p.callNoParens = noParens
	defer func() { p.callNoParens = saved }()

	lhs := p.parseOpExp(6)
	if ca, ok := p.checkOpEq(lhs); ok {
		return ca
	}
	if p.cur.Kind == token.Assign {
		p.advance()
		rhs := p.parseExpParens(noParens)
		return &ast.Assign{Base: ast.Base{P: lhs.Pos()}, LHS: lhs, RHS: rhs}
	}
	return lhs
}

var compoundAssignOps = map[token.Kind]ast.CompoundAssignOp{
	token.PlusEq:  ast.CAPlusEq,
	token.MinusEq: ast.CAMinusEq,
	token.MultEq:  ast.CAMultEq,
	token.DivEq:   ast.CADivEq,
	token.ModEq:   ast.CAModEq,
	token.AndEq:   ast.CAAndEq,
	token.OrEq:    ast.CAOrEq,
	token.XorEq:   ast.CAXorEq,
	token.ASLEq:   ast.CAASLEq,
	token.ASREq:   ast.CAASREq,
}

// checkOpEq recognizes a trailing compound-assign operator, rejecting
// illegal l-values per §4.C.
func (p *Parser) checkOpEq(lhs ast.Expr) (ast.Expr, bool) {
	op, ok := compoundAssignOps[p.cur.Kind]
	if !ok {
		return nil, false
	}
	if !isLegalLValue(lhs) {
		p.errorf(lhs.Pos(), "illegal left hand side of compound assignment")
	}
	p.advance()
	rhs := p.parseExpParens(p.callNoParens)
	return &ast.CompoundAssign{Base: ast.Base{P: lhs.Pos()}, Op: op, LHS: lhs, RHS: rhs}, true
}

func isLegalLValue(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.IdentRef, *ast.CoDot, *ast.Indexing:
		return true
	case *ast.GenericCall:
		return n.Dotted
	default:
		return false
	}
}

// ---------------------------------------------------------------------
// Precedence-climbing binary operators (§4.C)
// ---------------------------------------------------------------------

var opLevels = [][]token.Kind{
	{token.Mult, token.Div, token.Mod},
	{token.Plus, token.Minus},
	{token.ASL, token.ASR},
	{token.BitAnd, token.BitOr, token.Xor},
	{token.Lt, token.Gt, token.LtEq, token.GtEq},
	{token.Eq, token.Neq},
	{token.And, token.Or},
}

var opToBinaryOp = map[token.Kind]ast.BinaryOp{
	token.Mult:   ast.OpMul,
	token.Div:    ast.OpDiv,
	token.Mod:    ast.OpMod,
	token.Plus:   ast.OpAdd,
	token.Minus:  ast.OpSub,
	token.ASL:    ast.OpShl,
	token.ASR:    ast.OpShr,
	token.BitAnd: ast.OpBitAnd,
	token.BitOr:  ast.OpBitOr,
	token.Xor:    ast.OpXor,
	token.Lt:     ast.OpLt,
	token.Gt:     ast.OpGt,
	token.LtEq:   ast.OpLtEq,
	token.GtEq:   ast.OpGtEq,
	token.Eq:     ast.OpEq,
	token.Neq:    ast.OpNeq,
	token.And:    ast.OpAnd,
	token.Or:     ast.OpOr,
}

// parseOpExp climbs from level (6, loosest) down to 0 (tightest),
// bottoming out at parseUnary, matching ParseOpExp.
func (p *Parser) parseOpExp(level int) ast.Expr {
	if level < 0 {
		return p.parseUnary()
	}
	lhs := p.parseOpExp(level - 1)
	for {
		matched := false
		for _, k := range opLevels[level] {
			if p.cur.Kind == k {
				matched = true
				break
			}
		}
		if !matched {
			return lhs
		}
		op := opToBinaryOp[p.cur.Kind]
		pos := p.cur.Pos
		p.advance()
		rhs := p.parseOpExp(level - 1)
		lhs = &ast.BinaryExpr{Base: ast.Base{P: pos}, Op: op, Left: lhs, Right: rhs}
	}
}

// ---------------------------------------------------------------------
// Unary and postfix
// ---------------------------------------------------------------------

func (p *Parser) parseUnary() ast.Expr {
	pos := p.cur.Pos
	switch p.cur.Kind {
	case token.Minus:
		p.advance()
		return &ast.UnaryExpr{Base: ast.Base{P: pos}, Op: ast.OpNeg, Operand: p.parseUnary()}
	case token.Not:
		p.advance()
		return &ast.UnaryExpr{Base: ast.Base{P: pos}, Op: ast.OpNot, Operand: p.parseUnary()}
	case token.Neg:
		p.advance()
		return &ast.UnaryExpr{Base: ast.Base{P: pos}, Op: ast.OpBitNot, Operand: p.parseUnary()}
	case token.Incr:
		p.advance()
		return &ast.UnaryExpr{Base: ast.Base{P: pos}, Op: ast.OpPreIncr, Operand: p.parseUnary()}
	case token.Decr:
		p.advance()
		return &ast.UnaryExpr{Base: ast.Base{P: pos}, Op: ast.OpPreDecr, Operand: p.parseUnary()}
	default:
		return p.parseDeref()
	}
}

// parseDeref parses a factor followed by a postfix chain of
// dot/CoDot/bracket-index/increment/decrement/is-type operators,
// matching ParseDeref.
func (p *Parser) parseDeref() ast.Expr {
	n := p.parseFactor()
	for {
		pos := p.cur.Pos
		switch p.cur.Kind {
		case token.Dot:
			p.advance()
			idname := p.expectID()
			n = p.parseDotAccess(n, pos, idname)
		case token.CoDot:
			p.advance()
			idname := p.expectID()
			n = &ast.CoDot{Base: ast.Base{P: pos}, Receiver: n, Field: idname}
		case token.LBracket:
			p.advance()
			idx := p.parseExp()
			p.expect(token.RBracket)
			n = &ast.Indexing{Base: ast.Base{P: pos}, Receiver: n, Index: idx}
		case token.Incr:
			p.advance()
			n = &ast.UnaryExpr{Base: ast.Base{P: pos}, Op: ast.OpPostIncr, Operand: n}
		case token.Decr:
			p.advance()
			n = &ast.UnaryExpr{Base: ast.Base{P: pos}, Op: ast.OpPostDecr, Operand: n}
		case token.Is:
			p.advance()
			typ := p.parseType()
			n = &ast.IsType{Base: ast.Base{P: pos}, Expr: n, Type: typ}
		default:
			return n
		}
	}
}

// parseDotAccess disambiguates `receiver.idname`: a declared field
// wins when idname is a known field and no `(` follows; otherwise it
// is parsed as a (possibly dotted-method) call, matching the
// `Dot`-handling branch of ParseDeref.
func (p *Parser) parseDotAccess(receiver ast.Expr, pos token.Position, idname string) ast.Expr {
	_, isField := p.sym.LookupField(idname)
	if isField && p.cur.Kind != token.LParen {
		return &ast.GenericCall{Base: ast.Base{P: pos}, Name: idname, Dotted: true, MaybeMethod: true, Args: []ast.Expr{receiver}}
	}

	fn, fnOK := p.sym.LookupFunction(idname)
	nfs, nfOK := p.nat.FindNative(idname)
	if fnOK || nfOK {
		return p.parseFunctionCall(fn, nfs, idname, receiver, false, nil)
	}
	if isField {
		return &ast.GenericCall{Base: ast.Base{P: pos}, Name: idname, Dotted: true, MaybeMethod: true, Args: []ast.Expr{receiver}}
	}
	p.errorf(pos, "unknown field or method: %s", idname)
	return &ast.GenericCall{Base: ast.Base{P: pos}, Name: idname, Dotted: true, Args: []ast.Expr{receiver}}
}

// ---------------------------------------------------------------------
// Factors (§4.C.3)
// ---------------------------------------------------------------------

func (p *Parser) parseFactor() ast.Expr {
	pos := p.cur.Pos
	switch p.cur.Kind {
	case token.Int:
		lex := p.cur.Lexeme
		p.advance()
		v, err := strconv.ParseInt(lex, 0, 64)
		if err != nil {
			p.errorf(pos, "malformed integer literal: %s", lex)
		}
		return ast.NewIntConstant(pos, v)
	case token.Float:
		lex := p.cur.Lexeme
		p.advance()
		v, err := strconv.ParseFloat(lex, 64)
		if err != nil {
			p.errorf(pos, "malformed float literal: %s", lex)
		}
		return ast.NewFloatConstant(pos, v)
	case token.Str:
		s := p.cur.Lexeme
		p.advance()
		return ast.NewStringConstant(pos, s)
	case token.Nil:
		p.advance()
		n := ast.NewNil(pos)
		if p.match(token.TypeIn) {
			p.parseType()
		}
		return n
	case token.LParen:
		p.advance()
		e := p.parseExp()
		p.expect(token.RParen)
		return e
	case token.LBracket:
		p.advance()
		ctor := &ast.Constructor{Base: ast.Base{P: pos}}
		p.parseVector(func() {
			ctor.Fields = append(ctor.Fields, ast.FieldInit{Value: p.parseExp()})
		}, token.RBracket)
		if p.match(token.TypeIn) {
			elem := p.parseType()
			ctor.Type = &ast.ListType{Base: ast.Base{P: pos}, Elem: elem}
		}
		return ctor
	case token.Lambda:
		p.advance()
		parens := p.cur.Kind == token.LParen
		parseArgs := p.cur.Kind != token.Colon
		return p.parseFunction(nil, false, parens, parseArgs, nil)
	case token.Coroutine:
		p.advance()
		idname := p.expectID()
		specs := p.parseSpecializers(true)
		fn, _ := p.sym.LookupFunction(idname)
		call := p.parseFunctionCall(fn, nil, idname, nil, false, specs)
		if gc, ok := call.(*ast.GenericCall); ok {
			gc.Args = append(gc.Args, &ast.CoClosure{Base: ast.Base{P: pos}})
			return &ast.CoRoutine{Base: ast.Base{P: pos}, Call: gc}
		}
		p.errorf(pos, "coroutine target must be a plain function call")
		return &ast.CoRoutine{Base: ast.Base{P: pos}}
	case token.FloatType, token.IntType, token.StringType, token.AnyType:
		idname := p.cur.Kind.String()
		p.advance()
		if p.cur.Kind != token.LParen {
			p.errorf(pos, "type used as expression")
		}
		return p.identFactor(pos, idname)
	case token.Typeof:
		p.advance()
		if p.cur.Kind == token.Return {
			p.advance()
			return &ast.TypeOf{Base: ast.Base{P: pos}, Expr: ast.NewDefaultVal(pos)}
		}
		if p.cur.Kind == token.Ident {
			if sym, ok := p.sym.LookupIdent(p.cur.Lexeme); ok {
				name := p.cur.Lexeme
				p.advance()
				return &ast.TypeOf{Base: ast.Base{P: pos}, Expr: &ast.IdentRef{Base: ast.Base{P: pos}, Name: name, Sid: sym.Sid}}
			}
		}
		typ := p.parseType()
		return &ast.TypeOf{Base: ast.Base{P: pos}, Expr: &ast.TypeAnnotation{Base: ast.Base{P: pos}, Type: typ}}
	case token.Ident:
		idname := p.cur.Lexeme
		p.advance()
		return p.identFactor(pos, idname)
	case token.Pakfile:
		p.advance()
		s := p.expect(token.Str)
		p.pakfiles[s.Lexeme] = true
		return ast.NewStringConstant(pos, s.Lexeme)
	case token.If:
		p.advance()
		return p.parseIf()
	case token.While:
		p.advance()
		cond := p.parseExpParens(true)
		return &ast.While{Base: ast.Base{P: pos}, Cond: cond, Body: p.parseBlock(-1, false)}
	case token.For:
		p.advance()
		return p.parseFor(pos)
	case token.Switch:
		p.advance()
		return p.parseSwitch(pos)
	default:
		p.errorf(pos, "illegal start of expression: %s", p.cur.Kind)
		p.advance()
		return ast.NewDefaultVal(pos)
	}
}

// parseVector parses a comma-separated, optionally-trailing-comma
// list of items up to and consuming closing, matching ParseVector.
func (p *Parser) parseVector(f func(), closing token.Kind) {
	if p.match(closing) {
		return
	}
	for {
		f()
		hadComma := p.match(token.Comma)
		if !hadComma || p.cur.Kind == closing {
			break
		}
	}
	p.expect(closing)
}

// parseSpecializers parses an optional `<T,...>` list immediately
// (no intervening whitespace) following a factor already known (by
// likelyNamedFunction) to plausibly be one, matching ParseSpecializers.
func (p *Parser) parseSpecializers(likelyNamedFunction bool) []ast.TypeNode {
	if !likelyNamedFunction || p.cur.WhitespaceBefore || p.cur.Kind != token.Lt {
		return nil
	}
	p.advance()
	var specs []ast.TypeNode
	for {
		specs = append(specs, p.parseType())
		if p.match(token.Gt) {
			p.overrideCont(false)
			break
		}
		p.expect(token.Comma)
	}
	return specs
}

// ---------------------------------------------------------------------
// Control-flow factors
// ---------------------------------------------------------------------

func (p *Parser) parseIf() ast.Expr {
	pos := p.cur.Pos
	cond := p.parseExpParens(true)
	thenBlk := p.parseBlock(-1, false)

	if p.cur.Kind == token.Linefeed && p.peekKind() == token.Elif {
		p.advance()
		p.advance()
		inner := p.parseIf()
		elseBlk := ast.NewBlock(inner.Pos())
		elseBlk.Stmts = append(elseBlk.Stmts, asStmt(inner))
		return &ast.IfElse{Base: ast.Base{P: pos}, Cond: cond, Then: thenBlk, Else: elseBlk}
	}
	if p.cur.Kind == token.Linefeed && p.peekKind() == token.Else {
		p.advance()
		p.advance()
		elseBlk := p.parseBlock(-1, false)
		return &ast.IfElse{Base: ast.Base{P: pos}, Cond: cond, Then: thenBlk, Else: elseBlk}
	}
	if p.cur.Kind == token.Elif {
		p.advance()
		inner := p.parseIf()
		elseBlk := ast.NewBlock(inner.Pos())
		elseBlk.Stmts = append(elseBlk.Stmts, asStmt(inner))
		return &ast.IfElse{Base: ast.Base{P: pos}, Cond: cond, Then: thenBlk, Else: elseBlk}
	}
	if p.cur.Kind == token.Else {
		p.advance()
		elseBlk := p.parseBlock(-1, false)
		return &ast.IfElse{Base: ast.Base{P: pos}, Cond: cond, Then: thenBlk, Else: elseBlk}
	}
	return &ast.If{Base: ast.Base{P: pos}, Cond: cond, Then: thenBlk}
}

// parseBlock parses `[(args,...)] : BODY`, optionally prepending the
// for-loop element/counter Defines ahead of the body when parseArgs is
// set, matching ParseBlock. forArgs is the count of for-loop args
// already declared by an enclosing construct (-1 when this isn't a
// for-loop body at all).
func (p *Parser) parseBlock(forArgs int, parseArgs bool) *ast.Block {
	pos := p.cur.Pos
	p.sym.PushScope()
	block := ast.NewBlock(pos)
	withPushes := 0

	if parseArgs && p.cur.Kind != token.Colon {
		parens := p.match(token.LParen)
		for {
			name := p.expectID()
			forArgs++
			withType := p.cur.Kind == token.TypeIn
			sid, ok := p.sym.Define(name, symbols.Symbol{})
			if !ok {
				p.errorf(pos, "redefinition of: %s", name)
			}
			if parens && (p.cur.Kind == token.Colon || withType) {
				p.advance()
				typ := p.parseType()
				if withType {
					if ut, uok := p.sym.LookupUDT(typeName(typ)); uok {
						p.sym.PushWithStruct(sid, ut)
						withPushes++
					} else {
						p.errorf(pos, ":: must name a class/struct type")
					}
				}
			}
			var init ast.Expr
			switch forArgs {
			case 1:
				init = &ast.ForLoopElem{Base: ast.Base{P: pos}, Name: name, Sid: sid}
			case 2:
				init = &ast.ForLoopCounter{Base: ast.Base{P: pos}, Name: name, Sid: sid}
			default:
				p.errorf(pos, "for loop takes at most an element and an index variable")
			}
			def := &ast.Define{Base: ast.Base{P: pos}, Names: []string{name}, Sids: []any{sid}, RHS: init}
			block.Stmts = append(block.Stmts, def)
			if !p.match(token.Comma) {
				break
			}
		}
		if parens {
			p.expect(token.RParen)
		}
	}

	p.expect(token.Colon)
	p.parseBody(block, forArgs)

	for i := 0; i < withPushes; i++ {
		p.sym.PopWithStruct()
	}
	p.sym.PopScope()
	return block
}

// parseBody parses the body following a `:`: either an indented block
// of statements, or a single inline statement, matching ParseBody.
func (p *Parser) parseBody(block *ast.Block, forNargs int) {
	p.sym.PushBlockScope(block, forNargs)
	if p.match(token.Indent) {
		p.parseStatements(block, token.Dedent)
	} else {
		stmt := p.parseExpStat()
		block.Stmts = append(block.Stmts, stmt)
		p.cleanupStatements(block, false)
	}
	p.sym.PopBlockScope()
}

func (p *Parser) parseFor(pos token.Position) ast.Expr {
	var iter ast.Expr
	var body *ast.Block
	parenthesized := false
	if p.match(token.LParen) {
		parenthesized = true
		iter = p.parseExpParens(false)
		p.expect(token.RParen)
		body = p.parseBlock(0, true)
	} else {
		iter = p.parseExpParens(true)
		body = p.parseBlock(0, false)
	}
	f := &ast.For{Base: ast.Base{P: pos}, Iter: iter, Body: body, Parenthesized: parenthesized}
	for _, s := range body.Stmts {
		if d, ok := s.(*ast.Define); ok {
			switch e := d.RHS.(type) {
			case *ast.ForLoopElem:
				f.Elem = e
			case *ast.ForLoopCounter:
				f.Counter = e
			}
		}
	}
	return f
}

func (p *Parser) parseSwitch(pos token.Position) ast.Expr {
	value := p.parseExpParens(true)
	p.expect(token.Colon)
	p.expect(token.Indent)

	haveDefault := false
	var cases []*ast.Case
	for {
		casePos := p.cur.Pos
		var patterns []ast.Expr
		isDefault := false
		if p.cur.Kind == token.Default {
			if haveDefault {
				p.errorf(casePos, "cannot have more than one default in a switch")
			}
			p.advance()
			haveDefault = true
			isDefault = true
		} else {
			p.expect(token.Case)
			for {
				f := p.parseDeref()
				if p.cur.Kind == token.DotDot {
					p.advance()
					hi := p.parseDeref()
					f = &ast.Range{Base: ast.Base{P: f.Pos()}, Lo: f, Hi: hi}
				}
				patterns = append(patterns, f)
				if p.cur.Kind == token.Colon {
					break
				}
				p.expect(token.Comma)
			}
		}
		body := p.parseBlock(-1, false)
		cases = append(cases, &ast.Case{Base: ast.Base{P: casePos}, Patterns: patterns, Default: isDefault, Body: body})
		if !p.match(token.Linefeed) {
			break
		}
		if p.cur.Kind == token.Dedent {
			break
		}
	}
	p.expect(token.Dedent)
	return &ast.Switch{Base: ast.Base{P: pos}, Value: value, Cases: cases}
}

// ---------------------------------------------------------------------
// Identifier disambiguation (§4.D, §4.E, §4.G)
// ---------------------------------------------------------------------

// identFactor resolves a bare identifier already consumed as idname
// into the construct it denotes: a UDT constructor, an enum coercion,
// a native/user/dynamic call, an implicit argument, an enum value, or
// a plain variable/with-struct-field use, matching IdentFactor.
func (p *Parser) identFactor(pos token.Position, idname string) ast.Expr {
	udt, udtOK := p.sym.LookupUDT(idname)
	var ctorType ast.TypeNode
	isCtor := false
	if udtOK && p.cur.Kind == token.Lt {
		p.pushBack(token.Ident, idname)
		ctorType = p.parseType()
		isCtor = true
	} else if p.cur.Kind == token.LCurly {
		isCtor = true
		if !udtOK {
			p.errorf(pos, "unknown type: %s", idname)
			udt = &ast.UDT{Name: idname}
		}
		ctorType = &ast.SimpleType{Base: ast.Base{P: pos}, Name: idname}
	}
	if isCtor {
		return p.parseConstructorBody(pos, udt, ctorType)
	}

	nfs, nfOK := p.nat.FindNative(idname)
	fn, fnOK := p.sym.LookupFunction(idname)
	e, eOK := p.sym.LookupEnum(idname)

	if p.cur.Kind == token.LParen && !p.cur.WhitespaceBefore {
		if eOK && !fnOK && !nfOK {
			p.advance()
			expr := p.parseExp()
			p.expect(token.RParen)
			return &ast.EnumCoercion{Base: ast.Base{P: pos}, Enum: e, Expr: expr}
		}
		return p.parseFunctionCall(fn, nfs, idname, nil, false, nil)
	}

	specs := p.parseSpecializers(fnOK && !nfOK && !eOK)
	if len(specs) > 0 {
		return p.parseFunctionCall(fn, nfs, idname, nil, false, specs)
	}

	if strings.HasPrefix(idname, "_") {
		return p.implicitArg(pos, idname)
	}

	_, symOK := p.sym.LookupIdent(idname)
	if !symOK && (nfOK || fnOK) && p.cur.WhitespaceBefore && p.cur.Kind != token.Linefeed {
		return p.parseFunctionCall(fn, nfs, idname, nil, true, nil)
	}

	if _, val, ok := p.sym.LookupEnumVal(idname); ok {
		return ast.NewIntConstant(pos, int64(val.Value))
	}

	return p.identUseOrWithStruct(pos, idname, fnOK || nfOK)
}

// identUseOrWithStruct resolves a bare identifier that is neither a
// call nor an enum value: a with-struct field access, or a plain
// variable reference, matching IdentUseOrWithStruct.
func (p *Parser) identUseOrWithStruct(pos token.Position, idname string, couldBeFunction bool) ast.Expr {
	if wse, _, ok := p.sym.LookupWithStructField(idname); ok {
		this := &ast.IdentRef{Base: ast.Base{P: pos}, Name: "this", Sid: wse.Sid}
		return &ast.GenericCall{Base: ast.Base{P: pos}, Name: idname, Dotted: true, MaybeMethod: true, Args: []ast.Expr{this}}
	}
	sym, ok := p.sym.LookupIdent(idname)
	if !ok {
		if couldBeFunction {
			p.errorf(pos, "can't use named function as a value: %s", idname)
		} else {
			p.errorf(pos, "unknown identifier: %s", idname)
		}
		return &ast.IdentRef{Base: ast.Base{P: pos}, Name: idname}
	}
	return &ast.IdentRef{Base: ast.Base{P: pos}, Name: idname, Sid: sym.Sid}
}

// parseConstructorBody parses the `{ field: value, ... }` body of a
// struct/class/list constructor already disambiguated by identFactor,
// matching the shared tail of IdentFactor's constructor branches.
func (p *Parser) parseConstructorBody(pos token.Position, udt *ast.UDT, typ ast.TypeNode) ast.Expr {
	p.expect(token.LCurly)
	n := len(udt.Fields)
	exps := make([]ast.Expr, n)
	var extra []ast.Expr

	p.parseVector(func() {
		if p.cur.Kind == token.Ident {
			id := p.cur.Lexeme
			p.advance()
			if p.cur.Kind == token.Colon {
				p.advance()
				idx := -1
				for i := range udt.Fields {
					if udt.Fields[i].Name == id {
						idx = i
						break
					}
				}
				if idx < 0 {
					p.errorf(pos, "unknown field: %s", id)
				} else if exps[idx] != nil {
					p.errorf(pos, "field initialized more than once: %s", id)
				} else {
					exps[idx] = p.parseExp()
				}
				return
			}
			p.pushBack(token.Ident, id)
		}
		for i := 0; i < n; i++ {
			if exps[i] == nil && udt.Fields[i].Default == nil {
				exps[i] = p.parseExp()
				return
			}
		}
		extra = append(extra, p.parseExp())
	}, token.RCurly)

	ctor := &ast.Constructor{Base: ast.Base{P: pos}, Type: typ, Extra: extra}
	for i := 0; i < n; i++ {
		if exps[i] == nil {
			if udt.Fields[i].Default != nil {
				exps[i] = udt.Fields[i].Default
			} else {
				p.errorf(pos, "field not initialized: %s", udt.Fields[i].Name)
				exps[i] = ast.NewDefaultVal(pos)
			}
		}
		ctor.Fields = append(ctor.Fields, ast.FieldInit{Name: udt.Fields[i].Name, Value: exps[i]})
	}
	return ctor
}

// ---------------------------------------------------------------------
// Implicit `_`-prefixed arguments (§4.G)
// ---------------------------------------------------------------------

// implicitArg resolves a `_`-prefixed identifier: if it is not already
// declared in the current function/for-loop, it is injected either as
// the for-loop element, or as a fresh trailing lambda parameter,
// matching the implicit-argument branch of IdentFactor. Inside a
// for-loop that already has an argument (explicit or an earlier
// implicit one) it is reported as an error; no loop counter is
// created this way.
func (p *Parser) implicitArg(pos token.Position, idname string) ast.Expr {
	sym, ok := p.sym.LookupIdent(idname)
	declaredHere := false
	if ok {
		if lvl, lok := p.sym.ScopeLevelOf(idname); lok && lvl >= p.funcBaseScope[len(p.funcBaseScope)-1] {
			declaredHere = true
		}
	}
	if ok && declaredHere {
		return &ast.IdentRef{Base: ast.Base{P: pos}, Name: idname, Sid: sym.Sid}
	}

	if bs, bok := p.sym.CurrentBlockScope(); bok && bs.ForNargs >= 0 {
		if bs.ForNargs > 0 {
			p.errorf(pos, "cannot add implicit argument to for with existing arguments: %s", idname)
		}
		sid, _ := p.sym.Define(idname, symbols.Symbol{Const: true})
		def := &ast.Define{Base: ast.Base{P: pos}, Names: []string{idname}, Sids: []any{sid}, Const: true,
			RHS: &ast.ForLoopElem{Base: ast.Base{P: pos}, Name: idname, Sid: sid}}
		bs.Block.Stmts = append([]ast.Stmt{def}, bs.Block.Stmts...)
		bs.ForNargs++
		return &ast.IdentRef{Base: ast.Base{P: pos}, Name: idname, Sid: sid}
	}

	if len(p.functionStack) <= 1 {
		p.errorf(pos, "cannot use implicit argument at top level: %s", idname)
	}
	sf := p.currentSF()
	if !sf.AllowImplicitArgs {
		p.errorf(pos, "cannot use implicit argument in a named function: %s", idname)
	}
	if len(sf.Args) > 0 && !strings.HasPrefix(sf.Args[0].Name, "_") {
		p.errorf(pos, "cannot mix implicit argument %s with declared arguments", idname)
	}
	sid, _ := p.sym.Define(idname, symbols.Symbol{})
	sf.Args = append(sf.Args, ast.Param{Name: idname, Type: p.freshImplicitGeneric(sf, pos)})
	return &ast.IdentRef{Base: ast.Base{P: pos}, Name: idname, Sid: sid}
}

// freshImplicitGeneric appends a fresh `A`..`Z` generic parameter to
// sf not already present among its generics, matching
// GenImplicitGenericForLastArg.
func (p *Parser) freshImplicitGeneric(sf *ast.SubFunction, pos token.Position) ast.TypeNode {
	for i := 0; i < 26; i++ {
		name := string(rune('A' + i))
		used := false
		for _, g := range sf.Generics {
			if g.Name == name {
				used = true
				break
			}
		}
		if used {
			continue
		}
		sf.Generics = append(sf.Generics, ast.GenericParam{Name: name})
		return &ast.SimpleType{Base: ast.Base{P: pos}, Name: name}
	}
	p.errorf(pos, "too many implicit generic arguments")
	return &ast.SimpleType{Base: ast.Base{P: pos}, Name: "any"}
}

func typeName(t ast.TypeNode) string {
	switch tt := t.(type) {
	case *ast.SimpleType:
		return tt.Name
	case *ast.GenericType:
		return tt.Name
	case *ast.NilableType:
		return typeName(tt.Elem)
	default:
		return ""
	}
}
