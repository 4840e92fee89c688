// Component G: call-site resolution and argument-list parsing.
// Grounded on `parser.h`'s ParseFunctionCall/ParseFunArgs/SelfArg
// (lines ~1080-1270): native-vs-user-vs-dynamic-vs-forward-call
// dispatch, self-arg injection from an active with-struct context, and
// the paren/parenless/trailing-lambda-chain argument grammar.
package parser

import (
	"github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/natives"
	"github.com/glint-lang/glint/internal/symbols"
	"github.com/glint-lang/glint/internal/token"
)

// parseFunctionCall implements §4.E's call-site selection rule: a
// native overload set wins unless a user function is in scope AND an
// active with-struct context makes the user function the better
// match; otherwise the user function wins when no same-named variable
// shadows it at a deeper scope; otherwise a same-named variable
// produces a DynCall; otherwise the call is queued as a forward call.
func (p *Parser) parseFunctionCall(fn *ast.Function, nfs []*natives.NativeFun, idname string, derefArg ast.Expr, noParens bool, specializers []ast.TypeNode) ast.Expr {
	pos := p.cur.Pos
	if derefArg != nil {
		pos = derefArg.Pos()
	}
	wse, hasWse := p.sym.CurrentWithStruct()

	if len(nfs) > 0 && (fn == nil || !hasWse) {
		nc := &ast.GenericCall{Base: ast.Base{P: pos}, Name: idname, Specializers: specializers, Native: true}
		p.parseFunArgs(&nc.Args, derefArg, noParens)
		if best := bestNativeOverload(nfs, len(nc.Args)); best != nil {
			for i := len(nc.Args); i < len(best.Args); i++ {
				if best.Args[i].Nilable {
					nc.Args = append(nc.Args, ast.NewDefaultVal(pos))
				} else {
					p.errorf(pos, "missing arg to builtin function: %s", idname)
					break
				}
			}
		} else if !anyNativeArity(nfs, len(nc.Args)) {
			p.errorf(pos, "wrong number of arguments to builtin function: %s", idname)
		}
		return nc
	}

	idScopeLevel, idScopeOK := p.sym.ScopeLevelOf(idname)
	fnScopeLevel, fnScopeOK := p.sym.FunctionScopeLevel(idname)
	fnWins := fn != nil && (!idScopeOK || (fnScopeOK && idScopeLevel < fnScopeLevel))

	if fnWins {
		if fn.IsType {
			p.errorf(pos, "can't call a function type as a value: %s", fn.Name)
		}
		call := &ast.GenericCall{Base: ast.Base{P: pos}, Name: idname, Specializers: specializers}
		selfArg := derefArg
		if selfArg == nil {
			selfArg = p.selfArg(fn, wse, hasWse)
		}
		p.parseFunArgs(&call.Args, selfArg, noParens)
		call.SF = symbols.FindOverloadByArity(fn, len(call.Args))
		if call.SF == nil {
			p.errorf(pos, "no version of function %s takes %d arguments", idname, len(call.Args))
		}
		return call
	}

	if idScopeOK {
		sym, _ := p.sym.LookupIdent(idname)
		dc := &ast.DynCall{Base: ast.Base{P: pos}, Name: idname, Sid: sym.Sid}
		p.parseFunArgs(&dc.Args, derefArg, false)
		return dc
	}

	call := &ast.GenericCall{Base: ast.Base{P: pos}, Name: idname, Specializers: specializers, Unresolved: true}
	p.parseFunArgs(&call.Args, derefArg, false)

	var wsePtr *symbols.WithStructElem
	if hasWse {
		w := wse
		wsePtr = &w
	}
	p.sym.PushForwardCall(symbols.ForwardFunctionCall{
		MaxScopeLevel:  p.sym.ScopeDepth(),
		CallNamespace:  p.sym.Namespace(),
		Node:           call,
		HasFirstArg:    derefArg != nil,
		WithStructElem: wsePtr,
	})
	return call
}

// selfArg auto-supplies a method's first `::`-typed argument from the
// active with-struct context when its declared type matches, matching
// SelfArg. The reference parser additionally suppresses injection
// when the with-struct binder is the function being called (to avoid
// confusing self-recursive calls); our with-struct stack does not
// track which subfunction pushed each entry, so that refinement is
// dropped here.
func (p *Parser) selfArg(fn *ast.Function, wse symbols.WithStructElem, hasWse bool) ast.Expr {
	if !hasWse {
		return nil
	}
	for _, sf := range fn.Overloads {
		if len(sf.Args) == 0 || !sf.Args[0].WithStruct {
			continue
		}
		st, ok := sf.Args[0].Type.(*ast.SimpleType)
		if ok && wse.UDT != nil && st.Name == wse.UDT.Name {
			return &ast.IdentRef{Name: "this", Sid: wse.Sid}
		}
	}
	return nil
}

func bestNativeOverload(nfs []*natives.NativeFun, nargs int) *natives.NativeFun {
	for _, nf := range nfs {
		if len(nf.Args) == nargs {
			return nf
		}
	}
	for _, nf := range nfs {
		if len(nf.Args) > nargs {
			return nf
		}
	}
	return nil
}

func anyNativeArity(nfs []*natives.NativeFun, nargs int) bool {
	for _, nf := range nfs {
		if len(nf.Args) == nargs {
			return true
		}
	}
	return false
}

// parseFunArgs parses a call's argument list into *args: a seeded
// first argument (derefArg, from a preceding dot-access or self-arg
// injection) followed by a parenthesized or parenless comma list, then
// zero or more trailing function-value (lambda) arguments chained by
// `=>` (a linefeed without `=>` ends the chain), matching ParseFunArgs.
func (p *Parser) parseFunArgs(args *[]ast.Expr, derefArg ast.Expr, noParens bool) {
	if derefArg != nil {
		*args = append(*args, derefArg)
		if !p.match(token.LParen) {
			return
		}
		noParens = false
	} else if !noParens {
		p.expect(token.LParen)
	}

	savedNoParens := p.callNoParens
	p.callNoParens = noParens
	needComma := false
	for {
		if !noParens && p.cur.Kind == token.RParen {
			p.advance()
			p.callNoParens = savedNoParens
			if savedNoParens {
				return
			}
			break
		}
		if needComma {
			p.expect(token.Comma)
		}
		*args = append(*args, p.parseExpParens(noParens))
		if noParens {
			if p.cur.Kind == token.Colon {
				break
			}
			p.callNoParens = savedNoParens
			return
		}
		needComma = true
	}
	p.callNoParens = savedNoParens

	for {
		var e ast.Expr
		switch p.cur.Kind {
		case token.Colon:
			e = p.parseFunction(nil, false, false, false, nil)
		case token.Ident:
			e = p.parseFunction(nil, false, false, true, nil)
		case token.LParen:
			e = p.parseFunction(nil, false, true, true, nil)
		default:
			return
		}
		*args = append(*args, e)
		isLF := p.match(token.Linefeed)
		if p.cur.Kind == token.Lambda {
			p.advance()
			continue
		}
		if isLF {
			p.pushBack(token.Linefeed, "")
		}
		return
	}
}
