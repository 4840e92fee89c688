package parser

import (
	"github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/token"
)

// parseTypes parses either a single type or a parenthesized tuple of
// types, used for a function's return-type annotation (§4.B.2).
func (p *Parser) parseTypes() []ast.TypeNode {
	if p.cur.Kind == token.LParen {
		p.advance()
		var types []ast.TypeNode
		for {
			types = append(types, p.parseType())
			if p.cur.Kind != token.Comma {
				break
			}
			p.advance()
		}
		p.expect(token.RParen)
		return types
	}
	return []ast.TypeNode{p.parseType()}
}

// parseType parses one type reference (component D): a built-in
// keyword type, a bare or generic-specialized name (UDT, enum, or
// bound typevar), a list type `[T]`, or a function type `(args) ->
// ret`. A trailing `?` marks the type nilable.
func (p *Parser) parseType() ast.TypeNode {
	pos := p.cur.Pos
	var result ast.TypeNode

	switch p.cur.Kind {
	case token.IntType, token.FloatType, token.StringType, token.AnyType, token.VoidType, token.Resource:
		name := p.cur.Kind.String()
		p.advance()
		result = &ast.SimpleType{Base: ast.Base{P: pos}, Name: name}
	case token.LBracket:
		p.advance()
		elem := p.parseType()
		p.expect(token.RBracket)
		result = &ast.ListType{Base: ast.Base{P: pos}, Elem: elem}
	case token.LParen:
		p.advance()
		var params []ast.TypeNode
		for p.cur.Kind != token.RParen {
			params = append(params, p.parseType())
			if p.cur.Kind == token.Comma {
				p.advance()
			}
		}
		p.expect(token.RParen)
		var ret ast.TypeNode
		if p.cur.Kind == token.CoDot {
			p.advance()
			ret = p.parseType()
		}
		result = &ast.FuncType{Base: ast.Base{P: pos}, Params: params, Return: ret}
	case token.Ident:
		name := p.cur.Lexeme
		p.advance()
		if bp, ok := p.sym.LookupBoundTypevar(name); ok {
			if bp.Bound != nil {
				result = bp.Bound
			} else {
				result = &ast.SimpleType{Base: ast.Base{P: pos}, Name: name}
			}
		} else if p.cur.Kind == token.Lt && !p.cur.WhitespaceBefore {
			p.advance()
			var specs []ast.TypeNode
			for {
				specs = append(specs, p.parseType())
				if p.cur.Kind != token.Comma {
					break
				}
				p.advance()
			}
			p.expect(token.Gt)
			p.overrideCont(false)
			result = &ast.GenericType{Base: ast.Base{P: pos}, Name: name, Specializers: specs}
		} else {
			result = &ast.SimpleType{Base: ast.Base{P: pos}, Name: name}
		}
	default:
		p.errorf(pos, "expected a type, got %s", p.cur.Kind)
		result = &ast.SimpleType{Base: ast.Base{P: pos}, Name: "any"}
	}

	if p.cur.Kind == token.Question {
		p.advance()
		return &ast.NilableType{Base: ast.Base{P: pos}, Elem: result}
	}
	return result
}
