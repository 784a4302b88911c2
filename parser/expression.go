package parser

import (
	"strconv"
	"strings"

	"github.com/joshsmithxrm/ppds-sdk/ast"
)

// parseExpression parses an additive-precedence scalar expression.
func (p *parser) parseExpression() (ast.Expression, error) {
	return p.parseAdditive()
}

func (p *parser) parseAdditive() (ast.Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.atPunct("+") || p.atPunct("-") {
		op := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Position: op.pos, Op: op.text, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.atPunct("*") || p.atPunct("/") || p.atPunct("%") {
		op := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Position: op.pos, Op: op.text, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Expression, error) {
	if p.atPunct("-") {
		op := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Position: op.pos, Op: "-", Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (ast.Expression, error) {
	pos := p.cur().pos
	switch {
	case p.atPunct("("):
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &ast.Parenthesis{Position: pos, Inner: inner}, nil
	case p.at(tokNumber):
		t := p.advance()
		if strings.Contains(t.text, ".") {
			f, err := strconv.ParseFloat(t.text, 64)
			if err != nil {
				return nil, p.errorf("invalid numeric literal")
			}
			return &ast.Literal{Position: t.pos, Kind: ast.LiteralFloat, Value: f}, nil
		}
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer literal")
		}
		return &ast.Literal{Position: t.pos, Kind: ast.LiteralInt, Value: n}, nil
	case p.at(tokString):
		t := p.advance()
		return &ast.Literal{Position: t.pos, Kind: ast.LiteralString, Value: t.text}, nil
	case p.at(tokVariable):
		t := p.advance()
		return &ast.Variable{Position: t.pos, Name: t.text[1:]}, nil
	case p.atKeyword("NULL"):
		t := p.advance()
		return &ast.Literal{Position: t.pos, Kind: ast.LiteralNull, Value: nil}, nil
	case p.atKeyword("TRUE"):
		t := p.advance()
		return &ast.Literal{Position: t.pos, Kind: ast.LiteralBool, Value: true}, nil
	case p.atKeyword("FALSE"):
		t := p.advance()
		return &ast.Literal{Position: t.pos, Kind: ast.LiteralBool, Value: false}, nil
	case p.atKeyword("CASE"):
		return p.parseCase()
	case p.atKeyword("IIF"):
		return p.parseIif()
	case p.atKeyword("CAST"):
		return p.parseCast()
	case p.at(tokIdent):
		return p.parseIdentOrCall()
	}
	return nil, p.errorf("expected an expression")
}

func (p *parser) parseIdentOrCall() (ast.Expression, error) {
	pos := p.cur().pos
	name := p.advance().text
	if p.atPunct("(") {
		p.advance()
		fc := &ast.FunctionCall{Position: pos, Name: strings.ToUpper(name)}
		if p.atPunct("*") {
			p.advance()
			fc.Star = true
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return fc, nil
		}
		if p.atKeyword("DISTINCT") {
			p.advance()
			fc.Distinct = true
		}
		if !p.atPunct(")") {
			for {
				arg, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				fc.Args = append(fc.Args, arg)
				if p.atPunct(",") {
					p.advance()
					continue
				}
				break
			}
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return fc, nil
	}
	if p.atPunct(".") {
		p.advance()
		field, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return &ast.Column{Position: pos, Qualifier: name, Name: field.text}, nil
	}
	return &ast.Column{Position: pos, Name: name}, nil
}

func (p *parser) parseCase() (ast.Expression, error) {
	start, err := p.expectKeyword("CASE")
	if err != nil {
		return nil, err
	}
	c := &ast.Case{Position: start.pos}
	for p.atKeyword("WHEN") {
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKeyword("THEN"); err != nil {
			return nil, err
		}
		result, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		c.WhenList = append(c.WhenList, ast.WhenClause{Cond: cond, Result: result})
	}
	if len(c.WhenList) == 0 {
		return nil, p.errorf("expected at least one WHEN clause")
	}
	if p.atKeyword("ELSE") {
		p.advance()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		c.Else = e
	}
	if _, err := p.expectKeyword("END"); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *parser) parseIif() (ast.Expression, error) {
	start, err := p.expectKeyword("IIF")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(","); err != nil {
		return nil, err
	}
	whenTrue, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(","); err != nil {
		return nil, err
	}
	whenFalse, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return &ast.Iif{Position: start.pos, Cond: cond, WhenTrue: whenTrue, WhenFalse: whenFalse}, nil
}

func (p *parser) parseCast() (ast.Expression, error) {
	start, err := p.expectKeyword("CAST")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	inner, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("AS"); err != nil {
		return nil, err
	}
	t, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return &ast.Cast{Position: start.pos, Expr: inner, TargetType: strings.ToUpper(t.text)}, nil
}
