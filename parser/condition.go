package parser

import "github.com/joshsmithxrm/ppds-sdk/ast"

func (p *parser) parseCondition() (ast.Condition, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (ast.Condition, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("OR") {
		t := p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{Position: t.pos, Op: ast.LogicalOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Condition, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("AND") {
		t := p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{Position: t.pos, Op: ast.LogicalAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (ast.Condition, error) {
	if p.atKeyword("NOT") {
		t := p.advance()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.Not{Position: t.pos, Inner: inner}, nil
	}
	return p.parsePrimaryCondition()
}

func (p *parser) parsePrimaryCondition() (ast.Condition, error) {
	if p.atPunct("(") {
		// Disambiguate a parenthesized condition from a parenthesized
		// expression: try condition first, since `(a = b)` is far more
		// common than `(a + b)` as a bare boolean predicate, and a
		// parenthesized expression condition still ends up correctly
		// wrapped via the comparison/IN/etc. paths below once the
		// matching ')' is consumed.
		save := p.i
		p.advance()
		cond, err := p.parseCondition()
		if err == nil {
			if _, perr := p.expectPunct(")"); perr == nil {
				return cond, nil
			}
		}
		p.i = save
	}

	pos := p.cur().pos
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	negated := false
	if p.atKeyword("NOT") {
		p.advance()
		negated = true
	}

	switch {
	case p.atKeyword("BETWEEN"):
		p.advance()
		low, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKeyword("AND"); err != nil {
			return nil, err
		}
		high, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.Between{Position: pos, Expr: expr, Low: low, High: high, Negated: negated}, nil

	case p.atKeyword("IN"):
		p.advance()
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		var list []ast.Expression
		if !p.atPunct(")") {
			for {
				e, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				list = append(list, e)
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
		return &ast.In{Position: pos, Expr: expr, List: list, Negated: negated}, nil

	case p.atKeyword("LIKE"):
		p.advance()
		if !p.at(tokString) {
			return nil, p.errorf("expected a string literal pattern after LIKE")
		}
		t := p.advance()
		pattern := &ast.Literal{Position: t.pos, Kind: ast.LiteralString, Value: t.text}
		return &ast.Like{Position: pos, Expr: expr, Pattern: pattern, Negated: negated}, nil
	}

	if negated {
		return nil, p.errorf("expected BETWEEN, IN, or LIKE after NOT")
	}

	if p.atKeyword("IS") {
		p.advance()
		isNegated := false
		if p.atKeyword("NOT") {
			p.advance()
			isNegated = true
		}
		if _, err := p.expectKeyword("NULL"); err != nil {
			return nil, err
		}
		return &ast.IsNull{Position: pos, Expr: expr, Negated: isNegated}, nil
	}

	if op, ok := p.comparisonOpAhead(); ok {
		p.advance()
		right, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.Comparison{Position: pos, Op: op, Left: expr, Right: right}, nil
	}

	// No condition-shaping keyword followed: the expression itself is
	// the predicate (e.g. a boolean scalar function, or a bare
	// @flag variable).
	return &ast.ExpressionCondition{Position: pos, Expr: expr}, nil
}

func (p *parser) comparisonOpAhead() (string, bool) {
	t := p.cur()
	if t.kind != tokPunct {
		return "", false
	}
	switch t.text {
	case "=", "<>", "<", "<=", ">", ">=":
		return t.text, true
	}
	return "", false
}
