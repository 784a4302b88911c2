package parser

import (
	"github.com/joshsmithxrm/ppds-sdk/ast"
	"github.com/joshsmithxrm/ppds-sdk/queryerr"
)

// rejectTop consumes an optional TOP clause (bare or parenthesized) and
// always fails: UPDATE/DELETE never accept TOP in this dialect.
func (p *parser) rejectTop(stmtName string) error {
	if !p.atKeyword("TOP") {
		return nil
	}
	p.advance()
	if p.atPunct("(") {
		p.advance()
		for !p.atPunct(")") && !p.at(tokEOF) {
			p.advance()
		}
		if p.atPunct(")") {
			p.advance()
		}
	} else if p.at(tokNumber) {
		p.advance()
	}
	return queryerr.ErrInvalidRequest.New("TOP is not supported on " + stmtName)
}

func (p *parser) parseInsert() (ast.Statement, error) {
	start, err := p.expectKeyword("INSERT")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var cols []string
	for {
		c, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		cols = append(cols, c.text)
		if p.atPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}

	ins := &ast.Insert{Position: start.pos, Table: table.text, Columns: cols}

	if p.atKeyword("SELECT") {
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		ins.Select = sel
		return ins, nil
	}

	if _, err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	for {
		row, err := p.parseValueTuple()
		if err != nil {
			return nil, err
		}
		ins.Rows = append(ins.Rows, row)
		if p.atPunct(",") {
			p.advance()
			continue
		}
		break
	}
	return ins, nil
}

func (p *parser) parseValueTuple() ([]ast.Expression, error) {
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var vals []ast.Expression
	for {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		vals = append(vals, e)
		if p.atPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return vals, nil
}

func (p *parser) parseUpdate() (ast.Statement, error) {
	start, err := p.expectKeyword("UPDATE")
	if err != nil {
		return nil, err
	}
	if err := p.rejectTop("UPDATE"); err != nil {
		return nil, err
	}
	table, err := p.parseTableSource()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	upd := &ast.Update{Position: start.pos, Table: table}
	for {
		col, err := p.parseColumn()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct("="); err != nil {
			return nil, err
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		upd.SetClauses = append(upd.SetClauses, ast.SetClause{Column: col, Expr: expr})
		if p.atPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if p.atKeyword("WHERE") {
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		upd.Where = cond
	}
	return upd, nil
}

func (p *parser) parseDelete() (ast.Statement, error) {
	start, err := p.expectKeyword("DELETE")
	if err != nil {
		return nil, err
	}
	if err := p.rejectTop("DELETE"); err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.parseTableSource()
	if err != nil {
		return nil, err
	}
	del := &ast.Delete{Position: start.pos, Table: table}
	if p.atKeyword("WHERE") {
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		del.Where = cond
	}
	return del, nil
}

func (p *parser) parseDeclare() (ast.Statement, error) {
	start, err := p.expectKeyword("DECLARE")
	if err != nil {
		return nil, err
	}
	if !p.at(tokVariable) {
		return nil, p.errorf("expected a variable name after DECLARE")
	}
	name := p.advance().text[1:]
	t, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	decl := &ast.Declare{Position: start.pos, Name: name, SqlType: t.text}
	if p.atPunct("=") {
		p.advance()
		init, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		decl.Init = init
	}
	return decl, nil
}

func (p *parser) parseSet() (ast.Statement, error) {
	start, err := p.expectKeyword("SET")
	if err != nil {
		return nil, err
	}
	if !p.at(tokVariable) {
		return nil, p.errorf("expected a variable name after SET")
	}
	name := p.advance().text[1:]
	if _, err := p.expectPunct("="); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.Set{Position: start.pos, Name: name, Expr: expr}, nil
}
