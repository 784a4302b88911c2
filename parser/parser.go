// Package parser turns source text into an ast.Statement. It is a
// hand-written recursive-descent parser: the grammar is small enough
// that a parser-generator would cost more than it saves, and the
// dialect (T-SQL-flavored, targeting a FetchXML-backed store) doesn't
// match any off-the-shelf SQL grammar closely enough to reuse one.
package parser

import (
	"strconv"
	"strings"

	"github.com/joshsmithxrm/ppds-sdk/ast"
	"github.com/joshsmithxrm/ppds-sdk/queryerr"
)

// Parse parses a single SQL statement and returns its AST, or a
// *queryerr.ParseError carrying the byte offset of the failure.
func Parse(text string) (ast.Statement, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if !p.at(tokEOF) {
		return nil, p.errorf("unexpected trailing input")
	}
	return stmt, nil
}

type parser struct {
	toks []token
	i    int
}

func newLexError(pos int, msg string) error {
	return queryerr.NewParseError(pos, msg)
}

func (p *parser) errorf(msg string) error {
	return queryerr.NewParseError(p.cur().pos, msg)
}

func (p *parser) cur() token { return p.toks[p.i] }

func (p *parser) at(k tokenKind) bool { return p.cur().kind == k }

// atKeyword reports whether the current token is an identifier equal
// (case-insensitively) to kw.
func (p *parser) atKeyword(kw string) bool {
	t := p.cur()
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (p *parser) atPunct(s string) bool {
	t := p.cur()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) advance() token {
	t := p.cur()
	if p.i < len(p.toks)-1 {
		p.i++
	}
	return t
}

func (p *parser) expectKeyword(kw string) (token, error) {
	if !p.atKeyword(kw) {
		return token{}, p.errorf("expected '" + kw + "'")
	}
	return p.advance(), nil
}

func (p *parser) expectPunct(s string) (token, error) {
	if !p.atPunct(s) {
		return token{}, p.errorf("expected '" + s + "'")
	}
	return p.advance(), nil
}

func (p *parser) expectIdent() (token, error) {
	if !p.at(tokIdent) {
		return token{}, p.errorf("expected identifier")
	}
	return p.advance(), nil
}

func (p *parser) parseStatement() (ast.Statement, error) {
	pos := p.cur().pos
	if p.atKeyword("EXPLAIN") {
		p.advance()
		inner, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		return &ast.Explain{Position: pos, Inner: inner}, nil
	}
	switch {
	case p.atKeyword("SELECT"):
		return p.parseSelectOrUnion()
	case p.atKeyword("INSERT"):
		return p.parseInsert()
	case p.atKeyword("UPDATE"):
		return p.parseUpdate()
	case p.atKeyword("DELETE"):
		return p.parseDelete()
	case p.atKeyword("DECLARE"):
		return p.parseDeclare()
	case p.atKeyword("SET"):
		return p.parseSet()
	}
	return nil, p.errorf("expected a SQL statement")
}

func (p *parser) parseSelectOrUnion() (ast.Statement, error) {
	left, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	var stmt ast.Statement = left
	for p.atKeyword("UNION") {
		pos := p.cur().pos
		p.advance()
		all := false
		if p.atKeyword("ALL") {
			all = true
			p.advance()
		}
		right, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		stmt = &ast.Union{Position: pos, Left: stmt, Right: right, All: all}
	}
	return stmt, nil
}

func (p *parser) parseSelect() (*ast.Select, error) {
	start, err := p.expectKeyword("SELECT")
	if err != nil {
		return nil, err
	}
	sel := &ast.Select{Position: start.pos}

	if p.atKeyword("TOP") {
		p.advance()
		if !p.at(tokNumber) {
			return nil, p.errorf("expected integer after TOP")
		}
		n, err := strconv.ParseInt(p.advance().text, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid TOP value")
		}
		sel.Top = &n
	}
	if p.atKeyword("DISTINCT") {
		p.advance()
		sel.Distinct = true
	}

	items, err := p.parseSelectList()
	if err != nil {
		return nil, err
	}
	sel.SelectList = items

	if _, err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	from, err := p.parseTableSource()
	if err != nil {
		return nil, err
	}
	sel.From = from

	for p.atAnyJoinKeyword() {
		j, err := p.parseJoin()
		if err != nil {
			return nil, err
		}
		sel.Joins = append(sel.Joins, j)
	}

	if p.atKeyword("WHERE") {
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		sel.Where = cond
	}

	if p.atKeyword("GROUP") {
		p.advance()
		if _, err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		items, err := p.parseGroupByList()
		if err != nil {
			return nil, err
		}
		sel.GroupBy = items
	}

	if p.atKeyword("HAVING") {
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		sel.Having = cond
	}

	if p.atKeyword("ORDER") {
		p.advance()
		if _, err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		items, err := p.parseOrderByList()
		if err != nil {
			return nil, err
		}
		sel.OrderBy = items
	}

	return sel, nil
}

func (p *parser) parseSelectList() ([]ast.SelectItem, error) {
	var items []ast.SelectItem
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.atPunct(",") {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

func (p *parser) parseSelectItem() (ast.SelectItem, error) {
	pos := p.cur().pos
	if p.atPunct("*") {
		p.advance()
		return ast.SelectItem{Expr: &ast.Star{Position: pos}}, nil
	}
	// qualifier.* lookahead
	if p.at(tokIdent) {
		save := p.i
		name := p.advance().text
		if p.atPunct(".") {
			p.advance()
			if p.atPunct("*") {
				p.advance()
				return ast.SelectItem{Expr: &ast.Star{Position: pos, Qualifier: name}}, nil
			}
		}
		p.i = save
	}
	expr, err := p.parseExpression()
	if err != nil {
		return ast.SelectItem{}, err
	}
	alias := ""
	if p.atKeyword("AS") {
		p.advance()
		t, err := p.expectIdent()
		if err != nil {
			return ast.SelectItem{}, err
		}
		alias = t.text
	} else if p.at(tokIdent) && !isKeyword(strings.ToUpper(p.cur().text)) {
		alias = p.advance().text
	}
	return ast.SelectItem{Expr: expr, Alias: alias}, nil
}

func (p *parser) parseTableSource() (ast.TableSource, error) {
	t, err := p.expectIdent()
	if err != nil {
		return ast.TableSource{}, err
	}
	ts := ast.TableSource{Name: t.text}
	if p.atKeyword("AS") {
		p.advance()
		a, err := p.expectIdent()
		if err != nil {
			return ast.TableSource{}, err
		}
		ts.Alias = a.text
	} else if p.at(tokIdent) && !isKeyword(strings.ToUpper(p.cur().text)) {
		ts.Alias = p.advance().text
	}
	return ts, nil
}

func (p *parser) atAnyJoinKeyword() bool {
	return p.atKeyword("JOIN") || p.atKeyword("INNER") || p.atKeyword("LEFT") ||
		p.atKeyword("RIGHT") || p.atKeyword("FULL")
}

func (p *parser) parseJoin() (ast.Join, error) {
	jt := ast.JoinInner
	switch {
	case p.atKeyword("INNER"):
		p.advance()
	case p.atKeyword("LEFT"):
		p.advance()
		jt = ast.JoinLeft
		if p.atKeyword("OUTER") {
			p.advance()
		}
	case p.atKeyword("RIGHT"):
		p.advance()
		jt = ast.JoinRight
		if p.atKeyword("OUTER") {
			p.advance()
		}
	case p.atKeyword("FULL"):
		p.advance()
		jt = ast.JoinFull
		if p.atKeyword("OUTER") {
			p.advance()
		}
	}
	if _, err := p.expectKeyword("JOIN"); err != nil {
		return ast.Join{}, err
	}
	table, err := p.parseTableSource()
	if err != nil {
		return ast.Join{}, err
	}
	if _, err := p.expectKeyword("ON"); err != nil {
		return ast.Join{}, err
	}
	on, err := p.parseCondition()
	if err != nil {
		return ast.Join{}, err
	}
	return ast.Join{Table: table, Type: jt, On: on}, nil
}

func (p *parser) parseGroupByList() ([]ast.GroupByItem, error) {
	var items []ast.GroupByItem
	for {
		item, err := p.parseGroupByItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.atPunct(",") {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

func (p *parser) parseGroupByItem() (ast.GroupByItem, error) {
	if fn := p.dateGroupFuncAhead(); fn != ast.DateGroupNone {
		p.advance() // function name
		if _, err := p.expectPunct("("); err != nil {
			return ast.GroupByItem{}, err
		}
		col, err := p.parseColumn()
		if err != nil {
			return ast.GroupByItem{}, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return ast.GroupByItem{}, err
		}
		return ast.GroupByItem{Column: col, DateFunc: fn}, nil
	}
	col, err := p.parseColumn()
	if err != nil {
		return ast.GroupByItem{}, err
	}
	return ast.GroupByItem{Column: col}, nil
}

func (p *parser) dateGroupFuncAhead() ast.DateGroupFunc {
	if !p.at(tokIdent) {
		return ast.DateGroupNone
	}
	upper := strings.ToUpper(p.cur().text)
	switch upper {
	case "YEAR", "MONTH", "DAY", "QUARTER", "WEEK":
		if p.i+1 < len(p.toks) && p.toks[p.i+1].kind == tokPunct && p.toks[p.i+1].text == "(" {
			return ast.DateGroupFunc(upper)
		}
	}
	return ast.DateGroupNone
}

func (p *parser) parseOrderByList() ([]ast.OrderByItem, error) {
	var items []ast.OrderByItem
	for {
		col, err := p.parseColumn()
		if err != nil {
			return nil, err
		}
		desc := false
		if p.atKeyword("DESC") {
			p.advance()
			desc = true
		} else if p.atKeyword("ASC") {
			p.advance()
		}
		items = append(items, ast.OrderByItem{Column: col, Descending: desc})
		if p.atPunct(",") {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

func (p *parser) parseColumn() (ast.Column, error) {
	pos := p.cur().pos
	t, err := p.expectIdent()
	if err != nil {
		return ast.Column{}, err
	}
	if p.atPunct(".") {
		p.advance()
		name, err := p.expectIdent()
		if err != nil {
			return ast.Column{}, err
		}
		return ast.Column{Position: pos, Qualifier: t.text, Name: name.text}, nil
	}
	return ast.Column{Position: pos, Name: t.text}, nil
}
