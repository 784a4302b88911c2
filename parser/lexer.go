package parser

import (
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokVariable // @name
	tokNumber
	tokString
	tokPunct
)

type token struct {
	kind tokenKind
	text string // original text (identifiers upper-cased for keyword matching separately)
	pos  int
}

var keywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "AND": true, "OR": true, "NOT": true,
	"BETWEEN": true, "IN": true, "LIKE": true, "IS": true, "NULL": true,
	"GROUP": true, "BY": true, "HAVING": true, "ORDER": true, "ASC": true, "DESC": true,
	"JOIN": true, "INNER": true, "LEFT": true, "RIGHT": true, "FULL": true, "OUTER": true, "ON": true,
	"AS": true, "TOP": true, "DISTINCT": true, "UNION": true, "ALL": true,
	"INSERT": true, "INTO": true, "VALUES": true, "UPDATE": true, "SET": true, "DELETE": true,
	"DECLARE": true, "CASE": true, "WHEN": true, "THEN": true, "ELSE": true, "END": true,
	"IIF": true, "CAST": true, "EXPLAIN": true,
	"YEAR": true, "MONTH": true, "DAY": true, "QUARTER": true, "WEEK": true,
	"TRUE": true, "FALSE": true,
}

// isKeyword reports whether the upper-cased identifier text is a
// reserved word in this dialect.
func isKeyword(upper string) bool { return keywords[upper] }

type lexer struct {
	src  string
	pos  int
	toks []token
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	for {
		l.skipSpaceAndComments()
		if l.pos >= len(l.src) {
			l.toks = append(l.toks, token{kind: tokEOF, pos: l.pos})
			return l.toks, nil
		}
		start := l.pos
		c := l.src[l.pos]
		switch {
		case c == '@':
			l.pos++
			begin := l.pos
			for l.pos < len(l.src) && isIdentByte(l.src[l.pos]) {
				l.pos++
			}
			if l.pos == begin {
				return nil, newLexError(start, "expected identifier after '@'")
			}
			l.toks = append(l.toks, token{kind: tokVariable, text: "@" + l.src[begin:l.pos], pos: start})
		case isIdentStart(c):
			for l.pos < len(l.src) && isIdentByte(l.src[l.pos]) {
				l.pos++
			}
			l.toks = append(l.toks, token{kind: tokIdent, text: l.src[start:l.pos], pos: start})
		case c == '[':
			l.pos++
			begin := l.pos
			for l.pos < len(l.src) && l.src[l.pos] != ']' {
				l.pos++
			}
			if l.pos >= len(l.src) {
				return nil, newLexError(start, "unterminated bracketed identifier")
			}
			l.toks = append(l.toks, token{kind: tokIdent, text: l.src[begin:l.pos], pos: start})
			l.pos++ // consume ']'
		case c == '\'':
			s, err := l.readQuoted('\'')
			if err != nil {
				return nil, err
			}
			l.toks = append(l.toks, token{kind: tokString, text: s, pos: start})
		case c >= '0' && c <= '9':
			for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
				l.pos++
			}
			l.toks = append(l.toks, token{kind: tokNumber, text: l.src[start:l.pos], pos: start})
		default:
			p, err := l.readPunct()
			if err != nil {
				return nil, err
			}
			l.toks = append(l.toks, token{kind: tokPunct, text: p, pos: start})
		}
	}
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			l.pos++
			continue
		}
		if c == '-' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '-' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		break
	}
}

func (l *lexer) readQuoted(quote byte) (string, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == quote {
			if l.pos+1 < len(l.src) && l.src[l.pos+1] == quote {
				sb.WriteByte(quote)
				l.pos += 2
				continue
			}
			l.pos++
			return sb.String(), nil
		}
		sb.WriteByte(c)
		l.pos++
	}
	return "", newLexError(start, "unterminated string literal")
}

func (l *lexer) readPunct() (string, error) {
	two := ""
	if l.pos+1 < len(l.src) {
		two = l.src[l.pos : l.pos+2]
	}
	switch two {
	case "<>", "!=", "<=", ">=":
		l.pos += 2
		if two == "!=" {
			return "<>", nil
		}
		return two, nil
	}
	c := l.src[l.pos]
	switch c {
	case '=', '<', '>', '(', ')', ',', '.', '*', '+', '-', '/', '%':
		l.pos++
		return string(c), nil
	}
	return "", newLexError(l.pos, "unexpected character '"+string(c)+"'")
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
