// Package ast defines the closed tagged-union AST produced by the
// parser: Statement, Expression and Condition each have a fixed set of
// concrete implementations. Every node carries the byte offset of its
// first token so that later stages (parse errors, residual-condition
// diagnostics) can point back into the source text.
package ast

// Statement is the root of any parsed SQL statement.
type Statement interface {
	Pos() int
	stmtNode()
}

// Expression is a scalar-valued AST node.
type Expression interface {
	Pos() int
	exprNode()
}

// Condition is a boolean-valued AST node used in WHERE/HAVING/ON/join
// clauses.
type Condition interface {
	Pos() int
	condNode()
}
