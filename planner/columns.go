package planner

import "github.com/joshsmithxrm/ppds-sdk/ast"

// collectColumns returns every Column referenced by expr, in traversal
// order. Used to build the projection list for a DML source scan: the
// columns a SET expression reads have to be present on the row before
// the expression can be evaluated.
func collectColumns(expr ast.Expression) []*ast.Column {
	var out []*ast.Column
	walkExprColumns(expr, &out)
	return out
}

func walkExprColumns(expr ast.Expression, out *[]*ast.Column) {
	switch e := expr.(type) {
	case *ast.Column:
		*out = append(*out, e)
	case *ast.FunctionCall:
		for _, a := range e.Args {
			walkExprColumns(a, out)
		}
	case *ast.Unary:
		walkExprColumns(e.Operand, out)
	case *ast.Binary:
		walkExprColumns(e.Left, out)
		walkExprColumns(e.Right, out)
	case *ast.Case:
		for _, w := range e.WhenList {
			walkCondColumns(w.Cond, out)
			walkExprColumns(w.Result, out)
		}
		if e.Else != nil {
			walkExprColumns(e.Else, out)
		}
	case *ast.Iif:
		walkCondColumns(e.Cond, out)
		walkExprColumns(e.WhenTrue, out)
		walkExprColumns(e.WhenFalse, out)
	case *ast.Cast:
		walkExprColumns(e.Expr, out)
	case *ast.Parenthesis:
		walkExprColumns(e.Inner, out)
	}
}

func walkCondColumns(cond ast.Condition, out *[]*ast.Column) {
	switch c := cond.(type) {
	case *ast.Comparison:
		walkExprColumns(c.Left, out)
		walkExprColumns(c.Right, out)
	case *ast.Like:
		walkExprColumns(c.Expr, out)
	case *ast.IsNull:
		walkExprColumns(c.Expr, out)
	case *ast.In:
		walkExprColumns(c.Expr, out)
		for _, v := range c.List {
			walkExprColumns(v, out)
		}
	case *ast.Between:
		walkExprColumns(c.Expr, out)
		walkExprColumns(c.Low, out)
		walkExprColumns(c.High, out)
	case *ast.Logical:
		walkCondColumns(c.Left, out)
		walkCondColumns(c.Right, out)
	case *ast.Not:
		walkCondColumns(c.Inner, out)
	case *ast.ExpressionCondition:
		walkExprColumns(c.Expr, out)
	}
}

func colKey(qualifier, name string) string {
	return lowerEntity(qualifier) + "." + lowerEntity(name)
}
