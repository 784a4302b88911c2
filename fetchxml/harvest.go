package fetchxml

import "github.com/joshsmithxrm/ppds-sdk/ast"

// harvestColumns walks a residual condition (one that couldn't be
// pushed into FetchXML) and ensures every Column it touches is present
// as an <attribute> on the right entity, so the row has the data the
// client-side evaluator needs.
func harvestColumns(cond ast.Condition, aliasMap map[string]*entity, root *entity) {
	if cond == nil {
		return
	}
	switch c := cond.(type) {
	case *ast.Comparison:
		harvestExprColumns(c.Left, aliasMap, root)
		harvestExprColumns(c.Right, aliasMap, root)
	case *ast.Like:
		harvestExprColumns(c.Expr, aliasMap, root)
	case *ast.IsNull:
		harvestExprColumns(c.Expr, aliasMap, root)
	case *ast.In:
		harvestExprColumns(c.Expr, aliasMap, root)
		for _, e := range c.List {
			harvestExprColumns(e, aliasMap, root)
		}
	case *ast.Between:
		harvestExprColumns(c.Expr, aliasMap, root)
		harvestExprColumns(c.Low, aliasMap, root)
		harvestExprColumns(c.High, aliasMap, root)
	case *ast.Logical:
		harvestColumns(c.Left, aliasMap, root)
		harvestColumns(c.Right, aliasMap, root)
	case *ast.Not:
		harvestColumns(c.Inner, aliasMap, root)
	case *ast.ExpressionCondition:
		harvestExprColumns(c.Expr, aliasMap, root)
	}
}

// harvestExprColumns walks a computed expression (a scalar function
// call, CASE/IIF, arithmetic, ...) and adds every referenced Column as
// an <attribute>, recursively. Literals, variables, and stars carry no
// column reference.
func harvestExprColumns(expr ast.Expression, aliasMap map[string]*entity, root *entity) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *ast.Column:
		target := resolveEntity(aliasMap, e.Qualifier, root)
		target.addAttr(e.Name)
	case *ast.FunctionCall:
		for _, a := range e.Args {
			harvestExprColumns(a, aliasMap, root)
		}
	case *ast.Unary:
		harvestExprColumns(e.Operand, aliasMap, root)
	case *ast.Binary:
		harvestExprColumns(e.Left, aliasMap, root)
		harvestExprColumns(e.Right, aliasMap, root)
	case *ast.Case:
		for _, w := range e.WhenList {
			harvestColumns(w.Cond, aliasMap, root)
			harvestExprColumns(w.Result, aliasMap, root)
		}
		if e.Else != nil {
			harvestExprColumns(e.Else, aliasMap, root)
		}
	case *ast.Iif:
		harvestColumns(e.Cond, aliasMap, root)
		harvestExprColumns(e.WhenTrue, aliasMap, root)
		harvestExprColumns(e.WhenFalse, aliasMap, root)
	case *ast.Cast:
		harvestExprColumns(e.Expr, aliasMap, root)
	case *ast.Parenthesis:
		harvestExprColumns(e.Inner, aliasMap, root)
	}
}
