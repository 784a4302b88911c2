package fetchxml

import (
	"strings"

	"github.com/joshsmithxrm/ppds-sdk/ast"
)

// splitCondition flattens the top-level AND chain of cond into
// conjuncts, attempts to push each one into FetchXML, and returns the
// combined pushable filter tree plus the list of conjuncts that
// couldn't be pushed (as original AST nodes, for ClientFilterNode).
func (g *gen) splitCondition(cond ast.Condition, aliasMap map[string]*entity, root *entity) (*pushedFilter, []ast.Condition) {
	conjuncts := flattenAnd(cond)
	var pushed []*pushedFilter
	var residuals []ast.Condition
	for _, c := range conjuncts {
		if pf, ok := tryPush(c, aliasMap, root); ok {
			pushed = append(pushed, pf)
		} else {
			residuals = append(residuals, c)
		}
	}
	if len(pushed) == 0 {
		return nil, residuals
	}
	if len(pushed) == 1 {
		return pushed[0], residuals
	}
	return &pushedFilter{filter: "and", children: pushed}, residuals
}

func flattenAnd(cond ast.Condition) []ast.Condition {
	if l, ok := cond.(*ast.Logical); ok && l.Op == ast.LogicalAnd {
		return append(flattenAnd(l.Left), flattenAnd(l.Right)...)
	}
	return []ast.Condition{cond}
}

// combineAnd folds a list of residual conjuncts back into a single
// Condition for ClientFilterNode, right-associating with AND.
func combineAnd(conds []ast.Condition) ast.Condition {
	if len(conds) == 0 {
		return nil
	}
	result := conds[len(conds)-1]
	for i := len(conds) - 2; i >= 0; i-- {
		result = &ast.Logical{Position: conds[i].Pos(), Op: ast.LogicalAnd, Left: conds[i], Right: result}
	}
	return result
}

// tryPush attempts to express cond as FetchXML. Column-to-column
// comparisons, computed operands, and NOT are never pushable (they fall
// back to residual evaluation); nested AND/OR are pushable iff every
// leaf underneath them is.
func tryPush(cond ast.Condition, aliasMap map[string]*entity, root *entity) (*pushedFilter, bool) {
	switch c := cond.(type) {
	case *ast.Comparison:
		return pushComparison(c, aliasMap, root)
	case *ast.Like:
		return pushLike(c, aliasMap, root)
	case *ast.IsNull:
		col, ok := c.Expr.(*ast.Column)
		if !ok {
			return nil, false
		}
		op := "null"
		if c.Negated {
			op = "not-null"
		}
		return leaf(aliasMap, root, col, op, "", nil), true
	case *ast.In:
		col, ok := c.Expr.(*ast.Column)
		if !ok {
			return nil, false
		}
		values := make([]string, 0, len(c.List))
		for _, e := range c.List {
			v, ok := constantXmlValue(e)
			if !ok {
				return nil, false
			}
			values = append(values, v)
		}
		op := "in"
		if c.Negated {
			op = "not-in"
		}
		return leaf(aliasMap, root, col, op, "", values), true
	case *ast.Between:
		col, ok := c.Expr.(*ast.Column)
		if !ok {
			return nil, false
		}
		lo, ok1 := constantXmlValue(c.Low)
		hi, ok2 := constantXmlValue(c.High)
		if !ok1 || !ok2 {
			return nil, false
		}
		op := "between"
		if c.Negated {
			op = "not-between"
		}
		return leaf(aliasMap, root, col, op, "", []string{lo, hi}), true
	case *ast.Logical:
		left, lok := tryPush(c.Left, aliasMap, root)
		right, rok := tryPush(c.Right, aliasMap, root)
		if !lok || !rok {
			return nil, false
		}
		ftype := "and"
		if c.Op == ast.LogicalOr {
			ftype = "or"
		}
		return &pushedFilter{filter: ftype, children: []*pushedFilter{left, right}}, true
	default:
		// ast.Not and ast.ExpressionCondition are never pushed.
		return nil, false
	}
}

func pushComparison(c *ast.Comparison, aliasMap map[string]*entity, root *entity) (*pushedFilter, bool) {
	if col, ok := c.Left.(*ast.Column); ok {
		if v, ok := constantXmlValue(c.Right); ok {
			return leaf(aliasMap, root, col, compareOperator(c.Op), v, nil), true
		}
		return nil, false
	}
	if col, ok := c.Right.(*ast.Column); ok {
		if v, ok := constantXmlValue(c.Left); ok {
			return leaf(aliasMap, root, col, compareOperator(flipOperator(c.Op)), v, nil), true
		}
	}
	return nil, false
}

func flipOperator(op string) string {
	switch op {
	case "<":
		return ">"
	case "<=":
		return ">="
	case ">":
		return "<"
	case ">=":
		return "<="
	default:
		return op // = and <> are symmetric
	}
}

func compareOperator(op string) string {
	switch op {
	case "=":
		return "eq"
	case "<>":
		return "ne"
	case "<":
		return "lt"
	case "<=":
		return "le"
	case ">":
		return "gt"
	case ">=":
		return "ge"
	}
	return "eq"
}

func pushLike(c *ast.Like, aliasMap map[string]*entity, root *entity) (*pushedFilter, bool) {
	col, ok := c.Expr.(*ast.Column)
	if !ok {
		return nil, false
	}
	pattern := c.Pattern.Value.(string)
	op, value := likeOperator(pattern, c.Negated)
	return leaf(aliasMap, root, col, op, escapeAttr(value), nil), true
}

// likeOperator maps a LIKE pattern to the FetchXML operator per spec
// §4.2 step 7: '%x%' -> like, 'x%' -> begins-with, '%x' -> ends-with,
// bare 'x' -> like. Negated forms use the not-* variant (begins/ends
// become not-begin-with / not-end-with).
func likeOperator(pattern string, negated bool) (string, string) {
	hasPrefix := strings.HasPrefix(pattern, "%")
	hasSuffix := strings.HasSuffix(pattern, "%")
	switch {
	case hasPrefix && hasSuffix:
		if negated {
			return "not-like", pattern
		}
		return "like", pattern
	case hasSuffix && !hasPrefix:
		v := strings.TrimSuffix(pattern, "%")
		if negated {
			return "not-begin-with", v
		}
		return "begins-with", v
	case hasPrefix && !hasSuffix:
		v := strings.TrimPrefix(pattern, "%")
		if negated {
			return "not-end-with", v
		}
		return "ends-with", v
	default:
		if negated {
			return "not-like", pattern
		}
		return "like", pattern
	}
}

func leaf(aliasMap map[string]*entity, root *entity, col *ast.Column, op, value string, values []string) *pushedFilter {
	target := resolveEntity(aliasMap, col.Qualifier, root)
	target.addAttr(col.Name)
	return &pushedFilter{isLeaf: true, attr: strings.ToLower(col.Name), operator: op, value: value, values: values}
}

// constantXmlValue folds a literal, negated literal, or variable
// reference into the text that should appear as a FetchXML condition
// value. Variables are rendered as "@name" and substituted by the
// executor immediately before the request is sent (vars.SubstituteInFetchXml).
func constantXmlValue(expr ast.Expression) (string, bool) {
	switch e := expr.(type) {
	case *ast.Literal:
		s, err := formatLiteralValue(e.Value, e.Kind)
		if err != nil {
			return "", false
		}
		return s, true
	case *ast.Unary:
		if e.Op != "-" {
			return "", false
		}
		lit, ok := e.Operand.(*ast.Literal)
		if !ok {
			return "", false
		}
		switch lit.Kind {
		case ast.LiteralInt:
			return formatLiteralValue(-lit.Value.(int64), ast.LiteralInt)
		case ast.LiteralFloat:
			return formatLiteralValue(-lit.Value.(float64), ast.LiteralFloat)
		}
		return "", false
	case *ast.Variable:
		return "@" + e.Name, true
	case *ast.Parenthesis:
		return constantXmlValue(e.Inner)
	}
	return "", false
}
