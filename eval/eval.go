// Package eval implements the expression/condition evaluator:
// per-row evaluation of scalar expressions and conditions,
// the mandated built-in scalar function registry, CASE/IIF, and
// variable scope integration. SQL three-valued logic is flattened to
// bool only at condition boundaries; expression evaluation propagates
// null verbatim.
package eval

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/joshsmithxrm/ppds-sdk/ast"
	"github.com/joshsmithxrm/ppds-sdk/queryerr"
	"github.com/joshsmithxrm/ppds-sdk/row"
	"github.com/joshsmithxrm/ppds-sdk/vars"
)

// Evaluator evaluates expressions/conditions against a QueryRow, with
// an optional variable scope for @variable references.
type Evaluator struct {
	Scope *vars.Scope
}

// New returns an Evaluator with no variable scope configured.
func New() *Evaluator { return &Evaluator{} }

// WithScope returns an Evaluator using scope for @variable resolution.
func WithScope(scope *vars.Scope) *Evaluator { return &Evaluator{Scope: scope} }

// Evaluate computes the value of expr against r.
func (e *Evaluator) Evaluate(expr ast.Expression, r *row.QueryRow) (interface{}, error) {
	switch ex := expr.(type) {
	case *ast.Literal:
		return ex.Value, nil
	case *ast.Column:
		if r == nil {
			return nil, nil
		}
		if v, ok := r.Get(columnKey(ex)); ok {
			return v.Plain(), nil
		}
		return nil, nil
	case *ast.Variable:
		if e.Scope == nil {
			return nil, queryerr.ErrExecutionFailed.New("no variable scope configured for @" + ex.Name)
		}
		return e.Scope.Get(ex.Name)
	case *ast.Parenthesis:
		return e.Evaluate(ex.Inner, r)
	case *ast.Unary:
		return e.evalUnary(ex, r)
	case *ast.Binary:
		return e.evalBinary(ex, r)
	case *ast.Case:
		return e.evalCase(ex, r)
	case *ast.Iif:
		ok, err := e.EvaluateCondition(ex.Cond, r)
		if err != nil {
			return nil, err
		}
		if ok {
			return e.Evaluate(ex.WhenTrue, r)
		}
		return e.Evaluate(ex.WhenFalse, r)
	case *ast.Cast:
		return e.evalCast(ex, r)
	case *ast.FunctionCall:
		return e.evalFunction(ex, r)
	case *ast.Star:
		return nil, queryerr.ErrTypeMismatch.New("'*' is not a scalar expression")
	}
	return nil, queryerr.ErrExecutionFailed.New("unsupported expression node")
}

func columnKey(c *ast.Column) string {
	if c.Qualifier != "" {
		return strings.ToLower(c.Qualifier) + "." + strings.ToLower(c.Name)
	}
	return strings.ToLower(c.Name)
}

func (e *Evaluator) evalUnary(ex *ast.Unary, r *row.QueryRow) (interface{}, error) {
	v, err := e.Evaluate(ex.Operand, r)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	switch ex.Op {
	case "-":
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, queryerr.ErrTypeMismatch.New("negation requires a numeric operand")
		}
		if i, ok := v.(int64); ok {
			return -i, nil
		}
		return -f, nil
	case "NOT":
		b, err := cast.ToBoolE(v)
		if err != nil {
			return nil, queryerr.ErrTypeMismatch.New("NOT requires a boolean operand")
		}
		return !b, nil
	}
	return nil, queryerr.ErrTypeMismatch.New("unsupported unary operator " + ex.Op)
}

func (e *Evaluator) evalBinary(ex *ast.Binary, r *row.QueryRow) (interface{}, error) {
	l, err := e.Evaluate(ex.Left, r)
	if err != nil {
		return nil, err
	}
	rv, err := e.Evaluate(ex.Right, r)
	if err != nil {
		return nil, err
	}
	if l == nil || rv == nil {
		return nil, nil
	}
	lf, lerr := cast.ToFloat64E(l)
	rf, rerr := cast.ToFloat64E(rv)
	if lerr != nil || rerr != nil {
		if ex.Op == "+" {
			ls, lok := l.(string)
			rs, rok := rv.(string)
			if lok && rok {
				return ls + rs, nil
			}
		}
		return nil, queryerr.ErrTypeMismatch.New("arithmetic requires numeric operands")
	}
	switch ex.Op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, queryerr.ErrExecutionFailed.New("division by zero")
		}
		return lf / rf, nil
	case "%":
		if rf == 0 {
			return nil, queryerr.ErrExecutionFailed.New("division by zero")
		}
		return float64(int64(lf) % int64(rf)), nil
	}
	return nil, queryerr.ErrTypeMismatch.New("unsupported binary operator " + ex.Op)
}

func (e *Evaluator) evalCase(ex *ast.Case, r *row.QueryRow) (interface{}, error) {
	for _, w := range ex.WhenList {
		ok, err := e.EvaluateCondition(w.Cond, r)
		if err != nil {
			return nil, err
		}
		if ok {
			return e.Evaluate(w.Result, r)
		}
	}
	if ex.Else != nil {
		return e.Evaluate(ex.Else, r)
	}
	return nil, nil
}

func (e *Evaluator) evalCast(ex *ast.Cast, r *row.QueryRow) (interface{}, error) {
	v, err := e.Evaluate(ex.Expr, r)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	switch strings.ToUpper(ex.TargetType) {
	case "INT", "INTEGER", "BIGINT":
		return cast.ToInt64E(v)
	case "FLOAT", "REAL", "DECIMAL", "MONEY", "NUMERIC":
		return cast.ToFloat64E(v)
	case "VARCHAR", "NVARCHAR", "CHAR", "NCHAR", "TEXT", "STRING":
		return cast.ToStringE(v)
	case "BIT", "BOOLEAN", "BOOL":
		return cast.ToBoolE(v)
	}
	return nil, queryerr.ErrTypeMismatch.New("unsupported CAST target type " + ex.TargetType)
}

// EvaluateCondition evaluates cond against r, collapsing SQL
// three-valued logic to bool: unknown (null-propagated) collapses to
// false.
func (e *Evaluator) EvaluateCondition(cond ast.Condition, r *row.QueryRow) (bool, error) {
	switch c := cond.(type) {
	case *ast.Comparison:
		return e.evalComparison(c, r)
	case *ast.Like:
		return e.evalLike(c, r)
	case *ast.IsNull:
		v, err := e.Evaluate(c.Expr, r)
		if err != nil {
			return false, err
		}
		isNull := v == nil
		if c.Negated {
			return !isNull, nil
		}
		return isNull, nil
	case *ast.In:
		return e.evalIn(c, r)
	case *ast.Between:
		return e.evalBetween(c, r)
	case *ast.Logical:
		left, err := e.EvaluateCondition(c.Left, r)
		if err != nil {
			return false, err
		}
		if c.Op == ast.LogicalAnd && !left {
			return false, nil
		}
		if c.Op == ast.LogicalOr && left {
			return true, nil
		}
		return e.EvaluateCondition(c.Right, r)
	case *ast.Not:
		inner, err := e.EvaluateCondition(c.Inner, r)
		if err != nil {
			return false, err
		}
		return !inner, nil
	case *ast.ExpressionCondition:
		v, err := e.Evaluate(c.Expr, r)
		if err != nil {
			return false, err
		}
		if v == nil {
			return false, nil
		}
		return cast.ToBoolE(v)
	}
	return false, queryerr.ErrExecutionFailed.New("unsupported condition node")
}

func (e *Evaluator) evalComparison(c *ast.Comparison, r *row.QueryRow) (bool, error) {
	l, err := e.Evaluate(c.Left, r)
	if err != nil {
		return false, err
	}
	rv, err := e.Evaluate(c.Right, r)
	if err != nil {
		return false, err
	}
	if l == nil || rv == nil {
		return false, nil
	}
	cmp, ok := compare(l, rv)
	if !ok {
		return false, queryerr.ErrTypeMismatch.New("incomparable operand types")
	}
	switch c.Op {
	case "=":
		return cmp == 0, nil
	case "<>":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	}
	return false, queryerr.ErrTypeMismatch.New("unsupported comparison operator " + c.Op)
}

// compare orders two runtime values: strings compare case-insensitively
// lexicographically, numerics widen to float64, values that both convert
// to bool compare as booleans, and any other pair is reported as not
// comparable (second result false).
func compare(l, r interface{}) (int, bool) {
	ls, lok := l.(string)
	rs, rok := r.(string)
	if lok && rok {
		lf, rf := strings.ToLower(ls), strings.ToLower(rs)
		switch {
		case lf < rf:
			return -1, true
		case lf > rf:
			return 1, true
		default:
			return 0, true
		}
	}
	lf, lerr := cast.ToFloat64E(l)
	rf, rerr := cast.ToFloat64E(r)
	if lerr == nil && rerr == nil {
		switch {
		case lf < rf:
			return -1, true
		case lf > rf:
			return 1, true
		default:
			return 0, true
		}
	}
	lb, lberr := cast.ToBoolE(l)
	rb, rberr := cast.ToBoolE(r)
	if lberr == nil && rberr == nil {
		if lb == rb {
			return 0, true
		}
		if !lb && rb {
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func (e *Evaluator) evalLike(c *ast.Like, r *row.QueryRow) (bool, error) {
	v, err := e.Evaluate(c.Expr, r)
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return false, queryerr.ErrTypeMismatch.New("LIKE requires a string operand")
	}
	pattern := c.Pattern.Value.(string)
	matched := likeMatch(strings.ToLower(s), strings.ToLower(pattern))
	if c.Negated {
		return !matched, nil
	}
	return matched, nil
}

func likeMatch(s, pattern string) bool {
	hasPrefix := strings.HasPrefix(pattern, "%")
	hasSuffix := strings.HasSuffix(pattern, "%")
	switch {
	case hasPrefix && hasSuffix:
		return strings.Contains(s, strings.Trim(pattern, "%"))
	case hasSuffix:
		return strings.HasPrefix(s, strings.TrimSuffix(pattern, "%"))
	case hasPrefix:
		return strings.HasSuffix(s, strings.TrimPrefix(pattern, "%"))
	default:
		return s == pattern
	}
}

func (e *Evaluator) evalIn(c *ast.In, r *row.QueryRow) (bool, error) {
	v, err := e.Evaluate(c.Expr, r)
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, nil
	}
	found := false
	for _, item := range c.List {
		iv, err := e.Evaluate(item, r)
		if err != nil {
			return false, err
		}
		if iv == nil {
			continue
		}
		if cmp, ok := compare(v, iv); ok && cmp == 0 {
			found = true
			break
		}
	}
	if c.Negated {
		return !found, nil
	}
	return found, nil
}

func (e *Evaluator) evalBetween(c *ast.Between, r *row.QueryRow) (bool, error) {
	v, err := e.Evaluate(c.Expr, r)
	if err != nil {
		return false, err
	}
	lo, err := e.Evaluate(c.Low, r)
	if err != nil {
		return false, err
	}
	hi, err := e.Evaluate(c.High, r)
	if err != nil {
		return false, err
	}
	if v == nil || lo == nil || hi == nil {
		return false, nil
	}
	loCmp, ok1 := compare(v, lo)
	hiCmp, ok2 := compare(v, hi)
	if !ok1 || !ok2 {
		return false, queryerr.ErrTypeMismatch.New("incomparable operand types in BETWEEN")
	}
	within := loCmp >= 0 && hiCmp <= 0
	if c.Negated {
		return !within, nil
	}
	return within, nil
}
