package eval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshsmithxrm/ppds-sdk/ast"
	"github.com/joshsmithxrm/ppds-sdk/row"
	"github.com/joshsmithxrm/ppds-sdk/vars"
)

func newRow(values map[string]interface{}) *row.QueryRow {
	r := row.NewQueryRow("account")
	for k, v := range values {
		r.Set(k, row.NewSimple(v))
	}
	return r
}

func col(name string) *ast.Column { return &ast.Column{Name: name} }

func lit(v interface{}, kind ast.LiteralKind) *ast.Literal { return &ast.Literal{Kind: kind, Value: v} }

func TestEvaluateColumnLookup(t *testing.T) {
	e := New()
	r := newRow(map[string]interface{}{"revenue": 100.0})
	v, err := e.Evaluate(col("revenue"), r)
	require.NoError(t, err)
	require.Equal(t, 100.0, v)
}

func TestEvaluateConditionComparison(t *testing.T) {
	e := New()
	r := newRow(map[string]interface{}{"revenue": 100.0})
	cond := &ast.Comparison{Op: ">", Left: col("revenue"), Right: lit(int64(50), ast.LiteralInt)}
	ok, err := e.EvaluateCondition(cond, r)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluateConditionNullCollapsesFalse(t *testing.T) {
	e := New()
	r := newRow(map[string]interface{}{})
	cond := &ast.Comparison{Op: "=", Left: col("missing"), Right: lit(int64(1), ast.LiteralInt)}
	ok, err := e.EvaluateCondition(cond, r)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEvaluateCaseFirstMatch(t *testing.T) {
	e := New()
	r := newRow(map[string]interface{}{"statecode": int64(1)})
	c := &ast.Case{
		WhenList: []ast.WhenClause{
			{Cond: &ast.Comparison{Op: "=", Left: col("statecode"), Right: lit(int64(0), ast.LiteralInt)}, Result: lit("inactive", ast.LiteralString)},
			{Cond: &ast.Comparison{Op: "=", Left: col("statecode"), Right: lit(int64(1), ast.LiteralInt)}, Result: lit("active", ast.LiteralString)},
		},
		Else: lit("unknown", ast.LiteralString),
	}
	v, err := e.Evaluate(c, r)
	require.NoError(t, err)
	require.Equal(t, "active", v)
}

func TestEvaluateIif(t *testing.T) {
	e := New()
	r := newRow(map[string]interface{}{"revenue": 10.0})
	iif := &ast.Iif{
		Cond:      &ast.Comparison{Op: ">", Left: col("revenue"), Right: lit(int64(5), ast.LiteralInt)},
		WhenTrue:  lit("big", ast.LiteralString),
		WhenFalse: lit("small", ast.LiteralString),
	}
	v, err := e.Evaluate(iif, r)
	require.NoError(t, err)
	require.Equal(t, "big", v)
}

func TestEvaluateVariableRequiresScope(t *testing.T) {
	e := New()
	_, err := e.Evaluate(&ast.Variable{Name: "x"}, newRow(nil))
	require.Error(t, err)

	scope := vars.NewScope()
	scope.Declare("@x", int64(5))
	e2 := WithScope(scope)
	v, err := e2.Evaluate(&ast.Variable{Name: "x"}, newRow(nil))
	require.NoError(t, err)
	require.Equal(t, int64(5), v)
}

func TestFunctionsStringBasics(t *testing.T) {
	e := New()
	r := newRow(nil)
	v, err := e.Evaluate(&ast.FunctionCall{Name: "UPPER", Args: []ast.Expression{lit("abc", ast.LiteralString)}}, r)
	require.NoError(t, err)
	require.Equal(t, "ABC", v)

	v, err = e.Evaluate(&ast.FunctionCall{Name: "REVERSE", Args: []ast.Expression{lit("abc", ast.LiteralString)}}, r)
	require.NoError(t, err)
	require.Equal(t, "cba", v)
}

func TestFunctionLen(t *testing.T) {
	e := New()
	v, err := e.Evaluate(&ast.FunctionCall{Name: "LEN", Args: []ast.Expression{lit("abc  ", ast.LiteralString)}}, newRow(nil))
	require.NoError(t, err)
	require.Equal(t, int64(3), v)
}

func TestFunctionLeftRight(t *testing.T) {
	e := New()
	r := newRow(nil)
	v, err := e.Evaluate(&ast.FunctionCall{Name: "LEFT", Args: []ast.Expression{lit("abcdef", ast.LiteralString), lit(int64(3), ast.LiteralInt)}}, r)
	require.NoError(t, err)
	require.Equal(t, "abc", v)

	v, err = e.Evaluate(&ast.FunctionCall{Name: "RIGHT", Args: []ast.Expression{lit("abcdef", ast.LiteralString), lit(int64(3), ast.LiteralInt)}}, r)
	require.NoError(t, err)
	require.Equal(t, "def", v)
}

func TestFunctionSubstringNegativeStart(t *testing.T) {
	e := New()
	v, err := e.Evaluate(&ast.FunctionCall{Name: "SUBSTRING", Args: []ast.Expression{
		lit("abcdef", ast.LiteralString), lit(int64(-1), ast.LiteralInt), lit(int64(4), ast.LiteralInt),
	}}, newRow(nil))
	require.NoError(t, err)
	require.Equal(t, "ab", v)
}

func TestFunctionReplaceCaseInsensitive(t *testing.T) {
	e := New()
	v, err := e.Evaluate(&ast.FunctionCall{Name: "REPLACE", Args: []ast.Expression{
		lit("Hello World", ast.LiteralString), lit("world", ast.LiteralString), lit("Go", ast.LiteralString),
	}}, newRow(nil))
	require.NoError(t, err)
	require.Equal(t, "Hello Go", v)
}

func TestFunctionCharIndex(t *testing.T) {
	e := New()
	v, err := e.Evaluate(&ast.FunctionCall{Name: "CHARINDEX", Args: []ast.Expression{
		lit("cd", ast.LiteralString), lit("abcdef", ast.LiteralString),
	}}, newRow(nil))
	require.NoError(t, err)
	require.Equal(t, int64(3), v)
}

func TestFunctionConcatNullSafe(t *testing.T) {
	e := New()
	v, err := e.Evaluate(&ast.FunctionCall{Name: "CONCAT", Args: []ast.Expression{
		lit("a", ast.LiteralString), &ast.Literal{Kind: ast.LiteralNull}, lit("b", ast.LiteralString),
	}}, newRow(nil))
	require.NoError(t, err)
	require.Equal(t, "ab", v)
}

func TestFunctionStuff(t *testing.T) {
	e := New()
	v, err := e.Evaluate(&ast.FunctionCall{Name: "STUFF", Args: []ast.Expression{
		lit("abcdef", ast.LiteralString), lit(int64(2), ast.LiteralInt), lit(int64(3), ast.LiteralInt), lit("XY", ast.LiteralString),
	}}, newRow(nil))
	require.NoError(t, err)
	require.Equal(t, "aXYef", v)
}

func TestLikeOperators(t *testing.T) {
	e := New()
	r := newRow(map[string]interface{}{"name": "Contoso Ltd"})
	cases := []struct {
		pattern string
		want    bool
	}{
		{"%Contoso%", true},
		{"Contoso%", true},
		{"%Ltd", true},
		{"nomatch%", false},
	}
	for _, c := range cases {
		cond := &ast.Like{Expr: col("name"), Pattern: &ast.Literal{Kind: ast.LiteralString, Value: c.pattern}}
		ok, err := e.EvaluateCondition(cond, r)
		require.NoError(t, err)
		require.Equal(t, c.want, ok, c.pattern)
	}
}

func TestBetweenAndIn(t *testing.T) {
	e := New()
	r := newRow(map[string]interface{}{"revenue": 150.0})
	between := &ast.Between{Expr: col("revenue"), Low: lit(int64(100), ast.LiteralInt), High: lit(int64(200), ast.LiteralInt)}
	ok, err := e.EvaluateCondition(between, r)
	require.NoError(t, err)
	require.True(t, ok)

	in := &ast.In{Expr: col("revenue"), List: []ast.Expression{lit(int64(150), ast.LiteralInt), lit(int64(200), ast.LiteralInt)}}
	// revenue is 150.0 (float) vs int64(150): compare() widens both to float64.
	ok, err = e.EvaluateCondition(in, r)
	require.NoError(t, err)
	require.True(t, ok)
}
