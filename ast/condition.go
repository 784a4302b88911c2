package ast

// LogicalOp is AND/OR.
type LogicalOp int

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
)

// Comparison is `left op right` for op in {=, <>, <, <=, >, >=}.
type Comparison struct {
	Position int
	Op       string
	Left     Expression
	Right    Expression
}

func (c *Comparison) Pos() int { return c.Position }
func (*Comparison) condNode()  {}

// Like is `expr [NOT] LIKE pattern`. Pattern is always a string literal
// in this dialect (LIKE against a computed pattern is a residual,
// represented as ExpressionCondition instead).
type Like struct {
	Position int
	Expr     Expression
	Pattern  *Literal
	Negated  bool
}

func (l *Like) Pos() int { return l.Position }
func (*Like) condNode()  {}

// IsNull is `expr IS [NOT] NULL`.
type IsNull struct {
	Position int
	Expr     Expression
	Negated  bool
}

func (n *IsNull) Pos() int { return n.Position }
func (*IsNull) condNode()  {}

// In is `expr [NOT] IN (list...)`.
type In struct {
	Position int
	Expr     Expression
	List     []Expression
	Negated  bool
}

func (i *In) Pos() int { return i.Position }
func (*In) condNode()  {}

// Between is `expr [NOT] BETWEEN low AND high`.
type Between struct {
	Position int
	Expr     Expression
	Low      Expression
	High     Expression
	Negated  bool
}

func (b *Between) Pos() int { return b.Position }
func (*Between) condNode()  {}

// Logical is `left AND right` or `left OR right`.
type Logical struct {
	Position int
	Op       LogicalOp
	Left     Condition
	Right    Condition
}

func (l *Logical) Pos() int { return l.Position }
func (*Logical) condNode()  {}

// Not is `NOT cond`.
type Not struct {
	Position int
	Inner    Condition
}

func (n *Not) Pos() int { return n.Position }
func (*Not) condNode()  {}

// ExpressionCondition wraps a boolean-valued expression that doesn't
// fit any of the pushable condition shapes above: column-to-column
// comparisons, CASE/IIF used as a predicate, or any predicate whose
// operands are both computed. The generator records these as residual
// columns instead of emitting a FetchXML <condition>.
type ExpressionCondition struct {
	Position int
	Expr     Expression
}

func (e *ExpressionCondition) Pos() int { return e.Position }
func (*ExpressionCondition) condNode()  {}
