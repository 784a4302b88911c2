package ast

// JoinType is the SQL join kind requested in the source text. FetchXML
// only has inner/outer link-types, so RIGHT and FULL are lowered to
// outer by the generator, a known lossy mapping for RIGHT/FULL joins.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
)

// TableSource names a table and its optional alias.
type TableSource struct {
	Name  string
	Alias string // "" if unaliased
}

// Join is one flattened join clause. The ON condition must decompose
// into exactly two column references for the generator to accept it
//; anything else is an InvalidRequest at generation
// time, not at parse time.
type Join struct {
	Table TableSource
	Type  JoinType
	On    Condition
}

// DateGroupFunc names the date-bucketing function applied to a GROUP BY
// column, or "" for a plain column grouping.
type DateGroupFunc string

const (
	DateGroupNone    DateGroupFunc = ""
	DateGroupYear    DateGroupFunc = "YEAR"
	DateGroupMonth   DateGroupFunc = "MONTH"
	DateGroupDay     DateGroupFunc = "DAY"
	DateGroupQuarter DateGroupFunc = "QUARTER"
	DateGroupWeek    DateGroupFunc = "WEEK"
)

// SelectItem is one element of a SELECT list.
type SelectItem struct {
	Expr  Expression
	Alias string // "" if unaliased
}

// GroupByItem is one GROUP BY element: a plain column, or a date
// function applied to a column (`YEAR(createdon)` etc).
type GroupByItem struct {
	Column   Column
	DateFunc DateGroupFunc
}

// OrderByItem is one ORDER BY element. Name may refer to a SELECT
// alias; the generator prefers the alias form for aggregate queries.
type OrderByItem struct {
	Column     Column
	Descending bool
}

// Select is a SELECT statement, used both standalone and as the body of
// INSERT ... SELECT and as a UNION branch.
type Select struct {
	Position    int
	Top         *int64
	Distinct    bool
	SelectList  []SelectItem
	From        TableSource
	Joins       []Join
	Where       Condition // nil if absent
	GroupBy     []GroupByItem
	Having      Condition // nil if absent
	OrderBy     []OrderByItem
}

func (s *Select) Pos() int { return s.Position }
func (*Select) stmtNode()  {}

// HasAggregateColumns reports whether any SELECT item is an aggregate
// function call (COUNT/SUM/AVG/MIN/MAX).
func (s *Select) HasAggregateColumns() bool {
	for _, item := range s.SelectList {
		if fc, ok := item.Expr.(*FunctionCall); ok && IsAggregateFunc(fc.Name) {
			return true
		}
	}
	return false
}

// IsAggregateFunc reports whether name (already upper-cased) is one of
// the five aggregate functions.
func IsAggregateFunc(name string) bool {
	switch name {
	case "COUNT", "SUM", "AVG", "MIN", "MAX":
		return true
	}
	return false
}

// Insert covers both `INSERT ... VALUES (...)` (Select == nil) and
// `INSERT ... SELECT ...` (Rows == nil).
type Insert struct {
	Position int
	Table    string
	Columns  []string
	Rows     [][]Expression // VALUES tuples; nil for INSERT...SELECT
	Select   *Select        // nil for INSERT...VALUES
}

func (i *Insert) Pos() int { return i.Position }
func (*Insert) stmtNode()  {}

// SetClause is one `column = expr` pair of an UPDATE statement.
type SetClause struct {
	Column Column
	Expr   Expression
}

// Update is an `UPDATE table SET ... WHERE ...` statement.
type Update struct {
	Position   int
	Table      TableSource
	SetClauses []SetClause
	Where      Condition // nil if absent
}

func (u *Update) Pos() int { return u.Position }
func (*Update) stmtNode()  {}

// Delete is a `DELETE FROM table WHERE ...` statement.
type Delete struct {
	Position int
	Table    TableSource
	Where    Condition // nil if absent
}

func (d *Delete) Pos() int { return d.Position }
func (*Delete) stmtNode()  {}

// Union composes two SELECT-shaped statements with UNION or UNION ALL.
// Chained unions (`a UNION b UNION c`) parse left-associatively, so
// Left may itself be a *Union.
type Union struct {
	Position int
	Left     Statement
	Right    Statement
	All      bool
}

func (u *Union) Pos() int { return u.Position }
func (*Union) stmtNode()  {}

// Declare is `DECLARE @v TYPE [= expr]`.
type Declare struct {
	Position int
	Name     string
	SqlType  string
	Init     Expression // nil if absent
}

func (d *Declare) Pos() int { return d.Position }
func (*Declare) stmtNode()  {}

// Set is `SET @v = expr`.
type Set struct {
	Position int
	Name     string
	Expr     Expression
}

func (s *Set) Pos() int { return s.Position }
func (*Set) stmtNode()  {}

// Explain wraps a statement whose plan description should be returned
// instead of executed.
type Explain struct {
	Position int
	Inner    Statement
}

func (e *Explain) Pos() int { return e.Position }
func (*Explain) stmtNode()  {}
