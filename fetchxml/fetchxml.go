// Package fetchxml translates a SELECT-shaped AST into the declarative
// XML query language consumed by the remote record store. This is the
// hardest subsystem in the module: virtual-column
// rewriting, operator/pattern mapping, join lowering, GROUP BY
// date-grouping and client-side residual column harvesting all live
// here. The generator never fails on an unsupported-but-recoverable
// WHERE predicate; it downgrades the predicate to a residual instead
// (every residual/projection column still shows up as an <attribute>,
// so the row is available when it arrives).
package fetchxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/joshsmithxrm/ppds-sdk/ast"
	"github.com/joshsmithxrm/ppds-sdk/queryerr"
)

// VirtualColumn records that a SELECT name like "owneridname" resolves
// to the display name of the base lookup/optionset/state attribute
// "ownerid".
type VirtualColumn struct {
	BaseColumnName              string
	BaseColumnExplicitlyQueried bool
	Alias                       string // "" if unaliased
}

// TranspileResult is the generator's full output.
type TranspileResult struct {
	FetchXml          string
	VirtualColumns    map[string]VirtualColumn
	EntityLogicalName string
	EntityAlias       string
	// Residual is the AND-combined set of WHERE conjuncts that could
	// not be expressed in FetchXML; nil if the whole WHERE clause was
	// pushable. It still references only columns that are present as
	// <attribute> elements in FetchXml.
	Residual ast.Condition
	// Warnings holds non-fatal notices (e.g. a RIGHT/FULL JOIN lowered
	// to FetchXML's single outer link-type).
	Warnings []string
}

// Options tune generation for callers that need more than the default
// single-scan shape.
type Options struct {
	// ForPartitionTemplate, when true, adds a companion countcolumn
	// attribute for every AVG aggregate (aliased "<alias>_count"), as
	// required for the partitioned-aggregate path.
	ForPartitionTemplate bool
}

// Generate produces FetchXML for a Select statement (or a Select used
// as the source of a DML statement). Any other statement shape is
// rejected with InvalidRequest, as is a Select missing its FROM clause.
func Generate(stmt ast.Statement, opts Options) (*TranspileResult, error) {
	sel, ok := stmt.(*ast.Select)
	if !ok {
		return nil, queryerr.ErrInvalidRequest.New("fetchxml generation requires a SELECT statement")
	}
	if sel.From.Name == "" {
		return nil, queryerr.ErrInvalidRequest.New("SELECT is missing a FROM clause")
	}

	g := &gen{opts: opts, result: &TranspileResult{VirtualColumns: map[string]VirtualColumn{}}, orderAliases: map[string]string{}}
	return g.generate(sel)
}

type gen struct {
	opts   Options
	result *TranspileResult

	// orderAliases maps a lowercased name an ORDER BY item might use
	// (a SELECT alias, an aggregate's explicit-or-default alias, or a
	// GROUP BY column's own name for the dategrouping case) to the
	// alias render should emit. Populated as the SELECT list and GROUP
	// BY clause are processed; consulted by render to decide between
	// <order alias="..."> and <order attribute="...">.
	orderAliases map[string]string
}

// entity models one <entity> or <link-entity> element being built.
type entity struct {
	name      string
	alias     string // join alias or "" for the root
	attrOrder []string
	attrs     map[string]*attribute
	links     []*entity
	allAttrs  bool

	// link-entity only
	fromCol  string
	toCol    string
	linkType string

	// root only
	filter *pushedFilter
}

type attribute struct {
	name         string
	alias        string
	groupBy      bool
	aggregate    string // "" | count | countcolumn | sum | avg | min | max
	distinct     bool
	dateGrouping string
}

func newEntity(name, alias string) *entity {
	return &entity{name: strings.ToLower(name), alias: alias, attrs: map[string]*attribute{}}
}

func (e *entity) addAttr(name string) *attribute {
	name = strings.ToLower(name)
	if a, ok := e.attrs[name]; ok {
		return a
	}
	a := &attribute{name: name}
	e.attrs[name] = a
	e.attrOrder = append(e.attrOrder, name)
	return a
}

func (g *gen) generate(sel *ast.Select) (*TranspileResult, error) {
	root := newEntity(sel.From.Name, sel.From.Alias)
	g.result.EntityLogicalName = root.name
	g.result.EntityAlias = sel.From.Alias

	// alias -> entity, for resolving qualified column references.
	aliasMap := map[string]*entity{"": root, strings.ToLower(sel.From.Alias): root, strings.ToLower(sel.From.Name): root}

	for _, j := range sel.Joins {
		linkType := "inner"
		if j.Type != ast.JoinInner {
			linkType = "outer"
			if j.Type == ast.JoinRight || j.Type == ast.JoinFull {
				g.result.Warnings = append(g.result.Warnings,
					fmt.Sprintf("join to %s lowered from RIGHT/FULL to FetchXML's single outer link-type; result correctness is data-dependent", j.Table.Name))
			}
		}
		key := j.Table.Alias
		if key == "" {
			key = j.Table.Name
		}
		from, to, err := decomposeJoinOn(j.On, key)
		if err != nil {
			return nil, err
		}
		link := newEntity(j.Table.Name, j.Table.Alias)
		link.fromCol, link.toCol, link.linkType = from, to, linkType
		aliasMap[strings.ToLower(key)] = link
		root.links = append(root.links, link)
	}

	isAggregate := sel.HasAggregateColumns()

	// 1. SELECT list: detect virtual columns, aggregates, and harvest
	// residual columns out of any computed projection expression.
	// handleSelectItem/handleAggregateSelectItem record every SELECT
	// alias (explicit or, for aggregates, the computed default) into
	// g.orderAliases as they go, so a later ORDER BY can prefer
	// alias="" rendering over attribute="" for a name that isn't a
	// real attribute on the wire.
	for _, item := range sel.SelectList {
		if err := g.handleSelectItem(item, root, aliasMap, isAggregate); err != nil {
			return nil, err
		}
	}

	// 1b. A plain column explicitly selected alongside its virtual-name
	// counterpart (e.g. "SELECT ownerid, owneridname") must keep its
	// raw key in the projected row; mark it explicitly queried. This is
	// order-independent: the base column may appear before or after the
	// virtual column in the SELECT list.
	explicitColumns := map[string]bool{}
	for _, item := range sel.SelectList {
		if col, ok := item.Expr.(*ast.Column); ok {
			if _, isVirtual := virtualBase(col.Name); !isVirtual {
				explicitColumns[strings.ToLower(col.Name)] = true
			}
		}
	}
	for key, vc := range g.result.VirtualColumns {
		if explicitColumns[strings.ToLower(vc.BaseColumnName)] {
			vc.BaseColumnExplicitlyQueried = true
			g.result.VirtualColumns[key] = vc
		}
	}

	// 2. GROUP BY: mark attributes groupby=true, and synthesize
	// dategrouping aliases.
	for _, gbi := range sel.GroupBy {
		target := resolveEntity(aliasMap, gbi.Column.Qualifier, root)
		if gbi.DateFunc == ast.DateGroupNone {
			a := target.addAttr(gbi.Column.Name)
			a.groupBy = true
			g.orderAliases[strings.ToLower(gbi.Column.Name)] = a.alias
		} else {
			a := target.addAttr(gbi.Column.Name)
			alias := strings.ToLower(gbi.Column.Name) + "_" + strings.ToLower(string(gbi.DateFunc))
			a.groupBy = true
			a.dateGrouping = strings.ToLower(string(gbi.DateFunc))
			a.alias = alias
			g.orderAliases[strings.ToLower(gbi.Column.Name)] = alias
		}
	}

	// 3. WHERE: split pushable vs residual, harvesting residual columns.
	if sel.Where != nil {
		pushable, residuals := g.splitCondition(sel.Where, aliasMap, root)
		g.result.Residual = combineAnd(residuals)
		for _, r := range residuals {
			harvestColumns(r, aliasMap, root)
		}
		if pushable != nil {
			root.filter = pushable
		}
	}

	// 4. HAVING's columns must also be present as attributes (they
	// reference SELECT aliases / aggregate outputs, already emitted).

	xmlStr, err := g.render(root, sel, isAggregate, g.orderAliases)
	if err != nil {
		return nil, err
	}
	g.result.FetchXml = xmlStr
	return g.result, nil
}

func resolveEntity(aliasMap map[string]*entity, qualifier string, root *entity) *entity {
	if qualifier == "" {
		return root
	}
	if e, ok := aliasMap[strings.ToLower(qualifier)]; ok {
		return e
	}
	return root
}

func (g *gen) handleSelectItem(item ast.SelectItem, root *entity, aliasMap map[string]*entity, queryIsAggregate bool) error {
	switch expr := item.Expr.(type) {
	case *ast.Star:
		target := resolveEntity(aliasMap, expr.Qualifier, root)
		target.allAttrs = true
		return nil
	case *ast.Column:
		return g.handleColumnSelectItem(expr, item.Alias, aliasMap, root)
	case *ast.FunctionCall:
		if ast.IsAggregateFunc(expr.Name) {
			return g.handleAggregateSelectItem(expr, item.Alias, aliasMap, root)
		}
		// Scalar function in the SELECT list: computed, harvest its
		// referenced columns so the row is available for projection.
		harvestExprColumns(expr, aliasMap, root)
		return nil
	default:
		// CASE/IIF/CAST/arithmetic/parenthesis: computed projection.
		harvestExprColumns(expr, aliasMap, root)
		return nil
	}
}

func (g *gen) handleColumnSelectItem(col *ast.Column, alias string, aliasMap map[string]*entity, root *entity) error {
	target := resolveEntity(aliasMap, col.Qualifier, root)
	if base, ok := virtualBase(col.Name); ok {
		// BaseColumnExplicitlyQueried starts false; generate's post-pass
		// over the full SELECT list flips it true if the base column
		// itself is also explicitly selected (order-independent: that
		// plain column may appear before or after this virtual one).
		vc := VirtualColumn{BaseColumnName: base, BaseColumnExplicitlyQueried: false, Alias: alias}
		queried := col.Name
		g.result.VirtualColumns[queried] = vc
		a := target.addAttr(base)
		if alias != "" {
			a.alias = alias
			g.orderAliases[strings.ToLower(alias)] = alias
		}
		return nil
	}
	a := target.addAttr(col.Name)
	if alias != "" {
		a.alias = alias
		g.orderAliases[strings.ToLower(alias)] = alias
	}
	return nil
}

func (g *gen) handleAggregateSelectItem(fc *ast.FunctionCall, alias string, aliasMap map[string]*entity, root *entity) error {
	switch fc.Name {
	case "COUNT":
		if fc.Star {
			a := root.addAttr(primaryKeyColumn(root.name))
			a.aggregate = "count"
			a.alias = orDefault(alias, "count")
			g.orderAliases[strings.ToLower(a.alias)] = a.alias
			return nil
		}
		col, ok := fc.Args[0].(*ast.Column)
		if !ok {
			return queryerr.ErrInvalidRequest.New("COUNT requires a column or '*' argument")
		}
		target := resolveEntity(aliasMap, col.Qualifier, root)
		a := target.addAttr(col.Name)
		a.aggregate = "countcolumn"
		a.distinct = fc.Distinct
		a.alias = orDefault(alias, strings.ToLower(col.Name)+"_count")
		g.orderAliases[strings.ToLower(a.alias)] = a.alias
		return nil
	case "SUM", "AVG", "MIN", "MAX":
		col, ok := fc.Args[0].(*ast.Column)
		if !ok {
			return queryerr.ErrInvalidRequest.New(fc.Name + " requires a column argument")
		}
		target := resolveEntity(aliasMap, col.Qualifier, root)
		a := target.addAttr(col.Name)
		a.aggregate = strings.ToLower(fc.Name)
		a.alias = orDefault(alias, strings.ToLower(fc.Name)+"_"+strings.ToLower(col.Name))
		g.orderAliases[strings.ToLower(a.alias)] = a.alias
		if fc.Name == "AVG" && g.opts.ForPartitionTemplate {
			countAttr := target.addAttrDistinctKey(col.Name + "__avgcount")
			countAttr.name = col.Name
			countAttr.aggregate = "countcolumn"
			countAttr.alias = a.alias + "_count"
		}
		return nil
	}
	return queryerr.ErrInvalidRequest.New("unsupported aggregate function " + fc.Name)
}

// addAttrDistinctKey adds a second <attribute> entry for the same
// underlying column under a distinct map key, used for the AVG
// companion count which must coexist with the AVG aggregate on the
// same base column.
func (e *entity) addAttrDistinctKey(key string) *attribute {
	key = strings.ToLower(key)
	a := &attribute{}
	e.attrs[key] = a
	e.attrOrder = append(e.attrOrder, key)
	return a
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// primaryKeyColumn derives "<entity>id" by Dataverse naming convention.
func primaryKeyColumn(entity string) string { return PrimaryKeyColumn(entity) }

// PrimaryKeyColumn derives an entity's primary key attribute name by
// Dataverse naming convention ("<entity>id"). Exported for the planner,
// which needs it to project the key column for UPDATE/DELETE sources.
func PrimaryKeyColumn(entity string) string { return strings.ToLower(entity) + "id" }

// virtualBase detects a "virtual name column": a SELECT name ending in
// "name" whose stripped prefix looks like a lookup/optionset/state
// column per the heuristic in step 2. No resolution beyond
// the naming convention is attempted: a genuine column
// that happens to fit the pattern is misrouted, by design.
func virtualBase(name string) (string, bool) {
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, "name") || len(lower) <= 4 {
		return "", false
	}
	base := strings.TrimSuffix(lower, "name")
	switch {
	case strings.HasSuffix(base, "id"),
		strings.HasSuffix(base, "code"),
		strings.HasSuffix(base, "type"),
		base == "statecode",
		base == "statuscode",
		strings.HasPrefix(base, "is"),
		strings.HasPrefix(base, "do"),
		strings.HasPrefix(base, "has"):
		return base, true
	}
	return "", false
}

// --- XML rendering -------------------------------------------------

// pushedFilter is a node in the pushable-condition tree: either a leaf
// <condition> or a nested <filter type="and|or">.
type pushedFilter struct {
	isLeaf   bool
	operator string
	attr     string
	value    string   // single value
	values   []string // multi-value (in/not-in/between)
	filter   string   // "and"/"or" for non-leaf
	children []*pushedFilter
}

func (e *entity) renderAttributes(sb *bytes.Buffer, indent string) {
	if e.allAttrs {
		sb.WriteString(indent + "<all-attributes />\n")
	}
	for _, name := range e.attrOrder {
		a := e.attrs[name]
		sb.WriteString(indent + "<attribute name=\"" + escapeAttr(a.name) + "\"")
		if a.alias != "" {
			sb.WriteString(" alias=\"" + escapeAttr(a.alias) + "\"")
		}
		if a.groupBy {
			sb.WriteString(" groupby=\"true\"")
		}
		if a.aggregate != "" {
			sb.WriteString(" aggregate=\"" + a.aggregate + "\"")
		}
		if a.distinct {
			sb.WriteString(" distinct=\"true\"")
		}
		if a.dateGrouping != "" {
			sb.WriteString(" dategrouping=\"" + a.dateGrouping + "\"")
		}
		sb.WriteString(" />\n")
	}
}

func (pf *pushedFilter) render(sb *bytes.Buffer, indent string) {
	if pf.isLeaf {
		if len(pf.values) > 0 {
			sb.WriteString(indent + "<condition attribute=\"" + escapeAttr(pf.attr) + "\" operator=\"" + pf.operator + "\">\n")
			for _, v := range pf.values {
				sb.WriteString(indent + "  <value>" + v + "</value>\n")
			}
			sb.WriteString(indent + "</condition>\n")
			return
		}
		if pf.operator == "null" || pf.operator == "not-null" {
			sb.WriteString(indent + "<condition attribute=\"" + escapeAttr(pf.attr) + "\" operator=\"" + pf.operator + "\" />\n")
			return
		}
		sb.WriteString(indent + "<condition attribute=\"" + escapeAttr(pf.attr) + "\" operator=\"" + pf.operator + "\" value=\"" + pf.value + "\" />\n")
		return
	}
	sb.WriteString(indent + "<filter type=\"" + pf.filter + "\">\n")
	for _, c := range pf.children {
		c.render(sb, indent+"  ")
	}
	sb.WriteString(indent + "</filter>\n")
}

func (e *entity) render(sb *bytes.Buffer, indent string) {
	tag := "entity"
	if e.fromCol != "" {
		tag = "link-entity"
	}
	sb.WriteString(indent + "<" + tag + " name=\"" + escapeAttr(e.name) + "\"")
	if tag == "link-entity" {
		sb.WriteString(" from=\"" + escapeAttr(e.fromCol) + "\" to=\"" + escapeAttr(e.toCol) + "\" link-type=\"" + e.linkType + "\"")
	}
	if e.alias != "" {
		sb.WriteString(" alias=\"" + escapeAttr(e.alias) + "\"")
	}
	sb.WriteString(">\n")
	inner := indent + "  "
	e.renderAttributes(sb, inner)
	for _, link := range e.links {
		link.render(sb, inner)
	}
	if e.filter != nil {
		e.filter.render(sb, inner)
	}
	sb.WriteString(indent + "</" + tag + ">\n")
}

func (g *gen) render(root *entity, sel *ast.Select, isAggregate bool, orderAliases map[string]string) (string, error) {
	var sb bytes.Buffer
	sb.WriteString("<fetch")
	if sel.Top != nil {
		sb.WriteString(fmt.Sprintf(" top=\"%d\"", *sel.Top))
	}
	if sel.Distinct {
		sb.WriteString(" distinct=\"true\"")
	}
	if isAggregate {
		sb.WriteString(" aggregate=\"true\"")
	}
	sb.WriteString(">\n")

	root.render(&sb, "  ")
	result := sb.String()
	if len(sel.OrderBy) > 0 {
		var ob bytes.Buffer
		for _, o := range sel.OrderBy {
			ob.WriteString("    <order ")
			if alias, ok := orderAliases[strings.ToLower(o.Column.Name)]; ok && alias != "" && isAggregate {
				ob.WriteString("alias=\"" + escapeAttr(alias) + "\"")
			} else {
				ob.WriteString("attribute=\"" + escapeAttr(o.Column.Name) + "\"")
			}
			if o.Descending {
				ob.WriteString(" descending=\"true\"")
			}
			ob.WriteString(" />\n")
		}
		result = spliceBeforeLastCloseEntity(result, ob.String())
	}
	result += "</fetch>"
	return result, nil
}

// spliceBeforeLastCloseEntity inserts text immediately before the last
// top-level "</entity>" closing tag, the same splice point used by
// InjectDateRangeFilter.
func spliceBeforeLastCloseEntity(xmlStr, insertion string) string {
	idx := strings.LastIndex(xmlStr, "</entity>")
	if idx < 0 {
		return xmlStr + insertion
	}
	return xmlStr[:idx] + insertion + xmlStr[idx:]
}

func escapeAttr(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func formatLiteralValue(v interface{}, kind ast.LiteralKind) (string, error) {
	switch kind {
	case ast.LiteralNull:
		return "", nil
	case ast.LiteralString:
		return escapeAttr(v.(string)), nil
	case ast.LiteralInt:
		return strconv.FormatInt(v.(int64), 10), nil
	case ast.LiteralFloat:
		return strconv.FormatFloat(v.(float64), 'f', -1, 64), nil
	case ast.LiteralBool:
		if v.(bool) {
			return "1", nil
		}
		return "0", nil
	}
	return "", queryerr.ErrInvalidRequest.New("unsupported literal kind")
}
