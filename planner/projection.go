package planner

import (
	"fmt"
	"strings"

	"github.com/joshsmithxrm/ppds-sdk/ast"
	"github.com/joshsmithxrm/ppds-sdk/fetchxml"
	"github.com/joshsmithxrm/ppds-sdk/plan"
)

// applyProjection wraps input in a ProjectNode that rewrites rows into
// the exact SELECT list shape, computing scalar expressions and
// renaming columns to their alias. A bare `*`/`t.*` in the SELECT list
// leaves input untouched: the scan already yields every attribute. A
// list of plain, unaliased columns also leaves input untouched, since
// the scan already yields exactly those attributes under those names.
func applyProjection(sel *ast.Select, tr *fetchxml.TranspileResult, input plan.Node) plan.Node {
	needed := false
	for _, item := range sel.SelectList {
		if _, ok := item.Expr.(*ast.Star); ok {
			return input
		}
		if _, ok := item.Expr.(*ast.Column); !ok || item.Alias != "" {
			needed = true
		}
	}
	if !needed {
		return input
	}

	cols := make([]plan.ProjectColumn, len(sel.SelectList))
	for i, item := range sel.SelectList {
		cols[i] = projectColumnFor(item, i, tr)
	}
	return &plan.ProjectNode{Columns: cols, Input: input}
}

func projectColumnFor(item ast.SelectItem, index int, tr *fetchxml.TranspileResult) plan.ProjectColumn {
	col, ok := item.Expr.(*ast.Column)
	if !ok {
		name := item.Alias
		if name == "" {
			name = fmt.Sprintf("column%d", index+1)
		}
		return plan.ProjectColumn{Name: name, Expr: item.Expr}
	}

	if vc, ok := tr.VirtualColumns[col.Name]; ok {
		name := col.Name
		if vc.Alias != "" {
			name = vc.Alias
		}
		return plan.ProjectColumn{Name: name}
	}
	if item.Alias != "" {
		return plan.ProjectColumn{Name: item.Alias}
	}
	return plan.ProjectColumn{Name: strings.ToLower(col.Name)}
}
