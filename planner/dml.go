package planner

import (
	"fmt"

	"github.com/joshsmithxrm/ppds-sdk/ast"
	"github.com/joshsmithxrm/ppds-sdk/fetchxml"
	"github.com/joshsmithxrm/ppds-sdk/plan"
)

func planInsert(s *ast.Insert, opts Options) (*Result, error) {
	if s.Select != nil {
		inner, err := planSelect(s.Select, opts)
		if err != nil {
			return nil, err
		}
		root := &plan.DmlExecuteNode{
			Operation:     plan.DmlInsert,
			Entity:        s.Table,
			Source:        inner.Root,
			InsertColumns: s.Columns,
			SourceColumns: selectOutputNames(s.Select),
			RowCap:        opts.DmlRowCap,
		}
		return &Result{
			Root:              root,
			FetchXml:          inner.FetchXml,
			VirtualColumns:    inner.VirtualColumns,
			EntityLogicalName: s.Table,
			Warnings:          inner.Warnings,
		}, nil
	}
	root := &plan.DmlExecuteNode{
		Operation:       plan.DmlInsert,
		Entity:          s.Table,
		InsertColumns:   s.Columns,
		InsertValueRows: s.Rows,
		RowCap:          opts.DmlRowCap,
	}
	return &Result{Root: root, EntityLogicalName: s.Table}, nil
}

// selectOutputNames gives the ordinal output name of every SELECT list
// item: its alias, else its bare column name, else a positional
// placeholder for a computed expression. Used to map an INSERT...SELECT
// source onto insertColumns by position.
func selectOutputNames(sel *ast.Select) []string {
	names := make([]string, len(sel.SelectList))
	for i, item := range sel.SelectList {
		if item.Alias != "" {
			names[i] = item.Alias
			continue
		}
		if col, ok := item.Expr.(*ast.Column); ok {
			names[i] = col.Name
			continue
		}
		names[i] = fmt.Sprintf("column%d", i+1)
	}
	return names
}

func planUpdate(s *ast.Update, opts Options) (*Result, error) {
	pk := fetchxml.PrimaryKeyColumn(s.Table.Name)
	selectList := []ast.SelectItem{{Expr: &ast.Column{Name: pk}}}
	seen := map[string]bool{colKey("", pk): true}
	for _, sc := range s.SetClauses {
		for _, col := range collectColumns(sc.Expr) {
			key := colKey(col.Qualifier, col.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			selectList = append(selectList, ast.SelectItem{Expr: col})
		}
	}
	sourceSel := &ast.Select{
		Position:   s.Position,
		SelectList: selectList,
		From:       s.Table,
		Where:      s.Where,
	}
	tr, err := fetchxml.Generate(sourceSel, fetchxml.Options{})
	if err != nil {
		return nil, err
	}
	source := dmlSourceScan(tr)
	root := &plan.DmlExecuteNode{
		Operation:  plan.DmlUpdate,
		Entity:     s.Table.Name,
		Source:     source,
		SetClauses: s.SetClauses,
		RowCap:     opts.DmlRowCap,
	}
	return &Result{
		Root:              root,
		FetchXml:          tr.FetchXml,
		VirtualColumns:    tr.VirtualColumns,
		EntityLogicalName: tr.EntityLogicalName,
		Warnings:          tr.Warnings,
	}, nil
}

func planDelete(s *ast.Delete, opts Options) (*Result, error) {
	pk := fetchxml.PrimaryKeyColumn(s.Table.Name)
	sourceSel := &ast.Select{
		Position:   s.Position,
		SelectList: []ast.SelectItem{{Expr: &ast.Column{Name: pk}}},
		From:       s.Table,
		Where:      s.Where,
	}
	tr, err := fetchxml.Generate(sourceSel, fetchxml.Options{})
	if err != nil {
		return nil, err
	}
	source := dmlSourceScan(tr)
	root := &plan.DmlExecuteNode{
		Operation: plan.DmlDelete,
		Entity:    s.Table.Name,
		Source:    source,
		RowCap:    opts.DmlRowCap,
	}
	return &Result{
		Root:              root,
		FetchXml:          tr.FetchXml,
		VirtualColumns:    tr.VirtualColumns,
		EntityLogicalName: tr.EntityLogicalName,
		Warnings:          tr.Warnings,
	}, nil
}

func dmlSourceScan(tr *fetchxml.TranspileResult) plan.Node {
	var source plan.Node = &plan.FetchXmlScan{
		FetchXml: tr.FetchXml,
		Entity:   tr.EntityLogicalName,
		AutoPage: true,
		Rows:     plan.UnknownRows,
	}
	if tr.Residual != nil {
		source = &plan.ClientFilterNode{Condition: tr.Residual, Input: source}
	}
	return source
}
