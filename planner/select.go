package planner

import (
	"github.com/joshsmithxrm/ppds-sdk/ast"
	"github.com/joshsmithxrm/ppds-sdk/fetchxml"
	"github.com/joshsmithxrm/ppds-sdk/plan"
)

func planSelect(sel *ast.Select, opts Options) (*Result, error) {
	isAggregate := sel.HasAggregateColumns()

	if isBareCountStar(sel) && belowPartitionThreshold(opts) {
		return planCountOptimized(sel)
	}

	if isAggregate && partitionEligible(sel, opts) {
		return planPartitionedAggregate(sel, opts)
	}

	return planDefault(sel, opts, isAggregate)
}

func isBareCountStar(sel *ast.Select) bool {
	if sel.Where != nil || len(sel.GroupBy) > 0 || len(sel.Joins) > 0 || sel.Distinct {
		return false
	}
	if len(sel.SelectList) != 1 {
		return false
	}
	fc, ok := sel.SelectList[0].Expr.(*ast.FunctionCall)
	return ok && fc.Name == "COUNT" && fc.Star && !fc.Distinct
}

func belowPartitionThreshold(opts Options) bool {
	return opts.EstimatedRecordCount == nil || *opts.EstimatedRecordCount < partitionThreshold
}

func hasCountDistinct(sel *ast.Select) bool {
	for _, item := range sel.SelectList {
		if fc, ok := item.Expr.(*ast.FunctionCall); ok && fc.Name == "COUNT" && fc.Distinct {
			return true
		}
	}
	return false
}

func partitionEligible(sel *ast.Select, opts Options) bool {
	return !hasCountDistinct(sel) &&
		opts.PoolCapacity > 1 &&
		opts.EstimatedRecordCount != nil && *opts.EstimatedRecordCount >= partitionThreshold &&
		opts.MinDate != nil && opts.MaxDate != nil
}

func planCountOptimized(sel *ast.Select) (*Result, error) {
	tr, err := fetchxml.Generate(sel, fetchxml.Options{})
	if err != nil {
		return nil, err
	}
	alias := sel.SelectList[0].Alias
	if alias == "" {
		alias = "count"
	}
	fallback := &plan.FetchXmlScan{
		FetchXml: tr.FetchXml,
		Entity:   tr.EntityLogicalName,
		Rows:     1,
	}
	root := &plan.CountOptimizedNode{Entity: tr.EntityLogicalName, Alias: alias, Fallback: fallback}
	return &Result{
		Root:              root,
		FetchXml:          tr.FetchXml,
		VirtualColumns:    tr.VirtualColumns,
		EntityLogicalName: tr.EntityLogicalName,
		EntityAlias:       tr.EntityAlias,
		Warnings:          tr.Warnings,
	}, nil
}

func planDefault(sel *ast.Select, opts Options, isAggregate bool) (*Result, error) {
	tr, err := fetchxml.Generate(sel, fetchxml.Options{})
	if err != nil {
		return nil, err
	}

	var root plan.Node = &plan.FetchXmlScan{
		FetchXml: tr.FetchXml,
		Entity:   tr.EntityLogicalName,
		AutoPage: true,
		MaxRows:  effectiveMaxRows(sel, opts),
		Rows:     plan.UnknownRows,
	}

	if tr.Residual != nil {
		root = &plan.ClientFilterNode{Condition: tr.Residual, Input: root}
	}

	// FetchXML has no HAVING; a single-scan aggregate still needs its
	// HAVING clause applied client-side over the returned group rows.
	if isAggregate && sel.Having != nil {
		root = &plan.ClientFilterNode{Condition: sel.Having, Input: root}
	}

	if !isAggregate {
		root = applyProjection(sel, tr, root)
	}

	if opts.EnablePrefetch && !isAggregate {
		root = &plan.PrefetchScanNode{Source: root}
	}

	return &Result{
		Root:              root,
		FetchXml:          tr.FetchXml,
		VirtualColumns:    tr.VirtualColumns,
		EntityLogicalName: tr.EntityLogicalName,
		EntityAlias:       tr.EntityAlias,
		Warnings:          tr.Warnings,
	}, nil
}

func effectiveMaxRows(sel *ast.Select, opts Options) *int64 {
	if opts.MaxRows != nil {
		return opts.MaxRows
	}
	return sel.Top
}
