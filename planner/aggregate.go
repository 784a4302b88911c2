package planner

import (
	"strings"

	"github.com/joshsmithxrm/ppds-sdk/ast"
	"github.com/joshsmithxrm/ppds-sdk/fetchxml"
	"github.com/joshsmithxrm/ppds-sdk/partition"
	"github.com/joshsmithxrm/ppds-sdk/plan"
)

func planPartitionedAggregate(sel *ast.Select, opts Options) (*Result, error) {
	tr, err := fetchxml.Generate(sel, fetchxml.Options{ForPartitionTemplate: true})
	if err != nil {
		return nil, err
	}

	n := partition.Count(*opts.EstimatedRecordCount, opts.PoolCapacity)
	ranges := partition.Divide(*opts.MinDate, *opts.MaxDate, n)

	partitions := make([]plan.Node, 0, len(ranges))
	for _, r := range ranges {
		partitions = append(partitions, &plan.AdaptiveAggregateScanNode{
			TemplateFetchXml: partition.InjectDateRangeFilter(tr.FetchXml, r.Start, r.End),
			Entity:           tr.EntityLogicalName,
			RangeStart:       partition.FormatDate(r.Start),
			RangeEnd:         partition.FormatDate(r.End),
			Rows:             plan.UnknownRows,
		})
	}

	parallel := &plan.ParallelPartitionNode{Partitions: partitions, MaxParallelism: opts.PoolCapacity}

	var root plan.Node = &plan.MergeAggregateNode{
		Input:            parallel,
		GroupByColumns:   groupByOutputNames(sel),
		AggregateColumns: aggregateOutputColumns(sel),
	}

	if sel.Having != nil {
		root = &plan.ClientFilterNode{Condition: sel.Having, Input: root}
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

// groupByOutputNames mirrors the alias the generator assigns to each
// GROUP BY attribute: the bare attribute name for a plain column, or
// "<column>_<datefunc>" for a date-grouped one.
func groupByOutputNames(sel *ast.Select) []string {
	names := make([]string, len(sel.GroupBy))
	for i, gbi := range sel.GroupBy {
		name := strings.ToLower(gbi.Column.Name)
		if gbi.DateFunc != ast.DateGroupNone {
			name = name + "_" + strings.ToLower(string(gbi.DateFunc))
		}
		names[i] = name
	}
	return names
}

// aggregateOutputColumns mirrors the alias/countAlias the generator
// assigns to each aggregate SELECT item (see fetchxml's
// handleAggregateSelectItem), since the executor needs the same names
// to merge partial aggregates keyed by column.
func aggregateOutputColumns(sel *ast.Select) []plan.AggregateColumn {
	var cols []plan.AggregateColumn
	for _, item := range sel.SelectList {
		fc, ok := item.Expr.(*ast.FunctionCall)
		if !ok || !ast.IsAggregateFunc(fc.Name) {
			continue
		}
		switch fc.Name {
		case "COUNT":
			if fc.Star {
				cols = append(cols, plan.AggregateColumn{Function: "COUNT", Alias: orDefault(item.Alias, "count")})
				continue
			}
			col, ok := fc.Args[0].(*ast.Column)
			if !ok {
				continue
			}
			cols = append(cols, plan.AggregateColumn{
				Function: "COUNT",
				Alias:    orDefault(item.Alias, strings.ToLower(col.Name)+"_count"),
			})
		case "SUM", "MIN", "MAX":
			col, ok := fc.Args[0].(*ast.Column)
			if !ok {
				continue
			}
			alias := orDefault(item.Alias, strings.ToLower(fc.Name)+"_"+strings.ToLower(col.Name))
			cols = append(cols, plan.AggregateColumn{Function: fc.Name, Alias: alias})
		case "AVG":
			col, ok := fc.Args[0].(*ast.Column)
			if !ok {
				continue
			}
			alias := orDefault(item.Alias, "avg_"+strings.ToLower(col.Name))
			cols = append(cols, plan.AggregateColumn{Function: "AVG", Alias: alias, CountAlias: alias + "_count"})
		}
	}
	return cols
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
