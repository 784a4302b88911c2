// Package explain turns a plan tree into a serializable description and
// renders that description as a human-readable box-drawing tree, the way
// a database's EXPLAIN output does.
package explain

import "github.com/joshsmithxrm/ppds-sdk/plan"

// QueryPlanDescription is the serializable shape of one plan node: its
// kind, a human-readable summary, its row estimate, and its children.
// PoolCapacity/EffectiveParallelism are only set on a description built
// from a ParallelPartitionNode.
type QueryPlanDescription struct {
	NodeType             string
	Description          string
	EstimatedRows        int64
	Children             []*QueryPlanDescription
	PoolCapacity         *int
	EffectiveParallelism *int
}

// FromNode walks node and its children into a QueryPlanDescription tree.
func FromNode(node plan.Node) *QueryPlanDescription {
	if node == nil {
		return nil
	}
	d := &QueryPlanDescription{
		NodeType:      nodeTypeName(node),
		Description:   node.Description(),
		EstimatedRows: node.EstimatedRows(),
	}
	for _, c := range node.Children() {
		d.Children = append(d.Children, FromNode(c))
	}
	if pp, ok := node.(*plan.ParallelPartitionNode); ok {
		capacity := pp.MaxParallelism
		parallelism := len(pp.Partitions)
		if parallelism > capacity {
			parallelism = capacity
		}
		d.PoolCapacity = &capacity
		d.EffectiveParallelism = &parallelism
	}
	return d
}

// nodeTypeName names node's concrete kind. Spelled out as an explicit
// switch rather than a reflect.TypeOf lookup, since the node set is
// closed and fixed.
func nodeTypeName(node plan.Node) string {
	switch node.(type) {
	case *plan.FetchXmlScan:
		return "FetchXmlScan"
	case *plan.TdsScan:
		return "TdsScan"
	case *plan.CountOptimizedNode:
		return "CountOptimized"
	case *plan.AdaptiveAggregateScanNode:
		return "AdaptiveAggregateScan"
	case *plan.ProjectNode:
		return "Project"
	case *plan.ClientFilterNode:
		return "ClientFilter"
	case *plan.DistinctNode:
		return "Distinct"
	case *plan.ConcatenateNode:
		return "Concatenate"
	case *plan.ParallelPartitionNode:
		return "ParallelPartition"
	case *plan.MergeAggregateNode:
		return "MergeAggregate"
	case *plan.DmlExecuteNode:
		return "DmlExecute"
	case *plan.PrefetchScanNode:
		return "PrefetchScan"
	}
	return "Unknown"
}
