// Package plan defines the immutable plan node tree produced by the
// planner and consumed by the executor.
// A node is pure data: description, estimated row count, and children.
// Iteration state belongs to the executor, never to the node.
package plan

import "github.com/joshsmithxrm/ppds-sdk/ast"

// Node is any plan tree element.
type Node interface {
	Description() string
	EstimatedRows() int64
	Children() []Node
}

// UnknownRows is the sentinel for "no row estimate available".
const UnknownRows int64 = -1

// FetchXmlScan retrieves records via the declarative XML query
// language, optionally paging through the whole result set.
type FetchXmlScan struct {
	FetchXml string
	Entity   string
	AutoPage bool
	MaxRows  *int64
	Rows     int64 // estimate, UnknownRows if unknown
}

func (n *FetchXmlScan) Description() string  { return "FetchXmlScan: " + n.Entity }
func (n *FetchXmlScan) EstimatedRows() int64 { return n.Rows }
func (n *FetchXmlScan) Children() []Node     { return nil }

// TdsScan routes a statement through the pass-through SQL endpoint.
type TdsScan struct {
	Sql     string
	Entity  string
	MaxRows *int64
	Rows    int64
}

func (n *TdsScan) Description() string  { return "TdsScan: " + n.Entity }
func (n *TdsScan) EstimatedRows() int64 { return n.Rows }
func (n *TdsScan) Children() []Node     { return nil }

// CountOptimizedNode calls the remote store's fast total-record-count
// primitive, falling back to a regular aggregate scan if the primitive
// doesn't cover the entity.
type CountOptimizedNode struct {
	Entity   string
	Alias    string
	Fallback Node
}

func (n *CountOptimizedNode) Description() string { return "CountOptimized: " + n.Entity }
func (n *CountOptimizedNode) EstimatedRows() int64 { return 1 }
func (n *CountOptimizedNode) Children() []Node {
	if n.Fallback == nil {
		return nil
	}
	return []Node{n.Fallback}
}

// AdaptiveAggregateScanNode is one date-bounded partition cell of a
// parallel aggregate plan. It may subdivide itself at execution time
// (depth capped at 4) if the server's response indicates a
// truncated count.
type AdaptiveAggregateScanNode struct {
	TemplateFetchXml string
	Entity           string
	RangeStart       string // formatted yyyy-MM-ddTHH:mm:ss.fffZ
	RangeEnd         string
	Depth            int
	Rows             int64
}

func (n *AdaptiveAggregateScanNode) Description() string {
	return "AdaptiveAggregateScan: " + n.Entity + " [" + n.RangeStart + ", " + n.RangeEnd + ")"
}
func (n *AdaptiveAggregateScanNode) EstimatedRows() int64 { return n.Rows }
func (n *AdaptiveAggregateScanNode) Children() []Node     { return nil }

// ProjectColumn is one output column of a ProjectNode: either a
// straight pass-through of an input column, or derived from an
// expression evaluated per row.
type ProjectColumn struct {
	Name string
	Expr ast.Expression // nil for pass-through of Name
}

// ProjectNode rewrites each input row through its ProjectColumn list.
type ProjectNode struct {
	Columns []ProjectColumn
	Input   Node
}

func (n *ProjectNode) Description() string  { return "Project" }
func (n *ProjectNode) EstimatedRows() int64 { return n.Input.EstimatedRows() }
func (n *ProjectNode) Children() []Node     { return []Node{n.Input} }

// ClientFilterNode evaluates Condition per row against the input,
// passing rows through iff the condition is true.
type ClientFilterNode struct {
	Condition ast.Condition
	Input     Node
}

func (n *ClientFilterNode) Description() string  { return "ClientFilter" }
func (n *ClientFilterNode) EstimatedRows() int64 { return n.Input.EstimatedRows() }
func (n *ClientFilterNode) Children() []Node     { return []Node{n.Input} }

// DistinctNode suppresses rows whose full value set has already been
// seen (hashed via mitchellh/hashstructure in the executor).
type DistinctNode struct {
	Input Node
}

func (n *DistinctNode) Description() string  { return "Distinct" }
func (n *DistinctNode) EstimatedRows() int64 { return n.Input.EstimatedRows() }
func (n *DistinctNode) Children() []Node     { return []Node{n.Input} }

// ConcatenateNode yields each child's rows in order (UNION ALL / UNION
// composition before an optional DistinctNode wrap).
type ConcatenateNode struct {
	Inputs []Node
}

func (n *ConcatenateNode) Description() string { return "Concatenate" }
func (n *ConcatenateNode) EstimatedRows() int64 {
	var total int64
	for _, c := range n.Inputs {
		r := c.EstimatedRows()
		if r == UnknownRows {
			return UnknownRows
		}
		total += r
	}
	return total
}
func (n *ConcatenateNode) Children() []Node { return n.Inputs }

// ParallelPartitionNode runs its partitions concurrently, bounded by
// MaxParallelism, which is always clamped to the pool capacity.
type ParallelPartitionNode struct {
	Partitions     []Node
	MaxParallelism int
}

func (n *ParallelPartitionNode) Description() string {
	return "ParallelPartition"
}
func (n *ParallelPartitionNode) EstimatedRows() int64 { return UnknownRows }
func (n *ParallelPartitionNode) Children() []Node     { return n.Partitions }

// AggregateColumn describes one output column of a MergeAggregateNode:
// the SQL aggregate function, its result alias, and (for Avg) the
// companion count alias its partitions carry.
type AggregateColumn struct {
	Function   string // COUNT | SUM | AVG | MIN | MAX
	Alias      string
	CountAlias string // "" unless Function == AVG
}

// MergeAggregateNode folds the partial pre-aggregates streaming out of
// a ParallelPartitionNode into final per-group aggregate rows. Input is
// always a *ParallelPartitionNode.
type MergeAggregateNode struct {
	Input            Node
	GroupByColumns   []string
	AggregateColumns []AggregateColumn
}

func (n *MergeAggregateNode) Description() string  { return "MergeAggregate" }
func (n *MergeAggregateNode) EstimatedRows() int64 { return UnknownRows }
func (n *MergeAggregateNode) Children() []Node     { return []Node{n.Input} }

// DmlOperation names the DML statement kind driving a DmlExecuteNode.
type DmlOperation int

const (
	DmlInsert DmlOperation = iota
	DmlUpdate
	DmlDelete
)

func (op DmlOperation) String() string {
	switch op {
	case DmlInsert:
		return "INSERT"
	case DmlUpdate:
		return "UPDATE"
	case DmlDelete:
		return "DELETE"
	}
	return "DML"
}

// DmlExecuteNode drives its optional source node and issues the
// corresponding request through the remote client's bulk primitive.
type DmlExecuteNode struct {
	Operation       DmlOperation
	Entity          string
	Source          Node // nil for INSERT ... VALUES
	SetClauses      []ast.SetClause
	InsertColumns   []string
	SourceColumns   []string         // INSERT...SELECT output column names, mapped ordinally onto InsertColumns
	InsertValueRows [][]ast.Expression
	RowCap          int64 // 0 = unlimited
}

func (n *DmlExecuteNode) Description() string {
	return "DmlExecute: " + n.Operation.String() + " " + n.Entity
}
func (n *DmlExecuteNode) EstimatedRows() int64 { return 1 }
func (n *DmlExecuteNode) Children() []Node {
	if n.Source == nil {
		return nil
	}
	return []Node{n.Source}
}

// PrefetchScanNode overlaps network I/O with client-side evaluation by
// draining Source on a background goroutine into a bounded channel.
type PrefetchScanNode struct {
	Source Node
}

func (n *PrefetchScanNode) Description() string  { return "PrefetchScan" }
func (n *PrefetchScanNode) EstimatedRows() int64 { return n.Source.EstimatedRows() }
func (n *PrefetchScanNode) Children() []Node     { return []Node{n.Source} }
