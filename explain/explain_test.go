package explain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshsmithxrm/ppds-sdk/plan"
)

func TestFromNodeWalksChildren(t *testing.T) {
	root := &plan.DmlExecuteNode{
		Operation: plan.DmlDelete,
		Entity:    "account",
		Source:    &plan.FetchXmlScan{Entity: "account", Rows: 5000},
	}
	d := FromNode(root)
	require.Equal(t, "DmlExecute", d.NodeType)
	require.Equal(t, "DmlExecute: DELETE account", d.Description)
	require.Equal(t, int64(1), d.EstimatedRows)
	require.Len(t, d.Children, 1)
	require.Equal(t, "FetchXmlScan", d.Children[0].NodeType)
	require.Equal(t, int64(5000), d.Children[0].EstimatedRows)
}

func TestFromNodeCapturesParallelism(t *testing.T) {
	merge := &plan.MergeAggregateNode{
		Input: &plan.ParallelPartitionNode{
			Partitions:     []plan.Node{&plan.AdaptiveAggregateScanNode{}, &plan.AdaptiveAggregateScanNode{}, &plan.AdaptiveAggregateScanNode{}},
			MaxParallelism: 4,
		},
	}
	d := FromNode(merge)
	require.Len(t, d.Children, 1)
	parallel := d.Children[0]
	require.NotNil(t, parallel.PoolCapacity)
	require.Equal(t, 4, *parallel.PoolCapacity)
	require.NotNil(t, parallel.EffectiveParallelism)
	require.Equal(t, 3, *parallel.EffectiveParallelism)
}

func TestFormatMatchesSampleShape(t *testing.T) {
	root := &plan.DmlExecuteNode{
		Operation: plan.DmlDelete,
		Entity:    "account",
		Source:    &plan.FetchXmlScan{Entity: "account", Rows: 5000},
	}
	got := PlanFormatter{}.Format(FromNode(root))
	want := "Execution Plan:\n" +
		"  DmlExecute: DELETE account (est. 1 rows)\n" +
		"  └── FetchXmlScan: account (est. 5,000 rows)\n"
	require.Equal(t, want, got)
}

func TestFormatMultipleChildrenUseBranchConnector(t *testing.T) {
	root := &plan.ConcatenateNode{Inputs: []plan.Node{
		&plan.FetchXmlScan{Entity: "account", Rows: 10},
		&plan.FetchXmlScan{Entity: "contact", Rows: 20},
	}}
	got := PlanFormatter{}.Format(FromNode(root))
	require.Contains(t, got, "├── FetchXmlScan: account (est. 10 rows)")
	require.Contains(t, got, "└── FetchXmlScan: contact (est. 20 rows)")
}

func TestFormatOmitsRowEstimateWhenUnknown(t *testing.T) {
	root := &plan.ParallelPartitionNode{MaxParallelism: 2}
	got := PlanFormatter{}.Format(FromNode(root))
	require.NotContains(t, got, "est.")
}

func TestFormatPrintsPoolFooterWhenPresent(t *testing.T) {
	merge := &plan.MergeAggregateNode{
		Input: &plan.ParallelPartitionNode{
			Partitions:     []plan.Node{&plan.AdaptiveAggregateScanNode{}, &plan.AdaptiveAggregateScanNode{}},
			MaxParallelism: 4,
		},
	}
	got := PlanFormatter{}.Format(FromNode(merge))
	require.Contains(t, got, "Pool capacity: 4, effective parallelism: 2")
}

func TestFormatOmitsFooterWhenNoParallelism(t *testing.T) {
	got := PlanFormatter{}.Format(FromNode(&plan.FetchXmlScan{Entity: "account", Rows: 10}))
	require.NotContains(t, got, "Pool capacity")
}
