package rowexec

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsmithxrm/ppds-sdk/plan"
	"github.com/joshsmithxrm/ppds-sdk/remote"
	"github.com/joshsmithxrm/ppds-sdk/row"
)

func TestAdaptiveAggregateScanYieldsSingleRowWhenNotTruncated(t *testing.T) {
	f := remote.NewFake()
	f.Seed("account", remote.Record{EntityLogicalName: "account", Values: map[string]interface{}{"total": 42}})
	e := New(Options{Client: f})

	node := &plan.AdaptiveAggregateScanNode{
		TemplateFetchXml: `<fetch aggregate="true"><entity name="account"><attribute name="revenue" alias="total" aggregate="sum" /></entity></fetch>`,
		Entity:           "account",
		RangeStart:       "2024-01-01T00:00:00.000Z",
		RangeEnd:         "2024-12-31T23:59:59.000Z",
	}
	iter, err := e.Build(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, 1, drainAll(t, iter))
}

func TestAdaptiveAggregateScanSubdividesOnTruncation(t *testing.T) {
	f := remote.NewFake()
	f.Seed("account", remote.Record{EntityLogicalName: "account", Values: map[string]interface{}{"total": aggregateTruncationLimit}})
	e := New(Options{Client: f})

	node := &plan.AdaptiveAggregateScanNode{
		TemplateFetchXml: `<fetch aggregate="true"><entity name="account"><attribute name="accountid" alias="total" aggregate="count" /></entity></fetch>`,
		Entity:           "account",
		RangeStart:       "2024-01-01T00:00:00.000Z",
		RangeEnd:         "2024-01-05T00:00:00.000Z",
	}
	rows, err := e.scanAdaptive(context.Background(), node)
	require.NoError(t, err)
	// Every response looks truncated, so it recurses to the depth cap:
	// 2^4 leaf cells, one row each.
	assert.Len(t, rows, 16)
}

func TestParallelPartitionCollectsAllPartitions(t *testing.T) {
	f := remote.NewFake()
	f.Seed("account", remote.Record{EntityLogicalName: "account", Values: map[string]interface{}{"total": 1}})
	pool := remote.NewPool(f, 2, logrus.NewEntry(logrus.StandardLogger()))
	e := New(Options{Client: f, Pool: pool})

	mk := func(start, end string) plan.Node {
		return &plan.AdaptiveAggregateScanNode{
			TemplateFetchXml: `<fetch aggregate="true"><entity name="account"></entity></fetch>`,
			Entity:           "account",
			RangeStart:       start,
			RangeEnd:         end,
		}
	}
	node := &plan.ParallelPartitionNode{
		MaxParallelism: 2,
		Partitions: []plan.Node{
			mk("2024-01-01T00:00:00.000Z", "2024-04-01T00:00:00.000Z"),
			mk("2024-04-01T00:00:00.000Z", "2024-08-01T00:00:00.000Z"),
			mk("2024-08-01T00:00:00.000Z", "2024-12-31T23:59:59.000Z"),
		},
	}
	iter, err := e.Build(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, 3, drainAll(t, iter))
}

func TestParallelPartitionPropagatesFirstError(t *testing.T) {
	pool := remote.NewPool(remote.NewFake(), 1, logrus.NewEntry(logrus.StandardLogger()))
	e := New(Options{Client: remote.NewFake(), Pool: pool})

	node := &plan.ParallelPartitionNode{
		MaxParallelism: 1,
		Partitions: []plan.Node{
			&plan.CountOptimizedNode{Entity: "missing"}, // no fallback -> errors
		},
	}
	_, err := e.Build(context.Background(), node)
	assert.Error(t, err)
}

func rowWithValues(entity string, vals map[string]interface{}) *row.QueryRow {
	r := row.NewQueryRow(entity)
	for k, v := range vals {
		r.Set(k, row.NewSimple(v))
	}
	return r
}

func TestMergeAggregateSumsAcrossPartitions(t *testing.T) {
	e := New(Options{})
	n := &plan.MergeAggregateNode{
		GroupByColumns:   []string{"region"},
		AggregateColumns: []plan.AggregateColumn{{Function: "SUM", Alias: "total"}},
	}
	results, err := e.mergeRows(n, []*row.QueryRow{
		rowWithValues("account", map[string]interface{}{"region": "east", "total": 10.0}),
		rowWithValues("account", map[string]interface{}{"region": "east", "total": 5.0}),
		rowWithValues("account", map[string]interface{}{"region": "west", "total": 7.0}),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	totals := map[string]float64{}
	for _, r := range results {
		region, _ := r.Get("region")
		total, _ := r.Get("total")
		totals[region.Plain().(string)] = total.Plain().(float64)
	}
	assert.Equal(t, 15.0, totals["east"])
	assert.Equal(t, 7.0, totals["west"])
}

func TestMergeAggregateAvgDividesSumByCount(t *testing.T) {
	e := New(Options{})
	n := &plan.MergeAggregateNode{
		AggregateColumns: []plan.AggregateColumn{{Function: "AVG", Alias: "avg_total", CountAlias: "avg_total_count"}},
	}
	results, err := e.mergeRows(n, []*row.QueryRow{
		rowWithValues("account", map[string]interface{}{"avg_total": 20.0, "avg_total_count": 2}),
		rowWithValues("account", map[string]interface{}{"avg_total": 10.0, "avg_total_count": 1}),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	v, _ := results[0].Get("avg_total")
	assert.Equal(t, 10.0, v.Plain())
}

func TestMergeAggregateEmptyInputEmitsZeroRow(t *testing.T) {
	e := New(Options{})
	n := &plan.MergeAggregateNode{
		AggregateColumns: []plan.AggregateColumn{{Function: "COUNT", Alias: "count"}},
	}
	results, err := e.mergeRows(n, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	v, _ := results[0].Get("count")
	assert.EqualValues(t, 0, v.Plain())
}
