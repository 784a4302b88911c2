// Package rowexec builds a lazy RowIter tree from an immutable plan
// tree (package plan) and drives it to completion, buffered or
// streaming, honoring cancellation at every yield point, every page
// fetch, every partition branch, and before every DML batch.
package rowexec

import (
	"context"
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"

	"github.com/joshsmithxrm/ppds-sdk/eval"
	"github.com/joshsmithxrm/ppds-sdk/fetchxml"
	"github.com/joshsmithxrm/ppds-sdk/plan"
	"github.com/joshsmithxrm/ppds-sdk/queryerr"
	"github.com/joshsmithxrm/ppds-sdk/remote"
	"github.com/joshsmithxrm/ppds-sdk/row"
	"github.com/joshsmithxrm/ppds-sdk/vars"
)

const (
	defaultPageSize           = 5000
	defaultDmlBatchSize       = 100
	defaultPrefetchBufferSize = 256
	maxAdaptiveSubdivideDepth = 4
)

// Options configures an Executor for one compiled query.
type Options struct {
	// Client is required for any node that reaches the remote store
	// directly (everything but Project/ClientFilter/Distinct/Concatenate).
	Client remote.Client
	// Pool is only required when the plan contains a ParallelPartitionNode;
	// every partition branch leases its own client from it.
	Pool *remote.Pool
	// VirtualColumns resolves a queried virtual name (e.g. "owneridname")
	// back to the base attribute FetchXmlScan actually requested, so rows
	// can be remapped to display-name values at scan time.
	VirtualColumns map[string]fetchxml.VirtualColumn
	// Scope resolves @variable references in residual/HAVING conditions
	// and DML SET expressions.
	Scope *vars.Scope

	Log    *logrus.Entry
	Tracer opentracing.Tracer

	PageSize           int
	DmlBatchSize       int
	PrefetchBufferSize int
}

// Executor builds and drives RowIter trees for one compiled plan.
type Executor struct {
	client remote.Client
	pool   *remote.Pool
	vc     map[string]fetchxml.VirtualColumn
	eval   *eval.Evaluator
	log    *logrus.Entry
	tracer opentracing.Tracer

	pageSize           int
	dmlBatchSize       int
	prefetchBufferSize int
}

// New builds an Executor from opts.
func New(opts Options) *Executor {
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Executor{
		client:             opts.Client,
		pool:               opts.Pool,
		vc:                 opts.VirtualColumns,
		eval:               eval.WithScope(opts.Scope),
		log:                log,
		tracer:             opts.Tracer,
		pageSize:           orDefaultInt(opts.PageSize, defaultPageSize),
		dmlBatchSize:       orDefaultInt(opts.DmlBatchSize, defaultDmlBatchSize),
		prefetchBufferSize: orDefaultInt(opts.PrefetchBufferSize, defaultPrefetchBufferSize),
	}
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Build compiles node into a RowIter, recursively building its children
// first. Every node's execution gets its own tracing span, named after
// the node's description; errors escaping a node are annotated with
// that description exactly once as they bubble up.
func (e *Executor) Build(ctx context.Context, node plan.Node) (RowIter, error) {
	span, ctx := e.startSpan(ctx, node)
	defer span.Finish()

	iter, err := e.build(ctx, node)
	if err != nil {
		return nil, wrapNodeError(node.Description(), err)
	}
	return &describingIter{inner: iter, desc: node.Description()}, nil
}

func (e *Executor) build(ctx context.Context, node plan.Node) (RowIter, error) {
	switch n := node.(type) {
	case *plan.FetchXmlScan:
		return e.buildFetchXmlScan(ctx, n)
	case *plan.TdsScan:
		return e.buildTdsScan(ctx, n)
	case *plan.CountOptimizedNode:
		return e.buildCountOptimized(ctx, n)
	case *plan.AdaptiveAggregateScanNode:
		return e.buildAdaptiveAggregateScan(ctx, n)
	case *plan.ProjectNode:
		return e.buildProject(ctx, n)
	case *plan.ClientFilterNode:
		return e.buildClientFilter(ctx, n)
	case *plan.DistinctNode:
		return e.buildDistinct(ctx, n)
	case *plan.ConcatenateNode:
		return e.buildConcatenate(ctx, n)
	case *plan.ParallelPartitionNode:
		return e.buildParallelPartition(ctx, n)
	case *plan.MergeAggregateNode:
		return e.buildMergeAggregate(ctx, n)
	case *plan.DmlExecuteNode:
		return e.buildDmlExecute(ctx, n)
	case *plan.PrefetchScanNode:
		return e.buildPrefetchScan(ctx, n)
	}
	return nil, queryerr.ErrExecutionFailed.New("unsupported plan node in executor")
}

func (e *Executor) startSpan(ctx context.Context, node plan.Node) (opentracing.Span, context.Context) {
	tracer := e.tracer
	if tracer == nil {
		tracer = opentracing.NoopTracer{}
	}
	span := tracer.StartSpan(node.Description())
	return span, opentracing.ContextWithSpan(ctx, span)
}

// QueryResult is the buffered Execute surface's return shape.
type QueryResult struct {
	Records           []*row.QueryRow
	Columns           []string
	Count             int
	ExecutedFetchXml  string
	EntityLogicalName string
}

// Execute drains node to completion and buffers every row. Columns are
// inferred from the first row; an empty result has empty columns.
func (e *Executor) Execute(ctx context.Context, node plan.Node, fetchXml, entity string) (*QueryResult, error) {
	iter, err := e.Build(ctx, node)
	if err != nil {
		return nil, err
	}
	defer iter.Close(ctx)

	var rows []*row.QueryRow
	for {
		r, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return &QueryResult{
		Records:           rows,
		Columns:           row.Columns(rows),
		Count:             len(rows),
		ExecutedFetchXml:  fetchXml,
		EntityLogicalName: entity,
	}, nil
}

// ExecuteStreaming returns a RowIter directly rather than buffering.
// If qpc is non-nil, its Statistics.RowsOutput is incremented as rows
// leave the top node, exactly as they cross the public surface.
func (e *Executor) ExecuteStreaming(ctx context.Context, node plan.Node, qpc *QueryPlanContext) (RowIter, error) {
	iter, err := e.Build(ctx, node)
	if err != nil {
		return nil, err
	}
	if qpc == nil {
		return iter, nil
	}
	return &countingIter{inner: iter, stats: qpc.Statistics}, nil
}

type countingIter struct {
	inner RowIter
	stats *Statistics
}

func (it *countingIter) Next(ctx context.Context) (*row.QueryRow, error) {
	r, err := it.inner.Next(ctx)
	if err != nil {
		return nil, err
	}
	it.stats.incRowsOutput()
	return r, nil
}

func (it *countingIter) Close(ctx context.Context) error { return it.inner.Close(ctx) }
