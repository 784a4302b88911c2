package rowexec

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/spf13/cast"

	"github.com/joshsmithxrm/ppds-sdk/partition"
	"github.com/joshsmithxrm/ppds-sdk/plan"
	"github.com/joshsmithxrm/ppds-sdk/queryerr"
	"github.com/joshsmithxrm/ppds-sdk/remote"
	"github.com/joshsmithxrm/ppds-sdk/row"
)

// aggregateTruncationLimit is the remote store's single-request
// aggregate row ceiling; a returned aggregate value exactly at this
// limit is the server's signal that the true value was truncated.
const aggregateTruncationLimit = 50_000

func (e *Executor) buildAdaptiveAggregateScan(ctx context.Context, n *plan.AdaptiveAggregateScanNode) (RowIter, error) {
	rows, err := e.scanAdaptive(ctx, n)
	if err != nil {
		return nil, err
	}
	return newSliceIter(rows), nil
}

// scanAdaptive executes n's template over its date range, subdividing
// into two halves and recursing (depth capped) when the response looks
// truncated. The rows it returns are always the correct partial
// aggregate for n's whole range: MergeAggregateNode sums across however
// many rows arrive from a partition, so a subdivided partition simply
// contributes more than one row.
func (e *Executor) scanAdaptive(ctx context.Context, n *plan.AdaptiveAggregateScanNode) ([]*row.QueryRow, error) {
	if e.client == nil {
		return nil, queryerr.ErrExecutionFailed.New("no remote client configured for AdaptiveAggregateScanNode")
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	start, err := time.Parse(partition.DateFormat, n.RangeStart)
	if err != nil {
		return nil, queryerr.ErrExecutionFailed.New("invalid partition range start: " + err.Error())
	}
	end, err := time.Parse(partition.DateFormat, n.RangeEnd)
	if err != nil {
		return nil, queryerr.ErrExecutionFailed.New("invalid partition range end: " + err.Error())
	}
	fetchXml := partition.InjectDateRangeFilter(n.TemplateFetchXml, start, end)
	res, err := e.client.RetrieveMultipleAsync(ctx, fetchXml, "", e.pageSize)
	if err != nil {
		return nil, queryerr.ErrRemote.New(err.Error())
	}

	if n.Depth < maxAdaptiveSubdivideDepth && len(res.Records) == 1 && recordLooksTruncated(res.Records[0]) {
		mid := start.Add(end.Sub(start) / 2)
		if !mid.After(start) || !mid.Before(end) {
			// Range too narrow to split further; accept the value as-is.
			return projectAll(e, n.Entity, res.Records), nil
		}
		left := &plan.AdaptiveAggregateScanNode{
			TemplateFetchXml: n.TemplateFetchXml,
			Entity:           n.Entity,
			RangeStart:       partition.FormatDate(start),
			RangeEnd:         partition.FormatDate(mid),
			Depth:            n.Depth + 1,
		}
		right := &plan.AdaptiveAggregateScanNode{
			TemplateFetchXml: n.TemplateFetchXml,
			Entity:           n.Entity,
			RangeStart:       partition.FormatDate(mid),
			RangeEnd:         partition.FormatDate(end),
			Depth:            n.Depth + 1,
		}
		leftRows, err := e.scanAdaptive(ctx, left)
		if err != nil {
			return nil, err
		}
		rightRows, err := e.scanAdaptive(ctx, right)
		if err != nil {
			return nil, err
		}
		return append(leftRows, rightRows...), nil
	}
	return projectAll(e, n.Entity, res.Records), nil
}

func projectAll(e *Executor, entity string, recs []remote.Record) []*row.QueryRow {
	rows := make([]*row.QueryRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, e.projectRecord(entity, rec))
	}
	return rows
}

func recordLooksTruncated(rec remote.Record) bool {
	for _, v := range rec.Values {
		if f, err := cast.ToFloat64E(v); err == nil && f == float64(aggregateTruncationLimit) {
			return true
		}
	}
	return false
}

// buildParallelPartition runs every partition concurrently, bounded by
// n.MaxParallelism, each on its own pooled client lease. The first
// partition error cancels the rest; partial results from a cancelled
// partition are discarded. Emission order across partitions is
// unspecified, so results are collected rather than streamed.
func (e *Executor) buildParallelPartition(ctx context.Context, n *plan.ParallelPartitionNode) (RowIter, error) {
	if e.pool == nil {
		return nil, queryerr.ErrExecutionFailed.New("no remote pool configured for ParallelPartitionNode")
	}
	groupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	limit := n.MaxParallelism
	if limit < 1 {
		limit = 1
	}
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var rows []*row.QueryRow
	var firstErr error

	for _, partNode := range n.Partitions {
		partNode := partNode
		select {
		case sem <- struct{}{}:
		case <-groupCtx.Done():
			mu.Lock()
			if firstErr == nil {
				firstErr = queryerr.ErrCancelled.New("execution cancelled")
			}
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			lease, err := e.pool.GetClientAsync(groupCtx, partNode.Description())
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				cancel()
				return
			}
			defer lease.Release()

			partRows, err := e.withClient(lease).drain(groupCtx, partNode)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				cancel()
				return
			}
			mu.Lock()
			rows = append(rows, partRows...)
			mu.Unlock()
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return newSliceIter(rows), nil
}

// withClient returns a shallow copy of e scoped to client, used to run
// one partition branch against its own pooled lease.
func (e *Executor) withClient(client remote.Client) *Executor {
	scoped := *e
	scoped.client = client
	return &scoped
}

// drain builds node and collects every row it yields.
func (e *Executor) drain(ctx context.Context, node plan.Node) ([]*row.QueryRow, error) {
	iter, err := e.Build(ctx, node)
	if err != nil {
		return nil, err
	}
	defer iter.Close(ctx)
	var rows []*row.QueryRow
	for {
		r, err := iter.Next(ctx)
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
}

// aggGroup accumulates one GROUP BY tuple's running aggregate state
// across however many partial rows arrive for it.
type aggGroup struct {
	key    []interface{}
	counts map[string]int64
	sums   map[string]float64
	mins   map[string]*float64
	maxes  map[string]*float64
	seen   map[string]bool
}

func newAggGroup(key []interface{}) *aggGroup {
	return &aggGroup{
		key:    key,
		counts: make(map[string]int64),
		sums:   make(map[string]float64),
		mins:   make(map[string]*float64),
		maxes:  make(map[string]*float64),
		seen:   make(map[string]bool),
	}
}

func (g *aggGroup) accumulate(col plan.AggregateColumn, r *row.QueryRow) {
	switch col.Function {
	case "COUNT":
		if v, ok := r.Get(col.Alias); ok {
			if n, err := cast.ToInt64E(v.Plain()); err == nil {
				g.counts[col.Alias] += n
				g.seen[col.Alias] = true
			}
		}
	case "SUM":
		if v, ok := r.Get(col.Alias); ok {
			if f, err := cast.ToFloat64E(v.Plain()); err == nil {
				g.sums[col.Alias] += f
				g.seen[col.Alias] = true
			}
		}
	case "AVG":
		if v, ok := r.Get(col.Alias); ok {
			if f, err := cast.ToFloat64E(v.Plain()); err == nil {
				g.sums[col.Alias] += f
				g.seen[col.Alias] = true
			}
		}
		if v, ok := r.Get(col.CountAlias); ok {
			if n, err := cast.ToInt64E(v.Plain()); err == nil {
				g.counts[col.Alias] += n
			}
		}
	case "MIN":
		if v, ok := r.Get(col.Alias); ok {
			if f, err := cast.ToFloat64E(v.Plain()); err == nil {
				g.seen[col.Alias] = true
				if g.mins[col.Alias] == nil || f < *g.mins[col.Alias] {
					cp := f
					g.mins[col.Alias] = &cp
				}
			}
		}
	case "MAX":
		if v, ok := r.Get(col.Alias); ok {
			if f, err := cast.ToFloat64E(v.Plain()); err == nil {
				g.seen[col.Alias] = true
				if g.maxes[col.Alias] == nil || f > *g.maxes[col.Alias] {
					cp := f
					g.maxes[col.Alias] = &cp
				}
			}
		}
	}
}

func (g *aggGroup) result(entity string, groupByColumns []string, aggregateColumns []plan.AggregateColumn) *row.QueryRow {
	out := row.NewQueryRow(entity)
	for i, col := range groupByColumns {
		if i < len(g.key) {
			out.Set(col, row.NewSimple(g.key[i]))
		}
	}
	for _, col := range aggregateColumns {
		switch col.Function {
		case "COUNT":
			out.Set(col.Alias, row.NewSimple(g.counts[col.Alias]))
		case "SUM":
			if g.seen[col.Alias] {
				out.Set(col.Alias, row.NewSimple(g.sums[col.Alias]))
			} else {
				out.Set(col.Alias, row.NewSimple(nil))
			}
		case "AVG":
			if g.seen[col.Alias] && g.counts[col.Alias] != 0 {
				out.Set(col.Alias, row.NewSimple(g.sums[col.Alias]/float64(g.counts[col.Alias])))
			} else {
				out.Set(col.Alias, row.NewSimple(nil))
			}
		case "MIN":
			if g.mins[col.Alias] != nil {
				out.Set(col.Alias, row.NewSimple(*g.mins[col.Alias]))
			} else {
				out.Set(col.Alias, row.NewSimple(nil))
			}
		case "MAX":
			if g.maxes[col.Alias] != nil {
				out.Set(col.Alias, row.NewSimple(*g.maxes[col.Alias]))
			} else {
				out.Set(col.Alias, row.NewSimple(nil))
			}
		}
	}
	return out
}

// buildMergeAggregate folds the partial pre-aggregates streaming out of
// n.Input (always a *plan.ParallelPartitionNode) into one final row per
// GROUP BY tuple.
func (e *Executor) buildMergeAggregate(ctx context.Context, n *plan.MergeAggregateNode) (RowIter, error) {
	iter, err := e.Build(ctx, n.Input)
	if err != nil {
		return nil, err
	}
	defer iter.Close(ctx)

	var input []*row.QueryRow
	for {
		r, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		input = append(input, r)
	}

	rows, err := e.mergeRows(n, input)
	if err != nil {
		return nil, err
	}
	return newSliceIter(rows), nil
}

// mergeRows applies MergeAggregateNode's grouping/accumulation rules to
// an already-materialized set of partial rows.
func (e *Executor) mergeRows(n *plan.MergeAggregateNode, input []*row.QueryRow) ([]*row.QueryRow, error) {
	groups := make(map[string]*aggGroup)
	var order []string
	entity := ""
	for _, r := range input {
		entity = r.EntityLogicalName
		key := make([]interface{}, len(n.GroupByColumns))
		for i, col := range n.GroupByColumns {
			if v, ok := r.Get(col); ok {
				key[i] = v.Plain()
			}
		}
		hash, herr := hashKey(key)
		if herr != nil {
			return nil, queryerr.ErrExecutionFailed.New("failed to hash group key: " + herr.Error())
		}
		g, ok := groups[hash]
		if !ok {
			g = newAggGroup(key)
			groups[hash] = g
			order = append(order, hash)
		}
		for _, col := range n.AggregateColumns {
			g.accumulate(col, r)
		}
	}

	if len(input) == 0 && len(n.GroupByColumns) == 0 {
		g := newAggGroup(nil)
		return []*row.QueryRow{g.result(entity, n.GroupByColumns, n.AggregateColumns)}, nil
	}

	rows := make([]*row.QueryRow, 0, len(order))
	for _, hash := range order {
		rows = append(rows, groups[hash].result(entity, n.GroupByColumns, n.AggregateColumns))
	}
	return rows, nil
}
