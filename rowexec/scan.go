package rowexec

import (
	"context"
	"io"

	"github.com/joshsmithxrm/ppds-sdk/plan"
	"github.com/joshsmithxrm/ppds-sdk/queryerr"
	"github.com/joshsmithxrm/ppds-sdk/remote"
	"github.com/joshsmithxrm/ppds-sdk/row"
)

// fetchXmlScanIter pages through a FetchXML query lazily: each Next
// call drains the current page before issuing the next
// RetrieveMultipleAsync, honoring AutoPage, MaxRows, and cancellation.
type fetchXmlScanIter struct {
	e       *Executor
	node    *plan.FetchXmlScan
	cookie  string
	buf     []*row.QueryRow
	pos     int
	done    bool
	emitted int64
}

func (e *Executor) buildFetchXmlScan(ctx context.Context, n *plan.FetchXmlScan) (RowIter, error) {
	if e.client == nil {
		return nil, queryerr.ErrExecutionFailed.New("no remote client configured for FetchXmlScan")
	}
	return &fetchXmlScanIter{e: e, node: n}, nil
}

func (it *fetchXmlScanIter) Next(ctx context.Context) (*row.QueryRow, error) {
	for {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		if it.node.MaxRows != nil && it.emitted >= *it.node.MaxRows {
			return nil, io.EOF
		}
		if it.pos < len(it.buf) {
			r := it.buf[it.pos]
			it.pos++
			it.emitted++
			return r, nil
		}
		if it.done {
			return nil, io.EOF
		}
		if err := it.fetchPage(ctx); err != nil {
			return nil, err
		}
	}
}

func (it *fetchXmlScanIter) fetchPage(ctx context.Context) error {
	res, err := it.e.client.RetrieveMultipleAsync(ctx, it.node.FetchXml, it.cookie, it.e.pageSize)
	if err != nil {
		return queryerr.ErrRemote.New(err.Error())
	}
	it.buf = make([]*row.QueryRow, 0, len(res.Records))
	for _, rec := range res.Records {
		it.buf = append(it.buf, it.e.projectRecord(it.node.Entity, rec))
	}
	it.pos = 0
	if !it.node.AutoPage || !res.MoreRecords || res.PagingCookie == "" {
		it.done = true
		return nil
	}
	it.cookie = res.PagingCookie
	return nil
}

func (it *fetchXmlScanIter) Close(ctx context.Context) error { return nil }

// tdsScanIter issues a single pass-through SQL call; records arrive as
// flat maps, no paging cookie.
type tdsScanIter struct {
	e      *Executor
	node   *plan.TdsScan
	rows   []*row.QueryRow
	pos    int
	loaded bool
}

func (e *Executor) buildTdsScan(ctx context.Context, n *plan.TdsScan) (RowIter, error) {
	if e.client == nil {
		return nil, queryerr.ErrExecutionFailed.New("no remote client configured for TdsScan")
	}
	return &tdsScanIter{e: e, node: n}, nil
}

func (it *tdsScanIter) Next(ctx context.Context) (*row.QueryRow, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	if !it.loaded {
		resp, err := it.e.client.ExecuteAsync(ctx, remote.PassthroughRequest{Sql: it.node.Sql})
		if err != nil {
			return nil, queryerr.ErrRemote.New(err.Error())
		}
		it.rows = make([]*row.QueryRow, 0, len(resp.Rows))
		for _, m := range resp.Rows {
			r := row.NewQueryRow(it.node.Entity)
			for k, v := range m {
				r.Set(k, row.NewSimple(v))
			}
			it.rows = append(it.rows, r)
		}
		it.loaded = true
	}
	if it.pos >= len(it.rows) {
		return nil, io.EOF
	}
	r := it.rows[it.pos]
	it.pos++
	return r, nil
}

func (it *tdsScanIter) Close(ctx context.Context) error { return nil }

// countOptimizedIter calls the remote store's fast total-record-count
// primitive, falling back to its fallback aggregate scan when the
// primitive's response doesn't cover the entity.
type countOptimizedIter struct {
	inner RowIter
}

func (e *Executor) buildCountOptimized(ctx context.Context, n *plan.CountOptimizedNode) (RowIter, error) {
	if e.client == nil {
		return nil, queryerr.ErrExecutionFailed.New("no remote client configured for CountOptimizedNode")
	}
	counts, err := e.client.GetTotalRecordCountAsync(ctx, []string{n.Entity})
	if err != nil {
		return nil, queryerr.ErrRemote.New(err.Error())
	}
	if total, ok := counts[n.Entity]; ok {
		r := row.NewQueryRow(n.Entity)
		r.Set(n.Alias, row.NewSimple(total))
		return &countOptimizedIter{inner: newSliceIter([]*row.QueryRow{r})}, nil
	}
	if n.Fallback == nil {
		return nil, queryerr.ErrExecutionFailed.New("total record count unavailable and no fallback scan configured")
	}
	fallback, err := e.Build(ctx, n.Fallback)
	if err != nil {
		return nil, err
	}
	return &countOptimizedIter{inner: fallback}, nil
}

func (it *countOptimizedIter) Next(ctx context.Context) (*row.QueryRow, error) {
	return it.inner.Next(ctx)
}

func (it *countOptimizedIter) Close(ctx context.Context) error { return it.inner.Close(ctx) }
