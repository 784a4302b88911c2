package rowexec

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/joshsmithxrm/ppds-sdk/queryerr"
	"github.com/joshsmithxrm/ppds-sdk/row"
)

// RowIter is a lazy pull sequence of rows. Next returns io.EOF once
// exhausted, the same end-of-stream convention database/sql.Rows uses.
// Close always runs, including on an error or cancellation mid-iteration.
type RowIter interface {
	Next(ctx context.Context) (*row.QueryRow, error)
	Close(ctx context.Context) error
}

func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return queryerr.ErrCancelled.New("execution cancelled")
	default:
		return nil
	}
}

// wrapNodeError adds desc as context to an error escaping a node's
// iterator, once per node boundary crossed. io.EOF and cooperative
// termination signals pass through untouched.
func wrapNodeError(desc string, err error) error {
	if err == nil || err == io.EOF {
		return err
	}
	if queryerr.ErrCancelled.Is(err) || queryerr.ErrTimeout.Is(err) {
		return err
	}
	return errors.Wrapf(err, "%s", desc)
}

// describingIter wraps every built node's iterator so errors escaping
// it are annotated with the node's description exactly once.
type describingIter struct {
	inner RowIter
	desc  string
}

func (it *describingIter) Next(ctx context.Context) (*row.QueryRow, error) {
	r, err := it.inner.Next(ctx)
	if err != nil {
		return nil, wrapNodeError(it.desc, err)
	}
	return r, nil
}

func (it *describingIter) Close(ctx context.Context) error {
	return wrapNodeError(it.desc, it.inner.Close(ctx))
}

// sliceIter replays a pre-materialized row slice. Used by nodes whose
// natural implementation must already buffer before yielding anything
// (CountOptimizedNode's single row, MergeAggregateNode's grouped
// output, DmlExecuteNode's single result row).
type sliceIter struct {
	rows []*row.QueryRow
	pos  int
}

func newSliceIter(rows []*row.QueryRow) *sliceIter { return &sliceIter{rows: rows} }

func (it *sliceIter) Next(ctx context.Context) (*row.QueryRow, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	if it.pos >= len(it.rows) {
		return nil, io.EOF
	}
	r := it.rows[it.pos]
	it.pos++
	return r, nil
}

func (it *sliceIter) Close(ctx context.Context) error { return nil }
