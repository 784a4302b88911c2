package rowexec

import (
	"context"
	"io"

	"github.com/joshsmithxrm/ppds-sdk/plan"
	"github.com/joshsmithxrm/ppds-sdk/queryerr"
	"github.com/joshsmithxrm/ppds-sdk/row"
)

// distinctIter suppresses rows whose full value set hashes the same as
// one already seen.
type distinctIter struct {
	input RowIter
	seen  map[string]bool
}

func (e *Executor) buildDistinct(ctx context.Context, n *plan.DistinctNode) (RowIter, error) {
	input, err := e.Build(ctx, n.Input)
	if err != nil {
		return nil, err
	}
	return &distinctIter{input: input, seen: make(map[string]bool)}, nil
}

func (it *distinctIter) Next(ctx context.Context) (*row.QueryRow, error) {
	for {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		r, err := it.input.Next(ctx)
		if err != nil {
			return nil, err
		}
		hash, herr := hashKey(plainValues(r))
		if herr != nil {
			return nil, queryerr.ErrExecutionFailed.New("failed to hash row for distinct: " + herr.Error())
		}
		if it.seen[hash] {
			continue
		}
		it.seen[hash] = true
		return r, nil
	}
}

func (it *distinctIter) Close(ctx context.Context) error { return it.input.Close(ctx) }

func plainValues(r *row.QueryRow) map[string]interface{} {
	out := make(map[string]interface{}, len(r.Values))
	for k, v := range r.Values {
		out[k] = v.Plain()
	}
	return out
}

// concatenateIter yields each child's rows in order, one child fully
// drained before the next begins.
type concatenateIter struct {
	e      *Executor
	inputs []plan.Node
	cur    RowIter
	idx    int
}

func (e *Executor) buildConcatenate(ctx context.Context, n *plan.ConcatenateNode) (RowIter, error) {
	return &concatenateIter{e: e, inputs: n.Inputs}, nil
}

func (it *concatenateIter) Next(ctx context.Context) (*row.QueryRow, error) {
	for {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		if it.cur == nil {
			if it.idx >= len(it.inputs) {
				return nil, io.EOF
			}
			iter, err := it.e.Build(ctx, it.inputs[it.idx])
			if err != nil {
				return nil, err
			}
			it.cur = iter
			it.idx++
		}
		r, err := it.cur.Next(ctx)
		if err == io.EOF {
			it.cur.Close(ctx)
			it.cur = nil
			continue
		}
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}

func (it *concatenateIter) Close(ctx context.Context) error {
	if it.cur == nil {
		return nil
	}
	return it.cur.Close(ctx)
}
