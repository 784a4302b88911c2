package rowexec

import (
	"context"

	"github.com/joshsmithxrm/ppds-sdk/plan"
	"github.com/joshsmithxrm/ppds-sdk/row"
)

// clientFilterIter evaluates Condition against each input row, passing
// through only the rows for which it's true.
type clientFilterIter struct {
	e     *Executor
	node  *plan.ClientFilterNode
	input RowIter
}

func (e *Executor) buildClientFilter(ctx context.Context, n *plan.ClientFilterNode) (RowIter, error) {
	input, err := e.Build(ctx, n.Input)
	if err != nil {
		return nil, err
	}
	return &clientFilterIter{e: e, node: n, input: input}, nil
}

func (it *clientFilterIter) Next(ctx context.Context) (*row.QueryRow, error) {
	for {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		r, err := it.input.Next(ctx)
		if err != nil {
			return nil, err
		}
		ok, err := it.e.eval.EvaluateCondition(it.node.Condition, r)
		if err != nil {
			return nil, err
		}
		if ok {
			return r, nil
		}
	}
}

func (it *clientFilterIter) Close(ctx context.Context) error { return it.input.Close(ctx) }

// projectIter rewrites each input row through node.Columns: a
// pass-through column carries its value across unchanged, a derived
// column is computed fresh per row via the evaluator.
type projectIter struct {
	e     *Executor
	node  *plan.ProjectNode
	input RowIter
}

func (e *Executor) buildProject(ctx context.Context, n *plan.ProjectNode) (RowIter, error) {
	input, err := e.Build(ctx, n.Input)
	if err != nil {
		return nil, err
	}
	return &projectIter{e: e, node: n, input: input}, nil
}

func (it *projectIter) Next(ctx context.Context) (*row.QueryRow, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	src, err := it.input.Next(ctx)
	if err != nil {
		return nil, err
	}
	out := row.NewQueryRow(src.EntityLogicalName)
	for _, col := range it.node.Columns {
		if col.Expr == nil {
			if v, ok := src.Get(col.Name); ok {
				out.Set(col.Name, v)
			}
			continue
		}
		v, err := it.e.eval.Evaluate(col.Expr, src)
		if err != nil {
			return nil, err
		}
		out.Set(col.Name, row.NewSimple(v))
	}
	return out, nil
}

func (it *projectIter) Close(ctx context.Context) error { return it.input.Close(ctx) }
