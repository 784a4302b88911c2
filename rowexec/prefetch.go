package rowexec

import (
	"context"
	"io"

	"github.com/joshsmithxrm/ppds-sdk/plan"
	"github.com/joshsmithxrm/ppds-sdk/row"
)

type prefetchItem struct {
	row *row.QueryRow
	err error
}

// prefetchIter overlaps network I/O with client-side evaluation: a
// background goroutine drains Source into a bounded channel while the
// foreground consumes it at its own pace.
type prefetchIter struct {
	source RowIter
	items  chan prefetchItem
	cancel context.CancelFunc
	done   chan struct{}
}

func (e *Executor) buildPrefetchScan(ctx context.Context, n *plan.PrefetchScanNode) (RowIter, error) {
	source, err := e.Build(ctx, n.Source)
	if err != nil {
		return nil, err
	}
	bgCtx, cancel := context.WithCancel(ctx)
	it := &prefetchIter{
		source: source,
		items:  make(chan prefetchItem, e.prefetchBufferSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go it.run(bgCtx)
	return it, nil
}

func (it *prefetchIter) run(ctx context.Context) {
	defer close(it.done)
	defer close(it.items)
	for {
		r, err := it.source.Next(ctx)
		select {
		case it.items <- prefetchItem{row: r, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (it *prefetchIter) Next(ctx context.Context) (*row.QueryRow, error) {
	select {
	case item, ok := <-it.items:
		if !ok {
			return nil, io.EOF
		}
		return item.row, item.err
	case <-ctx.Done():
		return nil, checkCancelled(ctx)
	}
}

func (it *prefetchIter) Close(ctx context.Context) error {
	it.cancel()
	<-it.done
	return it.source.Close(ctx)
}
