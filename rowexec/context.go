package rowexec

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Statistics are the mutable counters tracked over one plan execution,
// updated atomically since ParallelPartitionNode branches touch them
// concurrently.
type Statistics struct {
	rowsOutput int64
}

// RowsOutput is the number of rows that have left the top node so far.
func (s *Statistics) RowsOutput() int64 { return atomic.LoadInt64(&s.rowsOutput) }

func (s *Statistics) incRowsOutput() { atomic.AddInt64(&s.rowsOutput, 1) }

// QueryPlanContext threads the one piece of mutable state a plan
// execution carries: a correlation id for logs/traces and the live
// statistics. Plan nodes themselves stay immutable.
type QueryPlanContext struct {
	ID         string
	Statistics *Statistics
}

// NewQueryPlanContext returns a fresh context with a new correlation id.
func NewQueryPlanContext() *QueryPlanContext {
	return &QueryPlanContext{ID: uuid.NewString(), Statistics: &Statistics{}}
}
