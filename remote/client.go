// Package remote defines the external capability set the query core
// consumes: the four RemoteClient primitives and a
// connection-pool contract with guaranteed-release scoped handles. An
// in-memory fake implementation lives alongside for tests and the
// usage example.
package remote

import "context"

// Record is one entity record as returned by the remote store: a flat
// map of attribute name to raw value, plus FormattedValues for
// display-name-bearing attributes (lookups, optionsets, statuscode).
type Record struct {
	EntityLogicalName string
	Values            map[string]interface{}
	FormattedValues   map[string]string
}

// RetrieveResult is the response shape of RetrieveMultipleAsync.
type RetrieveResult struct {
	Records      []Record
	PagingCookie string
	MoreRecords  bool
}

// BulkRequest is one row of a bulk DML operation.
type BulkRequest struct {
	Operation string // "create" | "update" | "delete"
	Entity    string
	ID        string // "" for create
	Values    map[string]interface{}
}

// BulkDetail records the outcome of one BulkRequest.
type BulkDetail struct {
	Index   int
	Success bool
	Error   error
}

// BulkResult aggregates a bulk operation's outcome.
type BulkResult struct {
	Succeeded int
	Failed    int
	Details   []BulkDetail
}

// BulkProgress is invoked after each batch completes.
type BulkProgress func(completed, total int)

// PassthroughRequest wraps a pass-through SQL statement.
type PassthroughRequest struct {
	Sql string
}

// PassthroughResponse is the pass-through endpoint's flat result shape.
type PassthroughResponse struct {
	Rows    []map[string]interface{}
	Columns []string
}

// Client is the capability set the plan executor drives.
type Client interface {
	RetrieveMultipleAsync(ctx context.Context, fetchXml, pagingCookie string, pageSize int) (*RetrieveResult, error)
	GetTotalRecordCountAsync(ctx context.Context, entityNames []string) (map[string]int64, error)
	ExecuteBulkAsync(ctx context.Context, requests []BulkRequest, batchSize int, progress BulkProgress) (*BulkResult, error)
	ExecuteAsync(ctx context.Context, req PassthroughRequest) (*PassthroughResponse, error)
}
